package abcfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// secureRange is the process-wide secure-memory window. A zero value means
// no policy is enforced.
type secureRange struct {
	start, end uint64
	enforced   bool
}

var (
	secureOnce  sync.Once
	secureState secureRange
)

// loadSecureRange reads the window from path. The first caller wins; later
// calls, even with a different path, see the same result. sync.Once gives
// every later reader a happens-before edge on the initializing read.
func loadSecureRange(path string) secureRange {
	secureOnce.Do(func() { secureState = readSecureRange(path) })
	return secureState
}

// readSecureRange parses "<start>-<end>" in hex. Any failure disables the
// check for the rest of the process and is logged exactly once, here.
func readSecureRange(path string) secureRange {
	raw, err := os.ReadFile(path)
	if err != nil {
		Logger().Warn("secure memory range unavailable, secure buffer checks disabled", "path", path, "err", err)
		return secureRange{}
	}
	r, err := parseSecureRange(string(raw))
	if err != nil {
		Logger().Warn("secure memory range unreadable, secure buffer checks disabled", "path", path, "err", err)
		return secureRange{}
	}
	if r.start == 0 && r.end == 0 {
		Logger().Debug("secure memory range is empty, secure buffer checks disabled", "path", path)
		return secureRange{}
	}
	return r
}

func parseSecureRange(s string) (secureRange, error) {
	s = strings.TrimSpace(s)
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return secureRange{}, fmt.Errorf("missing '-' in %q", s)
	}
	start, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(lo), "0x"), 16, 64)
	if err != nil {
		return secureRange{}, err
	}
	end, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(hi), "0x"), 16, 64)
	if err != nil {
		return secureRange{}, err
	}
	if end < start {
		return secureRange{}, fmt.Errorf("end %#x before start %#x", end, start)
	}
	return secureRange{start: start, end: end, enforced: true}, nil
}

// contains reports whether [addr, addr+size) lies inside the window. An
// unenforced range contains everything.
func (r secureRange) contains(addr uint64, size uint64) bool {
	if !r.enforced {
		return true
	}
	if addr < r.start || addr > r.end {
		return false
	}
	return size <= r.end-addr
}

// checkSecureBuffer verifies that buf lies inside the secure window read from
// path.
func checkSecureBuffer(buf []byte, path string) error {
	r := loadSecureRange(path)
	addr := uint64(bufferAddr(buf))
	if !r.contains(addr, uint64(len(buf))) {
		return fmt.Errorf("%w: [%#x, %#x) not within [%#x, %#x)",
			ErrSecureMemory, addr, addr+uint64(len(buf)), r.start, r.end)
	}
	return nil
}
