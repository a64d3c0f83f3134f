//go:build unix

package abcfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapFileRegion maps size bytes of f starting at off. off does not need to be
// page aligned; the mapping starts at the enclosing page boundary and data is
// sliced to the requested window.
func mapFileRegion(f *os.File, off int64, size int, mode OpenMode) (*mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: cannot map %d bytes", ErrOpen, size)
	}
	base, delta := pageAlignDown(off)

	prot, flags := unix.PROT_READ, unix.MAP_PRIVATE
	if mode == OpenReadWrite || mode == OpenWriteOnly {
		prot |= unix.PROT_WRITE
		flags = unix.MAP_SHARED
	}

	region, err := unix.Mmap(int(f.Fd()), base, delta+size, prot, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s: %w", ErrOpen, f.Name(), err)
	}
	return &mapping{
		region: region,
		data:   region[delta : delta+size : delta+size],
		kind:   mappedFile,
	}, nil
}

// mapAnonymous returns a private, page-aligned, zero-filled read-write
// region of at least size bytes.
func mapAnonymous(size int) (*mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: cannot map %d bytes", ErrOpen, size)
	}
	region, err := unix.Mmap(-1, 0, roundUpPage(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: anonymous mmap of %d bytes: %w", ErrOpen, size, err)
	}
	return &mapping{
		region: region,
		data:   region[:size:size],
		kind:   mappedAnon,
	}, nil
}

func unmapRegion(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	return unix.Munmap(region)
}
