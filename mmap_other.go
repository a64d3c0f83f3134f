//go:build !unix

package abcfile

import (
	"fmt"
	"io"
	"os"
)

// Platforms without mmap read the window into the Go heap. Writable modes
// degrade to a private copy.
func mapFileRegion(f *os.File, off int64, size int, _ OpenMode) (*mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: cannot map %d bytes", ErrOpen, size)
	}
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, off); err != nil {
		if err == io.EOF {
			return nil, ErrShortRead
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrOpen, f.Name(), err)
	}
	return &mapping{region: buf, data: buf, kind: mappedHeap}, nil
}

func mapAnonymous(size int) (*mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: cannot map %d bytes", ErrOpen, size)
	}
	buf := make([]byte, roundUpPage(size))
	return &mapping{region: buf, data: buf[:size:size], kind: mappedHeap}, nil
}

func unmapRegion([]byte) error { return nil }
