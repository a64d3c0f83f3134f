package abcfile

import (
	"fmt"
	"os"
	"unsafe"
)

// OpenMode selects how a plain file or directly mapped zip member is mapped.
type OpenMode uint8

const (
	// OpenReadOnly maps the bytes private and read-only.
	OpenReadOnly OpenMode = iota

	// OpenReadWrite maps the bytes shared and writable where the platform
	// permits it.
	OpenReadWrite

	// OpenWriteOnly is accepted for completeness and mapped like
	// OpenReadWrite; writable mappings are best-effort.
	OpenWriteOnly
)

func (m OpenMode) String() string {
	switch m {
	case OpenReadOnly:
		return "read-only"
	case OpenReadWrite:
		return "read-write"
	case OpenWriteOnly:
		return "write-only"
	}
	return fmt.Sprintf("OpenMode(%d)", uint8(m))
}

func (m OpenMode) fileFlags() (int, error) {
	switch m {
	case OpenReadOnly:
		return os.O_RDONLY, nil
	case OpenReadWrite, OpenWriteOnly:
		return os.O_RDWR, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedOpenMode, m)
}

type mappingKind uint8

const (
	mappedFile mappingKind = iota // file-backed OS mapping
	mappedAnon                    // anonymous OS mapping owned by us
	mappedHeap                    // Go heap fallback on platforms without mmap
	borrowed                      // caller-owned secure buffer, never freed
)

// mapping is the memory region a File owns. region is what the OS handed
// out (and what must be given back); data is the container inside it.
type mapping struct {
	region []byte
	data   []byte
	kind   mappingKind
}

// release gives the region back. It is called exactly once by File.Close or
// by an open path that fails after mapping.
func (m *mapping) release() error {
	if m == nil {
		return nil
	}
	var err error
	switch m.kind {
	case mappedFile, mappedAnon:
		err = unmapRegion(m.region)
	}
	m.region, m.data = nil, nil
	return err
}

// pageAlignDown splits off into a page-aligned base and the remainder.
func pageAlignDown(off int64) (base int64, delta int) {
	ps := int64(os.Getpagesize())
	base = off &^ (ps - 1)
	return base, int(off - base)
}

// roundUpPage rounds n up to a whole number of pages.
func roundUpPage(n int) int {
	ps := os.Getpagesize()
	return (n + ps - 1) &^ (ps - 1)
}

// bufferAddr returns the address of b's first byte.
func bufferAddr(b []byte) uintptr { return uintptr(unsafe.Pointer(unsafe.SliceData(b))) }
