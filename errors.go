package abcfile

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// them so callers can branch with errors.Is without knowing the finer
// sentinel that was hit.
var (
	// ErrOpen covers I/O failures, short reads and unusable archive members.
	ErrOpen = errors.New("abcfile: open failure")

	// ErrCorrupt covers bad magic, size overruns and malformed section bounds.
	ErrCorrupt = errors.New("abcfile: corrupt container")

	// ErrVersionIncompatible is only returned when strict version checking
	// is enabled; otherwise version problems are logged and ignored.
	ErrVersionIncompatible = errors.New("abcfile: incompatible version")

	// ErrOutOfRange reports a handle or offset outside the mapped bounds.
	ErrOutOfRange = errors.New("abcfile: invalid file offset")

	// ErrSecureMemory reports a buffer that lies outside the secure range.
	ErrSecureMemory = errors.New("abcfile: buffer outside secure memory range")
)

var (
	ErrBadMagic            = fmt.Errorf("%w: bad magic", ErrCorrupt)
	ErrFileTooSmall        = fmt.Errorf("%w: file smaller than header", ErrCorrupt)
	ErrFileSizeOverrun     = fmt.Errorf("%w: declared size exceeds mapped size", ErrCorrupt)
	ErrSectionBounds       = fmt.Errorf("%w: section out of bounds", ErrCorrupt)
	ErrLiteralArrayLayout  = fmt.Errorf("%w: literal array header fields inconsistent with version", ErrCorrupt)
	ErrBadChecksum         = fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	ErrBadStringRecord     = fmt.Errorf("%w: malformed string record", ErrCorrupt)
	ErrBadHashTable        = fmt.Errorf("%w: malformed descriptor hash table", ErrCorrupt)
	ErrShortRead           = fmt.Errorf("%w: short read", ErrOpen)
	ErrEmptyZipEntry       = fmt.Errorf("%w: zip entry is empty", ErrOpen)
	ErrZipEntryNotFound    = fmt.Errorf("%w: zip entry not found", ErrOpen)
	ErrUnsupportedOpenMode = fmt.Errorf("%w: unsupported open mode", ErrOpen)
)

// AccessError describes an access-time fault on an open container.
//
// The stored and computed checksums are captured at fault time so that
// on-disk corruption (they differ) can be told apart from a caller passing a
// bogus handle (they match).
type AccessError struct {
	Filename string
	Offset   uint32
	FileSize uint32

	StoredChecksum   uint32
	ComputedChecksum uint32
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("abcfile: invalid file offset %#x in %q (size %#x, checksum stored %08x computed %08x)",
		e.Offset, e.Filename, e.FileSize, e.StoredChecksum, e.ComputedChecksum)
}

// Unwrap lets errors.Is(err, ErrOutOfRange) succeed.
func (e *AccessError) Unwrap() error { return ErrOutOfRange }

// Corrupted reports whether the checksum recomputed at fault time differs
// from the stored one.
func (e *AccessError) Corrupted() bool { return e.StoredChecksum != e.ComputedChecksum }
