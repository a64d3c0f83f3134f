// checksum.go
//
// On-demand Adler-32 verification of a loaded container.
// The checksum covers every byte after the magic and the checksum field up to
// the declared file size. It is not checked at open time; it exists to tell
// on-disk corruption apart from caller bugs once an access has already gone
// out of range, and for explicit integrity checks by tooling.

package abcfile

import (
	"fmt"
	"hash/adler32"
)

// checksumStart is the first byte covered by the header checksum.
const checksumStart = MagicSize + ChecksumSize

// computeChecksum returns the Adler-32 of data[checksumStart:fileSize].
// It returns 0 when fileSize does not describe a range inside data.
func computeChecksum(data []byte, fileSize uint32) uint32 {
	if uint64(fileSize) > uint64(len(data)) || fileSize < checksumStart {
		return 0
	}
	return adler32.Checksum(data[checksumStart:fileSize])
}

// ComputeChecksum recomputes the checksum over the mapped bytes.
func (f *File) ComputeChecksum() uint32 {
	return computeChecksum(f.data, f.header.FileSize)
}

// ValidateChecksum compares the stored checksum with a freshly computed one.
//
// A nil return value signals a match; otherwise the error wraps
// ErrBadChecksum and names both values in hexadecimal.
func (f *File) ValidateChecksum() error {
	got := f.ComputeChecksum()
	if want := f.header.Checksum; got != want {
		return fmt.Errorf("%w: got %08x want %08x", ErrBadChecksum, got, want)
	}
	return nil
}
