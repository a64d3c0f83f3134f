// open.go
//
// Source resolution for containers.
// A location is either a plain path or "archive!/member". Plain paths are
// sniffed for a zip signature so that an archive given without a member name
// still resolves to DefaultMemberName inside it.
//
// Every entry point follows the same ownership rule: whatever mapping has been
// acquired is released before an error is returned, and a successful return
// hands the mapping to exactly one File, which releases it on Close. Failures
// are logged once at error level and returned as (nil, err).

package abcfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// ArchiveSeparator splits an archive path from a member name.
	ArchiveSeparator = "!/"

	// DefaultMemberName is opened when an archive location names no member.
	DefaultMemberName = "classes.abc"
)

var zipSignature = []byte{'P', 'K', 0x03, 0x04}

// SplitLocation splits "archive!/member" into its parts. A location without
// a separator is returned whole with an empty member.
func SplitLocation(location string) (path, member string) {
	path, member, _ = strings.Cut(location, ArchiveSeparator)
	return path, member
}

// Open resolves location and returns a validated container.
func Open(location string, mode OpenMode, opts ...Option) (*File, error) {
	path, member := SplitLocation(location)
	if member != "" {
		return OpenZipMember(path, member, mode, opts...)
	}

	isZip, err := sniffZip(path)
	if err != nil {
		return nil, openFailed(location, err)
	}
	if isZip {
		return OpenZipMember(path, DefaultMemberName, mode, opts...)
	}
	return OpenFile(path, mode, opts...)
}

// sniffZip reports whether the file at path starts with a local file header.
func sniffZip(path string) (bool, error) {
	fh, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer fh.Close()

	var sig [4]byte
	if _, err := io.ReadFull(fh, sig[:]); err != nil {
		// Too short to be an archive; OpenFile reports the real problem.
		return false, nil
	}
	return bytes.Equal(sig[:], zipSignature), nil
}

// OpenFile maps a plain container file. Exactly the declared file size is
// mapped, after checking that the file on disk is at least that large.
func OpenFile(path string, mode OpenMode, opts ...Option) (*File, error) {
	cfg := buildConfig(opts)
	f, err := openFile(path, mode, cfg)
	if err != nil {
		return nil, openFailed(path, err)
	}
	return f, nil
}

func openFile(path string, mode OpenMode, cfg Config) (*File, error) {
	flags, err := mode.fileFlags()
	if err != nil {
		return nil, err
	}
	fh, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer fh.Close()

	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(fh, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w", ErrFileTooSmall, ErrShortRead)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrOpen, err)
	}
	fileSize, err := preflightHeader(hdr[:])
	if err != nil {
		return nil, err
	}

	st, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	// Mapping past EOF would fault on first touch instead of failing here.
	if int64(fileSize) > st.Size() {
		return nil, fmt.Errorf("%w: declared %d, file has %d", ErrFileSizeOverrun, fileSize, st.Size())
	}

	m, err := mapFileRegion(fh, 0, int(fileSize), mode)
	if err != nil {
		return nil, err
	}
	f, err := newFile(m, path, cfg)
	if err != nil {
		_ = m.release()
		return nil, err
	}
	return f, nil
}

// preflightHeader checks the magic and the declared size from raw header
// bytes before anything is mapped.
func preflightHeader(hdr []byte) (uint32, error) {
	if !bytes.Equal(hdr[:MagicSize], Magic[:]) {
		return 0, ErrBadMagic
	}
	fileSize := binary.LittleEndian.Uint32(hdr[MagicSize+ChecksumSize+VersionSize:])
	if fileSize < HeaderSize {
		return 0, fmt.Errorf("%w: declared %d, need %d", ErrFileTooSmall, fileSize, HeaderSize)
	}
	return fileSize, nil
}

// OpenFromMemory copies buf into a fresh anonymous mapping and validates it.
// buf is not retained. When tag is non-empty the mapping is named after it
// for external symbolization tools; DynamicCodeTag gets the mapping address
// appended.
func OpenFromMemory(buf []byte, filename, tag string, opts ...Option) (*File, error) {
	cfg := buildConfig(opts)
	f, err := openFromMemory(buf, filename, tag, cfg)
	if err != nil {
		return nil, openFailed(filename, err)
	}
	return f, nil
}

func openFromMemory(buf []byte, filename, tag string, cfg Config) (*File, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrFileTooSmall, len(buf), HeaderSize)
	}
	if uint64(len(buf)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d byte buffer", ErrOpen, len(buf))
	}
	m, err := mapAnonymous(len(buf))
	if err != nil {
		return nil, err
	}
	copy(m.data, buf)

	f, err := newFile(m, filename, cfg)
	if err != nil {
		_ = m.release()
		return nil, err
	}
	if tag != "" {
		r := tagAnonRegion(m, filename, tag)
		f.anonTagged = true
		Logger().Debug("tagged anonymous container mapping", "file", filename, "name", r.Name, "named", r.Named)
	}
	return f, nil
}

// OpenFromSecureMemory wraps a caller-owned buffer without copying. The
// buffer must lie entirely inside the process's secure-memory window (see
// Config.SecureRegionPath); it must stay valid and unmodified until the File
// is closed, and Close never frees it.
func OpenFromSecureMemory(buf []byte, filename string, opts ...Option) (*File, error) {
	cfg := buildConfig(opts)
	f, err := openFromSecureMemory(buf, filename, cfg)
	if err != nil {
		return nil, openFailed(filename, err)
	}
	return f, nil
}

func openFromSecureMemory(buf []byte, filename string, cfg Config) (*File, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrFileTooSmall, len(buf), HeaderSize)
	}
	if err := checkSecureBuffer(buf, cfg.SecureRegionPath); err != nil {
		return nil, err
	}
	m := &mapping{data: buf, kind: borrowed}
	return newFile(m, filename, cfg)
}

// openFailed logs err once for location and returns it.
func openFailed(location string, err error) error {
	Logger().Error("open container failed", "location", location, "err", err)
	return err
}
