// zip.go
//
// Resolution of containers stored inside zip archives.
// The archive itself is opened through a read-only memory map and its central
// directory is read with the zip reader. A member that is stored (not
// compressed) at a 4-byte aligned data offset is mapped straight out of the
// archive file; anything else is inflated into an anonymous mapping, which is
// tagged with the archive and member name.

package abcfile

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
	"golang.org/x/exp/mmap"
)

// memberAlign is the data alignment a stored member needs to be mapped in
// place.
const memberAlign = 4

// OpenZipMember opens member inside the archive at path. An empty member
// selects DefaultMemberName, and so does a member that is not in the
// archive. The File is named after the member actually opened.
func OpenZipMember(path, member string, mode OpenMode, opts ...Option) (*File, error) {
	if member == "" {
		member = DefaultMemberName
	}
	cfg := buildConfig(opts)
	f, err := openZipMember(path, member, mode, cfg)
	if err != nil {
		return nil, openFailed(path+ArchiveSeparator+member, err)
	}
	return f, nil
}

func openZipMember(path, member string, mode OpenMode, cfg Config) (*File, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %w", ErrOpen, err)
	}
	defer ra.Close()

	zr, err := zip.NewReader(ra, int64(ra.Len()))
	if err != nil {
		return nil, fmt.Errorf("%w: read archive %s: %w", ErrOpen, path, err)
	}
	zf := findMember(zr, member)
	if zf == nil && member != DefaultMemberName {
		Logger().Info("zip member not found, trying default", "archive", path, "member", member, "default", DefaultMemberName)
		zf = findMember(zr, DefaultMemberName)
	}
	if zf == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrZipEntryNotFound, member, path)
	}
	location := path + ArchiveSeparator + zf.Name

	size := zf.UncompressedSize64
	switch {
	case size == 0:
		return nil, fmt.Errorf("%w: %s", ErrEmptyZipEntry, location)
	case size < HeaderSize:
		return nil, fmt.Errorf("%w: member %s has %d bytes", ErrFileTooSmall, location, size)
	case size > uint64(^uint32(0)):
		return nil, fmt.Errorf("%w: member %s has %d bytes", ErrOpen, location, size)
	}

	m, err := mapMember(path, int64(ra.Len()), zf, mode)
	if err != nil {
		return nil, err
	}
	f, err := newFile(m, location, cfg)
	if err != nil {
		_ = m.release()
		return nil, err
	}
	if m.kind == mappedAnon || m.kind == mappedHeap {
		tagAnonRegion(m, location, location)
		f.anonTagged = true
	}
	return f, nil
}

func findMember(zr *zip.Reader, name string) *zip.File {
	for _, zf := range zr.File {
		if zf.Name == name {
			return zf
		}
	}
	return nil
}

// mapMember picks the direct-map path for stored, aligned members and the
// extract path for everything else. A stored member must lie inside the
// archive's archiveLen bytes; mapping past EOF would fault on first touch.
func mapMember(path string, archiveLen int64, zf *zip.File, mode OpenMode) (*mapping, error) {
	size := int(zf.UncompressedSize64)
	if zf.Method == zip.Store {
		if zf.CompressedSize64 != zf.UncompressedSize64 {
			return nil, fmt.Errorf("%w: stored member %s has compressed size %d, uncompressed %d",
				ErrOpen, zf.Name, zf.CompressedSize64, zf.UncompressedSize64)
		}
		off, err := zf.DataOffset()
		if err != nil {
			return nil, fmt.Errorf("%w: member %s: %w", ErrOpen, zf.Name, err)
		}
		if off < 0 || off > archiveLen || int64(size) > archiveLen-off {
			return nil, fmt.Errorf("%w: stored member %s [%d, +%d) exceeds archive of %d bytes",
				ErrOpen, zf.Name, off, size, archiveLen)
		}
		if off%memberAlign == 0 {
			Logger().Debug("mapping stored zip member in place", "archive", path, "member", zf.Name, "offset", off)
			return mapStoredMember(path, off, size, mode)
		}
	}
	Logger().Debug("extracting zip member to anonymous memory", "archive", path, "member", zf.Name,
		"method", zf.Method, "size", size)
	return extractMember(zf, size)
}

func mapStoredMember(path string, off int64, size int, mode OpenMode) (*mapping, error) {
	flags, err := mode.fileFlags()
	if err != nil {
		return nil, err
	}
	fh, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer fh.Close()
	return mapFileRegion(fh, off, size, mode)
}

func extractMember(zf *zip.File, size int) (*mapping, error) {
	m, err := mapAnonymous(size)
	if err != nil {
		return nil, err
	}
	rc, err := zf.Open()
	if err != nil {
		_ = m.release()
		return nil, fmt.Errorf("%w: open member %s: %w", ErrOpen, zf.Name, err)
	}
	defer rc.Close()

	if _, err := io.ReadFull(rc, m.data); err != nil {
		_ = m.release()
		return nil, fmt.Errorf("%w: extract %s: %w", ErrShortRead, zf.Name, err)
	}
	return m, nil
}
