package abcfile

import (
	"bytes"
	"fmt"
)

// section names one (offset, count) pair of the header for diagnostics.
type section struct {
	name     string
	off      uint32
	count    uint32
	elemSize uint32
}

// validateHeader runs the ordered open-time checks over the mapped bytes of
// a container and returns the decoded header.
//
// The chain is: magic, declared size against header size and mapped size,
// every header section against the declared size, the literal-array layout
// rule for the stored version, and finally version compatibility. The last
// step only logs unless cfg.StrictVersion is set.
//
// The checksum is deliberately not part of the chain; see
// File.ValidateChecksum.
func validateHeader(data []byte, cfg *Config) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: have %d bytes, need %d", ErrFileTooSmall, len(data), HeaderSize)
	}
	h := parseHeader(data)

	if !bytes.Equal(h.Magic[:], Magic[:]) {
		return h, ErrBadMagic
	}

	if h.FileSize < HeaderSize {
		return h, fmt.Errorf("%w: declared %d, need %d", ErrFileTooSmall, h.FileSize, HeaderSize)
	}
	if uint64(h.FileSize) > uint64(len(data)) {
		return h, fmt.Errorf("%w: declared %d, mapped %d", ErrFileSizeOverrun, h.FileSize, len(data))
	}

	sections := []section{
		{"foreign region", h.ForeignOff, h.ForeignSize, 1},
		{"class index", h.ClassIdxOff, h.NumClasses, idSize},
		{"line number program index", h.LNPIdxOff, h.NumLNPs, idSize},
		{"index section", h.IndexSectionOff, h.NumIndexes, IndexHeaderSize},
	}
	for _, s := range sections {
		if !checkSection(s.off, s.count, s.elemSize, h.FileSize) {
			return h, fmt.Errorf("%w: %s off=%#x count=%d", ErrSectionBounds, s.name, s.off, s.count)
		}
	}

	if err := checkLiteralArrayLayout(&h); err != nil {
		return h, err
	}

	if problem := versionProblem(h.Version); problem != "" {
		if cfg != nil && cfg.StrictVersion {
			return h, fmt.Errorf("%w: %s", ErrVersionIncompatible, problem)
		}
		Logger().Warn("container version not compatible", "version", h.Version.String(), "detail", problem)
	}

	return h, nil
}

// checkLiteralArrayLayout enforces that versions which still carry the
// literal-array index in the header describe a valid section, and that later
// versions store exactly the sentinel pair.
func checkLiteralArrayLayout(h *Header) error {
	if h.Version.ContainsLiteralArrayInHeader() {
		if !checkSection(h.LiteralArrayIdxOff, h.NumLiteralArrays, idSize, h.FileSize) {
			return fmt.Errorf("%w: literal array index off=%#x count=%d",
				ErrSectionBounds, h.LiteralArrayIdxOff, h.NumLiteralArrays)
		}
		return nil
	}
	if h.NumLiteralArrays != invalidIndex || h.LiteralArrayIdxOff != invalidOffset {
		return fmt.Errorf("%w: version %s stores (%#x, %#x)",
			ErrLiteralArrayLayout, h.Version, h.NumLiteralArrays, h.LiteralArrayIdxOff)
	}
	return nil
}
