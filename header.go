// header.go
//
// On-disk layout of the container header and the index-section records.
// Everything is little-endian and fixed-width; the parsers below never read
// past the slice they are given and never trust a count before it has been
// checked against the file size with checkSection.

package abcfile

import (
	"encoding/binary"
)

// Header layout constants.
const (
	MagicSize    = 8
	ChecksumSize = 4
	VersionSize  = 4

	// HeaderSize is the fixed on-disk size of Header.
	HeaderSize = MagicSize + ChecksumSize + VersionSize + 4*11

	// IndexHeaderSize is the on-disk size of one IndexHeader record.
	IndexHeaderSize = 4 * 10

	// idSize is the width of one entry in the class/lnp/literal-array and
	// per-region indexes.
	idSize = 4

	// invalidIndex and invalidOffset form the sentinel pair that versions
	// without a literal-array header section must store.
	invalidIndex  = ^uint32(0)
	invalidOffset = ^uint32(0)
)

// Magic identifies a container file.
var Magic = [MagicSize]byte{'P', 'A', 'N', 'D', 'A', 0, 0, 0}

// Header mirrors the fixed-layout header at offset 0.
type Header struct {
	Magic    [MagicSize]byte
	Checksum uint32
	Version  Version
	FileSize uint32

	ForeignOff  uint32
	ForeignSize uint32

	NumClasses  uint32
	ClassIdxOff uint32

	NumLNPs   uint32
	LNPIdxOff uint32

	NumLiteralArrays   uint32
	LiteralArrayIdxOff uint32

	NumIndexes      uint32
	IndexSectionOff uint32
}

// parseHeader decodes a Header from b. b must hold at least HeaderSize bytes.
func parseHeader(b []byte) Header {
	_ = b[HeaderSize-1] // bounds check hint
	var h Header
	copy(h.Magic[:], b[0:MagicSize])
	le := binary.LittleEndian
	p := MagicSize
	h.Checksum = le.Uint32(b[p:])
	p += ChecksumSize
	copy(h.Version[:], b[p:p+VersionSize])
	p += VersionSize

	fields := []*uint32{
		&h.FileSize,
		&h.ForeignOff, &h.ForeignSize,
		&h.NumClasses, &h.ClassIdxOff,
		&h.NumLNPs, &h.LNPIdxOff,
		&h.NumLiteralArrays, &h.LiteralArrayIdxOff,
		&h.NumIndexes, &h.IndexSectionOff,
	}
	for _, f := range fields {
		*f = le.Uint32(b[p:])
		p += 4
	}
	return h
}

// AppendBinary appends the on-disk encoding of h to b.
func (h *Header) AppendBinary(b []byte) []byte {
	le := binary.LittleEndian
	b = append(b, h.Magic[:]...)
	b = le.AppendUint32(b, h.Checksum)
	b = append(b, h.Version[:]...)
	for _, v := range []uint32{
		h.FileSize,
		h.ForeignOff, h.ForeignSize,
		h.NumClasses, h.ClassIdxOff,
		h.NumLNPs, h.LNPIdxOff,
		h.NumLiteralArrays, h.LiteralArrayIdxOff,
		h.NumIndexes, h.IndexSectionOff,
	} {
		b = le.AppendUint32(b, v)
	}
	return b
}

// IndexHeader describes the per-region class/method/field/proto indexes for
// every entity whose offset lies in [Start, End).
type IndexHeader struct {
	Start uint32
	End   uint32

	ClassIdxSize  uint32
	ClassIdxOff   uint32
	MethodIdxSize uint32
	MethodIdxOff  uint32
	FieldIdxSize  uint32
	FieldIdxOff   uint32
	ProtoIdxSize  uint32
	ProtoIdxOff   uint32
}

func parseIndexHeader(b []byte) IndexHeader {
	_ = b[IndexHeaderSize-1]
	le := binary.LittleEndian
	return IndexHeader{
		Start:         le.Uint32(b[0:]),
		End:           le.Uint32(b[4:]),
		ClassIdxSize:  le.Uint32(b[8:]),
		ClassIdxOff:   le.Uint32(b[12:]),
		MethodIdxSize: le.Uint32(b[16:]),
		MethodIdxOff:  le.Uint32(b[20:]),
		FieldIdxSize:  le.Uint32(b[24:]),
		FieldIdxOff:   le.Uint32(b[28:]),
		ProtoIdxSize:  le.Uint32(b[32:]),
		ProtoIdxOff:   le.Uint32(b[36:]),
	}
}

// AppendBinary appends the on-disk encoding of ih to b.
func (ih *IndexHeader) AppendBinary(b []byte) []byte {
	le := binary.LittleEndian
	for _, v := range []uint32{
		ih.Start, ih.End,
		ih.ClassIdxSize, ih.ClassIdxOff,
		ih.MethodIdxSize, ih.MethodIdxOff,
		ih.FieldIdxSize, ih.FieldIdxOff,
		ih.ProtoIdxSize, ih.ProtoIdxOff,
	} {
		b = le.AppendUint32(b, v)
	}
	return b
}

// Contains reports whether id falls in [Start, End).
func (ih *IndexHeader) Contains(id EntityID) bool {
	return ih.Start <= uint32(id) && uint32(id) < ih.End
}

// checkSection reports whether count elements of elemSize bytes starting at
// off fit inside size bytes.
//
// The check is written with subtraction only: off+count*elemSize can wrap for
// hostile inputs, so the product is computed in 64 bits and compared before
// it is ever subtracted from size.
func checkSection(off, count, elemSize, size uint32) bool {
	if off > size {
		return false
	}
	total := uint64(count) * uint64(elemSize)
	if total > uint64(size) {
		return false
	}
	return uint64(off) <= uint64(size)-total
}
