package abcfile

import (
	"encoding/binary"
	"slices"
)

// Builder assembles a minimal, well-formed container holding a set of class
// descriptors. It is used by tooling that needs synthetic containers.
//
// The layout is header, one index-section record covering the whole file,
// the sorted class index, the foreign region and finally the descriptor
// string records. The checksum is filled in last.
type Builder struct {
	version Version
	classes []string
	foreign []byte
}

// NewBuilder returns a Builder for CurrentVersion.
func NewBuilder() *Builder { return &Builder{version: CurrentVersion} }

// SetVersion changes the version written to the header. Versions that still
// carry a literal-array index get an empty one; later versions get the
// sentinel pair.
func (b *Builder) SetVersion(v Version) *Builder {
	b.version = v
	return b
}

// AddClass adds a class descriptor. Duplicates are kept once.
func (b *Builder) AddClass(descriptors ...string) *Builder {
	for _, d := range descriptors {
		if !slices.Contains(b.classes, d) {
			b.classes = append(b.classes, d)
		}
	}
	return b
}

// SetForeign sets the raw bytes of the foreign region.
func (b *Builder) SetForeign(p []byte) *Builder {
	b.foreign = slices.Clone(p)
	return b
}

// Build lays out the container and returns it with the handle of every
// class descriptor.
func (b *Builder) Build() ([]byte, map[string]EntityID) {
	classes := slices.Clone(b.classes)
	slices.SortFunc(classes, func(x, y string) int { return CompareMUTF8(mutf8Key(x), mutf8Key(y)) })

	n := uint32(len(classes))
	indexOff := uint32(HeaderSize)
	classIdxOff := indexOff + IndexHeaderSize
	foreignOff := classIdxOff + n*idSize
	stringsOff := foreignOff + uint32(len(b.foreign))

	var records []byte
	ids := make(map[string]EntityID, n)
	handles := make([]EntityID, 0, n)
	for _, d := range classes {
		id := EntityID(stringsOff + uint32(len(records)))
		ids[d] = id
		handles = append(handles, id)
		records = AppendStringRecord(records, d)
	}
	fileSize := stringsOff + uint32(len(records))

	h := Header{
		Magic:       Magic,
		Version:     b.version,
		FileSize:    fileSize,
		ForeignOff:  foreignOff,
		ForeignSize: uint32(len(b.foreign)),
		NumClasses:  n,
		ClassIdxOff: classIdxOff,
		LNPIdxOff:   classIdxOff,
		NumIndexes:  1,

		IndexSectionOff: indexOff,
	}
	if b.version.ContainsLiteralArrayInHeader() {
		h.LiteralArrayIdxOff = classIdxOff
	} else {
		h.NumLiteralArrays, h.LiteralArrayIdxOff = invalidIndex, invalidOffset
	}
	ih := IndexHeader{
		Start:        HeaderSize,
		End:          fileSize,
		ClassIdxSize: n,
		ClassIdxOff:  classIdxOff,
		MethodIdxOff: classIdxOff,
		FieldIdxOff:  classIdxOff,
		ProtoIdxOff:  classIdxOff,
	}

	out := make([]byte, 0, fileSize)
	out = h.AppendBinary(out)
	out = ih.AppendBinary(out)
	for _, id := range handles {
		out = binary.LittleEndian.AppendUint32(out, uint32(id))
	}
	out = append(out, b.foreign...)
	out = append(out, records...)

	binary.LittleEndian.PutUint32(out[MagicSize:], computeChecksum(out, fileSize))
	return out, ids
}
