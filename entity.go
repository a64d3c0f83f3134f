package abcfile

import (
	"encoding/binary"
	"fmt"
	"iter"
)

// EntityID is an offset-typed handle into a loaded container.
//
// Handles are plain offsets and are never turned into pointers that outlive
// the mapping. Every dereference goes through File.Span, which checks the
// offset against the container size first.
type EntityID uint32

// InvalidEntityID is returned by lookups that find nothing.
const InvalidEntityID EntityID = 0

// IsValid reports whether id points past the header. It says nothing about
// the upper bound; that is checked against a concrete File on access.
func (id EntityID) IsValid() bool { return uint32(id) > HeaderSize }

// Offset returns the raw byte offset.
func (id EntityID) Offset() uint32 { return uint32(id) }

func (id EntityID) String() string { return fmt.Sprintf("%#x", uint32(id)) }

// Span is a bounds-checked view of container bytes.
//
// A Span can only be obtained from a File or by narrowing another Span, so
// its bytes always lie inside the mapping it was cut from.
type Span struct {
	data []byte
	off  uint32 // absolute offset of data[0] inside the container
}

// Len returns the number of bytes in the view.
func (s Span) Len() int { return len(s.data) }

// Offset returns the absolute container offset of the first byte.
func (s Span) Offset() uint32 { return s.off }

// Bytes returns the viewed bytes. The slice aliases the mapping and must not
// be retained past File.Close.
func (s Span) Bytes() []byte { return s.data }

// SubSpan narrows s to n bytes starting at off (relative to s). The boolean
// result is false when the requested range does not fit.
func (s Span) SubSpan(off, n uint32) (Span, bool) {
	size := uint32(len(s.data))
	if !checkSection(off, n, 1, size) {
		return Span{}, false
	}
	return Span{data: s.data[off : off+n : off+n], off: s.off + off}, true
}

// Tail returns the view from off (relative to s) to the end of s.
func (s Span) Tail(off uint32) (Span, bool) {
	if uint64(off) > uint64(len(s.data)) {
		return Span{}, false
	}
	return s.SubSpan(off, uint32(len(s.data))-off)
}

// Uint32At reads a little-endian uint32 at byte offset off within s.
func (s Span) Uint32At(off uint32) (uint32, bool) {
	w, ok := s.SubSpan(off, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(w.data), true
}

// IDIndex is a bounds-checked view over a packed array of little-endian
// uint32 handles, such as the class index or a per-region method index.
type IDIndex struct {
	span Span
}

// Len returns the number of handles.
func (x IDIndex) Len() int { return x.span.Len() / idSize }

// At returns the i-th handle, or InvalidEntityID when i is out of range.
func (x IDIndex) At(i int) EntityID {
	if i < 0 || i >= x.Len() {
		return InvalidEntityID
	}
	v, _ := x.span.Uint32At(uint32(i * idSize))
	return EntityID(v)
}

// All yields every (position, handle) pair in order.
func (x IDIndex) All() iter.Seq2[int, EntityID] {
	return func(yield func(int, EntityID) bool) {
		for i := range x.Len() {
			if !yield(i, x.At(i)) {
				return
			}
		}
	}
}
