package abcfile

import (
	"sort"
)

// Index is a small per-region index into a class/method/field/proto table.
type Index = uint16

// Classes returns the sorted class index from the header.
func (f *File) Classes() IDIndex {
	return IDIndex{span: f.sectionSpan(f.header.ClassIdxOff, f.header.NumClasses, idSize)}
}

// LineNumberPrograms returns the line-number-program index.
func (f *File) LineNumberPrograms() IDIndex {
	return IDIndex{span: f.sectionSpan(f.header.LNPIdxOff, f.header.NumLNPs, idSize)}
}

// LiteralArrays returns the literal-array index for versions that keep it
// in the header, and an empty index otherwise.
func (f *File) LiteralArrays() IDIndex {
	if !f.header.Version.ContainsLiteralArrayInHeader() {
		return IDIndex{}
	}
	return IDIndex{span: f.sectionSpan(f.header.LiteralArrayIdxOff, f.header.NumLiteralArrays, idSize)}
}

// IndexHeaders returns every IndexHeader record in file order.
func (f *File) IndexHeaders() []IndexHeader {
	sp := f.sectionSpan(f.header.IndexSectionOff, f.header.NumIndexes, IndexHeaderSize)
	out := make([]IndexHeader, 0, f.header.NumIndexes)
	for i := 0; i+IndexHeaderSize <= sp.Len(); i += IndexHeaderSize {
		out = append(out, parseIndexHeader(sp.data[i:]))
	}
	return out
}

// FindIndexHeader returns the record whose [Start, End) range contains id.
// The scan is linear; containers carry a handful of regions at most.
func (f *File) FindIndexHeader(id EntityID) (IndexHeader, bool) {
	sp := f.sectionSpan(f.header.IndexSectionOff, f.header.NumIndexes, IndexHeaderSize)
	for i := 0; i+IndexHeaderSize <= sp.Len(); i += IndexHeaderSize {
		ih := parseIndexHeader(sp.data[i:])
		if ih.Contains(id) {
			return ih, true
		}
	}
	return IndexHeader{}, false
}

// regionIndex resolves the sub-index selected by pick for the region that
// contains id. Regions that do not exist yield an empty index; sub-indexes
// that exceed the file are access faults.
func (f *File) regionIndex(id EntityID, pick func(*IndexHeader) (off, count uint32)) IDIndex {
	ih, ok := f.FindIndexHeader(id)
	if !ok {
		return IDIndex{}
	}
	off, count := pick(&ih)
	return IDIndex{span: f.sectionSpan(off, count, idSize)}
}

// ClassIndexFor returns the class sub-index of the region containing id.
func (f *File) ClassIndexFor(id EntityID) IDIndex {
	return f.regionIndex(id, func(ih *IndexHeader) (uint32, uint32) { return ih.ClassIdxOff, ih.ClassIdxSize })
}

// MethodIndexFor returns the method sub-index of the region containing id.
func (f *File) MethodIndexFor(id EntityID) IDIndex {
	return f.regionIndex(id, func(ih *IndexHeader) (uint32, uint32) { return ih.MethodIdxOff, ih.MethodIdxSize })
}

// FieldIndexFor returns the field sub-index of the region containing id.
func (f *File) FieldIndexFor(id EntityID) IDIndex {
	return f.regionIndex(id, func(ih *IndexHeader) (uint32, uint32) { return ih.FieldIdxOff, ih.FieldIdxSize })
}

// ProtoIndexFor returns the proto sub-index of the region containing id.
func (f *File) ProtoIndexFor(id EntityID) IDIndex {
	return f.regionIndex(id, func(ih *IndexHeader) (uint32, uint32) { return ih.ProtoIdxOff, ih.ProtoIdxSize })
}

// ResolveClassIndex maps a region-local class index used by the entity at
// id to a handle. Out-of-range indexes resolve to InvalidEntityID.
func (f *File) ResolveClassIndex(id EntityID, idx Index) EntityID {
	return f.ClassIndexFor(id).At(int(idx))
}

// ResolveMethodIndex is ResolveClassIndex for methods.
func (f *File) ResolveMethodIndex(id EntityID, idx Index) EntityID {
	return f.MethodIndexFor(id).At(int(idx))
}

// ResolveFieldIndex is ResolveClassIndex for fields.
func (f *File) ResolveFieldIndex(id EntityID, idx Index) EntityID {
	return f.FieldIndexFor(id).At(int(idx))
}

// ResolveProtoIndex is ResolveClassIndex for prototypes.
func (f *File) ResolveProtoIndex(id EntityID, idx Index) EntityID {
	return f.ProtoIndexFor(id).At(int(idx))
}

// ClassID returns the handle of the class whose descriptor equals
// descriptor, or InvalidEntityID.
//
// An attached HashTable is used when present, otherwise the sorted class
// index is binary searched. Hits are memoised per File.
func (f *File) ClassID(descriptor string) EntityID {
	if f.memo != nil {
		if id, ok := f.memo.Get(descriptor); ok {
			return id
		}
	}

	var id EntityID
	if t := f.classTable.Load(); t != nil {
		id = t.Lookup(f, descriptor)
	} else {
		id = f.classIDBySearch(mutf8Key(descriptor))
	}

	if f.memo != nil && id.IsValid() {
		f.memo.Add(descriptor, id)
	}
	return id
}

// classIDBySearch binary searches the class index, which is sorted by
// CompareMUTF8 over the descriptors it points at.
func (f *File) classIDBySearch(descriptor []byte) EntityID {
	classes := f.Classes()
	n := classes.Len()
	i := sort.Search(n, func(i int) bool {
		return CompareMUTF8(f.mustStringData(classes.At(i)).Data, descriptor) >= 0
	})
	if i < n {
		if id := classes.At(i); CompareMUTF8(f.mustStringData(id).Data, descriptor) == 0 {
			return id
		}
	}
	return InvalidEntityID
}

// AttachClassHashTable makes ClassID use t instead of binary search. A nil t
// detaches the current table.
func (f *File) AttachClassHashTable(t *HashTable) { f.classTable.Store(t) }

// ClassHashTable returns the attached table, if any.
func (f *File) ClassHashTable() *HashTable { return f.classTable.Load() }
