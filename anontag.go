package abcfile

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// DynamicCodeTag is the tag for containers produced at run time. Repeated
// loads of the same logical content would otherwise share one tag, so the
// buffer address is appended to keep tags unique.
const DynamicCodeTag = "dynamic code"

// maxAnonNameLen is the kernel limit for anonymous VMA names, terminator
// included.
const maxAnonNameLen = 80

// AnonRegion describes an anonymous mapping that holds a container, as
// reported to external symbolization tools.
type AnonRegion struct {
	Name     string
	Filename string
	Addr     uintptr
	Size     int
	// Named reports whether the kernel accepted the name.
	Named bool
}

var anonTags = struct {
	sync.Mutex
	byFile map[string]AnonRegion
}{byFile: make(map[string]AnonRegion)}

// sanitizeAnonName strips characters the kernel rejects in VMA names and
// clamps the length.
func sanitizeAnonName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r > 0x7e:
			return '_'
		case strings.ContainsRune("[]\\$`", r):
			return '_'
		}
		return r
	}, name)
	if len(name) > maxAnonNameLen-1 {
		name = name[len(name)-(maxAnonNameLen-1):]
	}
	return name
}

// tagAnonRegion names m's region and records it under filename.
func tagAnonRegion(m *mapping, filename, tag string) AnonRegion {
	addr := bufferAddr(m.data)
	if tag == DynamicCodeTag {
		tag = fmt.Sprintf("%s:%#x", tag, addr)
	}
	name := sanitizeAnonName(tag)
	r := AnonRegion{
		Name:     name,
		Filename: filename,
		Addr:     addr,
		Size:     len(m.data),
		Named:    nameAnonRegion(m.region, name),
	}

	anonTags.Lock()
	anonTags.byFile[filename] = r
	anonTags.Unlock()
	return r
}

// untagAnonRegion drops the record registered for filename, if any.
func untagAnonRegion(filename string) {
	anonTags.Lock()
	delete(anonTags.byFile, filename)
	anonTags.Unlock()
}

// AnonymousRegions returns a snapshot of the tagged anonymous regions that
// currently back open containers, ordered by address.
func AnonymousRegions() []AnonRegion {
	anonTags.Lock()
	out := make([]AnonRegion, 0, len(anonTags.byFile))
	for _, r := range anonTags.byFile {
		out = append(out, r)
	}
	anonTags.Unlock()
	slices.SortFunc(out, func(a, b AnonRegion) int { return cmp.Compare(a.Addr, b.Addr) })
	return out
}
