// hashtable.go
//
// Open-addressed descriptor hash table with explicit chains.
// The table maps *class descriptor hash* → *class handle*. Buckets live in a
// single power-of-two array; collisions are linked through a 1-based
// next_pos index stored inside the bucket itself, so the chain is an
// arena-indexed list and never needs pointer stability.
//
// A lookup jumps to the home slot hash&(n-1). If the bucket there does not
// itself belong to that home slot the descriptor is absent; otherwise the
// chain is walked comparing the full hash and then the descriptor bytes.

package abcfile

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/dgryski/go-farm"
)

// EntityPairSize is the on-disk size of one bucket.
const EntityPairSize = 12

// EntityPair is one bucket of a HashTable.
type EntityPair struct {
	DescriptorHash uint32
	EntityIDOffset uint32
	// NextPos is the 1-based index of the next bucket in the chain, or 0 at
	// the end of the chain.
	NextPos uint32
}

func (p EntityPair) empty() bool { return p.EntityIDOffset == 0 }

// HashTable is a read-only descriptor hash table.
type HashTable struct {
	pairs []EntityPair
	mask  uint32
}

// DescriptorHash is the hash stored in the table for a descriptor.
func DescriptorHash(descriptor []byte) uint32 { return farm.Fingerprint32(descriptor) }

// Len returns the number of buckets.
func (t *HashTable) Len() int { return len(t.pairs) }

// Pairs returns a copy of the buckets.
func (t *HashTable) Pairs() []EntityPair { return append([]EntityPair(nil), t.pairs...) }

// NewHashTable validates pairs and wraps them. The bucket count must be a
// power of two and every NextPos must point inside the array.
func NewHashTable(pairs []EntityPair) (*HashTable, error) {
	n := len(pairs)
	if n == 0 || bits.OnesCount(uint(n)) != 1 {
		return nil, fmt.Errorf("%w: %d buckets is not a power of two", ErrBadHashTable, n)
	}
	if uint64(n) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d buckets", ErrBadHashTable, n)
	}
	for i, p := range pairs {
		if uint64(p.NextPos) > uint64(n) {
			return nil, fmt.Errorf("%w: bucket %d links to %d of %d", ErrBadHashTable, i, p.NextPos, n)
		}
	}
	return &HashTable{pairs: pairs, mask: uint32(n - 1)}, nil
}

// ParseHashTable decodes a little-endian bucket array.
func ParseHashTable(b []byte) (*HashTable, error) {
	if len(b)%EntityPairSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of buckets", ErrBadHashTable, len(b))
	}
	le := binary.LittleEndian
	pairs := make([]EntityPair, len(b)/EntityPairSize)
	for i := range pairs {
		o := i * EntityPairSize
		pairs[i] = EntityPair{
			DescriptorHash: le.Uint32(b[o:]),
			EntityIDOffset: le.Uint32(b[o+4:]),
			NextPos:        le.Uint32(b[o+8:]),
		}
	}
	return NewHashTable(pairs)
}

// MarshalBinary encodes the buckets in the on-disk layout.
func (t *HashTable) MarshalBinary() ([]byte, error) {
	le := binary.LittleEndian
	b := make([]byte, 0, len(t.pairs)*EntityPairSize)
	for _, p := range t.pairs {
		b = le.AppendUint32(b, p.DescriptorHash)
		b = le.AppendUint32(b, p.EntityIDOffset)
		b = le.AppendUint32(b, p.NextPos)
	}
	return b, nil
}

// hashItem is one (hash, handle) pair to insert.
type hashItem struct {
	hash uint32
	id   EntityID
}

// buildHashTable lays out items in two passes. First every item whose home
// slot is free claims it; then the leftovers take the next free slot and are
// appended to the chain that starts at their home slot.
//
// After the first pass a free slot cannot be any item's home, which is what
// makes the home-slot ownership check in Lookup sound.
func buildHashTable(items []hashItem) *HashTable {
	n := 1
	for n < len(items) {
		n <<= 1
	}
	mask := uint32(n - 1)
	pairs := make([]EntityPair, n)

	var overflow []hashItem
	for _, it := range items {
		home := it.hash & mask
		if pairs[home].empty() {
			pairs[home] = EntityPair{DescriptorHash: it.hash, EntityIDOffset: it.id.Offset()}
			continue
		}
		overflow = append(overflow, it)
	}

	free := 0
	for _, it := range overflow {
		for !pairs[free].empty() {
			free++
		}
		pairs[free] = EntityPair{DescriptorHash: it.hash, EntityIDOffset: it.id.Offset()}

		pos := it.hash & mask
		for pairs[pos].NextPos != 0 {
			pos = pairs[pos].NextPos - 1
		}
		pairs[pos].NextPos = uint32(free) + 1
	}
	return &HashTable{pairs: pairs, mask: mask}
}

// BuildClassHashTable hashes every descriptor in f's class index.
func BuildClassHashTable(f *File) (*HashTable, error) {
	classes := f.Classes()
	items := make([]hashItem, 0, classes.Len())
	for _, id := range classes.All() {
		sd, err := f.StringData(id)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", id, err)
		}
		items = append(items, hashItem{hash: DescriptorHash(sd.Data), id: id})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no classes to index", ErrBadHashTable)
	}
	return buildHashTable(items), nil
}

// Lookup returns the handle stored for descriptor, resolving candidate
// descriptors through f, or InvalidEntityID.
func (t *HashTable) Lookup(f *File, descriptor string) EntityID {
	want := mutf8Key(descriptor)
	hash := DescriptorHash(want)
	pos := hash & t.mask

	p := t.pairs[pos]
	if p.empty() || p.DescriptorHash&t.mask != pos {
		return InvalidEntityID
	}

	// A well-formed chain visits every bucket at most once.
	for range len(t.pairs) {
		if p.DescriptorHash == hash {
			id := EntityID(p.EntityIDOffset)
			if sd, err := f.StringData(id); err == nil && CompareMUTF8(sd.Data, want) == 0 {
				return id
			}
		}
		if p.NextPos == 0 {
			break
		}
		p = t.pairs[p.NextPos-1]
	}
	return InvalidEntityID
}
