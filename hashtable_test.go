package abcfile

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHashTableChains(t *testing.T) {
	// Four items, three of which share home slot 1 of a 4-bucket table.
	items := []hashItem{
		{hash: 0x11, id: 0x100}, // home 1
		{hash: 0x21, id: 0x200}, // home 1, collides
		{hash: 0x02, id: 0x300}, // home 2
		{hash: 0x31, id: 0x400}, // home 1, collides
	}
	tbl := buildHashTable(items)
	require.Equal(t, 4, tbl.Len())

	p := tbl.Pairs()
	assert.Equal(t, EntityPair{DescriptorHash: 0x11, EntityIDOffset: 0x100, NextPos: 1}, p[1])
	assert.Equal(t, EntityPair{DescriptorHash: 0x02, EntityIDOffset: 0x300}, p[2])
	// Colliders fill the free slots in order and are linked from the end of
	// the chain rooted at their home slot.
	assert.Equal(t, EntityPair{DescriptorHash: 0x21, EntityIDOffset: 0x200, NextPos: 4}, p[0])
	assert.Equal(t, EntityPair{DescriptorHash: 0x31, EntityIDOffset: 0x400}, p[3])

	// Walk the chain from home slot 1.
	var chain []uint32
	for pos := uint32(1); ; {
		chain = append(chain, tbl.pairs[pos].EntityIDOffset)
		if tbl.pairs[pos].NextPos == 0 {
			break
		}
		pos = tbl.pairs[pos].NextPos - 1
	}
	assert.Equal(t, []uint32{0x100, 0x200, 0x400}, chain)
}

func TestHashTableLookup(t *testing.T) {
	var classes []string
	for i := range 100 {
		classes = append(classes, fmt.Sprintf("Lpkg%d/Class%d;", i%7, i))
	}
	data, ids := buildContainer(t, classes...)
	f := openMemory(t, data)

	tbl, err := BuildClassHashTable(f)
	require.NoError(t, err)
	assert.Equal(t, 128, tbl.Len())

	t.Run("every inserted descriptor is found", func(t *testing.T) {
		for desc, want := range ids {
			assert.Equal(t, want, tbl.Lookup(f, desc), desc)
		}
	})

	t.Run("no false positives", func(t *testing.T) {
		homes := make(map[uint32]bool)
		for desc := range ids {
			homes[DescriptorHash([]byte(desc))&127] = true
		}
		sharedHome := 0
		for i := range 2000 {
			desc := fmt.Sprintf("Lpkg%d/Absent%d;", i%7, i)
			if homes[DescriptorHash([]byte(desc))&127] {
				sharedHome++
			}
			assert.Equal(t, InvalidEntityID, tbl.Lookup(f, desc), desc)
		}
		assert.Positive(t, sharedHome, "some absent descriptors must land on occupied home slots")
	})

	t.Run("agrees with binary search", func(t *testing.T) {
		g := openMemory(t, data, WithLookupMemo(0))
		for _, desc := range classes {
			assert.Equal(t, g.ClassID(desc), tbl.Lookup(f, desc))
		}
	})
}

func TestBuildClassHashTableEmpty(t *testing.T) {
	empty, _ := NewBuilder().Build()
	f := openMemory(t, empty)
	_, err := BuildClassHashTable(f)
	assert.ErrorIs(t, err, ErrBadHashTable)
}

func TestHashTableSerialization(t *testing.T) {
	data, ids := buildContainer(t, testClasses...)
	f := openMemory(t, data)
	tbl, err := BuildClassHashTable(f)
	require.NoError(t, err)

	b, err := tbl.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, tbl.Len()*EntityPairSize)

	parsed, err := ParseHashTable(b)
	require.NoError(t, err)
	assert.Equal(t, tbl.Pairs(), parsed.Pairs())
	for desc, want := range ids {
		assert.Equal(t, want, parsed.Lookup(f, desc))
	}
}

func TestParseHashTableRejects(t *testing.T) {
	pair := func(hash, off, next uint32) []byte {
		b := binary.LittleEndian.AppendUint32(nil, hash)
		b = binary.LittleEndian.AppendUint32(b, off)
		return binary.LittleEndian.AppendUint32(b, next)
	}
	cat := func(parts ...[]byte) []byte {
		var out []byte
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"partial bucket", make([]byte, EntityPairSize+1)},
		{"three buckets", make([]byte, 3*EntityPairSize)},
		{"link past end", cat(pair(0, 0x100, 3), pair(1, 0x200, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHashTable(tt.in)
			assert.ErrorIs(t, err, ErrBadHashTable)
		})
	}

	t.Run("cyclic chain terminates", func(t *testing.T) {
		data, _ := buildContainer(t, testClasses...)
		f := openMemory(t, data)
		h := DescriptorHash([]byte("Lnot/There;"))
		home := h & 1
		buckets := make([][]byte, 2)
		buckets[home] = pair(h, HeaderSize+1, 2-home)
		buckets[1-home] = pair(h, HeaderSize+1, home+1)
		tbl, err := ParseHashTable(cat(buckets...))
		require.NoError(t, err)
		assert.Equal(t, InvalidEntityID, tbl.Lookup(f, "Lnot/There;"))
	})
}
