package abcfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULEB128(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 1 << 21, 0xffffffff} {
		b := appendULEB128(nil, v)
		got, n, ok := decodeULEB128(b)
		require.True(t, ok, "%#x", v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(b), n)
	}

	t.Run("malformed", func(t *testing.T) {
		_, _, ok := decodeULEB128(nil)
		assert.False(t, ok, "empty")
		_, _, ok = decodeULEB128([]byte{0x80, 0x80})
		assert.False(t, ok, "unterminated")
		_, _, ok = decodeULEB128([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
		assert.False(t, ok, "longer than five bytes")
		_, _, ok = decodeULEB128([]byte{0xff, 0xff, 0xff, 0xff, 0x7f})
		assert.False(t, ok, "exceeds 32 bits")
	})
}

func TestStringRecord(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantUnits uint32
		wantASCII bool
	}{
		{"empty", "", 0, true},
		{"ascii", "Lcom/example/Main;", 18, true},
		{"two byte", "Lcafé;", 6, false},
		{"three byte", "L中文;", 4, false},
		{"supplementary rune as surrogate pair", "L\U0001F600;", 4, false},
		{"nul", "La\x00b;", 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := AppendStringRecord(nil, tt.in)
			// Trailing bytes belong to the next record and must be ignored.
			rec = append(rec, 'X', 'Y')

			sd, err := decodeStringRecord(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUnits, sd.UTF16Length)
			assert.Equal(t, tt.wantASCII, sd.IsASCII)
			assert.Equal(t, tt.in, sd.String())
		})
	}

	t.Run("mutf8 payload", func(t *testing.T) {
		rec := AppendStringRecord(nil, "a\x00\U0001F600")
		sd, err := decodeStringRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), sd.UTF16Length)
		assert.Equal(t, []byte{'a', 0xc0, 0x80, 0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80}, sd.Data)
	})

	t.Run("four byte sequence accepted", func(t *testing.T) {
		rec := appendULEB128(nil, 2<<1)
		rec = append(rec, "\U0001F600"...)
		sd, err := decodeStringRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, "\U0001F600", sd.String())
	})

	t.Run("truncated ascii", func(t *testing.T) {
		rec := AppendStringRecord(nil, "abcdef")
		_, err := decodeStringRecord(rec[:len(rec)-1])
		assert.ErrorIs(t, err, ErrBadStringRecord)
	})

	t.Run("truncated multibyte", func(t *testing.T) {
		rec := AppendStringRecord(nil, "中文")
		_, err := decodeStringRecord(rec[:len(rec)-1])
		assert.ErrorIs(t, err, ErrBadStringRecord)
	})

	t.Run("bad continuation byte", func(t *testing.T) {
		rec := appendULEB128(nil, 1<<1)
		rec = append(rec, 0xe4, 0x41, 0x41)
		_, err := decodeStringRecord(rec)
		assert.ErrorIs(t, err, ErrBadStringRecord)
	})

	t.Run("bad tag", func(t *testing.T) {
		_, err := decodeStringRecord([]byte{0x80})
		assert.ErrorIs(t, err, ErrBadStringRecord)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestFileStringData(t *testing.T) {
	data, ids := buildContainer(t, testClasses...)
	f := openMemory(t, data)

	for desc, id := range ids {
		sd, err := f.StringData(id)
		require.NoError(t, err)
		assert.Equal(t, desc, sd.String())
		assert.True(t, sd.IsASCII)
	}

	_, err := f.StringData(EntityID(f.Size() + 1))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestMUTF8Key(t *testing.T) {
	assert.Equal(t, []byte("Lplain;"), mutf8Key("Lplain;"))
	assert.Equal(t, []byte("L中;"), mutf8Key("L中;"))
	assert.Equal(t, []byte{'L', 0xc0, 0x80, ';'}, mutf8Key("L\x00;"))
	assert.Equal(t, "L\x00;", decodeMUTF8(mutf8Key("L\x00;")))
	assert.Equal(t, "L\U0001F600;", decodeMUTF8(mutf8Key("L\U0001F600;")))
}

func TestCompareMUTF8(t *testing.T) {
	assert.Negative(t, CompareMUTF8([]byte("La;"), []byte("Lb;")))
	assert.Zero(t, CompareMUTF8([]byte("La;"), []byte("La;")))
	assert.Positive(t, CompareMUTF8([]byte("Lab;"), []byte("La")))
}
