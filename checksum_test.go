package abcfile

import (
	"hash/adler32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChecksum(t *testing.T) {
	data, ids := buildContainer(t, testClasses...)

	t.Run("intact", func(t *testing.T) {
		f := openMemory(t, data)
		require.NoError(t, f.ValidateChecksum())
		assert.Equal(t, adler32.Checksum(data[checksumStart:]), f.ComputeChecksum())
		assert.Equal(t, f.Header().Checksum, f.ComputeChecksum())
	})

	t.Run("single byte flip", func(t *testing.T) {
		for _, off := range []int{checksumStart, HeaderSize, len(data) - 1} {
			bad := append([]byte(nil), data...)
			bad[off] ^= 0x01
			f, err := OpenFromMemory(bad, t.Name(), "", panicOnFault())
			if err != nil {
				// Flipping a header byte may break validation outright.
				assert.ErrorIs(t, err, ErrCorrupt)
				continue
			}
			err = f.ValidateChecksum()
			assert.ErrorIs(t, err, ErrBadChecksum, "offset %d", off)
			assert.ErrorIs(t, err, ErrCorrupt)
			require.NoError(t, f.Close())
		}
	})

	t.Run("magic and checksum are not covered", func(t *testing.T) {
		// Changing the stored checksum never changes the computed one.
		bad := append([]byte(nil), data...)
		bad[MagicSize] ^= 0xff
		f := openMemory(t, bad)
		assert.Equal(t, adler32.Checksum(data[checksumStart:]), f.ComputeChecksum())
		assert.ErrorIs(t, f.ValidateChecksum(), ErrBadChecksum)
	})

	t.Run("fault reports corruption", func(t *testing.T) {
		last := ids["Lz/Last;"]
		bad := append([]byte(nil), data...)
		bad[last.Offset()+1] ^= 0x20 // payload byte, record stays decodable
		f := openMemory(t, bad)
		ae := requireAccessFault(t, func() { f.Span(EntityID(f.Size() + 8)) })
		assert.True(t, ae.Corrupted())
		assert.NotEqual(t, ae.StoredChecksum, ae.ComputedChecksum)
	})
}
