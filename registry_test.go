package abcfile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	data, ids := buildContainer(t, testClasses...)
	paths := []string{writeContainer(t, data), writeContainer(t, data), writeContainer(t, data)}
	desc := "La/B;"

	t.Run("shares one container per location", func(t *testing.T) {
		r, err := NewRegistry(4, OpenReadOnly, panicOnFault())
		require.NoError(t, err)
		defer r.Close()

		h1, err := r.Acquire(paths[0])
		require.NoError(t, err)
		h2, err := r.Acquire(paths[0])
		require.NoError(t, err)
		assert.Same(t, h1.File(), h2.File())
		assert.Equal(t, 1, r.Len())
		assert.Equal(t, ids[desc], h1.File().ClassID(desc))

		h1.Release()
		h1.Release() // no-op
		h2.Release()
	})

	t.Run("eviction closes idle containers", func(t *testing.T) {
		r, err := NewRegistry(1, OpenReadOnly, panicOnFault())
		require.NoError(t, err)
		defer r.Close()

		h, err := r.Acquire(paths[0])
		require.NoError(t, err)
		first := h.File()
		h.Release()

		h, err = r.Acquire(paths[1])
		require.NoError(t, err)
		defer h.Release()

		assert.False(t, r.Contains(paths[0]))
		assert.True(t, r.Contains(paths[1]))
		assert.Equal(t, 1, r.Len())
		_, err = first.TrySpan(ids[desc])
		assert.ErrorIs(t, err, ErrOutOfRange, "evicted container is closed")
	})

	t.Run("eviction waits for borrowers", func(t *testing.T) {
		r, err := NewRegistry(1, OpenReadOnly, panicOnFault())
		require.NoError(t, err)
		defer r.Close()

		held, err := r.Acquire(paths[0])
		require.NoError(t, err)

		other, err := r.Acquire(paths[1])
		require.NoError(t, err)
		other.Release()

		assert.False(t, r.Contains(paths[0]))
		assert.Equal(t, ids[desc], held.File().ClassID(desc), "borrowed container stays usable")

		f := held.File()
		held.Release()
		_, err = f.TrySpan(ids[desc])
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("open failure is not cached", func(t *testing.T) {
		r, err := NewRegistry(2, OpenReadOnly)
		require.NoError(t, err)
		defer r.Close()

		_, err = r.Acquire(paths[0] + ".missing")
		assert.ErrorIs(t, err, ErrOpen)
		assert.Zero(t, r.Len())
	})

	t.Run("closed registry", func(t *testing.T) {
		r, err := NewRegistry(0, OpenReadOnly)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		_, err = r.Acquire(paths[0])
		assert.ErrorIs(t, err, ErrRegistryClosed)
	})

	t.Run("concurrent acquire", func(t *testing.T) {
		r, err := NewRegistry(2, OpenReadOnly, panicOnFault())
		require.NoError(t, err)
		defer r.Close()

		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h, err := r.Acquire(paths[i%len(paths)])
				if !assert.NoError(t, err) {
					return
				}
				defer h.Release()
				assert.Equal(t, ids[desc], h.File().ClassID(desc))
			}()
		}
		wg.Wait()
	})
}
