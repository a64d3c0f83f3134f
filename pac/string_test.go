package pac

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"abc",
		"abcd",
		"abcde",
		"/data/app/classes.abc",
		"app.zip!/classes.abc",
		"\x00\xff\x00\xff\x01",
		strings.Repeat("x", 257),
	}
	for name, s := range signers(t) {
		t.Run(name, func(t *testing.T) {
			for _, in := range inputs {
				g := NewStringWith(s, in)
				assert.Equal(t, in, g.String())
				assert.Equal(t, len(in), g.Len())
				assert.True(t, g.Equal(in))
			}
		})
	}
}

func TestStringAppendMatchesUpdate(t *testing.T) {
	s := keyed(t)
	const want = "Lcom/example/Main$Inner;"

	byByte := NewStringWith(s, "")
	for i := 0; i < len(want); i++ {
		byByte.AppendByte(want[i])
	}

	chunked := NewStringWith(s, "")
	chunked.AppendString("Lcom/e")
	chunked.Append([]byte("xample/Ma"))
	chunked.AppendString("in$Inner;")

	updated := NewStringWith(s, "something else entirely")
	updated.Update(want)

	for name, g := range map[string]*String{"byte": byByte, "chunked": chunked, "update": updated} {
		assert.Equal(t, want, g.String(), name)
		assert.True(t, g.Equal(want), name)
	}
}

func TestStringEqual(t *testing.T) {
	g := NewStringWith(keyed(t), "classes.abc")

	assert.False(t, g.Equal("classes.ab"), "shorter")
	assert.False(t, g.Equal("classes.abcd"), "longer")
	assert.False(t, g.Equal("classes.abd"), "last byte differs")
	assert.False(t, g.Equal("Classes.abc"), "first byte differs")
	assert.True(t, g.Equal("classes.abc"))
}

func TestStringReset(t *testing.T) {
	g := NewStringWith(keyed(t), "abcdef")
	g.Reset()
	assert.Equal(t, "", g.String())
	assert.Equal(t, 0, g.Len())
	assert.True(t, g.Equal(""))

	g.AppendString("xyz")
	assert.Equal(t, "xyz", g.String())
}

func TestStringZeroValue(t *testing.T) {
	var g String
	assert.Equal(t, "", g.String())
	assert.Equal(t, 0, g.Len())
	g.AppendString("hello")
	assert.Equal(t, "hello", g.String())
}

func TestStringTamperEvident(t *testing.T) {
	g := NewStringWith(keyed(t), "abcdefgh")
	assert.NotEqual(t, pack("abcd"), g.store.words[0], "words must not hold plaintext")

	g.store.words[0], g.store.words[1] = g.store.words[1], g.store.words[0]
	assert.NotEqual(t, "efghabcd", g.String(), "reordered words must not decode cleanly")
	assert.False(t, g.Equal("efghabcd"))
}
