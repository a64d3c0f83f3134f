package pac

import "strings"

const bytesPerWord = 4

// wordStore is the backing store of a String. Its address is the signing
// modifier for every word, so it must stay put for the String's lifetime.
type wordStore struct {
	words []uint64
	n     int // bytes before packing; len(words) == ceil(n/4)
}

//go:noinline
func newWordStore() *wordStore { return new(wordStore) }

// String guards a byte string by packing it four bytes per word and signing
// every word independently.
//
// The zero value is an empty string that signs with Default on first use.
// A String is not safe for concurrent mutation.
type String struct {
	signer Signer
	store  *wordStore
}

// NewString returns a guard holding s, signed with Default.
func NewString(s string) *String { return NewStringWith(Default(), s) }

// NewStringWith returns a guard holding s, signed with signer.
func NewStringWith(signer Signer, s string) *String {
	g := &String{signer: signer, store: newWordStore()}
	g.AppendString(s)
	return g
}

func (g *String) ensure() *wordStore {
	if g.signer == nil {
		g.signer = Default()
	}
	if g.store == nil {
		g.store = newWordStore()
	}
	return g.store
}

// modifier returns the signing modifier of word i: the store address offset
// by the word position.
func (g *String) modifier(i int) uint64 { return addrOf(g.store) + uint64(i) }

// pack places up to four bytes little-endian into the low half of a word.
func pack(b string) uint64 {
	var w uint64
	for i := 0; i < len(b); i++ {
		w |= uint64(b[i]) << (8 * i)
	}
	return w
}

// Len returns the length of the guarded string in bytes.
func (g *String) Len() int {
	if g.store == nil {
		return 0
	}
	return g.store.n
}

// Reset empties the guard.
func (g *String) Reset() {
	st := g.ensure()
	clear(st.words)
	st.words = st.words[:0]
	st.n = 0
}

// Update replaces the guarded string with s.
func (g *String) Update(s string) {
	g.Reset()
	g.AppendString(s)
}

// AppendByte appends a single byte.
func (g *String) AppendByte(c byte) { g.AppendString(string([]byte{c})) }

// Append appends b.
func (g *String) Append(b []byte) { g.AppendString(string(b)) }

// AppendString appends s. A partially filled last word is authenticated,
// merged and re-signed rather than padded with a fresh word.
func (g *String) AppendString(s string) {
	if len(s) == 0 {
		return
	}
	st := g.ensure()

	if r := st.n % bytesPerWord; r != 0 {
		last := len(st.words) - 1
		mod := g.modifier(last)
		w := g.signer.Auth(st.words[last], mod)
		k := min(bytesPerWord-r, len(s))
		for i := 0; i < k; i++ {
			w |= uint64(s[i]) << (8 * (r + i))
		}
		st.words[last] = g.signer.Sign(w, mod)
		st.n += k
		s = s[k:]
	}

	for len(s) > 0 {
		k := min(bytesPerWord, len(s))
		st.words = append(st.words, g.signer.Sign(pack(s[:k]), g.modifier(len(st.words))))
		st.n += k
		s = s[k:]
	}
}

// String authenticates every word and returns the original bytes. Padding
// in the final word is trimmed using the tracked length.
func (g *String) String() string {
	if g.store == nil || g.store.n == 0 {
		return ""
	}
	st := g.store

	var sb strings.Builder
	sb.Grow(len(st.words) * bytesPerWord)
	for i, sw := range st.words {
		w := g.signer.Auth(sw, g.modifier(i))
		for i := 0; i < bytesPerWord; i++ {
			sb.WriteByte(byte(w >> (8 * i)))
		}
	}
	return sb.String()[:st.n]
}

// Equal reports whether the guarded string equals candidate.
//
// The candidate is signed block by block against this guard's store and the
// signed words are compared, so the plaintext is never materialised.
// Lengths are compared first.
func (g *String) Equal(candidate string) bool {
	if len(candidate) != g.Len() {
		return false
	}
	if len(candidate) == 0 {
		return true
	}
	st := g.store

	var diff uint64
	for i, sw := range st.words {
		lo := i * bytesPerWord
		hi := min(lo+bytesPerWord, len(candidate))
		diff |= g.signer.Sign(pack(candidate[lo:hi]), g.modifier(i)) ^ sw
	}
	return diff == 0
}
