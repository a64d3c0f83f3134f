package pac

// slot is a signed 64-bit cell. Zero is stored verbatim and means "unset".
type slot struct {
	signer Signer
	cell   *uint64
}

func (s *slot) init(signer Signer) {
	if signer == nil {
		signer = Default()
	}
	s.signer = signer
	s.cell = newCell()
}

func (s *slot) ensure() {
	if s.cell == nil {
		s.init(nil)
	}
}

func (s *slot) store(v uint64) {
	s.ensure()
	if v == 0 {
		*s.cell = 0
		return
	}
	*s.cell = s.signer.Sign(v, addrOf(s.cell))
}

func (s *slot) load() uint64 {
	if s.cell == nil {
		return 0
	}
	raw := *s.cell
	if raw == 0 {
		return 0
	}
	return s.signer.Auth(raw, addrOf(s.cell))
}

// Pointer guards an address-sized value such as the base of a mapping.
//
// The zero value holds 0 and signs with Default on first Set.
type Pointer struct{ s slot }

// NewPointer returns a guard holding v, signed with Default.
func NewPointer(v uintptr) *Pointer { return NewPointerWith(Default(), v) }

// NewPointerWith returns a guard holding v, signed with signer.
func NewPointerWith(signer Signer, v uintptr) *Pointer {
	p := &Pointer{}
	p.s.init(signer)
	p.Set(v)
	return p
}

// Set replaces the guarded value. Zero bypasses the signer.
func (p *Pointer) Set(v uintptr) { p.s.store(uint64(v)) }

// Get authenticates and returns the guarded value.
func (p *Pointer) Get() uintptr { return uintptr(p.s.load()) }

// Boolean sentinels. Both are non-zero so neither state is stored as a
// guessable 0 or 1.
const (
	falseSentinel uint64 = 0x5a17c3e90b4d2f61
	trueSentinel  uint64 = 0xa6e83c16f4b2d09e
)

// Bool guards a flag.
//
// Any stored value that does not authenticate to the true sentinel reads as
// false, including a zero-value Bool.
type Bool struct{ s slot }

// NewBool returns a guard holding v, signed with Default.
func NewBool(v bool) *Bool { return NewBoolWith(Default(), v) }

// NewBoolWith returns a guard holding v, signed with signer.
func NewBoolWith(signer Signer, v bool) *Bool {
	b := &Bool{}
	b.s.init(signer)
	b.Set(v)
	return b
}

// Set replaces the guarded flag.
func (b *Bool) Set(v bool) {
	if v {
		b.s.store(trueSentinel)
		return
	}
	b.s.store(falseSentinel)
}

// Get authenticates and returns the guarded flag.
func (b *Bool) Get() bool { return b.s.load() == trueSentinel }
