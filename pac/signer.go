// Package pac provides tamper-evident storage for sensitive scalars.
//
// A value is never stored as-is. It is transformed by a Signer keyed with
// the address of the storage cell that holds it, so bytes copied from one
// guard into another, or overwritten in place without knowledge of the
// process secret, no longer decode to the original value.
//
// The transform is selected once per process by a capability probe
// (Default). When the probe fails, or when ABCFILE_PAC=off, every guard uses
// Passthrough: values round-trip correctly but the tamper property is void.
// Guards never fail and never panic.
package pac

import (
	"crypto/rand"
	"encoding/binary"
	"strings"
	"sync"
	"unsafe"

	"github.com/dgryski/go-farm"
	"github.com/xyproto/env/v2"
)

// Signer signs and authenticates 64-bit values against a modifier, which is
// always the address of the storage cell.
//
// Auth(Sign(v, m), m) == v for every v and m. Authenticating with a different
// modifier must not reproduce v when Active reports true.
type Signer interface {
	Sign(value, modifier uint64) uint64
	Auth(value, modifier uint64) uint64
	Active() bool
}

type passthrough struct{}

func (passthrough) Sign(v, _ uint64) uint64 { return v }
func (passthrough) Auth(v, _ uint64) uint64 { return v }
func (passthrough) Active() bool            { return false }

// Passthrough is the identity Signer used when signing is unavailable.
var Passthrough Signer = passthrough{}

// keyedSigner mixes the value with a per-modifier mask derived from a
// process-random secret. The mask depends on both the secret and the cell
// address, so neither alone reproduces it.
type keyedSigner struct {
	k0, k1 uint64
}

func newKeyedSigner() (*keyedSigner, error) {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	return &keyedSigner{
		k0: binary.LittleEndian.Uint64(seed[0:]),
		k1: binary.LittleEndian.Uint64(seed[8:]),
	}, nil
}

func (s *keyedSigner) mask(modifier uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], modifier)
	return farm.Hash64WithSeeds(b[:], s.k0, s.k1)
}

func (s *keyedSigner) Sign(v, modifier uint64) uint64 { return v ^ s.mask(modifier) }
func (s *keyedSigner) Auth(v, modifier uint64) uint64 { return v ^ s.mask(modifier) }
func (s *keyedSigner) Active() bool                   { return true }

var (
	probeOnce sync.Once
	probed    Signer
)

// Default returns the process-wide Signer chosen by Probe. The probe runs
// exactly once.
func Default() Signer {
	probeOnce.Do(func() { probed = Probe() })
	return probed
}

// Probe checks whether keyed signing is available and returns the Signer to
// use. It has no side effects, so tests may call it freely.
func Probe() Signer {
	switch strings.ToLower(env.Str("ABCFILE_PAC")) {
	case "off", "0", "false", "no":
		return Passthrough
	}
	s, err := newKeyedSigner()
	if err != nil {
		return Passthrough
	}
	return s
}

// newCell returns a heap-allocated storage cell. Heap objects are never
// moved by the Go runtime, which keeps the address stable for the lifetime
// of the guard. The function must not be inlined: returning the pointer from
// a real call frame is what forces the allocation onto the heap.
//
//go:noinline
func newCell() *uint64 { return new(uint64) }

func addrOf[T any](p *T) uint64 { return uint64(uintptr(unsafe.Pointer(p))) }
