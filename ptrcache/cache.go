// Package ptrcache is a direct-mapped, lock-free cache from container
// handles to resolved runtime objects.
//
// Each of the three tables (methods, fields, classes) has exactly one
// candidate slot per handle. A slot holds an atomic pointer to an immutable
// (handle, object) pair, so a reader always sees a pair that was stored
// together: Get never returns an object that belongs to a different handle.
// Set overwrites unconditionally; concurrent writers to one slot race and the
// last store wins.
package ptrcache

import (
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/ahrav/go-abcfile"
)

// Default table sizes.
const (
	DefaultMethodSlots = 4096
	DefaultFieldSlots  = 1024
	DefaultClassSlots  = 1024
)

// fieldShift drops the low offset bits of field handles, which are nearly
// constant across fields of one kind.
const fieldShift = 2

type entry[T any] struct {
	id  abcfile.EntityID
	ptr *T
}

type table[T any] struct {
	slots []atomic.Pointer[entry[T]]
	mask  uint32
	shift uint
}

func newTable[T any](size int, shift uint) table[T] {
	return table[T]{
		slots: make([]atomic.Pointer[entry[T]], size),
		mask:  uint32(size - 1),
		shift: shift,
	}
}

func (t *table[T]) slot(id abcfile.EntityID) *atomic.Pointer[entry[T]] {
	return &t.slots[(id.Offset()>>t.shift)&t.mask]
}

func (t *table[T]) get(id abcfile.EntityID) *T {
	e := t.slot(id).Load()
	if e == nil || e.id != id {
		return nil
	}
	return e.ptr
}

func (t *table[T]) set(id abcfile.EntityID, p *T) {
	t.slot(id).Store(&entry[T]{id: id, ptr: p})
}

func (t *table[T]) clear() {
	for i := range t.slots {
		t.slots[i].Store(nil)
	}
}

// Cache holds the method, field and class tables. M, F and C are the
// runtime types handles resolve to. The zero value is not usable.
type Cache[M, F, C any] struct {
	methods table[M]
	fields  table[F]
	classes table[C]
}

// New returns a cache with the default table sizes.
func New[M, F, C any]() *Cache[M, F, C] {
	c, _ := NewWithSizes[M, F, C](DefaultMethodSlots, DefaultFieldSlots, DefaultClassSlots)
	return c
}

// NewWithSizes returns a cache with custom table sizes. Every size must be a
// positive power of two no larger than 1<<31.
func NewWithSizes[M, F, C any](methods, fields, classes int) (*Cache[M, F, C], error) {
	for _, n := range []int{methods, fields, classes} {
		if n <= 0 || n > 1<<31 || bits.OnesCount(uint(n)) != 1 {
			return nil, fmt.Errorf("ptrcache: table size %d is not a power of two", n)
		}
	}
	return &Cache[M, F, C]{
		methods: newTable[M](methods, 0),
		fields:  newTable[F](fields, fieldShift),
		classes: newTable[C](classes, 0),
	}, nil
}

// GetMethod returns the method cached for id, or nil on a miss.
func (c *Cache[M, F, C]) GetMethod(id abcfile.EntityID) *M { return c.methods.get(id) }

// SetMethod caches m for id, replacing whatever shared its slot.
func (c *Cache[M, F, C]) SetMethod(id abcfile.EntityID, m *M) { c.methods.set(id, m) }

// GetField returns the field cached for id, or nil on a miss.
func (c *Cache[M, F, C]) GetField(id abcfile.EntityID) *F { return c.fields.get(id) }

// SetField caches f for id.
func (c *Cache[M, F, C]) SetField(id abcfile.EntityID, f *F) { c.fields.set(id, f) }

// GetClass returns the class cached for id, or nil on a miss.
func (c *Cache[M, F, C]) GetClass(id abcfile.EntityID) *C { return c.classes.get(id) }

// SetClass caches cl for id.
func (c *Cache[M, F, C]) SetClass(id abcfile.EntityID, cl *C) { c.classes.set(id, cl) }

// Clear empties all three tables. Stores racing with Clear may survive it.
func (c *Cache[M, F, C]) Clear() {
	c.methods.clear()
	c.fields.clear()
	c.classes.clear()
}

// EnumerateClasses calls fn for every cached class until fn returns false.
// It reports whether the walk ran to completion.
func (c *Cache[M, F, C]) EnumerateClasses(fn func(*C) bool) bool {
	for i := range c.classes.slots {
		e := c.classes.slots[i].Load()
		if e == nil || e.ptr == nil {
			continue
		}
		if !fn(e.ptr) {
			return false
		}
	}
	return true
}
