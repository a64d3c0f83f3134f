// registry.go
//
// Open-once cache of loaded containers.
// The registry maps *location* → *open File* so that repeated loads of the
// same container share one mapping. It is bounded by entry count and evicts
// in least-recently-used order. Callers borrow a File through a Handle; an
// evicted File is closed as soon as the last Handle referencing it is
// released, so eviction never pulls a mapping out from under a reader.

package abcfile

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistrySize is the entry bound used when NewRegistry is given a
// non-positive size.
const DefaultRegistrySize = 64

type registryEntry struct {
	file *File
	// refs counts outstanding Handles. Guarded by Registry.mu.
	refs int
	// evicted is set once the entry has left the cache.
	evicted bool
}

// Registry caches open containers by location.
//
// All methods are safe for concurrent use. Opens are serialised by the
// registry lock.
type Registry struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *registryEntry]
	mode    OpenMode
	opts    []Option
	closed  bool
}

// NewRegistry creates a registry holding at most size containers, each
// opened with mode and opts.
func NewRegistry(size int, mode OpenMode, opts ...Option) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	r := &Registry{mode: mode, opts: opts}
	cache, err := lru.NewWithEvict[string, *registryEntry](size, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("abcfile: registry: %w", err)
	}
	r.entries = cache
	return r, nil
}

// onEvict runs under r.mu, since every cache mutation happens with it held.
func (r *Registry) onEvict(location string, e *registryEntry) {
	e.evicted = true
	if e.refs == 0 {
		closeEvicted(location, e.file)
	}
}

func closeEvicted(location string, f *File) {
	if err := f.Close(); err != nil {
		Logger().Warn("closing evicted container", "location", location, "err", err)
	}
}

// Handle is a borrowed reference to a registry-owned File.
type Handle struct {
	r        *Registry
	location string
	e        *registryEntry
	once     sync.Once
}

// File returns the borrowed container. It must not be used after Release.
func (h *Handle) File() *File { return h.e.file }

// Release returns the borrow. Calling it more than once is a no-op.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.r.mu.Lock()
		defer h.r.mu.Unlock()
		h.e.refs--
		if h.e.refs == 0 && h.e.evicted {
			closeEvicted(h.location, h.e.file)
		}
	})
}

// ErrRegistryClosed is returned by Acquire after Close.
var ErrRegistryClosed = errors.New("abcfile: registry closed")

// Acquire returns a Handle for location, opening the container on first use.
func (r *Registry) Acquire(location string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	e, ok := r.entries.Get(location)
	if !ok {
		f, err := Open(location, r.mode, r.opts...)
		if err != nil {
			return nil, err
		}
		e = &registryEntry{file: f}
		r.entries.Add(location, e)
	}
	e.refs++
	return &Handle{r: r, location: location, e: e}, nil
}

// Contains reports whether location is currently cached, without touching
// its recency.
func (r *Registry) Contains(location string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Contains(location)
}

// Len returns the number of cached containers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Close evicts every entry. Containers still borrowed are closed when their
// last Handle is released.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.entries.Purge()
	return nil
}
