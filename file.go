// Package abcfile opens, validates and indexes bytecode container files.
//
// A container can be loaded from a plain file, from a member of a zip
// archive, from an untrusted in-memory buffer (which is copied into a fresh
// anonymous mapping) or from a caller-owned buffer inside the process's
// secure-memory window (which is wrapped without copying).
//
// IMPLEMENTATION:
// Every open path produces exactly one immutable File that owns its mapping.
// The header is validated before the File is handed out: magic, declared
// size, the bounds of every header section and the literal-array layout rule
// are hard checks; version compatibility is advisory unless strict mode is
// on. The checksum is verified on demand only.
//
// Entities inside a container are addressed with EntityID handles, which are
// plain offsets. A handle is turned into bytes only through File.Span, which
// checks it against the container size on every call. Out-of-range accesses
// on an open File are faults: by default the process logs the offset
// together with the stored and recomputed checksum and exits; FaultPanic
// panics with an *AccessError instead.
//
// Class descriptors are found either by binary search over the sorted class
// index or, when one has been attached, through an open-addressed
// descriptor HashTable.
//
// Typical usage:
//
//	f, err := abcfile.Open("app.zip!/classes.abc", abcfile.OpenReadOnly)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	id := f.ClassID("Lcom/example/Main;")
//
// A File is safe for concurrent readers.
package abcfile

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/dgryski/go-farm"
	"github.com/hashicorp/golang-lru/arc/v2"

	"github.com/ahrav/go-abcfile/pac"
)

// File is a loaded, validated container.
//
// The struct is immutable after construction apart from the optional class
// hash table, which is swapped atomically, and the lookup memo, which is
// internally synchronized.
type File struct {
	// data is exactly header.FileSize bytes of the mapping.
	data []byte
	m    *mapping

	header Header

	// filename, base and secure are kept tamper-evident: the base address
	// is re-checked on every access, the others on every read.
	filename *pac.String
	base     *pac.Pointer
	secure   *pac.Bool

	filenameHash uint32
	uniqID       uint64

	// anonTagged is set when an anonymous-region tag was registered for
	// this filename and must be dropped on Close.
	anonTagged bool

	cfg Config

	classTable atomic.Pointer[HashTable]
	memo       *arc.ARCCache[string, EntityID]

	closeOnce sync.Once
	closeErr  error
}

// newFile validates m and wraps it. On error m is left untouched; the caller
// releases it.
func newFile(m *mapping, filename string, cfg Config) (*File, error) {
	h, err := validateHeader(m.data, &cfg)
	if err != nil {
		return nil, err
	}

	data := m.data[:h.FileSize:h.FileSize]
	f := &File{
		data:     data,
		m:        m,
		header:   h,
		filename: pac.NewString(filename),
		base:     pac.NewPointer(bufferAddr(data)),
		secure:   pac.NewBool(m.kind == borrowed),
		cfg:      cfg,
	}
	f.filenameHash = farm.Fingerprint32([]byte(filename))
	f.uniqID = mergeHashes(f.filenameHash, farm.Fingerprint64(data[:HeaderSize]))

	if cfg.LookupMemoSize > 0 {
		memo, err := arc.NewARC[string, EntityID](cfg.LookupMemoSize)
		if err != nil {
			return nil, err
		}
		f.memo = memo
	}
	return f, nil
}

// mergeHashes combines the filename hash and the header hash into one id.
func mergeHashes(filenameHash uint32, headerHash uint64) uint64 {
	var b [12]byte
	binary.LittleEndian.PutUint32(b[0:], filenameHash)
	binary.LittleEndian.PutUint64(b[4:], headerHash)
	return farm.Fingerprint64(b[:])
}

// Header returns a copy of the validated header.
func (f *File) Header() Header { return f.header }

// Filename returns the logical filename the container was opened under.
func (f *File) Filename() string { return f.filename.String() }

// FilenameHash returns the 32-bit hash of Filename.
func (f *File) FilenameHash() uint32 { return f.filenameHash }

// UniqID identifies the container by filename and header bytes.
func (f *File) UniqID() uint64 { return f.uniqID }

// Size returns the declared file size, which is also the number of
// addressable bytes.
func (f *File) Size() uint32 { return f.header.FileSize }

// Base returns the address of the first container byte.
func (f *File) Base() uintptr { return f.base.Get() }

// IsSecure reports whether the File wraps a caller-owned secure buffer.
func (f *File) IsSecure() bool { return f.secure.Get() }

// Contains reports whether id is a valid handle inside this container.
func (f *File) Contains(id EntityID) bool {
	return id.IsValid() && id.Offset() < f.header.FileSize && len(f.data) != 0
}

// bytes returns the container bytes after checking that the slice still
// points at the base recorded at open time.
func (f *File) bytes() ([]byte, bool) {
	if len(f.data) == 0 {
		return nil, false
	}
	if bufferAddr(f.data) != f.base.Get() {
		return nil, false
	}
	return f.data, true
}

// root returns the whole container as a Span.
func (f *File) root() (Span, bool) {
	b, ok := f.bytes()
	if !ok {
		return Span{}, false
	}
	return Span{data: b}, true
}

// TrySpan returns the view [id, Size()) or an error wrapping ErrOutOfRange.
func (f *File) TrySpan(id EntityID) (Span, error) {
	r, ok := f.root()
	if ok && id.IsValid() {
		if sp, ok := r.Tail(id.Offset()); ok {
			return sp, nil
		}
	}
	return Span{}, f.accessError(id.Offset())
}

// Span returns the view [id, Size()). An out-of-range id is an access fault
// handled according to the configured FaultPolicy.
func (f *File) Span(id EntityID) Span {
	sp, err := f.TrySpan(id)
	if err != nil {
		f.fault(id.Offset(), err)
	}
	return sp
}

// sectionSpan returns count elements of elemSize bytes at off, faulting when
// the range does not fit the current size.
func (f *File) sectionSpan(off, count, elemSize uint32) Span {
	r, ok := f.root()
	if ok && checkSection(off, count, elemSize, uint32(r.Len())) {
		sp, _ := r.SubSpan(off, count*elemSize)
		return sp
	}
	f.fault(off, f.accessError(off))
	return Span{}
}

func (f *File) accessError(off uint32) *AccessError {
	return &AccessError{
		Filename:         f.Filename(),
		Offset:           off,
		FileSize:         f.header.FileSize,
		StoredChecksum:   f.header.Checksum,
		ComputedChecksum: f.ComputeChecksum(),
	}
}

// fault applies the access-fault policy. Under FaultAbort it does not
// return.
func (f *File) fault(off uint32, err error) {
	ae, ok := err.(*AccessError)
	if !ok {
		ae = f.accessError(off)
	}
	if f.cfg.AccessFault == FaultPanic {
		panic(ae)
	}
	Logger().Fatal("invalid file offset",
		"file", ae.Filename, "offset", ae.Offset, "size", ae.FileSize,
		"stored_checksum", ae.StoredChecksum, "computed_checksum", ae.ComputedChecksum,
		"corrupted", ae.Corrupted(), "err", err)
}

// Close releases the mapping and drops any anonymous-region tag. It is safe
// to call more than once; later calls return the first result.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.closeOnce.Do(func() {
		if f.anonTagged {
			untagAnonRegion(f.Filename())
		}
		f.data = nil
		f.closeErr = f.m.release()
		if f.memo != nil {
			f.memo.Purge()
		}
	})
	return f.closeErr
}
