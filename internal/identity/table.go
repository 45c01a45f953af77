// Package identity implements the object identity table: it attaches an
// out-of-band record to native objects so that a native object, or the
// opaque handle derived from it, resolves back to layer metadata in O(1).
//
// Records live in an arena indexed by a stable integer key. The key is kept
// in the object's own Storage rather than in a side map keyed by the native
// object, so lookups take no lock. Keys carry a generation; a key whose
// record was unregistered never resolves again, even after its arena slot
// has been reused.
package identity

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Kind is the object-type category of a record. An object carries at most
// one tag per table, and lookups must name the kind it was registered with.
type Kind uint8

// Object kinds.
const (
	KindResource Kind = iota + 1
	KindResourceView
	KindSampler
	KindPipeline
	KindPipelineLayout
	KindQueryPool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindResource:
		return "resource"
	case KindResourceView:
		return "resource view"
	case KindSampler:
		return "sampler"
	case KindPipeline:
		return "pipeline"
	case KindPipelineLayout:
		return "pipeline layout"
	case KindQueryPool:
		return "query pool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Key identifies a record: the low 32 bits are the arena index plus one, the
// high 32 bits the record generation. The zero Key is never issued.
type Key uint64

func makeKey(index, gen uint32) Key { return Key(uint64(gen)<<32 | uint64(index+1)) }

func (k Key) index() uint32 { return uint32(k) - 1 }

func (k Key) generation() uint32 { return uint32(k >> 32) }

const chunkSize = 256

type record struct {
	kind  Kind
	gen   uint32
	obj   Holder
	value any
}

type chunk [chunkSize]atomic.Pointer[record]

// Table is an object identity table. Register and Unregister serialize on an
// internal mutex; Lookup, Resolve and Contains are lock-free.
type Table struct {
	slot int

	mu     sync.Mutex
	gens   []uint32
	free   []uint32
	live   int
	closed bool

	// chunks is replaced, never mutated, when the arena grows.
	chunks atomic.Pointer[[]*chunk]
}

// NewTable creates a table and reserves a tag slot for it.
func NewTable() (*Table, error) {
	slot, err := acquireSlot()
	if err != nil {
		return nil, err
	}
	t := &Table{slot: slot}
	empty := make([]*chunk, 0)
	t.chunks.Store(&empty)
	return t, nil
}

// Register tags obj with a new record of kind holding value and returns the
// record's key. It panics if obj is nil or already tagged by this table.
func (t *Table) Register(kind Kind, obj Holder, value any) Key {
	if obj == nil {
		panic("identity: register of nil object")
	}
	tag := &obj.TagStorage().tags[t.slot]
	if tag.Load() != 0 {
		panic(fmt.Sprintf("identity: %s already registered", kind))
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		panic("identity: register on closed table")
	}
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		index = uint32(len(t.gens))
		t.gens = append(t.gens, 0)
		t.growLocked(index)
	}
	gen := t.gens[index] + 1
	if gen == 0 {
		gen = 1
	}
	t.gens[index] = gen
	t.slotFor(index).Store(&record{kind: kind, gen: gen, obj: obj, value: value})
	t.live++
	t.mu.Unlock()

	key := makeKey(index, gen)
	tag.Store(uint64(key))
	return key
}

func (t *Table) growLocked(index uint32) {
	chunks := *t.chunks.Load()
	if int(index/chunkSize) < len(chunks) {
		return
	}
	grown := make([]*chunk, len(chunks)+1)
	copy(grown, chunks)
	grown[len(chunks)] = new(chunk)
	t.chunks.Store(&grown)
}

func (t *Table) slotFor(index uint32) *atomic.Pointer[record] {
	chunks := *t.chunks.Load()
	ci := int(index / chunkSize)
	if ci >= len(chunks) {
		return nil
	}
	return &chunks[ci][index%chunkSize]
}

func (t *Table) load(key Key) *record {
	if key == 0 {
		return nil
	}
	p := t.slotFor(key.index())
	if p == nil {
		return nil
	}
	rec := p.Load()
	if rec == nil || rec.gen != key.generation() {
		return nil
	}
	return rec
}

// KeyOf returns the key obj is tagged with, or zero.
func (t *Table) KeyOf(obj Holder) Key {
	if obj == nil {
		return 0
	}
	return Key(obj.TagStorage().tags[t.slot].Load())
}

// Lookup returns the value registered for obj. It panics if obj is not
// registered as kind.
func (t *Table) Lookup(kind Kind, obj Holder) any {
	rec := t.load(t.KeyOf(obj))
	if rec == nil || rec.kind != kind {
		panic(fmt.Sprintf("identity: lookup of unregistered %s", kind))
	}
	return rec.value
}

// Resolve returns the value of the record key names. It panics if key does
// not name a live record of kind.
func (t *Table) Resolve(kind Kind, key Key) any {
	v, ok := t.TryResolve(kind, key)
	if !ok {
		panic(fmt.Sprintf("identity: %s handle %#x is not registered", kind, uint64(key)))
	}
	return v
}

// TryResolve is like Resolve but reports failure instead of panicking.
func (t *Table) TryResolve(kind Kind, key Key) (any, bool) {
	rec := t.load(key)
	if rec == nil || rec.kind != kind {
		return nil, false
	}
	return rec.value, true
}

// Contains reports whether key names a live record of kind.
func (t *Table) Contains(kind Kind, key Key) bool {
	_, ok := t.TryResolve(kind, key)
	return ok
}

// Object returns the tagged object of the record key names, or nil.
func (t *Table) Object(kind Kind, key Key) Holder {
	rec := t.load(key)
	if rec == nil || rec.kind != kind {
		return nil
	}
	return rec.obj
}

// Unregister removes the record of obj, clears its tag and returns the
// value. A nil obj is a no-op. It panics if obj is not registered as kind.
func (t *Table) Unregister(kind Kind, obj Holder) any {
	if obj == nil {
		return nil
	}
	return t.unregister(kind, t.KeyOf(obj))
}

// UnregisterKey is like Unregister but names the record by key. A zero key
// is a no-op.
func (t *Table) UnregisterKey(kind Kind, key Key) any {
	if key == 0 {
		return nil
	}
	return t.unregister(kind, key)
}

func (t *Table) unregister(kind Kind, key Key) any {
	t.mu.Lock()
	rec := t.load(key)
	if rec == nil || rec.kind != kind {
		t.mu.Unlock()
		panic(fmt.Sprintf("identity: unregister of unregistered %s", kind))
	}
	t.slotFor(key.index()).Store(nil)
	t.free = append(t.free, key.index())
	t.live--
	t.mu.Unlock()

	rec.obj.TagStorage().tags[t.slot].CompareAndSwap(uint64(key), 0)
	return rec.value
}

// Len returns the number of live records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Count returns the number of live records of kind.
func (t *Table) Count(kind Kind) int {
	n := 0
	t.Range(kind, func(Key, any) bool {
		n++
		return true
	})
	return n
}

// Range calls fn for every live record of kind until fn returns false.
// Records registered or removed during Range may or may not be visited.
func (t *Table) Range(kind Kind, fn func(key Key, value any) bool) {
	chunks := *t.chunks.Load()
	for ci, c := range chunks {
		for i := range c {
			rec := c[i].Load()
			if rec == nil || rec.kind != kind {
				continue
			}
			if !fn(makeKey(uint32(ci*chunkSize+i), rec.gen), rec.value) {
				return
			}
		}
	}
}

// Close releases the table's tag slot. Objects still tagged by the table
// keep stale tags that a later table on the same slot would see, so Close
// panics if records are live.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.live != 0 {
		panic(fmt.Sprintf("identity: close with %d live records", t.live))
	}
	t.closed = true
	releaseSlot(t.slot)
}

// Get is Lookup with a typed result.
func Get[T any](t *Table, kind Kind, obj Holder) T {
	return t.Lookup(kind, obj).(T)
}

// ResolveAs is Resolve with a typed result.
func ResolveAs[T any](t *Table, kind Kind, key Key) T {
	return t.Resolve(kind, key).(T)
}
