// Package descriptor allocates descriptor sets from a persistent pool and a
// ring of transient pools.
//
// All pools are carved out of one device-wide slot heap:
//
//	| persistent | transient 1 | transient 2 | ... | transient N |
//
// Persistent sets live until freed. Transient sets live until the ring
// comes back around to their pool: AdvanceTransient moves the cursor to the
// next pool and resets it, so a set allocated after rotation K is stale
// after rotation K+N. Using a stale set panics; Valid reports it.
//
// A bind group superseded by an update after rotation K may still be
// referenced by work recorded in that frame. It is released with the
// transient pools of the same rotation, after rotation K+N.
package descriptor

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
)

// DefaultTransientPools is the depth of the transient ring.
const DefaultTransientPools = 4

// Config sizes the pools. Capacity and MaxSets apply to each pool.
type Config struct {
	TransientPools int
	Capacity       map[api.DescriptorType]uint32
	MaxSets        uint32
}

// DefaultConfig returns the pool sizes used when none are configured.
func DefaultConfig() Config {
	return Config{
		TransientPools: DefaultTransientPools,
		Capacity: map[api.DescriptorType]uint32{
			api.DescriptorSampler:                 1024,
			api.DescriptorShaderResourceView:      4096,
			api.DescriptorUnorderedAccessView:     1024,
			api.DescriptorConstantBuffer:          2048,
			api.DescriptorShaderStorageBuffer:     1024,
			api.DescriptorSamplerWithResourceView: 1024,
		},
		MaxSets: 4096,
	}
}

// Location is where a descriptor lives.
type Location struct {
	// Pool identifies the pool holding the set.
	Pool api.DescriptorPool

	// SetOffset is relative to the first slot of the set.
	SetOffset uint32

	// PoolOffset is relative to the first slot of the pool.
	PoolOffset uint32

	// HeapOffset is relative to the first slot of the device-wide heap.
	HeapOffset uint32
}

// BuildFunc creates the native bind group of a set from its descriptors.
type BuildFunc func(layout *SetLayout, descriptors []api.Descriptor) (hal.BindGroup, error)

// CheckFunc validates one descriptor written by an update. It panics on
// descriptors referencing dead objects.
type CheckFunc func(t api.DescriptorType, d api.Descriptor)

// Allocator is safe for concurrent use, except that AdvanceTransient must
// not race with transient allocation.
type Allocator struct {
	mu sync.Mutex

	// pools[0] is persistent; pools[1:] is the transient ring.
	pools     []*pool
	cursor    int
	rotations uint64
	destroy   func(hal.BindGroup)

	// retired holds superseded bind groups in rotation order.
	retired []retiredGroup
}

type retiredGroup struct {
	group    hal.BindGroup
	rotation uint64
}

// New creates an allocator. destroy releases native bind groups when their
// set is freed, rebuilt or reclaimed; nil means they need no release.
func New(cfg Config, destroy func(hal.BindGroup)) *Allocator {
	if cfg.TransientPools <= 0 {
		cfg.TransientPools = DefaultTransientPools
	}
	if cfg.TransientPools > 255 {
		panic(fmt.Sprintf("descriptor: %d transient pools exceeds the tier range", cfg.TransientPools))
	}
	if cfg.MaxSets == 0 {
		cfg.MaxSets = DefaultConfig().MaxSets
	}
	var capacity typeCounts
	for t, n := range cfg.Capacity {
		if t < api.DescriptorSampler || t > api.DescriptorSamplerWithResourceView {
			panic(fmt.Sprintf("descriptor: capacity for unknown descriptor type %d", t))
		}
		capacity[t] = n
	}
	if destroy == nil {
		destroy = func(hal.BindGroup) {}
	}

	a := &Allocator{
		pools:   make([]*pool, 0, cfg.TransientPools+1),
		cursor:  1,
		destroy: destroy,
	}
	var base uint32
	for tier := range cfg.TransientPools + 1 {
		p := newPool(uint8(tier), base, capacity, cfg.MaxSets)
		a.pools = append(a.pools, p)
		base += uint32(len(p.slots))
	}
	return a
}

// TransientPools returns the depth of the transient ring.
func (a *Allocator) TransientPools() int { return len(a.pools) - 1 }

// Allocate allocates count persistent sets of layout.
func (a *Allocator) Allocate(count uint32, layout *SetLayout) ([]api.DescriptorSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pools[0].allocate(count, layout)
}

// AllocateTransient allocates count sets of layout from the current
// transient pool.
func (a *Allocator) AllocateTransient(count uint32, layout *SetLayout) ([]api.DescriptorSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pools[a.cursor].allocate(count, layout)
}

// Free returns persistent sets to the pool. Null handles are skipped and
// transient sets are left to their pool's next reset.
func (a *Allocator) Free(sets []api.DescriptorSet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range sets {
		if s.IsNull() {
			continue
		}
		p, _, index := a.mustResolve(s)
		if p.transient() {
			continue
		}
		p.freeSet(index, a.destroy)
	}
}

// AdvanceTransient moves the cursor to the next transient pool and resets
// it, invalidating the sets allocated from it.
func (a *Allocator) AdvanceTransient() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cursor = a.cursor%(len(a.pools)-1) + 1
	a.pools[a.cursor].reset(a.destroy)
	a.rotations++

	depth := uint64(len(a.pools) - 1)
	n := 0
	for n < len(a.retired) && a.retired[n].rotation+depth <= a.rotations {
		a.destroy(a.retired[n].group)
		n++
	}
	a.retired = slices.Delete(a.retired, 0, n)
}

// ResetTransient resets every transient pool and rewinds the cursor.
func (a *Allocator) ResetTransient() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.pools[1:] {
		p.reset(a.destroy)
	}
	a.cursor = 1
	a.releaseRetired()
}

func (a *Allocator) releaseRetired() {
	for _, r := range a.retired {
		a.destroy(r.group)
	}
	a.retired = nil
}

// Retired returns the number of superseded bind groups awaiting release.
func (a *Allocator) Retired() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.retired)
}

// Rotations returns how many times the ring has advanced.
func (a *Allocator) Rotations() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rotations
}

// Live returns the number of live persistent sets.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.pools[0].live)
}

// Valid reports whether s refers to a live set.
func (a *Allocator) Valid(s api.DescriptorSet) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, rec, _ := a.resolve(s)
	return p != nil && rec != nil
}

// Layout returns the layout s was allocated with.
func (a *Allocator) Layout(s api.DescriptorSet) *SetLayout {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, rec, _ := a.mustResolve(s)
	return rec.layout
}

// Locate returns where element arrayOffset of binding lives.
func (a *Allocator) Locate(s api.DescriptorSet, binding, arrayOffset uint32) Location {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, rec, _ := a.mustResolve(s)
	_, slot := mustLocate(s, rec, binding, arrayOffset)
	return Location{
		Pool:       api.DescriptorPool(p.tier) + 1,
		SetOffset:  slot,
		PoolOffset: rec.base + slot,
		HeapOffset: p.base + rec.base + slot,
	}
}

// Update applies updates in order. check, when non-nil, validates each
// written descriptor. Type mismatches and writes past the end of a set
// panic.
func (a *Allocator) Update(updates []api.DescriptorSetUpdate, check CheckFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range updates {
		p, rec, _ := a.mustResolve(u.Set)
		_, slot := mustLocate(u.Set, rec, u.Binding, u.ArrayOffset)
		end := uint64(slot) + uint64(len(u.Descriptors))
		if end > uint64(rec.layout.Slots) {
			panic(fmt.Sprintf("descriptor: update of %d descriptors at binding %d overruns set %#x",
				len(u.Descriptors), u.Binding, uint64(u.Set)))
		}
		for i, d := range u.Descriptors {
			r := rec.layout.RangeAt(slot + uint32(i))
			if r.Type != u.Type {
				panic(fmt.Sprintf("descriptor: writing %s descriptor into %s binding %d",
					u.Type, r.Type, r.Binding))
			}
			if check != nil {
				check(u.Type, d)
			}
		}
		copy(p.slots[rec.base+slot:], u.Descriptors)
		rec.markDirty()
	}
}

// Copy applies copies in order. Source and destination ranges must have
// matching descriptor types.
func (a *Allocator) Copy(copies []api.DescriptorSetCopy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range copies {
		sp, src, _ := a.mustResolve(c.Source)
		dp, dst, _ := a.mustResolve(c.Dest)
		_, so := mustLocate(c.Source, src, c.SourceBinding, c.SourceArrayOffset)
		_, do := mustLocate(c.Dest, dst, c.DestBinding, c.DestArrayOffset)
		if uint64(so)+uint64(c.Count) > uint64(src.layout.Slots) ||
			uint64(do)+uint64(c.Count) > uint64(dst.layout.Slots) {
			panic(fmt.Sprintf("descriptor: copy of %d descriptors overruns set %#x or %#x",
				c.Count, uint64(c.Source), uint64(c.Dest)))
		}
		for i := range c.Count {
			st := src.layout.RangeAt(so + i).Type
			dt := dst.layout.RangeAt(do + i).Type
			if st != dt {
				panic(fmt.Sprintf("descriptor: copying %s descriptor into %s binding", st, dt))
			}
		}
		from := sp.slots[src.base+so : src.base+so+c.Count]
		copy(dp.slots[dst.base+do:dst.base+do+c.Count], from)
		dst.markDirty()
	}
}

// Read returns a copy of count descriptors starting at element arrayOffset
// of binding.
func (a *Allocator) Read(s api.DescriptorSet, binding, arrayOffset, count uint32) []api.Descriptor {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, rec, _ := a.mustResolve(s)
	_, slot := mustLocate(s, rec, binding, arrayOffset)
	if uint64(slot)+uint64(count) > uint64(rec.layout.Slots) {
		panic(fmt.Sprintf("descriptor: reading %d descriptors at binding %d overruns set %#x",
			count, binding, uint64(s)))
	}
	out := make([]api.Descriptor, count)
	copy(out, p.slots[rec.base+slot:])
	return out
}

// Native returns the bind group of s, calling build when the set changed
// since the last call. The superseded group is released once the ring has
// turned all the way round.
func (a *Allocator) Native(s api.DescriptorSet, build BuildFunc) (hal.BindGroup, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, rec, _ := a.mustResolve(s)
	if !rec.dirty && rec.native != nil {
		return rec.native, nil
	}
	g, err := build(rec.layout, p.slots[rec.base:rec.base+rec.layout.Slots])
	if err != nil {
		return nil, err
	}
	if rec.native != nil {
		a.retired = append(a.retired, retiredGroup{group: rec.native, rotation: a.rotations})
	}
	rec.native = g
	rec.dirty = false
	return g, nil
}

// Close releases every native bind group. The allocator must not be used
// afterwards.
func (a *Allocator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.pools {
		for i := range p.sets {
			rec := &p.sets[i]
			rec.drop(a.destroy)
			if rec.live {
				rec.live = false
				rec.layout.unref()
			}
		}
	}
	a.releaseRetired()
}

// DropLayout runs dispose once no live set uses l, immediately if none
// does. Sets of l stay usable until they are freed or reclaimed.
func (a *Allocator) DropLayout(l *SetLayout, dispose func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l.refs == 0 {
		dispose()
		return
	}
	l.dispose = dispose
}

func (a *Allocator) resolve(s api.DescriptorSet) (*pool, *set, uint32) {
	tier, gen, index, ok := splitSet(s)
	if !ok || int(tier) >= len(a.pools) {
		return nil, nil, 0
	}
	p := a.pools[tier]
	return p, p.lookup(gen, index), index
}

func (a *Allocator) mustResolve(s api.DescriptorSet) (*pool, *set, uint32) {
	p, rec, index := a.resolve(s)
	if p == nil || rec == nil {
		panic(fmt.Sprintf("descriptor: use of invalid or stale descriptor set %#x", uint64(s)))
	}
	return p, rec, index
}

func mustLocate(s api.DescriptorSet, rec *set, binding, arrayOffset uint32) (int, uint32) {
	r, slot, ok := rec.layout.Locate(binding, arrayOffset)
	if !ok {
		panic(fmt.Sprintf("descriptor: set %#x has no element %d at binding %d",
			uint64(s), arrayOffset, binding))
	}
	return r, slot
}

func (s *set) markDirty() { s.dirty = true }

func errExhausted(what string, tier uint8) error {
	kind := "persistent"
	if tier != 0 {
		kind = fmt.Sprintf("transient %d", tier)
	}
	return fmt.Errorf("%w: %s pool out of %s", api.ErrPoolExhausted, kind, what)
}
