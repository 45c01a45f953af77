package descriptor

import (
	"cmp"
	"slices"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
)

// Set handle layout: bits 56-63 pool tier (0 persistent, 1..N transient),
// bits 32-55 generation, bits 0-31 set index plus one.
const (
	tierShift = 56
	genShift  = 32
	genMask   = 1<<24 - 1
	indexMask = 1<<32 - 1
)

func makeSet(tier uint8, gen, index uint32) api.DescriptorSet {
	return api.DescriptorSet(uint64(tier)<<tierShift | uint64(gen&genMask)<<genShift | (uint64(index) + 1))
}

func splitSet(s api.DescriptorSet) (tier uint8, gen, index uint32, ok bool) {
	low := uint32(uint64(s) & indexMask)
	if low == 0 {
		return 0, 0, 0, false
	}
	return uint8(uint64(s) >> tierShift), uint32(uint64(s)>>genShift) & genMask, low - 1, true
}

// set is the record behind a descriptor set handle.
type set struct {
	layout *SetLayout
	gen    uint32
	base   uint32
	live   bool

	native hal.BindGroup
	dirty  bool
}

type extent struct{ start, count uint32 }

// pool owns a run of descriptor slots. The persistent pool hands out slots
// first-fit and recycles them; transient pools bump-allocate and are only
// reclaimed as a whole.
type pool struct {
	tier uint8
	base uint32

	// gen stamps every set of a transient pool. It changes on reset.
	gen uint32

	slots    []api.Descriptor
	capacity typeCounts
	free     typeCounts
	maxSets  uint32

	sets     []set
	freeSets []uint32
	holes    []extent
	next     uint32
	live     uint32
}

func newPool(tier uint8, base uint32, capacity typeCounts, maxSets uint32) *pool {
	p := &pool{
		tier:     tier,
		base:     base,
		slots:    make([]api.Descriptor, capacity.total()),
		capacity: capacity,
		free:     capacity,
		maxSets:  maxSets,
	}
	if p.transient() {
		p.gen = 1
	}
	return p
}

func (p *pool) transient() bool { return p.tier != 0 }

// reserve carves n contiguous slots.
func (p *pool) reserve(n uint32) (uint32, bool) {
	for i, h := range p.holes {
		if h.count < n {
			continue
		}
		if h.count == n {
			p.holes = slices.Delete(p.holes, i, i+1)
		} else {
			p.holes[i] = extent{h.start + n, h.count - n}
		}
		return h.start, true
	}
	if uint64(p.next)+uint64(n) > uint64(len(p.slots)) {
		return 0, false
	}
	start := p.next
	p.next += n
	return start, true
}

// release returns n slots at start, merging neighbouring holes and folding
// a trailing hole back into the bump region.
func (p *pool) release(start, n uint32) {
	if n == 0 {
		return
	}
	clear(p.slots[start : start+n])

	i, _ := slices.BinarySearchFunc(p.holes, start, func(e extent, s uint32) int {
		return cmp.Compare(e.start, s)
	})
	p.holes = slices.Insert(p.holes, i, extent{start, n})
	if i+1 < len(p.holes) && p.holes[i].start+p.holes[i].count == p.holes[i+1].start {
		p.holes[i].count += p.holes[i+1].count
		p.holes = slices.Delete(p.holes, i+1, i+2)
	}
	if i > 0 && p.holes[i-1].start+p.holes[i-1].count == p.holes[i].start {
		p.holes[i-1].count += p.holes[i].count
		p.holes = slices.Delete(p.holes, i, i+1)
	}
	if last := p.holes[len(p.holes)-1]; last.start+last.count == p.next {
		p.next = last.start
		p.holes = p.holes[:len(p.holes)-1]
	}
}

func (p *pool) allocate(count uint32, layout *SetLayout) ([]api.DescriptorSet, error) {
	if uint64(p.live)+uint64(count) > uint64(p.maxSets) {
		return nil, errExhausted("sets", p.tier)
	}
	if uint64(layout.Slots)*uint64(count) > uint64(len(p.slots)) {
		return nil, errExhausted("slots", p.tier)
	}
	// Totals are computed in 64 bits so a huge count cannot wrap.
	per := layout.counts()
	var need typeCounts
	for t := range per {
		n := uint64(per[t]) * uint64(count)
		if n > uint64(p.free[t]) {
			return nil, errExhausted(api.DescriptorType(t).String(), p.tier)
		}
		need[t] = uint32(n)
	}

	bases := make([]uint32, 0, count)
	mark := p.next
	for range count {
		base, ok := p.reserve(layout.Slots)
		if !ok {
			if p.transient() {
				p.next = mark
			} else {
				for _, b := range bases {
					p.release(b, layout.Slots)
				}
			}
			return nil, errExhausted("slots", p.tier)
		}
		bases = append(bases, base)
	}

	out := make([]api.DescriptorSet, 0, count)
	p.free.sub(need)
	for _, base := range bases {
		var idx uint32
		if n := len(p.freeSets); n > 0 {
			idx = p.freeSets[n-1]
			p.freeSets = p.freeSets[:n-1]
		} else {
			idx = uint32(len(p.sets))
			p.sets = append(p.sets, set{gen: 1})
		}
		rec := &p.sets[idx]
		layout.refs++
		rec.layout = layout
		rec.base = base
		rec.live = true
		rec.dirty = true
		if p.transient() {
			rec.gen = p.gen
		}
		p.live++
		out = append(out, makeSet(p.tier, rec.gen, idx))
	}
	return out, nil
}

// lookup returns the live record for index and gen, or nil.
func (p *pool) lookup(gen, index uint32) *set {
	if p.transient() && gen != p.gen {
		return nil
	}
	if int(index) >= len(p.sets) {
		return nil
	}
	rec := &p.sets[index]
	if !rec.live || rec.gen != gen {
		return nil
	}
	return rec
}

// freeSet returns a persistent set to the pool.
func (p *pool) freeSet(index uint32, destroy func(hal.BindGroup)) {
	rec := &p.sets[index]
	rec.drop(destroy)
	p.release(rec.base, rec.layout.Slots)
	p.free.add(rec.layout.counts())
	rec.layout.unref()
	rec.live = false
	rec.layout = nil
	rec.gen = (rec.gen + 1) & genMask
	if rec.gen == 0 {
		rec.gen = 1
	}
	p.freeSets = append(p.freeSets, index)
	p.live--
}

// reset reclaims every set of a transient pool and moves it to a new
// generation.
func (p *pool) reset(destroy func(hal.BindGroup)) {
	for i := range p.sets {
		p.sets[i].drop(destroy)
		if p.sets[i].live {
			p.sets[i].layout.unref()
		}
	}
	p.sets = p.sets[:0]
	clear(p.slots[:p.next])
	p.next = 0
	p.free = p.capacity
	p.live = 0
	p.gen = (p.gen + 1) & genMask
	if p.gen == 0 {
		p.gen = 1
	}
}

func (s *set) drop(destroy func(hal.BindGroup)) {
	if s.native != nil {
		destroy(s.native)
		s.native = nil
	}
}
