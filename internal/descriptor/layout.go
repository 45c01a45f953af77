package descriptor

import (
	"fmt"
	"slices"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
)

// Range is a descriptor range placed at a slot offset inside a set.
type Range struct {
	api.DescriptorRange

	// Offset is the slot of the range's first descriptor, relative to the
	// start of the set.
	Offset uint32
}

// SetLayout is the immutable slot layout of one descriptor-table parameter
// of a pipeline layout.
type SetLayout struct {
	// Ranges are sorted by binding.
	Ranges []Range

	// Slots is the total descriptor count of a set.
	Slots uint32

	// Native is the backend bind group layout, if one was created.
	Native hal.BindGroupLayout

	// refs counts the live sets of the layout. dispose is set once the
	// layout is dropped while sets remain. Both are guarded by the
	// Allocator.
	refs    int
	dispose func()
}

func (l *SetLayout) unref() {
	l.refs--
	if l.refs == 0 && l.dispose != nil {
		dispose := l.dispose
		l.dispose = nil
		dispose()
	}
}

// NewSetLayout places ranges in binding order. Bindings must be unique and
// counts non-zero.
func NewSetLayout(ranges []api.DescriptorRange, native hal.BindGroupLayout) (*SetLayout, error) {
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b api.DescriptorRange) int {
		return int(a.Binding) - int(b.Binding)
	})

	l := &SetLayout{Native: native, Ranges: make([]Range, 0, len(sorted))}
	for i, r := range sorted {
		if r.Count == 0 {
			return nil, fmt.Errorf("%w: binding %d has zero descriptors", api.ErrInvalidDesc, r.Binding)
		}
		if r.Type < api.DescriptorSampler || r.Type > api.DescriptorSamplerWithResourceView {
			return nil, fmt.Errorf("%w: binding %d has descriptor type %d", api.ErrInvalidDesc, r.Binding, r.Type)
		}
		if i > 0 && sorted[i-1].Binding == r.Binding {
			return nil, fmt.Errorf("%w: binding %d declared twice", api.ErrInvalidDesc, r.Binding)
		}
		l.Ranges = append(l.Ranges, Range{DescriptorRange: r, Offset: l.Slots})
		l.Slots += r.Count
	}
	return l, nil
}

// Locate returns the index of the range holding binding and the set-relative
// slot of element arrayOffset. Array offsets past the end of a range
// continue into the following ranges.
func (l *SetLayout) Locate(binding, arrayOffset uint32) (int, uint32, bool) {
	for i, r := range l.Ranges {
		if r.Binding != binding {
			continue
		}
		slot := r.Offset + arrayOffset
		if slot >= l.Slots {
			return 0, 0, false
		}
		for i+1 < len(l.Ranges) && slot >= l.Ranges[i+1].Offset {
			i++
		}
		return i, slot, true
	}
	return 0, 0, false
}

// RangeAt returns the range containing a set-relative slot.
func (l *SetLayout) RangeAt(slot uint32) *Range {
	for i := range l.Ranges {
		r := &l.Ranges[i]
		if slot >= r.Offset && slot < r.Offset+r.Count {
			return r
		}
	}
	return nil
}

// counts returns the descriptors of each type a set consumes.
func (l *SetLayout) counts() (c typeCounts) {
	for _, r := range l.Ranges {
		c[r.Type] += r.Count
	}
	return c
}

// typeCounts is indexed by api.DescriptorType.
type typeCounts [api.DescriptorSamplerWithResourceView + 1]uint32

func (c *typeCounts) fits(need typeCounts) (api.DescriptorType, bool) {
	for t := range c {
		if need[t] > c[t] {
			return api.DescriptorType(t), false
		}
	}
	return 0, true
}

func (c *typeCounts) sub(n typeCounts) {
	for t := range c {
		c[t] -= n[t]
	}
}

func (c *typeCounts) add(n typeCounts) {
	for t := range c {
		c[t] += n[t]
	}
}

func (c *typeCounts) total() uint32 {
	var n uint32
	for _, v := range c {
		n += v
	}
	return n
}
