package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/descriptor"
	"github.com/gogpu/interpose/internal/identity"
	"github.com/gogpu/interpose/internal/registry"
)

// AllocateDescriptorSets allocates count sets for descriptor-table
// parameter param of layout from the persistent pool.
func (c *Core) AllocateDescriptorSets(count uint32, layout api.PipelineLayout, param uint32) ([]api.DescriptorSet, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	set, err := c.setLayout(layout, param)
	if err != nil {
		return nil, err
	}
	return c.sets.Allocate(count, set)
}

// AllocateTransientDescriptorSets allocates count sets from the current
// transient pool. They stay valid for TransientPools rotations.
func (c *Core) AllocateTransientDescriptorSets(count uint32, layout api.PipelineLayout, param uint32) ([]api.DescriptorSet, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	set, err := c.setLayout(layout, param)
	if err != nil {
		return nil, err
	}
	return c.sets.AllocateTransient(count, set)
}

// FreeDescriptorSets returns persistent sets to their pool. Null handles
// and transient sets are ignored.
func (c *Core) FreeDescriptorSets(sets []api.DescriptorSet) {
	c.sets.Free(sets)
}

// AdvanceTransientDescriptorPool rotates the transient pool ring,
// invalidating every set allocated from the pool it moves to.
func (c *Core) AdvanceTransientDescriptorPool() {
	c.sets.AdvanceTransient()
	slogger().Debug("device: transient descriptor pool advanced", "rotations", c.sets.Rotations())
}

// IsDescriptorSetValid reports whether s may still be used.
func (c *Core) IsDescriptorSetValid(s api.DescriptorSet) bool {
	return c.sets.Valid(s)
}

// GetDescriptorPoolOffset returns the pool holding s and the offset of the
// descriptor at binding and arrayOffset. The offset is relative to the set,
// or to the device-wide heap when the flavor uses absolute offsets.
func (c *Core) GetDescriptorPoolOffset(s api.DescriptorSet, binding, arrayOffset uint32) (api.DescriptorPool, uint32) {
	loc := c.sets.Locate(s, binding, arrayOffset)
	if c.quirks.AbsoluteDescriptorOffsets() {
		return loc.Pool, loc.HeapOffset
	}
	return loc.Pool, loc.SetOffset
}

// UpdateDescriptorSets applies updates in order. Writing a descriptor of
// the wrong type or one referencing a destroyed object panics.
func (c *Core) UpdateDescriptorSets(updates []api.DescriptorSetUpdate) error {
	if err := c.alive(); err != nil {
		return err
	}
	c.sets.Update(updates, c.checkDescriptor)
	return nil
}

// CopyDescriptorSets applies copies in order.
func (c *Core) CopyDescriptorSets(copies []api.DescriptorSetCopy) error {
	if err := c.alive(); err != nil {
		return err
	}
	c.sets.Copy(copies)
	return nil
}

// ReadDescriptors returns a copy of count descriptors of s.
func (c *Core) ReadDescriptors(s api.DescriptorSet, binding, arrayOffset, count uint32) []api.Descriptor {
	return c.sets.Read(s, binding, arrayOffset, count)
}

// NativeDescriptorSet returns the bind group holding the descriptors of s.
// It is rebuilt after s changes.
func (c *Core) NativeDescriptorSet(s api.DescriptorSet) (hal.BindGroup, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	return c.sets.Native(s, c.buildBindGroup)
}

// checkDescriptor panics if d references an object that does not exist or
// cannot be bound as t. Null references unbind the slot.
func (c *Core) checkDescriptor(t api.DescriptorType, d api.Descriptor) {
	switch t {
	case api.DescriptorSampler:
		c.mustSampler(d.Sampler)
	case api.DescriptorShaderResourceView:
		c.mustView(d.View, api.UsageShaderResource)
	case api.DescriptorUnorderedAccessView:
		c.mustView(d.View, api.UsageUnorderedAccess)
	case api.DescriptorSamplerWithResourceView:
		c.mustSampler(d.Sampler)
		c.mustView(d.View, api.UsageShaderResource)
	case api.DescriptorConstantBuffer, api.DescriptorShaderStorageBuffer:
		if d.Buffer.Buffer.IsNull() {
			return
		}
		res, ok := c.registry.LookupResource(d.Buffer.Buffer)
		if !ok || res.Desc.Type != api.ResourceTypeBuffer {
			panic(fmt.Sprintf("device: %s descriptor references invalid buffer %#x", t, uint64(d.Buffer.Buffer)))
		}
		if d.Buffer.Offset >= res.Desc.Buffer.Size || d.Buffer.Size > res.Desc.Buffer.Size-d.Buffer.Offset {
			panic(fmt.Sprintf("device: %s descriptor range %d+%d outside %d-byte buffer",
				t, d.Buffer.Offset, d.Buffer.Size, res.Desc.Buffer.Size))
		}
	}
}

func (c *Core) mustSampler(s api.Sampler) {
	if !s.IsNull() && !c.table.Contains(identity.KindSampler, identity.Key(s)) {
		panic(fmt.Sprintf("device: descriptor references invalid sampler %#x", uint64(s)))
	}
}

func (c *Core) mustView(v api.ResourceView, usage api.ResourceUsage) {
	if v.IsNull() {
		return
	}
	rec, ok := c.registry.LookupView(v)
	if !ok {
		panic(fmt.Sprintf("device: descriptor references invalid view %#x", uint64(v)))
	}
	if rec.Usage != usage {
		panic(fmt.Sprintf("device: view %#x has usage %#x, descriptor needs %#x",
			uint64(v), uint32(rec.Usage), uint32(usage)))
	}
}

// buildBindGroup creates the bind group of a set. Each array element binds
// at the range binding plus its index; unbound slots are left out.
func (c *Core) buildBindGroup(layout *descriptor.SetLayout, descs []api.Descriptor) (hal.BindGroup, error) {
	var entries []gputypes.BindGroupEntry
	for slot, d := range descs {
		if d.IsZero() {
			continue
		}
		r := layout.RangeAt(uint32(slot))
		binding := r.Binding + uint32(slot) - r.Offset

		switch r.Type {
		case api.DescriptorSampler:
			s, err := c.samplerBinding(d.Sampler)
			if err != nil {
				return nil, err
			}
			entries = append(entries, gputypes.BindGroupEntry{Binding: binding, Resource: s})
		case api.DescriptorShaderResourceView, api.DescriptorUnorderedAccessView:
			v, err := c.viewBinding(d.View)
			if err != nil {
				return nil, err
			}
			entries = append(entries, gputypes.BindGroupEntry{Binding: binding, Resource: v})
		case api.DescriptorConstantBuffer, api.DescriptorShaderStorageBuffer:
			b, err := c.bufferBinding(d.Buffer)
			if err != nil {
				return nil, err
			}
			entries = append(entries, gputypes.BindGroupEntry{Binding: binding, Resource: b})
		case api.DescriptorSamplerWithResourceView:
			v, err := c.viewBinding(d.View)
			if err != nil {
				return nil, err
			}
			s, err := c.samplerBinding(d.Sampler)
			if err != nil {
				return nil, err
			}
			entries = append(entries,
				gputypes.BindGroupEntry{Binding: binding, Resource: v},
				gputypes.BindGroupEntry{Binding: binding + CombinedSamplerShift, Resource: s})
		}
	}

	g, err := c.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Layout:  layout.Native,
		Entries: entries,
	})
	if err != nil {
		return nil, c.halError("create bind group", err)
	}
	return g, nil
}

func staleBinding(what string, h uint64) error {
	return fmt.Errorf("%w: descriptor references destroyed %s %#x", api.ErrInvalidDesc, what, h)
}

func (c *Core) samplerBinding(s api.Sampler) (gputypes.BindingResource, error) {
	v, ok := c.table.TryResolve(identity.KindSampler, identity.Key(s))
	if !ok {
		return nil, staleBinding("sampler", uint64(s))
	}
	return gputypes.SamplerBinding{Sampler: v.(*samplerRecord).native.NativeHandle()}, nil
}

func (c *Core) viewBinding(h api.ResourceView) (gputypes.BindingResource, error) {
	v, ok := c.registry.LookupView(h)
	if !ok {
		return nil, staleBinding("view", uint64(h))
	}
	if v.Texture != nil {
		return gputypes.TextureViewBinding{TextureView: v.Texture.NativeHandle()}, nil
	}
	return bufferViewBinding(v), nil
}

func bufferViewBinding(v *registry.View) gputypes.BufferBinding {
	return gputypes.BufferBinding{
		Buffer: v.Resource.Buffer.NativeHandle(),
		Offset: v.Desc.Buffer.Offset,
		Size:   v.Desc.Buffer.Size,
	}
}

func (c *Core) bufferBinding(r api.BufferRange) (gputypes.BindingResource, error) {
	res, ok := c.registry.LookupResource(r.Buffer)
	if !ok {
		return nil, staleBinding("buffer", uint64(r.Buffer))
	}
	return gputypes.BufferBinding{
		Buffer: res.Buffer.NativeHandle(),
		Offset: r.Offset,
		Size:   r.Size,
	}, nil
}
