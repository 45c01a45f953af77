package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/descriptor"
	"github.com/gogpu/interpose/internal/identity"
)

// CombinedSamplerShift is added to the binding of a combined sampler and
// view descriptor to place its sampler half. Shaders declare the texture at
// the range binding and the sampler at binding+CombinedSamplerShift.
const CombinedSamplerShift = 1 << 16

type nativeLayout struct {
	hal.PipelineLayout
	identity.Storage
}

// layoutRecord is the record of a pipeline layout.
type layoutRecord struct {
	params []api.PipelineLayoutParam

	// sets holds the slot layout of every descriptor parameter, nil for
	// push constants.
	sets []*descriptor.SetLayout

	// group is the bind group index of every descriptor parameter, or -1.
	group []int

	native hal.PipelineLayout
}

// CreatePipelineLayout creates an immutable pipeline layout. Every
// descriptor table and push-descriptor parameter becomes one bind group, in
// parameter order.
func (c *Core) CreatePipelineLayout(params []api.PipelineLayoutParam) (api.PipelineLayout, error) {
	if err := c.alive(); err != nil {
		return api.NullHandle, err
	}
	rec := &layoutRecord{
		params: make([]api.PipelineLayoutParam, len(params)),
		sets:   make([]*descriptor.SetLayout, len(params)),
		group:  make([]int, len(params)),
	}
	var (
		groups []hal.BindGroupLayout
		push   []hal.PushConstantRange
	)
	fail := func(err error) (api.PipelineLayout, error) {
		for _, g := range groups {
			c.dev.DestroyBindGroupLayout(g)
		}
		return api.NullHandle, err
	}

	for i, p := range params {
		p.Ranges = append([]api.DescriptorRange(nil), p.Ranges...)
		rec.params[i] = p
		rec.group[i] = -1

		switch p.Type {
		case api.ParamPushConstants:
			pc := p.PushConstants
			if pc.Count == 0 {
				return fail(fmt.Errorf("%w: parameter %d has no push constants", api.ErrInvalidDesc, i))
			}
			push = append(push, hal.PushConstantRange{
				Stages: shaderStages(pc.Visibility),
				Range:  hal.Range{Start: pc.Offset * 4, End: (pc.Offset + pc.Count) * 4},
			})
			continue
		case api.ParamPushDescriptors:
			if !c.CheckCapability(api.CapPartialPushDescriptorUpdates) {
				return fail(fmt.Errorf("%w: push descriptors", api.ErrUnsupported))
			}
		case api.ParamDescriptorTable:
		default:
			return fail(fmt.Errorf("%w: parameter %d has type %d", api.ErrInvalidDesc, i, p.Type))
		}

		set, err := descriptor.NewSetLayout(p.Ranges, nil)
		if err != nil {
			return fail(fmt.Errorf("parameter %d: %w", i, err))
		}
		for j := 1; j < len(set.Ranges); j++ {
			prev := set.Ranges[j-1]
			if prev.Binding+prev.Count > set.Ranges[j].Binding {
				return fail(fmt.Errorf("%w: parameter %d: bindings %d and %d overlap",
					api.ErrInvalidDesc, i, prev.Binding, set.Ranges[j].Binding))
			}
		}
		g, err := c.dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Entries: layoutEntries(set),
		})
		if err != nil {
			return fail(c.halError("create bind group layout", err))
		}
		set.Native = g
		rec.sets[i] = set
		rec.group[i] = len(groups)
		groups = append(groups, g)
	}

	native, err := c.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		BindGroupLayouts:   groups,
		PushConstantRanges: push,
	})
	if err != nil {
		return fail(c.halError("create pipeline layout", err))
	}
	rec.native = native
	key := c.table.Register(identity.KindPipelineLayout, &nativeLayout{PipelineLayout: native}, rec)
	slogger().Debug("device: pipeline layout created", "handle", uint64(key), "groups", len(groups))
	return api.PipelineLayout(key), nil
}

// layoutEntries expands descriptor ranges into one entry per descriptor.
func layoutEntries(set *descriptor.SetLayout) []gputypes.BindGroupLayoutEntry {
	var out []gputypes.BindGroupLayoutEntry
	for _, r := range set.Ranges {
		vis := shaderStages(r.Visibility)
		for i := uint32(0); i < r.Count; i++ {
			e := gputypes.BindGroupLayoutEntry{Binding: r.Binding + i, Visibility: vis}
			switch r.Type {
			case api.DescriptorSampler:
				e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
			case api.DescriptorShaderResourceView:
				e.Texture = &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				}
			case api.DescriptorUnorderedAccessView:
				e.StorageTexture = &gputypes.StorageTextureBindingLayout{
					Access:        gputypes.StorageTextureAccessReadWrite,
					ViewDimension: gputypes.TextureViewDimension2D,
				}
			case api.DescriptorConstantBuffer:
				e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
			case api.DescriptorShaderStorageBuffer:
				e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
			case api.DescriptorSamplerWithResourceView:
				e.Texture = &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				}
				out = append(out, gputypes.BindGroupLayoutEntry{
					Binding:    r.Binding + i + CombinedSamplerShift,
					Visibility: vis,
					Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				})
			}
			out = append(out, e)
		}
	}
	return out
}

// DestroyPipelineLayout destroys a layout. Null handles are ignored. The
// native bind group layouts outlive the handle until the last descriptor
// set allocated with them is freed or reclaimed.
func (c *Core) DestroyPipelineLayout(l api.PipelineLayout) {
	if l.IsNull() {
		return
	}
	rec := c.table.UnregisterKey(identity.KindPipelineLayout, identity.Key(l)).(*layoutRecord)
	c.dev.DestroyPipelineLayout(rec.native)
	for _, set := range rec.sets {
		if set == nil {
			continue
		}
		native := set.Native
		c.sets.DropLayout(set, func() { c.dev.DestroyBindGroupLayout(native) })
	}
}

func (c *Core) layout(l api.PipelineLayout) *layoutRecord {
	return identity.ResolveAs[*layoutRecord](c.table, identity.KindPipelineLayout, identity.Key(l))
}

// GetPipelineLayoutParams returns a copy of the parameters l was created
// with.
func (c *Core) GetPipelineLayoutParams(l api.PipelineLayout) []api.PipelineLayoutParam {
	rec := c.layout(l)
	out := make([]api.PipelineLayoutParam, len(rec.params))
	for i, p := range rec.params {
		p.Ranges = append([]api.DescriptorRange(nil), p.Ranges...)
		out[i] = p
	}
	return out
}

// setLayout returns the slot layout of descriptor-table parameter param.
func (c *Core) setLayout(l api.PipelineLayout, param uint32) (*descriptor.SetLayout, error) {
	rec := c.layout(l)
	if int(param) >= len(rec.params) {
		return nil, fmt.Errorf("%w: layout %#x has %d parameters, not %d",
			api.ErrInvalidDesc, uint64(l), len(rec.params), param+1)
	}
	if rec.params[param].Type != api.ParamDescriptorTable {
		return nil, fmt.Errorf("%w: parameter %d is not a descriptor table", api.ErrInvalidDesc, param)
	}
	return rec.sets[param], nil
}
