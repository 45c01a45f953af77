package device

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/interpose/api"
)

func srvTable(count uint32) api.PipelineLayoutParam {
	return api.PipelineLayoutParam{
		Type: api.ParamDescriptorTable,
		Ranges: []api.DescriptorRange{
			{Binding: 0, Count: count, Type: api.DescriptorShaderResourceView, Visibility: api.StagePixel},
		},
	}
}

// TestTransientFrame follows one frame of an application: a CPU-written
// texture is sampled through a transient descriptor set, and the set's
// contents survive until its pool comes around again.
func TestTransientFrame(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	const size = 256
	pattern := []byte{0x12, 0x34, 0x56, 0x78}

	tex, err := c.CreateResource(
		api.NewTexture2DDesc(size, size, 1, gputypes.TextureFormatRGBA8Unorm, api.HeapCPUOnly, api.UsageShaderResource),
		nil, api.UsageShaderResource, nil)
	require.NoError(t, err)
	defer c.DestroyResource(tex)

	view, err := c.CreateResourceView(tex, api.UsageShaderResource,
		api.NewTextureViewDesc(api.ViewTypeTexture2D, gputypes.TextureFormatRGBA8Unorm))
	require.NoError(t, err)
	defer c.DestroyResourceView(view)

	m, err := c.MapTextureRegion(tex, 0, nil, api.MapWriteOnly)
	require.NoError(t, err)
	for y := range uint32(size) {
		row := m.Data[y*m.RowPitch:]
		for x := range uint32(size) {
			copy(row[x*4:], pattern)
		}
	}
	c.UnmapTextureRegion(tex, 0)

	layout, err := c.CreatePipelineLayout([]api.PipelineLayoutParam{srvTable(1)})
	require.NoError(t, err)
	defer c.DestroyPipelineLayout(layout)

	p, err := c.CreatePipeline(layout, []api.PipelineSubobject{
		{Type: api.SubobjectVertexShader, Value: &api.ShaderDesc{Code: spirvHeader}},
		{Type: api.SubobjectPixelShader, Value: &api.ShaderDesc{Code: spirvHeader}},
		{Type: api.SubobjectRenderTargetFormats, Value: []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}},
	})
	require.NoError(t, err)
	defer c.DestroyPipeline(p)

	sets, err := c.AllocateTransientDescriptorSets(1, layout, 0)
	require.NoError(t, err)
	first := sets[0]
	require.NoError(t, c.UpdateDescriptorSets([]api.DescriptorSetUpdate{{
		Set:         first,
		Type:        api.DescriptorShaderResourceView,
		Descriptors: []api.Descriptor{{View: view}},
	}}))
	observed := c.ReadDescriptors(first, 0, 0, 1)
	require.Equal(t, view, observed[0].View)
	g, err := c.NativeDescriptorSet(first)
	require.NoError(t, err)
	assert.NotNil(t, g)

	for i := range 3 {
		c.AdvanceTransientDescriptorPool()
		assert.True(t, c.IsDescriptorSetValid(first), "set invalid after %d advances", i+1)
	}
	c.AdvanceTransientDescriptorPool()
	assert.False(t, c.IsDescriptorSetValid(first), "set still valid after a full rotation")

	sets, err = c.AllocateTransientDescriptorSets(1, layout, 0)
	require.NoError(t, err)
	second := sets[0]
	assert.NotEqual(t, first, second)
	assert.True(t, c.ReadDescriptors(second, 0, 0, 1)[0].IsZero(), "reused slot carries old descriptors")
	require.NoError(t, c.UpdateDescriptorSets([]api.DescriptorSetUpdate{{
		Set:         second,
		Type:        api.DescriptorShaderResourceView,
		Descriptors: []api.Descriptor{{}},
	}}))
	assert.Equal(t, view, observed[0].View, "observed state changed by a later set")

	m, err = c.MapTextureRegion(tex, 0, &api.SubresourceBox{Left: size - 1, Top: size - 1, Right: size, Bottom: size, Back: 1}, api.MapReadOnly)
	require.NoError(t, err)
	assert.Equal(t, pattern, m.Data[:4])
	c.UnmapTextureRegion(tex, 0)
}

func TestPersistentDescriptorSets(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	layout, err := c.CreatePipelineLayout([]api.PipelineLayoutParam{
		{Type: api.ParamPushConstants, PushConstants: api.PushConstantRange{Count: 2, Visibility: api.StageVertex}},
		{
			Type: api.ParamDescriptorTable,
			Ranges: []api.DescriptorRange{
				{Binding: 0, Count: 1, Type: api.DescriptorConstantBuffer, Visibility: api.StageAll},
				{Binding: 1, Count: 2, Type: api.DescriptorSamplerWithResourceView, Visibility: api.StagePixel},
			},
		},
	})
	require.NoError(t, err)
	defer c.DestroyPipelineLayout(layout)

	params := c.GetPipelineLayoutParams(layout)
	require.Len(t, params, 2)
	assert.Equal(t, uint32(3), params[1].DescriptorCount())

	_, err = c.AllocateDescriptorSets(1, layout, 0)
	assert.ErrorIs(t, err, api.ErrInvalidDesc, "push constants are not a table")
	_, err = c.AllocateDescriptorSets(1, layout, 2)
	assert.ErrorIs(t, err, api.ErrInvalidDesc)

	sets, err := c.AllocateDescriptorSets(2, layout, 1)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	buf, err := c.CreateResource(api.NewBufferDesc(256, api.HeapCPUToGPU, api.UsageConstantBuffer), nil, api.UsageGeneral, nil)
	require.NoError(t, err)
	defer c.DestroyResource(buf)
	tex, err := c.CreateResource(
		api.NewTexture2DDesc(4, 4, 1, gputypes.TextureFormatRGBA8Unorm, api.HeapGPUOnly, api.UsageShaderResource),
		nil, api.UsageGeneral, nil)
	require.NoError(t, err)
	defer c.DestroyResource(tex)
	view, err := c.CreateResourceView(tex, api.UsageShaderResource, api.ResourceViewDesc{})
	require.NoError(t, err)
	defer c.DestroyResourceView(view)
	smp, err := c.CreateSampler(api.SamplerDesc{MinFilter: gputypes.FilterModeLinear, MaxAnisotropy: 8})
	require.NoError(t, err)
	defer c.DestroySampler(smp)

	require.NoError(t, c.UpdateDescriptorSets([]api.DescriptorSetUpdate{
		{Set: sets[0], Binding: 0, Type: api.DescriptorConstantBuffer,
			Descriptors: []api.Descriptor{{Buffer: api.BufferRange{Buffer: buf, Size: 64}}}},
		{Set: sets[0], Binding: 1, ArrayOffset: 1, Type: api.DescriptorSamplerWithResourceView,
			Descriptors: []api.Descriptor{{View: view, Sampler: smp}}},
	}))
	require.NoError(t, c.CopyDescriptorSets([]api.DescriptorSetCopy{{
		Source: sets[0], SourceBinding: 1, SourceArrayOffset: 1,
		Dest: sets[1], DestBinding: 1, Count: 1,
	}}))
	got := c.ReadDescriptors(sets[1], 1, 0, 2)
	assert.Equal(t, api.Descriptor{View: view, Sampler: smp}, got[0])
	assert.True(t, got[1].IsZero())

	for _, s := range sets {
		g, err := c.NativeDescriptorSet(s)
		require.NoError(t, err)
		assert.NotNil(t, g)
	}

	assert.Panics(t, func() {
		_ = c.UpdateDescriptorSets([]api.DescriptorSetUpdate{{
			Set: sets[0], Binding: 0, Type: api.DescriptorConstantBuffer,
			Descriptors: []api.Descriptor{{Buffer: api.BufferRange{Buffer: buf, Offset: 200, Size: 64}}},
		}})
	}, "buffer range past the end")
	assert.Panics(t, func() {
		_ = c.UpdateDescriptorSets([]api.DescriptorSetUpdate{{
			Set: sets[0], Binding: 0, Type: api.DescriptorShaderResourceView,
			Descriptors: []api.Descriptor{{View: view}},
		}})
	}, "descriptor type mismatch")

	c.FreeDescriptorSets(sets)
	assert.False(t, c.IsDescriptorSetValid(sets[0]))
}

func TestStaleDescriptorRebuild(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	layout, err := c.CreatePipelineLayout([]api.PipelineLayoutParam{srvTable(1)})
	require.NoError(t, err)
	defer c.DestroyPipelineLayout(layout)
	sets, err := c.AllocateDescriptorSets(1, layout, 0)
	require.NoError(t, err)
	defer c.FreeDescriptorSets(sets)

	tex, err := c.CreateResource(
		api.NewTexture2DDesc(4, 4, 1, gputypes.TextureFormatRGBA8Unorm, api.HeapGPUOnly, api.UsageShaderResource),
		nil, api.UsageGeneral, nil)
	require.NoError(t, err)
	defer c.DestroyResource(tex)
	view, err := c.CreateResourceView(tex, api.UsageShaderResource, api.ResourceViewDesc{})
	require.NoError(t, err)

	require.NoError(t, c.UpdateDescriptorSets([]api.DescriptorSetUpdate{{
		Set: sets[0], Type: api.DescriptorShaderResourceView, Descriptors: []api.Descriptor{{View: view}},
	}}))
	c.DestroyResourceView(view)

	_, err = c.NativeDescriptorSet(sets[0])
	assert.ErrorIs(t, err, api.ErrInvalidDesc)
}

// layoutCountingDevice counts destroyed bind group layouts.
type layoutCountingDevice struct {
	hal.Device
	destroyed int
}

func (d *layoutCountingDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.destroyed++
	d.Device.DestroyBindGroupLayout(l)
}

func TestDestroyPipelineLayoutWithLiveSets(t *testing.T) {
	open, adapter := noopAdapter(t)
	dev := &layoutCountingDevice{Device: open.Device}
	open.Device = dev
	c := newCoreOver(t, open, adapter, nil)
	defer c.Destroy()

	layout, err := c.CreatePipelineLayout([]api.PipelineLayoutParam{srvTable(2)})
	require.NoError(t, err)
	sets, err := c.AllocateDescriptorSets(1, layout, 0)
	require.NoError(t, err)

	c.DestroyPipelineLayout(layout)
	assert.Zero(t, dev.destroyed, "bind group layout outlives the pipeline layout while sets use it")

	tex, err := c.CreateResource(
		api.NewTexture2DDesc(4, 4, 1, gputypes.TextureFormatRGBA8Unorm, api.HeapGPUOnly, api.UsageShaderResource),
		nil, api.UsageGeneral, nil)
	require.NoError(t, err)
	defer c.DestroyResource(tex)
	view, err := c.CreateResourceView(tex, api.UsageShaderResource, api.ResourceViewDesc{})
	require.NoError(t, err)
	defer c.DestroyResourceView(view)
	require.NoError(t, c.UpdateDescriptorSets([]api.DescriptorSetUpdate{{
		Set: sets[0], Type: api.DescriptorShaderResourceView, Descriptors: []api.Descriptor{{View: view}},
	}}))
	g, err := c.NativeDescriptorSet(sets[0])
	require.NoError(t, err)
	assert.NotNil(t, g)

	c.FreeDescriptorSets(sets)
	assert.Equal(t, 1, dev.destroyed, "released with the last set")
}

func TestDescriptorPoolOffset(t *testing.T) {
	for _, absolute := range []bool{false, true} {
		c := newTestCore(t, &testQuirks{absolute: absolute})

		layout, err := c.CreatePipelineLayout([]api.PipelineLayoutParam{srvTable(4)})
		require.NoError(t, err)
		sets, err := c.AllocateDescriptorSets(2, layout, 0)
		require.NoError(t, err)

		pool, off := c.GetDescriptorPoolOffset(sets[1], 0, 3)
		assert.NotZero(t, pool)
		if absolute {
			assert.Greater(t, off, uint32(3), "heap offset of the second set")
		} else {
			assert.Equal(t, uint32(3), off)
		}

		c.FreeDescriptorSets(sets)
		c.DestroyPipelineLayout(layout)
		c.Destroy()
	}
}

func TestPipelineLayoutErrors(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	tests := []struct {
		name   string
		params []api.PipelineLayoutParam
		want   error
	}{
		{"empty push constants", []api.PipelineLayoutParam{{Type: api.ParamPushConstants}}, api.ErrInvalidDesc},
		{"unknown type", []api.PipelineLayoutParam{{Type: 9}}, api.ErrInvalidDesc},
		{"push descriptors", []api.PipelineLayoutParam{{Type: api.ParamPushDescriptors, Ranges: srvTable(1).Ranges}}, api.ErrUnsupported},
		{"overlap", []api.PipelineLayoutParam{{
			Type: api.ParamDescriptorTable,
			Ranges: []api.DescriptorRange{
				{Binding: 0, Count: 2, Type: api.DescriptorShaderResourceView},
				{Binding: 1, Count: 1, Type: api.DescriptorSampler},
			},
		}}, api.ErrInvalidDesc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := c.CreatePipelineLayout(tt.params)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, l.IsNull())
		})
	}
}

func TestCreateSampler(t *testing.T) {
	c := newTestCore(t, &testQuirks{caps: map[api.DeviceCaps]bool{api.CapSamplerCustomBorderColor: false}})
	defer c.Destroy()

	desc := api.SamplerDesc{
		MinFilter: gputypes.FilterModeLinear,
		AddressU:  gputypes.AddressModeRepeat,
		Compare:   gputypes.CompareFunctionLessEqual,
	}
	s, err := c.CreateSampler(desc)
	require.NoError(t, err)
	assert.Equal(t, desc, c.GetSamplerDesc(s))
	c.DestroySampler(s)
	c.DestroySampler(api.NullHandle)

	_, err = c.CreateSampler(api.SamplerDesc{MaxAnisotropy: 17})
	assert.ErrorIs(t, err, api.ErrInvalidDesc)
	_, err = c.CreateSampler(api.SamplerDesc{BorderColor: [4]float32{0.5, 0, 0, 1}})
	assert.ErrorIs(t, err, api.ErrUnsupported)
}
