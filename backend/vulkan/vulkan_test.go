package vulkan

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/backend"
	"github.com/gogpu/interpose/internal/device"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07}

func noopAdapter(t *testing.T) (hal.OpenDevice, hal.ExposedAdapter) {
	t.Helper()
	inst, err := noop.API{}.CreateInstance(nil)
	require.NoError(t, err)
	adapters := inst.EnumerateAdapters(nil)
	require.NotEmpty(t, adapters)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	require.NoError(t, err)
	return open, adapters[0]
}

func newTestDevice(t *testing.T, ext Extensions) *Device {
	t.Helper()
	open, adapter := noopAdapter(t)
	d, err := New(open, adapter, ext, true, device.WithShaderValidation(false))
	require.NoError(t, err)
	return d
}

func graphics(samples uint32, formats ...gputypes.TextureFormat) []api.PipelineSubobject {
	return []api.PipelineSubobject{
		{Type: api.SubobjectVertexShader, Value: &api.ShaderDesc{Code: spirvHeader}},
		{Type: api.SubobjectRenderTargetFormats, Value: formats},
		{Type: api.SubobjectSampleCount, Value: samples},
	}
}

func TestRegistered(t *testing.T) {
	f := backend.Get(backend.FlavorVulkan)
	require.NotNil(t, f)
	if got := f.API(); got != api.DeviceAPIVulkan {
		t.Errorf("API() = %v, want %v", got, api.DeviceAPIVulkan)
	}
}

func TestDetectExtensions(t *testing.T) {
	_, adapter := noopAdapter(t)
	if got := DetectExtensions(adapter); got != (Extensions{}) {
		t.Errorf("DetectExtensions(noop) = %+v, want none", got)
	}
	adapter.Info.Backend = gputypes.BackendVulkan
	if got := DetectExtensions(adapter); !got.DynamicRendering {
		t.Errorf("DetectExtensions(vulkan).DynamicRendering = false, want true")
	}
}

func TestExtensionsApply(t *testing.T) {
	got := Extensions{DynamicRendering: true}.Apply(map[string]bool{
		ExtDynamicRendering:     false,
		ExtPushDescriptors:      true,
		ExtExtendedDynamicState: true,
		"custom_border_color":   true,
		"ray_tracing":           true,
	})
	want := Extensions{
		PushDescriptors:      true,
		ExtendedDynamicState: true,
	}
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
}

func TestCapabilities(t *testing.T) {
	d := newTestDevice(t, Extensions{PushDescriptors: true})
	defer d.Destroy()

	tests := []struct {
		cap  api.DeviceCaps
		want bool
	}{
		{api.CapSamplerCustomBorderColor, false},
		{api.CapPartialPushDescriptorUpdates, true},
		{api.CapDynamicRendering, false},
		{api.CapExtendedDynamicState, false},
		{api.CapConservativeRasterization, false},
		{api.CapSharedResource, false},
		{api.CapSharedResourceNTHandle, false},
		{api.CapIndependentBlend, true},
	}
	for _, tt := range tests {
		if got := d.CheckCapability(tt.cap); got != tt.want {
			t.Errorf("CheckCapability(%v) = %v, want %v", tt.cap, got, tt.want)
		}
	}
}

func TestRenderPassClasses(t *testing.T) {
	d := newTestDevice(t, Extensions{})
	defer d.Destroy()

	a, err := d.CreatePipeline(api.NullHandle, graphics(1, gputypes.TextureFormatRGBA8Unorm))
	require.NoError(t, err)
	defer d.DestroyPipeline(a)
	b, err := d.CreatePipeline(api.NullHandle, graphics(1, gputypes.TextureFormatRGBA8Unorm))
	require.NoError(t, err)
	defer d.DestroyPipeline(b)
	c, err := d.CreatePipeline(api.NullHandle, graphics(4, gputypes.TextureFormatRGBA8Unorm))
	require.NoError(t, err)
	defer d.DestroyPipeline(c)

	assert.Equal(t, 2, d.RenderPasses())
	assert.NotZero(t, d.PipelineRenderPass(a))
	assert.Equal(t, d.PipelineRenderPass(a), d.PipelineRenderPass(b), "same attachments share a class")
	assert.NotEqual(t, d.PipelineRenderPass(a), d.PipelineRenderPass(c))

	_, err = d.CreatePipeline(api.NullHandle, graphics(3, gputypes.TextureFormatRGBA8Unorm))
	assert.ErrorIs(t, err, api.ErrInvalidDesc)
	assert.Equal(t, 2, d.RenderPasses(), "a failed class is not cached")
}

func TestDynamicRenderingSkipsClasses(t *testing.T) {
	d := newTestDevice(t, Extensions{DynamicRendering: true})
	defer d.Destroy()

	p, err := d.CreatePipeline(api.NullHandle, graphics(1, gputypes.TextureFormatBGRA8Unorm))
	require.NoError(t, err)
	defer d.DestroyPipeline(p)
	assert.Zero(t, d.PipelineRenderPass(p))
	assert.Zero(t, d.RenderPasses())
}

func TestConservativeRasterization(t *testing.T) {
	raster := api.PipelineSubobject{
		Type:  api.SubobjectRasterizerState,
		Value: &api.RasterizerDesc{ConservativeRasterization: true},
	}
	d := newTestDevice(t, Extensions{PushDescriptors: true, ExtendedDynamicState: true})
	defer d.Destroy()
	_, err := d.CreatePipeline(api.NullHandle, append(graphics(1, gputypes.TextureFormatRGBA8Unorm), raster))
	assert.ErrorIs(t, err, api.ErrUnsupported)
	assert.False(t, d.CheckCapability(api.CapConservativeRasterization))
}

func TestPushDescriptorLayouts(t *testing.T) {
	params := []api.PipelineLayoutParam{{
		Type: api.ParamPushDescriptors,
		Ranges: []api.DescriptorRange{
			{Binding: 0, Count: 1, Type: api.DescriptorConstantBuffer, Visibility: api.StageVertex},
		},
	}}

	d := newTestDevice(t, Extensions{})
	_, err := d.CreatePipelineLayout(params)
	assert.ErrorIs(t, err, api.ErrUnsupported)
	d.Destroy()

	d = newTestDevice(t, Extensions{PushDescriptors: true})
	defer d.Destroy()
	l, err := d.CreatePipelineLayout(params)
	require.NoError(t, err)
	d.DestroyPipelineLayout(l)
}

func TestSetRelativeOffsets(t *testing.T) {
	d := newTestDevice(t, Extensions{})
	defer d.Destroy()

	layout, err := d.CreatePipelineLayout([]api.PipelineLayoutParam{{
		Type: api.ParamDescriptorTable,
		Ranges: []api.DescriptorRange{
			{Binding: 0, Count: 4, Type: api.DescriptorShaderResourceView, Visibility: api.StagePixel},
		},
	}})
	require.NoError(t, err)
	defer d.DestroyPipelineLayout(layout)
	sets, err := d.AllocateDescriptorSets(3, layout, 0)
	require.NoError(t, err)
	defer d.FreeDescriptorSets(sets)

	for _, s := range sets {
		_, off := d.GetDescriptorPoolOffset(s, 0, 2)
		assert.Equal(t, uint32(2), off)
	}
}

func TestSamplersAndSharing(t *testing.T) {
	d := newTestDevice(t, Extensions{})
	defer d.Destroy()

	_, err := d.CreateSampler(api.SamplerDesc{BorderColor: [4]float32{0.5, 0, 0, 1}})
	assert.ErrorIs(t, err, api.ErrUnsupported, "custom border colors cannot reach the HAL sampler")
	_, err = d.CreateSampler(api.SamplerDesc{MipLODBias: 4})
	assert.ErrorIs(t, err, api.ErrInvalidDesc)

	desc := api.NewTexture2DDesc(4, 4, 1, gputypes.TextureFormatRGBA8Unorm, api.HeapGPUOnly, api.UsageShaderResource)
	desc.Flags = api.FlagShared
	var h api.SharedHandle
	_, err = d.CreateResource(desc, nil, api.UsageShaderResource, &h)
	assert.ErrorIs(t, err, api.ErrUnsupported)
}

func TestRowPitch(t *testing.T) {
	q := &quirks{}
	if got := q.RowPitchAlignment(hal.Capabilities{}); got != 4 {
		t.Errorf("RowPitchAlignment(zero) = %d, want 4", got)
	}
	caps := hal.Capabilities{AlignmentsMask: hal.Alignments{BufferCopyPitch: 128}}
	if got := q.RowPitchAlignment(caps); got != 128 {
		t.Errorf("RowPitchAlignment(128) = %d, want 128", got)
	}
}

func TestWrapThroughRegistry(t *testing.T) {
	open, adapter := noopAdapter(t)
	d, err := backend.Wrap(backend.FlavorVulkan, open, adapter, backend.Config{
		Owned:      true,
		Options:    []device.Option{device.WithShaderValidation(false)},
		Extensions: map[string]bool{ExtPushDescriptors: true},
	})
	require.NoError(t, err)
	defer d.Destroy()
	assert.Equal(t, api.DeviceAPIVulkan, d.API())
	assert.True(t, d.CheckCapability(api.CapPartialPushDescriptorUpdates))
	assert.Equal(t, Extensions{PushDescriptors: true}, d.(*Device).Extensions())
}
