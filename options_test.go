package interpose

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/backend/vulkan"
)

func TestDefaultOptions(t *testing.T) {
	o := collect(nil)
	if o.backend != "" || o.flavor != "" {
		t.Errorf("collect(nil) = %+v, want empty backend and flavor", o)
	}
	if len(o.core) != 0 {
		t.Errorf("collect(nil) has %d core options, want 0", len(o.core))
	}
}

func TestWithExtensionCopies(t *testing.T) {
	a := collect([]Option{WithExtension(vulkan.ExtPushDescriptors, true)})
	b := a
	WithExtension(vulkan.ExtDynamicRendering, true)(&b)

	if len(a.extensions) != 1 {
		t.Errorf("extensions of the original = %v, want one entry", a.extensions)
	}
	if len(b.extensions) != 2 {
		t.Errorf("extensions of the copy = %v, want two entries", b.extensions)
	}
}

func TestWithExtension(t *testing.T) {
	tests := []struct {
		ext  string
		cap  api.DeviceCaps
		want bool
	}{
		{vulkan.ExtPushDescriptors, api.CapPartialPushDescriptorUpdates, true},
		{vulkan.ExtExtendedDynamicState, api.CapExtendedDynamicState, true},
		{vulkan.ExtDynamicRendering, api.CapDynamicRendering, true},
		{"custom_border_color", api.CapSamplerCustomBorderColor, false},
		{"conservative_rasterization", api.CapConservativeRasterization, false},
		{"no_such_extension", api.CapExtendedDynamicState, false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			d, err := Open(WithBackend("noop"), WithFlavor("vulkan"),
				WithShaderValidation(false), WithExtension(tt.ext, true))
			require.NoError(t, err)
			defer d.Destroy()
			if got := d.CheckCapability(tt.cap); got != tt.want {
				t.Errorf("CheckCapability(%v) = %v, want %v", tt.cap, got, tt.want)
			}
		})
	}
}

func transientLayout(t *testing.T, d Device) api.PipelineLayout {
	t.Helper()
	layout, err := d.CreatePipelineLayout([]api.PipelineLayoutParam{{
		Type: api.ParamDescriptorTable,
		Ranges: []api.DescriptorRange{
			{Binding: 0, Count: 1, Type: api.DescriptorConstantBuffer, Visibility: api.StageVertex},
		},
	}})
	require.NoError(t, err)
	return layout
}

func TestWithTransientPools(t *testing.T) {
	tests := []struct {
		pools     int
		advances  int
		wantValid bool
	}{
		{2, 1, true},
		{2, 2, false},
		{0, 2, true}, // default ring of four
		{0, 4, false},
	}
	for _, tt := range tests {
		var opts []Option
		if tt.pools > 0 {
			opts = append(opts, WithTransientPools(tt.pools))
		}
		d, err := Open(append(opts, WithBackend("noop"), WithShaderValidation(false))...)
		require.NoError(t, err)

		layout := transientLayout(t, d)
		sets, err := d.AllocateTransientDescriptorSets(1, layout, 0)
		require.NoError(t, err)
		for range tt.advances {
			d.AdvanceTransientDescriptorPool()
		}
		if got := d.IsDescriptorSetValid(sets[0]); got != tt.wantValid {
			t.Errorf("pools=%d advances=%d: IsDescriptorSetValid() = %v, want %v",
				tt.pools, tt.advances, got, tt.wantValid)
		}
		d.DestroyPipelineLayout(layout)
		d.Destroy()
	}
}

func TestWithMemoryBudget(t *testing.T) {
	d, err := Open(WithBackend("noop"), WithMemoryBudget(16), WithShaderValidation(false))
	require.NoError(t, err)
	defer d.Destroy()

	_, err = d.CreateResource(api.NewBufferDesc(17<<20, api.HeapGPUOnly, api.UsageVertexBuffer),
		nil, api.UsageVertexBuffer, nil)
	if !errors.Is(err, api.ErrOutOfMemory) {
		t.Errorf("CreateResource() over budget error = %v, want ErrOutOfMemory", err)
	}

	buf, err := d.CreateResource(api.NewBufferDesc(1<<20, api.HeapGPUOnly, api.UsageVertexBuffer),
		nil, api.UsageVertexBuffer, nil)
	require.NoError(t, err)
	d.DestroyResource(buf)
}

func TestWithDescriptorCapacity(t *testing.T) {
	d, err := Open(WithBackend("noop"), WithShaderValidation(false),
		WithDescriptorCapacity(api.DescriptorConstantBuffer, 2))
	require.NoError(t, err)
	defer d.Destroy()

	layout := transientLayout(t, d)
	defer d.DestroyPipelineLayout(layout)

	sets, err := d.AllocateDescriptorSets(2, layout, 0)
	require.NoError(t, err)
	_, err = d.AllocateDescriptorSets(1, layout, 0)
	if !errors.Is(err, api.ErrPoolExhausted) {
		t.Errorf("AllocateDescriptorSets() past capacity error = %v, want ErrPoolExhausted", err)
	}
	d.FreeDescriptorSets(sets)
}
