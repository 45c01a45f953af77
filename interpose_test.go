package interpose

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/backend"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name string
		want gputypes.Backend
	}{
		{"vulkan", gputypes.BackendVulkan},
		{"VK", gputypes.BackendVulkan},
		{"dx12", gputypes.BackendDX12},
		{"d3d12", gputypes.BackendDX12},
		{"Metal", gputypes.BackendMetal},
		{"gles", gputypes.BackendGL},
		{"noop", gputypes.BackendEmpty},
		{"empty", gputypes.BackendEmpty},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.name)
		if err != nil {
			t.Errorf("ParseBackend(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackend(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if _, err := ParseBackend("directx9"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("ParseBackend(directx9) error = %v, want ErrUnknownBackend", err)
	}
}

func TestBackends(t *testing.T) {
	if !slices.Contains(Backends(), "noop") {
		t.Errorf("Backends() = %v, want it to contain noop", Backends())
	}
}

func TestOpenDefault(t *testing.T) {
	d, err := Open(WithShaderValidation(false))
	require.NoError(t, err)
	defer d.Destroy()

	assert.Equal(t, api.DeviceAPIVulkan, d.API())
	assert.Equal(t, gputypes.BackendEmpty, d.Info().Backend)
	assert.NotNil(t, d.Device())
	assert.NotNil(t, d.Queue())
}

func TestOpenFlavor(t *testing.T) {
	d, err := Open(WithBackend("noop"), WithFlavor(backend.FlavorD3D12), WithShaderValidation(false))
	require.NoError(t, err)
	defer d.Destroy()

	assert.Equal(t, api.DeviceAPID3D12, d.API())
	assert.True(t, d.CheckCapability(api.CapSharedResource))
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"unknown backend name", []Option{WithBackend("glide")}, ErrUnknownBackend},
		{"unregistered backend", []Option{WithBackend("metal")}, backend.ErrBackendNotAvailable},
		{"unknown flavor", []Option{WithBackend("noop"), WithFlavor("metal")}, backend.ErrBackendNotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Open(tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
			if d != nil {
				t.Errorf("Open() device = %v, want nil", d)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inst, err := noop.API{}.CreateInstance(nil)
	require.NoError(t, err)
	defer inst.Destroy()
	adapters := inst.EnumerateAdapters(nil)
	require.NotEmpty(t, adapters)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	require.NoError(t, err)
	defer open.Device.Destroy()

	d, err := Wrap(open, adapters[0], WithShaderValidation(false))
	require.NoError(t, err)
	assert.Equal(t, api.DeviceAPIVulkan, d.API(), "noop adapters get the default flavor")
	assert.Equal(t, open.Device, d.Device())
	d.Destroy()

	d, err = Wrap(open, adapters[0], WithFlavor(backend.FlavorD3D12), WithShaderValidation(false))
	require.NoError(t, err)
	assert.Equal(t, api.DeviceAPID3D12, d.API())
	d.Destroy()

	_, err = Wrap(open, adapters[0], WithFlavor("metal"))
	assert.ErrorIs(t, err, backend.ErrBackendNotAvailable)
}
