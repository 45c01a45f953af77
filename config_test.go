package interpose

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/interpose/api"
)

const sampleConfig = `
backend = "noop"
flavor = "vulkan"
transient_pools = 2
max_descriptor_sets = 64
memory_budget_mb = 16
validate_shaders = false
shader_cache_capacity = 8

[descriptor_capacity]
cbv = 2
srv = 128

[vulkan]
push_descriptors = true

[debug]
wait_for_idle = true
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "noop", cfg.Backend)
	assert.Equal(t, "vulkan", cfg.Flavor)
	assert.Equal(t, 2, cfg.TransientPools)
	assert.Equal(t, uint32(64), cfg.MaxDescriptorSets)
	assert.Equal(t, 16, cfg.MemoryBudgetMB)
	require.NotNil(t, cfg.ValidateShaders)
	assert.False(t, *cfg.ValidateShaders)
	assert.Equal(t, 8, cfg.ShaderCacheCapacity)
	assert.Equal(t, map[string]uint32{"cbv": 2, "srv": 128}, cfg.DescriptorCapacity)
	assert.Equal(t, map[string]bool{"push_descriptors": true}, cfg.Vulkan)
	assert.True(t, cfg.Debug.WaitForIdle)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", `backnd = "vulkan"`},
		{"unknown debug key", "[debug]\nverbose = true"},
		{"wrong type", `transient_pools = "four"`},
		{"malformed", `backend = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.data)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("ParseConfig() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown backend", Config{Backend: "glide"}},
		{"negative pools", Config{TransientPools: -1}},
		{"too many pools", Config{TransientPools: 256}},
		{"negative budget", Config{MemoryBudgetMB: -5}},
		{"unknown descriptor type", Config{DescriptorCapacity: map[string]uint32{"rtv": 8}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Options(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Options() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigEmptyKeepsDefaults(t *testing.T) {
	opts, err := (&Config{}).Options()
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestLoadConfigOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interpose.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	opts, err := cfg.Options()
	require.NoError(t, err)

	d, err := Open(opts...)
	require.NoError(t, err)
	defer d.Destroy()

	assert.Equal(t, api.DeviceAPIVulkan, d.API())
	assert.True(t, d.CheckCapability(api.CapPartialPushDescriptorUpdates))

	_, err = d.CreateResource(api.NewBufferDesc(17<<20, api.HeapGPUOnly, api.UsageVertexBuffer),
		nil, api.UsageVertexBuffer, nil)
	assert.ErrorIs(t, err, api.ErrOutOfMemory)

	layout := transientLayout(t, d)
	defer d.DestroyPipelineLayout(layout)
	sets, err := d.AllocateDescriptorSets(2, layout, 0)
	require.NoError(t, err)
	_, err = d.AllocateDescriptorSets(1, layout, 0)
	assert.ErrorIs(t, err, api.ErrPoolExhausted)
	d.FreeDescriptorSets(sets)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
