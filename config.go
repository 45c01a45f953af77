package interpose

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/interpose/api"
)

// ErrInvalidConfig is returned for configuration files that do not
// describe a valid device setup.
var ErrInvalidConfig = errors.New("interpose: invalid config")

// Config is the file form of the Open options.
//
//	backend = "vulkan"
//	transient_pools = 4
//	memory_budget_mb = 2048
//
//	[descriptor_capacity]
//	srv = 4096
//	sampler = 256
//
//	[vulkan]
//	push_descriptors = true
//
//	[debug]
//	wait_for_idle = false
type Config struct {
	Backend             string            `toml:"backend"`
	Flavor              string            `toml:"flavor"`
	TransientPools      int               `toml:"transient_pools"`
	MaxDescriptorSets   uint32            `toml:"max_descriptor_sets"`
	DescriptorCapacity  map[string]uint32 `toml:"descriptor_capacity"`
	MemoryBudgetMB      int               `toml:"memory_budget_mb"`
	ValidateShaders     *bool             `toml:"validate_shaders"`
	ShaderCacheCapacity int               `toml:"shader_cache_capacity"`
	Vulkan              map[string]bool   `toml:"vulkan"`
	Debug               DebugConfig       `toml:"debug"`
}

// DebugConfig holds debugging switches.
type DebugConfig struct {
	WaitForIdle bool `toml:"wait_for_idle"`
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("interpose: load config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML configuration. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// descriptorTypes lists the descriptor types configurable by name.
var descriptorTypes = []api.DescriptorType{
	api.DescriptorSampler,
	api.DescriptorShaderResourceView,
	api.DescriptorUnorderedAccessView,
	api.DescriptorConstantBuffer,
	api.DescriptorShaderStorageBuffer,
	api.DescriptorSamplerWithResourceView,
}

func parseDescriptorType(name string) (api.DescriptorType, bool) {
	i := slices.IndexFunc(descriptorTypes, func(t api.DescriptorType) bool {
		return t.String() == name
	})
	if i < 0 {
		return 0, false
	}
	return descriptorTypes[i], true
}

// Options converts the configuration into Open options. Zero values
// keep the defaults.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.Backend != "" {
		if _, err := ParseBackend(c.Backend); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		opts = append(opts, WithBackend(c.Backend))
	}
	if c.Flavor != "" {
		opts = append(opts, WithFlavor(c.Flavor))
	}
	if c.TransientPools < 0 || c.TransientPools > 255 {
		return nil, fmt.Errorf("%w: transient_pools = %d", ErrInvalidConfig, c.TransientPools)
	}
	if c.TransientPools > 0 {
		opts = append(opts, WithTransientPools(c.TransientPools))
	}
	if c.MaxDescriptorSets > 0 {
		opts = append(opts, WithMaxDescriptorSets(c.MaxDescriptorSets))
	}
	for _, name := range slices.Sorted(maps.Keys(c.DescriptorCapacity)) {
		t, ok := parseDescriptorType(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown descriptor type %q", ErrInvalidConfig, name)
		}
		opts = append(opts, WithDescriptorCapacity(t, c.DescriptorCapacity[name]))
	}
	if c.MemoryBudgetMB < 0 {
		return nil, fmt.Errorf("%w: memory_budget_mb = %d", ErrInvalidConfig, c.MemoryBudgetMB)
	}
	if c.MemoryBudgetMB > 0 {
		opts = append(opts, WithMemoryBudget(c.MemoryBudgetMB))
	}
	if c.ValidateShaders != nil {
		opts = append(opts, WithShaderValidation(*c.ValidateShaders))
	}
	if c.ShaderCacheCapacity > 0 {
		opts = append(opts, WithShaderCacheCapacity(c.ShaderCacheCapacity))
	}
	for _, name := range slices.Sorted(maps.Keys(c.Vulkan)) {
		opts = append(opts, WithExtension(name, c.Vulkan[name]))
	}
	if c.Debug.WaitForIdle {
		opts = append(opts, WithWaitForIdle(true))
	}
	return opts, nil
}
