package interpose

import (
	"maps"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/device"
)

// Option configures Open and Wrap.
//
// Example:
//
//	dev, err := interpose.Open(
//		interpose.WithBackend("vulkan"),
//		interpose.WithTransientPools(3),
//		interpose.WithMemoryBudget(1024),
//	)
type Option func(*options)

// options holds the configuration collected from Options.
type options struct {
	backend    string
	flavor     string
	core       []device.Option
	extensions map[string]bool
}

// defaultOptions returns the default configuration: the best registered
// HAL backend, the flavor matching it and the core defaults.
func defaultOptions() options {
	return options{}
}

func collect(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBackend selects the HAL backend by name: "vulkan", "dx12", "metal",
// "gl" or "noop". The backend must have been registered, typically by
// importing github.com/gogpu/wgpu/hal/allbackends.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithFlavor selects the device flavor by name: "vulkan" or "d3d12". By
// default the flavor follows the HAL backend.
func WithFlavor(name string) Option {
	return func(o *options) {
		o.flavor = name
	}
}

// WithTransientPools sets the depth of the transient descriptor pool ring.
// The default is 4.
func WithTransientPools(n int) Option {
	return func(o *options) {
		o.core = append(o.core, device.WithTransientPools(n))
	}
}

// WithDescriptorCapacity sets the per-pool capacity of descriptors of
// type t.
func WithDescriptorCapacity(t api.DescriptorType, n uint32) Option {
	return func(o *options) {
		o.core = append(o.core, device.WithDescriptorCapacity(t, n))
	}
}

// WithMaxDescriptorSets sets how many sets each descriptor pool holds.
func WithMaxDescriptorSets(n uint32) Option {
	return func(o *options) {
		o.core = append(o.core, device.WithMaxDescriptorSets(n))
	}
}

// WithMemoryBudget limits resource allocations to mb megabytes. Values
// below 16 select the default of 1024.
func WithMemoryBudget(mb int) Option {
	return func(o *options) {
		o.core = append(o.core, device.WithMemoryBudget(mb))
	}
}

// WithShaderValidation toggles validation of WGSL shader stages. It is on
// by default.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) {
		o.core = append(o.core, device.WithShaderValidation(enabled))
	}
}

// WithShaderCacheCapacity sets the per-shard capacity of the compiled
// shader cache.
func WithShaderCacheCapacity(n int) Option {
	return func(o *options) {
		o.core = append(o.core, device.WithShaderCacheCapacity(n))
	}
}

// WithWaitForIdle makes every submission wait for the GPU to go idle.
// Debugging aid; it serializes the device.
func WithWaitForIdle(enabled bool) Option {
	return func(o *options) {
		o.core = append(o.core, device.WithWaitForIdle(enabled))
	}
}

// WithExtension switches a flavor extension, such as the Vulkan
// "push_descriptors", on or off. Flavors ignore names they do not
// know.
func WithExtension(name string, enabled bool) Option {
	return func(o *options) {
		o.extensions = maps.Clone(o.extensions)
		if o.extensions == nil {
			o.extensions = make(map[string]bool)
		}
		o.extensions[name] = enabled
	}
}
