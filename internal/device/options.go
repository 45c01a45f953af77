package device

import (
	"maps"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/descriptor"
	"github.com/gogpu/interpose/internal/memory"
	"github.com/gogpu/interpose/internal/shadercache"
)

// Option configures a Core during creation.
type Option func(*options)

type options struct {
	descriptors     descriptor.Config
	memory          memory.Config
	validateShaders bool
	shaderCacheSize int
	waitForIdle     bool
}

func defaultOptions() options {
	return options{
		descriptors:     descriptor.DefaultConfig(),
		memory:          memory.Config{BudgetMB: memory.DefaultBudgetMB},
		validateShaders: true,
		shaderCacheSize: shadercache.DefaultCapacity,
	}
}

// WithTransientPools sets the depth of the transient descriptor pool ring.
func WithTransientPools(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.descriptors.TransientPools = n
		}
	}
}

// WithDescriptorCapacity sets the per-pool capacity of descriptor type t.
func WithDescriptorCapacity(t api.DescriptorType, n uint32) Option {
	return func(o *options) {
		o.descriptors.Capacity = maps.Clone(o.descriptors.Capacity)
		o.descriptors.Capacity[t] = n
	}
}

// WithMaxDescriptorSets sets the per-pool set limit.
func WithMaxDescriptorSets(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.descriptors.MaxSets = n
		}
	}
}

// WithMemoryBudget sets the allocation budget in megabytes.
func WithMemoryBudget(mb int) Option {
	return func(o *options) {
		o.memory.BudgetMB = mb
	}
}

// WithShaderValidation toggles naga validation of WGSL shader stages.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) {
		o.validateShaders = enabled
	}
}

// WithShaderCacheCapacity sets the per-shard capacity of the compiled
// shader cache.
func WithShaderCacheCapacity(n int) Option {
	return func(o *options) {
		o.shaderCacheSize = n
	}
}

// WithWaitForIdle makes every submission the device issues wait for the
// GPU to go idle. Debugging aid.
func WithWaitForIdle(enabled bool) Option {
	return func(o *options) {
		o.waitForIdle = enabled
	}
}
