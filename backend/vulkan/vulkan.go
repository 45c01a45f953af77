// Package vulkan provides the Vulkan device flavor.
//
// Descriptor offsets are relative to their set, texture data is pitched to
// the adapter's copy alignment, and graphics pipelines are bound to a
// render pass compatibility class unless the device renders dynamically.
// Import the package for side effects to register the flavor:
//
//	import _ "github.com/gogpu/interpose/backend/vulkan"
package vulkan

import (
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/backend"
	"github.com/gogpu/interpose/internal/device"
	"github.com/gogpu/interpose/internal/registry"
	"github.com/gogpu/interpose/internal/renderpass"
)

func init() {
	backend.Register(Flavor{})
}

// Flavor creates Vulkan-flavored devices.
type Flavor struct{}

// Name implements backend.Flavor.
func (Flavor) Name() string { return backend.FlavorVulkan }

// API implements backend.Flavor.
func (Flavor) API() api.DeviceAPI { return api.DeviceAPIVulkan }

// Wrap implements backend.Flavor.
func (Flavor) Wrap(open hal.OpenDevice, adapter hal.ExposedAdapter, cfg backend.Config) (backend.Device, error) {
	ext := DetectExtensions(adapter).Apply(cfg.Extensions)
	return New(open, adapter, ext, cfg.Owned, cfg.Options...)
}

// Device is a Vulkan-flavored device.
type Device struct {
	*device.Core
	quirks *quirks
}

// New creates a device over open with the extension set ext.
func New(open hal.OpenDevice, adapter hal.ExposedAdapter, ext Extensions, owned bool, opts ...device.Option) (*Device, error) {
	q := &quirks{ext: ext}
	if !ext.DynamicRendering {
		q.passes = renderpass.New[uint64]()
	}
	core, err := device.New(open, adapter, q, owned, opts...)
	if err != nil {
		return nil, err
	}
	return &Device{Core: core, quirks: q}, nil
}

// Extensions returns the extension set the device was created with.
func (d *Device) Extensions() Extensions { return d.quirks.ext }

// RenderPasses returns the number of cached render pass classes. It is
// zero on devices that render dynamically.
func (d *Device) RenderPasses() int {
	if d.quirks.passes == nil {
		return 0
	}
	return d.quirks.passes.Len()
}

// NewSwapchain creates a swap chain presenting to surface. The back buffer
// index advances with every acquired image.
func (d *Device) NewSwapchain(surface hal.Surface, window gpucontext.WindowProvider, opts backend.SwapchainOptions) api.Swapchain {
	return d.Core.NewSwapchain(d, surface, window, device.SwapchainConfig{
		Format:      opts.Format,
		PresentMode: opts.PresentMode,
		BufferCount: opts.BufferCount,
	})
}

type quirks struct {
	ext    Extensions
	passes *renderpass.Cache[uint64]
	nextID uint64
}

func (q *quirks) API() api.DeviceAPI { return api.DeviceAPIVulkan }

func (q *quirks) Capability(c api.DeviceCaps) (bool, bool) {
	switch c {
	case api.CapPartialPushDescriptorUpdates:
		return q.ext.PushDescriptors, true
	case api.CapDynamicRendering:
		return q.ext.DynamicRendering, true
	case api.CapExtendedDynamicState:
		return q.ext.ExtendedDynamicState, true
	case api.CapSharedResource, api.CapSharedResourceNTHandle:
		return false, true
	}
	return false, false
}

func (q *quirks) RowPitchAlignment(caps hal.Capabilities) uint32 {
	if p := caps.AlignmentsMask.BufferCopyPitch; p > 0 && p <= math.MaxUint32 {
		return uint32(p)
	}
	return 4
}

func (q *quirks) AbsoluteDescriptorOffsets() bool { return false }

// RenderPass returns the compatibility class of key, creating it on first
// use. Devices with dynamic rendering need no classes.
func (q *quirks) RenderPass(key renderpass.Key) (uint64, error) {
	if q.passes == nil {
		return 0, nil
	}
	return q.passes.Get(key, func(k renderpass.Key) (uint64, error) {
		switch k.Samples {
		case 1, 2, 4, 8, 16, 32, 64:
		default:
			return 0, fmt.Errorf("%w: %d samples", api.ErrInvalidDesc, k.Samples)
		}
		// Get holds the cache's write lock while building.
		q.nextID++
		return q.nextID, nil
	})
}

func (q *quirks) ExportShared(*registry.Resource) (api.SharedHandle, error) {
	return 0, fmt.Errorf("%w: shared resources", api.ErrUnsupported)
}

func (q *quirks) ReleaseShared(api.SharedHandle) {}

// maxSamplerLODBias is the smallest maxSamplerLodBias a conformant
// implementation reports.
const maxSamplerLODBias = 2

func (q *quirks) ValidateSampler(desc api.SamplerDesc) error {
	if desc.MipLODBias > maxSamplerLODBias || desc.MipLODBias < -maxSamplerLODBias {
		return fmt.Errorf("%w: mip LOD bias %g", api.ErrInvalidDesc, desc.MipLODBias)
	}
	return nil
}

func (q *quirks) Close() {
	if q.passes != nil {
		q.passes.Drain(func(uint64) {})
	}
}

var _ backend.Device = (*Device)(nil)
