package vulkan

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Extension names accepted in backend.Config.Extensions.
const (
	ExtPushDescriptors      = "push_descriptors"
	ExtDynamicRendering     = "dynamic_rendering"
	ExtExtendedDynamicState = "extended_dynamic_state"
)

// Extensions records which optional Vulkan device extensions the device
// was created with. It is captured once at creation and never changes.
//
// Custom border colors and conservative rasterization have no switch: the
// HAL sampler and primitive state cannot carry them, so the device never
// reports them whatever the driver offers.
type Extensions struct {
	PushDescriptors      bool
	DynamicRendering     bool
	ExtendedDynamicState bool
}

// DetectExtensions derives the extension set of a device opened on
// adapter. The HAL Vulkan backend records every pass with dynamic
// rendering; the remaining extensions are never enabled by the HAL and
// must be switched on explicitly.
func DetectExtensions(adapter hal.ExposedAdapter) Extensions {
	return Extensions{
		DynamicRendering: adapter.Info.Backend == gputypes.BackendVulkan,
	}
}

// Apply returns e with the switches named in overrides replaced.
func (e Extensions) Apply(overrides map[string]bool) Extensions {
	for name, on := range overrides {
		switch name {
		case ExtPushDescriptors:
			e.PushDescriptors = on
		case ExtDynamicRendering:
			e.DynamicRendering = on
		case ExtExtendedDynamicState:
			e.ExtendedDynamicState = on
		}
	}
	return e
}
