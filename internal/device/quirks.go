package device

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/registry"
	"github.com/gogpu/interpose/internal/renderpass"
)

// Quirks is the backend flavor of a Core: the places where the D3D12 and
// Vulkan flavors of the same HAL device behave differently.
type Quirks interface {
	// API returns the flavor's API.
	API() api.DeviceAPI

	// Capability answers flavor-specific capabilities. When handled is
	// false the Core answers from the HAL feature set.
	Capability(c api.DeviceCaps) (supported, handled bool)

	// RowPitchAlignment returns the row pitch alignment of mapped and
	// uploaded texture data.
	RowPitchAlignment(caps hal.Capabilities) uint32

	// AbsoluteDescriptorOffsets reports whether descriptor offsets are
	// relative to the device-wide heap rather than to the set.
	AbsoluteDescriptorOffsets() bool

	// RenderPass returns the identifier of the render pass a graphics
	// pipeline with the given attachments is compatible with, or zero when
	// the flavor needs none.
	RenderPass(key renderpass.Key) (uint64, error)

	// ExportShared exports a resource created with api.FlagShared.
	ExportShared(res *registry.Resource) (api.SharedHandle, error)

	// ReleaseShared revokes a handle returned by ExportShared when its
	// resource is destroyed.
	ReleaseShared(h api.SharedHandle)

	// ValidateSampler rejects sampler state the flavor cannot express.
	ValidateSampler(desc api.SamplerDesc) error

	// Close releases flavor-owned objects.
	Close()
}
