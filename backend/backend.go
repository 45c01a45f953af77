package backend

import (
	"errors"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/device"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested HAL backend or
	// device flavor is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoAdapter is returned when a HAL instance enumerates no adapters.
	ErrNoAdapter = errors.New("backend: no adapter")
)

// Flavor names.
const (
	FlavorVulkan = "vulkan"
	FlavorD3D12  = "d3d12"
)

// Device is a device of one API flavor over a HAL device. Besides the
// backend-neutral interface it exposes the HAL objects underneath, so
// gogpu consumers can share the device.
type Device interface {
	api.Device
	gpucontext.DeviceProvider

	// Info returns the full adapter description, including the HAL
	// backend and driver.
	Info() gputypes.AdapterInfo

	// NativeDevice returns the HAL device every call dispatches to.
	NativeDevice() hal.Device

	// NativeQueue returns the HAL queue the device submits on.
	NativeQueue() hal.Queue

	// NativeResource returns the tagged native object of r.
	NativeResource(r api.Resource) hal.Resource

	// NativeResourceView returns the tagged native view of v, or nil for
	// buffer views.
	NativeResourceView(v api.ResourceView) hal.TextureView

	// ResourceFromNative returns the handle of a native object returned by
	// NativeResource.
	ResourceFromNative(obj hal.Resource) api.Resource

	// Lost reports whether the device has been lost.
	Lost() bool

	// NewSwapchain creates a swap chain presenting to surface, sized from
	// window. The caller keeps ownership of the surface.
	NewSwapchain(surface hal.Surface, window gpucontext.WindowProvider, opts SwapchainOptions) api.Swapchain
}

// SwapchainOptions configures a swap chain. Zero fields take defaults.
type SwapchainOptions struct {
	Format      gputypes.TextureFormat
	PresentMode gputypes.PresentMode
	BufferCount uint32
}

// Config configures a device created by a flavor.
type Config struct {
	// Owned makes Destroy also destroy the HAL device.
	Owned bool

	// Options configure the backend-neutral core.
	Options []device.Option

	// Extensions overrides flavor switches by name. Flavors ignore names
	// they do not know.
	Extensions map[string]bool
}

// Flavor wraps opened HAL devices into devices of one native API flavor.
type Flavor interface {
	// Name returns the registry name of the flavor.
	Name() string

	// API returns the API the flavor presents.
	API() api.DeviceAPI

	// Wrap creates a device over open, whose capabilities are described by
	// adapter.
	Wrap(open hal.OpenDevice, adapter hal.ExposedAdapter, cfg Config) (Device, error)
}
