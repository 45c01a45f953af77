package backend

import (
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// flavors holds the registered device flavors. The Vulkan flavor wins when
// no HAL backend suggests otherwise.
var flavors = gpucontext.NewRegistry[Flavor](
	gpucontext.WithPriority(FlavorVulkan, FlavorD3D12),
)

// Register registers a device flavor under its name. This is typically
// called from init() functions in flavor packages. A flavor registered
// under an existing name replaces it.
func Register(f Flavor) {
	flavors.Register(f.Name(), func() Flavor { return f })
}

// Unregister removes a flavor from the registry.
// This is useful for testing.
func Unregister(name string) {
	flavors.Unregister(name)
}

// Available returns the registered flavor names in sorted order.
func Available() []string {
	names := flavors.Available()
	slices.Sort(names)
	return names
}

// IsRegistered checks if a flavor with the given name is registered.
func IsRegistered(name string) bool {
	return flavors.Has(name)
}

// Get returns a flavor by name, or nil if it is not registered.
func Get(name string) Flavor {
	return flavors.Get(name)
}

// Default returns the highest-priority registered flavor, or nil.
func Default() Flavor {
	return flavors.Best()
}

// ForBackend returns the flavor that matches HAL backend variant: the
// D3D12 flavor over DX12 and the default flavor everywhere else.
func ForBackend(variant gputypes.Backend) Flavor {
	if variant == gputypes.BackendDX12 {
		if f := Get(FlavorD3D12); f != nil {
			return f
		}
	}
	return Default()
}
