// Package backend selects and opens device flavors.
//
// A flavor presents a HAL device through the conventions of one native
// API: the Vulkan flavor reports set-relative descriptor offsets and
// caches render pass compatibility classes, the D3D12 flavor reports
// absolute descriptor heap offsets and exports NT shared handles. Both
// dispatch every call to the same gogpu HAL device underneath.
//
// # Flavor Registration
//
// Flavors register themselves from init() functions:
//
//	import _ "github.com/gogpu/interpose/backend/vulkan"
//
// # Opening a Device
//
// Open creates the HAL instance, picks an adapter and wraps the device:
//
//	import _ "github.com/gogpu/wgpu/hal/allbackends"
//
//	dev, err := backend.Open(gputypes.BackendVulkan, "", backend.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Destroy()
//
// Wrap adopts a HAL device the caller opened itself.
package backend
