// Package interpose is a graphics device abstraction layer that sits between
// a renderer and a native GPU device.
//
// # Overview
//
// interpose presents one flat device interface ([api.Device]) over the
// gogpu HAL. Every object the layer hands out (resources, views, samplers,
// pipelines, pipeline layouts, descriptor sets, query pools) is an opaque
// 64-bit handle; the zero handle is null. Two device flavors translate the
// API-specific parts:
//
//   - "vulkan": descriptor sets addressed relative to their set, render
//     pass compatibility classes unless dynamic rendering is on, optional
//     extensions (push descriptors, dynamic rendering, extended dynamic
//     state)
//   - "d3d12": descriptor heaps with absolute offsets, process-local shared
//     resource handles, present-indexed swap chains
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/interpose"
//		_ "github.com/gogpu/wgpu/hal/allbackends"
//	)
//
//	dev, err := interpose.Open(interpose.WithBackend("vulkan"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	buf, err := dev.CreateResource(
//		api.NewBufferDesc(1024, api.HeapCPUToGPU, api.UsageVertexBuffer),
//		nil, api.UsageVertexBuffer, nil)
//
// # Descriptors
//
// Persistent descriptor sets live until FreeDescriptorSets. Transient sets
// come from a ring of pools (four by default); AdvanceTransientDescriptorPool
// recycles the oldest pool wholesale, invalidating the sets it held.
// [api.Device.IsDescriptorSetValid] reports whether a transient set is
// still live.
//
// # Configuration
//
// Open takes functional options, or a TOML file through [LoadConfig]:
//
//	cfg, err := interpose.LoadConfig("interpose.toml")
//	opts, err := cfg.Options()
//	dev, err := interpose.Open(opts...)
//
// # Logging
//
// Nothing is logged by default. [SetLogger] installs a [log/slog] logger
// for interpose and the HAL underneath.
//
// # Concurrency
//
// Object creation and destruction are safe from any goroutine. Mapping a
// resource, and advancing the transient descriptor ring, must be
// serialized by the caller. interpose starts no goroutines.
package interpose
