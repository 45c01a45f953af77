// Package api defines the backend-neutral object model of the interpose layer.
//
// Every object the layer creates or adopts on a native graphics device is
// re-exposed through one handle space: resources, resource views, samplers,
// pipelines, pipeline layouts, descriptor sets, descriptor pools and query
// pools are opaque 64-bit values that are only meaningful to the [Device]
// that produced them. The zero value of every handle type is the null handle.
//
// # Architecture
//
//	            +---------------------------+
//	            |   effect runtime / addon  |
//	            +-------------+-------------+
//	                          | api.Device, api.Swapchain
//	            +-------------v-------------+
//	            |      internal/device      |
//	            |  identity | registry |    |
//	            |  descriptor | renderpass  |
//	            +------+-------------+------+
//	                   |             |
//	          +--------v---+   +-----v--------+
//	          |  d3d12     |   |   vulkan     |
//	          |  quirks    |   |   quirks     |
//	          +--------+---+   +-----+--------+
//	                   |             |
//	            +------v-------------v------+
//	            |   gogpu/wgpu hal.Device   |
//	            +---------------------------+
//
// # Errors
//
// Creation calls return a null handle and an error. The error matches one of
// the sentinel values in this package with [errors.Is]: capacity errors
// ([ErrOutOfMemory], [ErrPoolExhausted]), validation errors
// ([ErrUnsupported], [ErrInvalidDesc], [ErrViewCreation], [ErrNotMappable],
// [ErrAlreadyMapped]), retryable conditions ([ErrNotReady]) and device loss
// ([ErrDeviceLost]). Shader compilation failures during pipeline creation
// are reported as [*PipelineCompileError].
//
// Contract violations (destroying a mapped resource, using a stale transient
// descriptor set, looking up a handle that was never registered) panic.
package api
