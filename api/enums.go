package api

// DeviceAPI identifies the native API flavor a Device wraps.
type DeviceAPI uint8

// Device API flavors.
const (
	// DeviceAPIUnknown is the zero value.
	DeviceAPIUnknown DeviceAPI = iota

	// DeviceAPID3D12 is the Direct3D 12 flavor: descriptor heaps, absolute
	// descriptor offsets, 256-byte texture row pitch, NT shared handles.
	DeviceAPID3D12

	// DeviceAPIVulkan is the Vulkan flavor: descriptor sets with set-relative
	// offsets, render-pass objects and extension-gated entry points.
	DeviceAPIVulkan
)

// String returns the API name.
func (a DeviceAPI) String() string {
	switch a {
	case DeviceAPID3D12:
		return "d3d12"
	case DeviceAPIVulkan:
		return "vulkan"
	default:
		return "unknown"
	}
}

// DeviceCaps is a device capability that can be queried with
// Device.CheckCapability.
type DeviceCaps uint32

// Device capabilities.
const (
	// CapComputeShader indicates compute pipelines are supported.
	CapComputeShader DeviceCaps = iota + 1

	// CapGeometryShader indicates a geometry shader stage is supported.
	CapGeometryShader

	// CapHullAndDomainShader indicates tessellation stages are supported.
	CapHullAndDomainShader

	// CapLogicOp indicates blend logic operations are supported.
	CapLogicOp

	// CapDualSourceBlend indicates dual-source blending is supported.
	CapDualSourceBlend

	// CapIndependentBlend indicates per-render-target blend state.
	CapIndependentBlend

	// CapFillModeNonSolid indicates wireframe fill mode.
	CapFillModeNonSolid

	// CapConservativeRasterization indicates conservative rasterization.
	CapConservativeRasterization

	// CapBindRenderTargetsAndDepthStencil indicates render targets can be
	// bound outside of render passes.
	CapBindRenderTargetsAndDepthStencil

	// CapMultiViewport indicates more than one viewport can be bound.
	CapMultiViewport

	// CapPartialPushConstantUpdates indicates push constants can be updated
	// partially.
	CapPartialPushConstantUpdates

	// CapPartialPushDescriptorUpdates indicates descriptors can be pushed
	// directly into the command stream.
	CapPartialPushDescriptorUpdates

	// CapDrawInstanced indicates instanced draws.
	CapDrawInstanced

	// CapDrawOrDispatchIndirect indicates indirect draws and dispatches.
	CapDrawOrDispatchIndirect

	// CapCopyBufferRegion indicates buffer-to-buffer copies.
	CapCopyBufferRegion

	// CapCopyBufferToTexture indicates buffer-to-texture copies.
	CapCopyBufferToTexture

	// CapBlit indicates scaled texture copies.
	CapBlit

	// CapResolveRegion indicates partial multisample resolves.
	CapResolveRegion

	// CapCopyQueryPoolResults indicates query results can be resolved into a
	// buffer.
	CapCopyQueryPoolResults

	// CapSamplerCompare indicates comparison samplers.
	CapSamplerCompare

	// CapSamplerAnisotropic indicates anisotropic filtering.
	CapSamplerAnisotropic

	// CapSamplerCustomBorderColor indicates arbitrary border colors.
	CapSamplerCustomBorderColor

	// CapSharedResource indicates resources can be exported to other
	// devices or processes.
	CapSharedResource

	// CapSharedResourceNTHandle indicates shared resources use NT handles.
	CapSharedResourceNTHandle

	// CapDynamicRendering indicates render passes need no render-pass object.
	CapDynamicRendering

	// CapExtendedDynamicState indicates topology and depth state can be set
	// dynamically.
	CapExtendedDynamicState

	// CapTimestampQuery indicates timestamp queries.
	CapTimestampQuery

	// CapPipelineStatisticsQuery indicates pipeline statistics queries.
	CapPipelineStatisticsQuery
)

// ResourceType is the dimensionality of a resource.
type ResourceType uint8

// Resource types.
const (
	// ResourceTypeUnknown is the zero value.
	ResourceTypeUnknown ResourceType = iota

	// ResourceTypeBuffer is a linear buffer.
	ResourceTypeBuffer

	// ResourceTypeTexture1D is a one-dimensional texture.
	ResourceTypeTexture1D

	// ResourceTypeTexture2D is a two-dimensional texture.
	ResourceTypeTexture2D

	// ResourceTypeTexture3D is a volume texture.
	ResourceTypeTexture3D

	// ResourceTypeSurface is a presentable back buffer.
	ResourceTypeSurface
)

// String returns the resource type name.
func (t ResourceType) String() string {
	switch t {
	case ResourceTypeBuffer:
		return "buffer"
	case ResourceTypeTexture1D:
		return "texture1d"
	case ResourceTypeTexture2D:
		return "texture2d"
	case ResourceTypeTexture3D:
		return "texture3d"
	case ResourceTypeSurface:
		return "surface"
	default:
		return "unknown"
	}
}

// IsTexture reports whether t describes an image resource.
func (t ResourceType) IsTexture() bool {
	return t >= ResourceTypeTexture1D && t <= ResourceTypeSurface
}

// MemoryHeap selects where a resource's memory lives and which CPU access
// is allowed.
type MemoryHeap uint8

// Memory heaps.
const (
	// HeapGPUOnly is device-local memory with no CPU access.
	HeapGPUOnly MemoryHeap = iota

	// HeapCPUToGPU is upload memory: the CPU may map it for writing.
	HeapCPUToGPU

	// HeapGPUToCPU is readback memory: the CPU may map it for reading.
	HeapGPUToCPU

	// HeapCPUOnly is host memory the CPU may map for reading and writing.
	HeapCPUOnly
)

// CPUReadable reports whether the heap allows read mappings.
func (h MemoryHeap) CPUReadable() bool {
	return h == HeapGPUToCPU || h == HeapCPUOnly
}

// CPUWritable reports whether the heap allows write mappings.
func (h MemoryHeap) CPUWritable() bool {
	return h == HeapCPUToGPU || h == HeapCPUOnly
}

// ResourceUsage is a bitmask of the ways a resource may be used. A single
// bit also names the usage state a resource is in.
type ResourceUsage uint32

// Resource usage flags.
const (
	// UsageUndefined is the zero value.
	UsageUndefined ResourceUsage = 0

	// UsageIndexBuffer marks a buffer as an index buffer.
	UsageIndexBuffer ResourceUsage = 1 << 0

	// UsageVertexBuffer marks a buffer as a vertex buffer.
	UsageVertexBuffer ResourceUsage = 1 << 1

	// UsageConstantBuffer marks a buffer as a uniform buffer.
	UsageConstantBuffer ResourceUsage = 1 << 2

	// UsageIndirectArgument marks a buffer as an indirect argument buffer.
	UsageIndirectArgument ResourceUsage = 1 << 3

	// UsageDepthStencil marks a texture as a depth-stencil attachment.
	UsageDepthStencil ResourceUsage = 1 << 4

	// UsageRenderTarget marks a texture as a color attachment.
	UsageRenderTarget ResourceUsage = 1 << 5

	// UsageShaderResource marks a resource as readable from shaders.
	UsageShaderResource ResourceUsage = 1 << 6

	// UsageUnorderedAccess marks a resource as writable from shaders.
	UsageUnorderedAccess ResourceUsage = 1 << 7

	// UsageCopyDest marks a resource as a copy destination.
	UsageCopyDest ResourceUsage = 1 << 8

	// UsageCopySource marks a resource as a copy source.
	UsageCopySource ResourceUsage = 1 << 9

	// UsageResolveDest marks a texture as a multisample resolve target.
	UsageResolveDest ResourceUsage = 1 << 10

	// UsageResolveSource marks a texture as a multisample resolve source.
	UsageResolveSource ResourceUsage = 1 << 11

	// UsagePresent marks a back buffer ready for presentation.
	UsagePresent ResourceUsage = 1 << 12

	// UsageCPUAccess marks a resource the CPU reads or writes directly.
	UsageCPUAccess ResourceUsage = 1 << 13

	// UsageGeneral is the catch-all state of freshly created resources.
	UsageGeneral ResourceUsage = 1 << 31

	// UsageCopy combines copy source and destination.
	UsageCopy = UsageCopySource | UsageCopyDest
)

// Has reports whether all bits of other are set in u.
func (u ResourceUsage) Has(other ResourceUsage) bool {
	return u&other == other
}

// ResourceFlags are additional creation flags.
type ResourceFlags uint8

// Resource flags.
const (
	// FlagNone is the zero value.
	FlagNone ResourceFlags = 0

	// FlagShared requests a shared handle for cross-process use.
	FlagShared ResourceFlags = 1 << 0

	// FlagCubeCompatible allows cube views over a 2D array texture.
	FlagCubeCompatible ResourceFlags = 1 << 1

	// FlagGenerateMipmaps reserves render-target usage for mip generation.
	FlagGenerateMipmaps ResourceFlags = 1 << 2
)

// MapAccess is the CPU access requested by a mapping.
type MapAccess uint8

// Map access modes.
const (
	// MapReadOnly maps for reading.
	MapReadOnly MapAccess = iota + 1

	// MapWriteOnly maps for writing; existing contents are preserved.
	MapWriteOnly

	// MapReadWrite maps for reading and writing.
	MapReadWrite

	// MapWriteDiscard maps for writing; previous contents may be discarded.
	MapWriteDiscard
)

// Reads reports whether the access includes reading.
func (a MapAccess) Reads() bool { return a == MapReadOnly || a == MapReadWrite }

// Writes reports whether the access includes writing.
func (a MapAccess) Writes() bool { return a != MapReadOnly }

// ResourceViewType is the dimensionality of a view.
type ResourceViewType uint8

// Resource view types.
const (
	// ViewTypeUnknown derives the view type from the resource.
	ViewTypeUnknown ResourceViewType = iota

	// ViewTypeBuffer is a typed or raw buffer range.
	ViewTypeBuffer

	// ViewTypeTexture1D is a 1D texture view.
	ViewTypeTexture1D

	// ViewTypeTexture2D is a 2D texture view.
	ViewTypeTexture2D

	// ViewTypeTexture2DArray is a 2D array texture view.
	ViewTypeTexture2DArray

	// ViewTypeTextureCube is a cube view over six layers.
	ViewTypeTextureCube

	// ViewTypeTextureCubeArray is a cube array view.
	ViewTypeTextureCubeArray

	// ViewTypeTexture3D is a volume texture view.
	ViewTypeTexture3D
)

// DescriptorType is the kind of object a descriptor references.
type DescriptorType uint8

// Descriptor types.
const (
	// DescriptorSampler references a Sampler.
	DescriptorSampler DescriptorType = iota + 1

	// DescriptorShaderResourceView references a read-only texture view.
	DescriptorShaderResourceView

	// DescriptorUnorderedAccessView references a storage texture view.
	DescriptorUnorderedAccessView

	// DescriptorConstantBuffer references a uniform buffer range.
	DescriptorConstantBuffer

	// DescriptorShaderStorageBuffer references a storage buffer range.
	DescriptorShaderStorageBuffer

	// DescriptorSamplerWithResourceView references a combined sampler and
	// texture view.
	DescriptorSamplerWithResourceView
)

// String returns the descriptor type name.
func (t DescriptorType) String() string {
	switch t {
	case DescriptorSampler:
		return "sampler"
	case DescriptorShaderResourceView:
		return "srv"
	case DescriptorUnorderedAccessView:
		return "uav"
	case DescriptorConstantBuffer:
		return "cbv"
	case DescriptorShaderStorageBuffer:
		return "ssbo"
	case DescriptorSamplerWithResourceView:
		return "sampler_srv"
	default:
		return "unknown"
	}
}

// ShaderStage is a bitmask of pipeline stages.
type ShaderStage uint32

// Shader stages.
const (
	// StageVertex is the vertex stage.
	StageVertex ShaderStage = 1 << 0

	// StagePixel is the pixel (fragment) stage.
	StagePixel ShaderStage = 1 << 1

	// StageCompute is the compute stage.
	StageCompute ShaderStage = 1 << 2

	// StageAllGraphics covers the vertex and pixel stages.
	StageAllGraphics = StageVertex | StagePixel

	// StageAll covers every stage.
	StageAll = StageAllGraphics | StageCompute
)

// String returns the stage name of a single-bit stage.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StagePixel:
		return "pixel"
	case StageCompute:
		return "compute"
	default:
		return "stages"
	}
}

// PipelineLayoutParamType is the kind of a pipeline layout parameter.
type PipelineLayoutParamType uint8

// Pipeline layout parameter types.
const (
	// ParamDescriptorTable is a descriptor set bound by handle.
	ParamDescriptorTable PipelineLayoutParamType = iota + 1

	// ParamPushDescriptors is a set whose descriptors are pushed inline.
	ParamPushDescriptors

	// ParamPushConstants is a range of inline constants.
	ParamPushConstants
)

// PipelineSubobjectType identifies the payload of a PipelineSubobject.
type PipelineSubobjectType uint8

// Pipeline subobject types.
const (
	// SubobjectVertexShader carries a *ShaderDesc.
	SubobjectVertexShader PipelineSubobjectType = iota + 1

	// SubobjectPixelShader carries a *ShaderDesc.
	SubobjectPixelShader

	// SubobjectComputeShader carries a *ShaderDesc.
	SubobjectComputeShader

	// SubobjectInputLayout carries []InputElement.
	SubobjectInputLayout

	// SubobjectBlendState carries *BlendDesc.
	SubobjectBlendState

	// SubobjectRasterizerState carries *RasterizerDesc.
	SubobjectRasterizerState

	// SubobjectDepthStencilState carries *DepthStencilDesc.
	SubobjectDepthStencilState

	// SubobjectPrimitiveTopology carries gputypes.PrimitiveTopology.
	SubobjectPrimitiveTopology

	// SubobjectRenderTargetFormats carries []gputypes.TextureFormat.
	SubobjectRenderTargetFormats

	// SubobjectDepthStencilFormat carries gputypes.TextureFormat.
	SubobjectDepthStencilFormat

	// SubobjectSampleCount carries uint32.
	SubobjectSampleCount

	// SubobjectSampleMask carries uint32.
	SubobjectSampleMask
)

// QueryType is the kind of queries in a QueryPool.
type QueryType uint8

// Query types.
const (
	// QueryOcclusion counts samples passing depth and stencil tests.
	QueryOcclusion QueryType = iota + 1

	// QueryBinaryOcclusion reports whether any sample passed.
	QueryBinaryOcclusion

	// QueryTimestamp records GPU timestamps.
	QueryTimestamp

	// QueryPipelineStatistics records pipeline counters.
	QueryPipelineStatistics
)

// String returns the query type name.
func (q QueryType) String() string {
	switch q {
	case QueryOcclusion:
		return "occlusion"
	case QueryBinaryOcclusion:
		return "binary_occlusion"
	case QueryTimestamp:
		return "timestamp"
	case QueryPipelineStatistics:
		return "pipeline_statistics"
	default:
		return "unknown"
	}
}
