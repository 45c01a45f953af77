package device

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/identity"
)

// Native objects handed out by the device carry identity storage so they
// resolve back to their records. HAL backends type-assert their own
// concrete types, so every downward call passes the raw object kept in the
// record, never the wrapper.

type nativeBuffer struct {
	hal.Buffer
	identity.Storage
}

type nativeTexture struct {
	hal.Texture
	identity.Storage
}

type nativeView struct {
	hal.TextureView
	identity.Storage
}

// bufferView is the native side of a buffer view, which has no HAL object;
// descriptors bind the owning buffer's range directly.
type bufferView struct {
	identity.Storage
}

func bufferUsage(desc api.ResourceDesc) gputypes.BufferUsage {
	var u gputypes.BufferUsage
	if desc.Usage.Has(api.UsageIndexBuffer) {
		u |= gputypes.BufferUsageIndex
	}
	if desc.Usage.Has(api.UsageVertexBuffer) {
		u |= gputypes.BufferUsageVertex
	}
	if desc.Usage.Has(api.UsageConstantBuffer) {
		u |= gputypes.BufferUsageUniform
	}
	if desc.Usage.Has(api.UsageIndirectArgument) {
		u |= gputypes.BufferUsageIndirect
	}
	if desc.Usage&(api.UsageShaderResource|api.UsageUnorderedAccess) != 0 {
		u |= gputypes.BufferUsageStorage
	}
	if desc.Usage.Has(api.UsageCopyDest) {
		u |= gputypes.BufferUsageCopyDst
	}
	if desc.Usage.Has(api.UsageCopySource) {
		u |= gputypes.BufferUsageCopySrc
	}
	switch desc.Heap {
	case api.HeapCPUToGPU:
		u |= gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc
	case api.HeapGPUToCPU:
		u |= gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	case api.HeapCPUOnly:
		u |= gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite |
			gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	}
	// Queued updates write through the copy engine.
	return u | gputypes.BufferUsageCopyDst
}

func textureUsage(usage api.ResourceUsage) gputypes.TextureUsage {
	u := gputypes.TextureUsageCopyDst
	if usage.Has(api.UsageShaderResource) {
		u |= gputypes.TextureUsageTextureBinding
	}
	if usage.Has(api.UsageUnorderedAccess) {
		u |= gputypes.TextureUsageStorageBinding
	}
	if usage&(api.UsageRenderTarget|api.UsageDepthStencil|api.UsageResolveDest) != 0 {
		u |= gputypes.TextureUsageRenderAttachment
	}
	if usage&(api.UsageCopySource|api.UsageResolveSource|api.UsagePresent) != 0 {
		u |= gputypes.TextureUsageCopySrc
	}
	return u
}

func textureDimension(t api.ResourceType) gputypes.TextureDimension {
	switch t {
	case api.ResourceTypeTexture1D:
		return gputypes.TextureDimension1D
	case api.ResourceTypeTexture3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

func viewDimension(t api.ResourceViewType) gputypes.TextureViewDimension {
	switch t {
	case api.ViewTypeTexture1D:
		return gputypes.TextureViewDimension1D
	case api.ViewTypeTexture2D:
		return gputypes.TextureViewDimension2D
	case api.ViewTypeTexture2DArray:
		return gputypes.TextureViewDimension2DArray
	case api.ViewTypeTextureCube:
		return gputypes.TextureViewDimensionCube
	case api.ViewTypeTextureCubeArray:
		return gputypes.TextureViewDimensionCubeArray
	case api.ViewTypeTexture3D:
		return gputypes.TextureViewDimension3D
	default:
		return gputypes.TextureViewDimensionUndefined
	}
}

// viewAspect picks the aspect a view of format over a resource of base
// format selects.
func viewAspect(base, format gputypes.TextureFormat) gputypes.TextureAspect {
	if !base.HasDepth() || !base.HasStencil() || format == base {
		return gputypes.TextureAspectAll
	}
	if format == gputypes.TextureFormatStencil8 {
		return gputypes.TextureAspectStencilOnly
	}
	return gputypes.TextureAspectDepthOnly
}

func shaderStages(s api.ShaderStage) gputypes.ShaderStages {
	var out gputypes.ShaderStages
	if s&api.StageVertex != 0 {
		out |= gputypes.ShaderStageVertex
	}
	if s&api.StagePixel != 0 {
		out |= gputypes.ShaderStageFragment
	}
	if s&api.StageCompute != 0 {
		out |= gputypes.ShaderStageCompute
	}
	return out
}

func stencilOp(op api.StencilOp) hal.StencilOperation {
	return hal.StencilOperation(op)
}
