package device

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
)

// CheckCapability reports whether c is supported. The flavor answers first;
// everything else comes from the feature set and limits recorded at
// creation, so the answer never changes.
func (c *Core) CheckCapability(cap api.DeviceCaps) bool {
	if ok, handled := c.quirks.Capability(cap); handled {
		return ok
	}

	features := c.adapter.Features
	switch cap {
	case api.CapComputeShader:
		return c.downlevel(hal.DownlevelFlagsComputeShaders)
	case api.CapSamplerAnisotropic:
		return c.downlevel(hal.DownlevelFlagsAnisotropicFiltering)
	case api.CapTimestampQuery:
		return features.Contains(gputypes.FeatureTimestampQuery)
	case api.CapPipelineStatisticsQuery:
		return features.Contains(gputypes.FeaturePipelineStatisticsQuery)
	case api.CapPartialPushConstantUpdates:
		return features.Contains(gputypes.FeaturePushConstants)
	case api.CapMultiViewport:
		return c.adapter.Capabilities.Limits.MaxColorAttachments > 1 &&
			c.adapter.Info.Backend != gputypes.BackendGL
	case api.CapIndependentBlend,
		api.CapBindRenderTargetsAndDepthStencil,
		api.CapDrawInstanced,
		api.CapDrawOrDispatchIndirect,
		api.CapCopyBufferRegion,
		api.CapCopyBufferToTexture,
		api.CapCopyQueryPoolResults,
		api.CapSamplerCompare:
		return true
	default:
		return false
	}
}

// downlevel reports a downlevel flag. Only GL adapters fill the flags in;
// every other backend supports the full feature level.
func (c *Core) downlevel(flag hal.DownlevelFlags) bool {
	if c.adapter.Info.Backend != gputypes.BackendGL {
		return true
	}
	return c.adapter.Capabilities.DownlevelCapabilities.Flags&flag != 0
}

// CheckFormatSupport reports whether format supports every usage in usage.
func (c *Core) CheckFormatSupport(format gputypes.TextureFormat, usage api.ResourceUsage) bool {
	if format == gputypes.TextureFormatUndefined {
		return false
	}
	flags := c.adapter.Adapter.TextureFormatCapabilities(format).Flags

	need := func(u api.ResourceUsage, f hal.TextureFormatCapabilityFlags) bool {
		return usage&u == 0 || flags&f != 0
	}
	if !need(api.UsageShaderResource, hal.TextureFormatCapabilitySampled) ||
		!need(api.UsageUnorderedAccess, hal.TextureFormatCapabilityStorage) ||
		!need(api.UsageResolveDest|api.UsageResolveSource, hal.TextureFormatCapabilityMultisampleResolve) {
		return false
	}
	if usage&(api.UsageRenderTarget|api.UsageDepthStencil) != 0 {
		if flags&hal.TextureFormatCapabilityRenderAttachment == 0 {
			return false
		}
		isDepth := format.IsDepthStencil()
		if usage.Has(api.UsageDepthStencil) && !isDepth {
			return false
		}
		if usage.Has(api.UsageRenderTarget) && isDepth {
			return false
		}
	}
	// Buffer-only usages never apply to a texel format.
	return usage&(api.UsageIndexBuffer|api.UsageVertexBuffer|api.UsageConstantBuffer|api.UsageIndirectArgument) == 0
}
