package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/identity"
)

type nativeSampler struct {
	hal.Sampler
	identity.Storage
}

type samplerRecord struct {
	desc   api.SamplerDesc
	native hal.Sampler
}

// CreateSampler creates a sampler state object.
func (c *Core) CreateSampler(desc api.SamplerDesc) (api.Sampler, error) {
	if err := c.alive(); err != nil {
		return api.NullHandle, err
	}
	if desc.MaxAnisotropy > 16 {
		return api.NullHandle, fmt.Errorf("%w: anisotropy %d", api.ErrInvalidDesc, desc.MaxAnisotropy)
	}
	if desc.MaxAnisotropy > 1 && !c.CheckCapability(api.CapSamplerAnisotropic) {
		return api.NullHandle, fmt.Errorf("%w: anisotropic filtering", api.ErrUnsupported)
	}
	if desc.Compare != gputypes.CompareFunctionUndefined && !c.CheckCapability(api.CapSamplerCompare) {
		return api.NullHandle, fmt.Errorf("%w: comparison samplers", api.ErrUnsupported)
	}
	if desc.HasCustomBorderColor() && !c.CheckCapability(api.CapSamplerCustomBorderColor) {
		return api.NullHandle, fmt.Errorf("%w: custom border color %v", api.ErrUnsupported, desc.BorderColor)
	}
	if err := c.quirks.ValidateSampler(desc); err != nil {
		return api.NullHandle, err
	}

	maxLOD := desc.MaxLOD
	if maxLOD == 0 && desc.MinLOD == 0 {
		maxLOD = 32
	}
	s, err := c.dev.CreateSampler(&hal.SamplerDescriptor{
		AddressModeU: desc.AddressU,
		AddressModeV: desc.AddressV,
		AddressModeW: desc.AddressW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: desc.MipFilter,
		LodMinClamp:  desc.MinLOD,
		LodMaxClamp:  maxLOD,
		Compare:      desc.Compare,
		Anisotropy:   max(desc.MaxAnisotropy, 1),
	})
	if err != nil {
		return api.NullHandle, c.halError("create sampler", err)
	}
	key := c.table.Register(identity.KindSampler, &nativeSampler{Sampler: s}, &samplerRecord{desc: desc, native: s})
	return api.Sampler(key), nil
}

// DestroySampler destroys a sampler. Null handles are ignored.
func (c *Core) DestroySampler(s api.Sampler) {
	if s.IsNull() {
		return
	}
	rec := c.table.UnregisterKey(identity.KindSampler, identity.Key(s)).(*samplerRecord)
	c.dev.DestroySampler(rec.native)
}

// GetSamplerDesc returns the description s was created with.
func (c *Core) GetSamplerDesc(s api.Sampler) api.SamplerDesc {
	return c.sampler(s).desc
}

func (c *Core) sampler(s api.Sampler) *samplerRecord {
	return identity.ResolveAs[*samplerRecord](c.table, identity.KindSampler, identity.Key(s))
}
