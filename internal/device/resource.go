package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/identity"
	"github.com/gogpu/interpose/internal/registry"
)

// normalize fills in defaults of a texture description.
func normalize(desc api.ResourceDesc) api.ResourceDesc {
	if desc.Type.IsTexture() {
		desc.Texture.Levels = max(desc.Texture.Levels, 1)
		desc.Texture.Samples = max(desc.Texture.Samples, 1)
		desc.Texture.DepthOrLayers = max(desc.Texture.DepthOrLayers, 1)
		if desc.Type == api.ResourceTypeTexture1D {
			desc.Texture.Height = max(desc.Texture.Height, 1)
		}
	}
	return desc
}

func (c *Core) validateResource(desc api.ResourceDesc) error {
	if desc.Heap > api.HeapCPUOnly {
		return fmt.Errorf("%w: heap %d", api.ErrInvalidDesc, desc.Heap)
	}
	if desc.Flags&api.FlagShared != 0 && !c.CheckCapability(api.CapSharedResource) {
		return fmt.Errorf("%w: shared resources", api.ErrUnsupported)
	}

	switch desc.Type {
	case api.ResourceTypeBuffer:
		if desc.Buffer.Size == 0 {
			return fmt.Errorf("%w: zero-size buffer", api.ErrInvalidDesc)
		}
		return nil
	case api.ResourceTypeTexture1D, api.ResourceTypeTexture2D, api.ResourceTypeTexture3D:
	default:
		return fmt.Errorf("%w: cannot create %s resources", api.ErrInvalidDesc, desc.Type)
	}

	t := desc.Texture
	if t.Width == 0 || t.Height == 0 {
		return fmt.Errorf("%w: zero-size texture", api.ErrInvalidDesc)
	}
	if t.Format == gputypes.TextureFormatUndefined {
		return fmt.Errorf("%w: texture format undefined", api.ErrInvalidDesc)
	}
	if t.Samples > 1 && (desc.Heap != api.HeapGPUOnly || t.Levels > 1) {
		return fmt.Errorf("%w: multisampled textures must be single-level and GPU-only", api.ErrInvalidDesc)
	}
	if desc.Flags&api.FlagCubeCompatible != 0 && (desc.Type != api.ResourceTypeTexture2D || t.DepthOrLayers%6 != 0) {
		return fmt.Errorf("%w: cube-compatible texture needs a multiple of 6 layers", api.ErrInvalidDesc)
	}
	if desc.Heap != api.HeapGPUOnly && api.BlockOf(t.Format).Bytes == 0 {
		return fmt.Errorf("%w: %s is not CPU-accessible", api.ErrUnsupported, t.Format)
	}
	if !c.CheckFormatSupport(t.Format, desc.Usage&^(api.UsageCopy|api.UsageCPUAccess|api.UsagePresent|api.UsageGeneral)) {
		return fmt.Errorf("%w: format %s with usage %#x", api.ErrUnsupported, t.Format, uint32(desc.Usage))
	}
	return nil
}

// CreateResource creates a buffer or texture.
func (c *Core) CreateResource(desc api.ResourceDesc, initial []api.SubresourceData, state api.ResourceUsage, shared *api.SharedHandle) (api.Resource, error) {
	if err := c.alive(); err != nil {
		return api.NullHandle, err
	}
	desc = normalize(desc)
	if err := c.validateResource(desc); err != nil {
		return api.NullHandle, err
	}
	if uint32(len(initial)) > desc.Subresources() {
		return api.NullHandle, fmt.Errorf("%w: %d initial subresources for %d", api.ErrInvalidDesc, len(initial), desc.Subresources())
	}
	if desc.Flags&api.FlagShared != 0 && (shared == nil || *shared != 0) {
		// Opening a handle exported elsewhere is not supported.
		return api.NullHandle, fmt.Errorf("%w: shared handle import", api.ErrUnsupported)
	}

	rec := &registry.Resource{Desc: desc, InitialState: state}
	var native identity.Holder
	if desc.Type == api.ResourceTypeBuffer {
		b, err := c.createBuffer(rec)
		if err != nil {
			return api.NullHandle, err
		}
		native = b
	} else {
		t, err := c.createTexture(rec)
		if err != nil {
			return api.NullHandle, err
		}
		native = t
	}
	h := c.registry.AddResource(native, rec)

	if err := c.upload(rec, initial); err != nil {
		c.DestroyResource(h)
		return api.NullHandle, err
	}
	if desc.Flags&api.FlagShared != 0 {
		sh, err := c.quirks.ExportShared(rec)
		if err != nil {
			c.DestroyResource(h)
			return api.NullHandle, err
		}
		rec.Shared = sh
		*shared = sh
	}

	slogger().Debug("device: resource created",
		"handle", uint64(h), "type", desc.Type, "bytes", rec.Bytes)
	return h, nil
}

// charge reserves n bytes against the budget.
func (c *Core) charge(n uint64) error {
	pressure, err := c.budget.Reserve(n)
	if err != nil {
		return err
	}
	if pressure {
		slogger().Warn("device: memory pressure", "stats", c.budget.Stats().String())
	}
	return nil
}

func (c *Core) createBuffer(rec *registry.Resource) (*nativeBuffer, error) {
	size := rec.Desc.Buffer.Size
	if err := c.charge(size); err != nil {
		return nil, err
	}
	buf, err := c.dev.CreateBuffer(&hal.BufferDescriptor{
		Size:  size,
		Usage: bufferUsage(rec.Desc),
	})
	if err != nil {
		c.budget.Release(size)
		return nil, c.halError("create buffer", err)
	}
	rec.Buffer = buf
	rec.Bytes = size
	return &nativeBuffer{Buffer: buf}, nil
}

func (c *Core) createTexture(rec *registry.Resource) (*nativeTexture, error) {
	d := rec.Desc
	bytes := textureBytes(d)
	var staging uint64
	if d.Heap != api.HeapGPUOnly {
		rec.Layout, staging = stagingLayout(d, c.quirks.RowPitchAlignment(c.adapter.Capabilities))
	}
	if err := c.charge(bytes + staging); err != nil {
		return nil, err
	}

	usage := textureUsage(d.Usage)
	if d.Flags&api.FlagGenerateMipmaps != 0 {
		usage |= gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	}
	var viewFormats []gputypes.TextureFormat
	if linear := api.LinearFormat(d.Texture.Format); linear != d.Texture.Format {
		viewFormats = append(viewFormats, linear)
	}
	tex, err := c.dev.CreateTexture(&hal.TextureDescriptor{
		Size: hal.Extent3D{
			Width:              d.Texture.Width,
			Height:             d.Texture.Height,
			DepthOrArrayLayers: d.Texture.DepthOrLayers,
		},
		MipLevelCount: d.Texture.Levels,
		SampleCount:   d.Texture.Samples,
		Dimension:     textureDimension(d.Type),
		Format:        d.Texture.Format,
		Usage:         usage,
		ViewFormats:   viewFormats,
	})
	if err != nil {
		c.budget.Release(bytes + staging)
		return nil, c.halError("create texture", err)
	}

	if staging > 0 {
		buf, err := c.dev.CreateBuffer(&hal.BufferDescriptor{
			Label: "interpose staging",
			Size:  staging,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite |
				gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			c.dev.DestroyTexture(tex)
			c.budget.Release(bytes + staging)
			return nil, c.halError("create staging buffer", err)
		}
		rec.Staging = buf
	}
	rec.Texture = tex
	rec.Bytes = bytes + staging
	return &nativeTexture{Texture: tex}, nil
}

// upload writes initial subresource data.
func (c *Core) upload(rec *registry.Resource, initial []api.SubresourceData) error {
	for sub, data := range initial {
		if data.Data == nil {
			continue
		}
		var err error
		if rec.Desc.Type == api.ResourceTypeBuffer {
			err = c.writeBuffer(rec, data.Data, 0)
		} else {
			err = c.writeTexture(rec, uint32(sub), data, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DestroyResource destroys a resource. Null handles are ignored.
func (c *Core) DestroyResource(r api.Resource) {
	if r.IsNull() {
		return
	}
	rec := c.registry.RemoveResource(r)
	c.release(rec)
	slogger().Debug("device: resource destroyed", "handle", uint64(r))
}

func (c *Core) release(rec *registry.Resource) {
	if rec.Shared != 0 {
		c.quirks.ReleaseShared(rec.Shared)
	}
	if rec.Staging != nil {
		c.dev.DestroyBuffer(rec.Staging)
	}
	if !rec.External {
		if rec.Buffer != nil {
			c.dev.DestroyBuffer(rec.Buffer)
		}
		if rec.Texture != nil {
			c.dev.DestroyTexture(rec.Texture)
		}
	}
	if rec.Bytes > 0 {
		c.budget.Release(rec.Bytes)
	}
}

// GetResourceDesc returns the description r was created with, with texture
// defaults filled in.
func (c *Core) GetResourceDesc(r api.Resource) api.ResourceDesc {
	return c.registry.Resource(r).Desc
}

// SetResourceName attaches a debug name to r.
func (c *Core) SetResourceName(r api.Resource, name string) {
	c.registry.Resource(r).SetName(name)
}

// ResourceName returns the debug name of r.
func (c *Core) ResourceName(r api.Resource) string {
	return c.registry.Resource(r).Name()
}

// SharedHandle returns the exported handle of r, or zero.
func (c *Core) SharedHandle(r api.Resource) api.SharedHandle {
	return c.registry.Resource(r).Shared
}

// NativeResource returns the native object of r. Buffers return a
// hal.Buffer, textures a hal.Texture; both resolve back through
// ResourceFromNative.
func (c *Core) NativeResource(r api.Resource) hal.Resource {
	return c.registry.Resource(r).Native.(hal.Resource)
}

// ResourceFromNative returns the handle of a native object obtained from
// NativeResource, or the null handle for objects the device did not hand
// out.
func (c *Core) ResourceFromNative(obj hal.Resource) api.Resource {
	h, ok := obj.(identity.Holder)
	if !ok {
		return api.NullHandle
	}
	v, ok := c.table.TryResolve(identity.KindResource, c.table.KeyOf(h))
	if !ok {
		return api.NullHandle
	}
	return v.(*registry.Resource).Handle
}

// adoptSlot registers a resource for a texture owned by someone else, such
// as a swap-chain back buffer. The texture is bound later through the
// returned record and wrapper; destroying the handle releases only the
// record.
func (c *Core) adoptSlot(desc api.ResourceDesc, state api.ResourceUsage) (api.Resource, *registry.Resource, *nativeTexture) {
	rec := &registry.Resource{Desc: desc, InitialState: state, External: true}
	native := &nativeTexture{}
	return c.registry.AddResource(native, rec), rec, native
}

// copyAspect is the aspect buffer copies of rec address.
func copyAspect(rec *registry.Resource) gputypes.TextureAspect {
	if rec.Desc.Texture.Format.HasDepth() {
		return gputypes.TextureAspectDepthOnly
	}
	if rec.Desc.Texture.Format.HasStencil() {
		return gputypes.TextureAspectStencilOnly
	}
	return gputypes.TextureAspectAll
}
