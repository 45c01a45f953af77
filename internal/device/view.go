package device

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/registry"
)

// viewUsages are the usages a view may be created for.
const viewUsages = api.UsageShaderResource | api.UsageUnorderedAccess |
	api.UsageRenderTarget | api.UsageDepthStencil

func viewError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{api.ErrViewCreation}, args...)...)
}

// CreateResourceView creates a view of usage type usage over r.
func (c *Core) CreateResourceView(r api.Resource, usage api.ResourceUsage, desc api.ResourceViewDesc) (api.ResourceView, error) {
	if err := c.alive(); err != nil {
		return api.NullHandle, err
	}
	res := c.registry.Resource(r)

	if usage == 0 || usage&^viewUsages != 0 || usage&(usage-1) != 0 {
		return api.NullHandle, viewError("usage %#x is not a single view usage", uint32(usage))
	}
	if !res.Desc.Usage.Has(usage) {
		return api.NullHandle, viewError("resource %#x was not created for usage %#x", uint64(r), uint32(usage))
	}

	rec := &registry.View{Resource: res, Usage: usage, Desc: desc}
	if res.Desc.Type == api.ResourceTypeBuffer {
		if err := checkBufferView(res.Desc, usage, desc); err != nil {
			return api.NullHandle, err
		}
		h := c.registry.AddView(&bufferView{}, rec)
		slogger().Debug("device: buffer view created", "handle", uint64(h), "resource", uint64(r))
		return h, nil
	}

	hd, err := textureViewDesc(res.Desc, usage, desc)
	if err != nil {
		return api.NullHandle, err
	}
	if res.Texture == nil {
		return api.NullHandle, fmt.Errorf("%w: back buffer %#x is not acquired", api.ErrNotReady, uint64(r))
	}
	view, err := c.dev.CreateTextureView(res.Texture, hd)
	if err != nil {
		return api.NullHandle, fmt.Errorf("%w: %w", api.ErrViewCreation, c.halError("create texture view", err))
	}
	rec.Texture = view
	h := c.registry.AddView(&nativeView{TextureView: view}, rec)
	slogger().Debug("device: texture view created", "handle", uint64(h), "resource", uint64(r))
	return h, nil
}

func checkBufferView(d api.ResourceDesc, usage api.ResourceUsage, desc api.ResourceViewDesc) error {
	if desc.Type != api.ViewTypeUnknown && desc.Type != api.ViewTypeBuffer {
		return viewError("texture view type %d over a buffer", desc.Type)
	}
	if usage&(api.UsageRenderTarget|api.UsageDepthStencil) != 0 {
		return viewError("attachment view over a buffer")
	}
	size := d.Buffer.Size
	if desc.Buffer.Offset >= size {
		return viewError("offset %d outside %d-byte buffer", desc.Buffer.Offset, size)
	}
	if desc.Buffer.Size != 0 && desc.Buffer.Size > size-desc.Buffer.Offset {
		return viewError("range %d+%d outside %d-byte buffer", desc.Buffer.Offset, desc.Buffer.Size, size)
	}
	return nil
}

// defaultViewType derives the view type of an untyped view.
func defaultViewType(d api.ResourceDesc) api.ResourceViewType {
	switch d.Type {
	case api.ResourceTypeTexture1D:
		return api.ViewTypeTexture1D
	case api.ResourceTypeTexture3D:
		return api.ViewTypeTexture3D
	default:
		if d.Texture.DepthOrLayers > 1 {
			return api.ViewTypeTexture2DArray
		}
		return api.ViewTypeTexture2D
	}
}

func textureViewDesc(d api.ResourceDesc, usage api.ResourceUsage, desc api.ResourceViewDesc) (*hal.TextureViewDescriptor, error) {
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = d.Texture.Format
	}
	if !api.ViewCompatible(d.Texture.Format, format) {
		return nil, viewError("%s view over %s resource", format, d.Texture.Format)
	}
	if usage == api.UsageDepthStencil && !format.HasDepth() && !format.HasStencil() {
		return nil, viewError("depth-stencil view with color format %s", format)
	}

	vt := desc.Type
	if vt == api.ViewTypeUnknown {
		vt = defaultViewType(d)
	}
	if vt == api.ViewTypeBuffer {
		return nil, viewError("buffer view over a texture")
	}
	if (vt == api.ViewTypeTexture3D) != (d.Type == api.ResourceTypeTexture3D) {
		return nil, viewError("view type %d over %s", vt, d.Type)
	}

	nl, nlay := levels(d), layers(d)
	r := desc.Texture
	if r.FirstLevel >= nl {
		return nil, viewError("first level %d of %d", r.FirstLevel, nl)
	}
	lc := r.Levels
	if lc == api.AllLevels || lc == 0 {
		lc = nl - r.FirstLevel
	}
	if lc > nl-r.FirstLevel {
		return nil, viewError("levels %d+%d of %d", r.FirstLevel, lc, nl)
	}
	if r.FirstLayer >= nlay {
		return nil, viewError("first layer %d of %d", r.FirstLayer, nlay)
	}
	ly := r.Layers
	if ly == api.AllLayers || ly == 0 {
		ly = nlay - r.FirstLayer
	}
	if ly > nlay-r.FirstLayer {
		return nil, viewError("layers %d+%d of %d", r.FirstLayer, ly, nlay)
	}
	switch vt {
	case api.ViewTypeTexture1D, api.ViewTypeTexture2D:
		if ly != 1 {
			return nil, viewError("%d layers in a single-layer view", ly)
		}
	case api.ViewTypeTextureCube:
		if d.Flags&api.FlagCubeCompatible == 0 || ly != 6 {
			return nil, viewError("cube view over %d layers", ly)
		}
	case api.ViewTypeTextureCubeArray:
		if d.Flags&api.FlagCubeCompatible == 0 || ly%6 != 0 {
			return nil, viewError("cube array view over %d layers", ly)
		}
	}
	if usage&(api.UsageRenderTarget|api.UsageDepthStencil) != 0 && lc != 1 {
		return nil, viewError("attachment view over %d levels", lc)
	}

	return &hal.TextureViewDescriptor{
		Format:          format,
		Dimension:       viewDimension(vt),
		Aspect:          viewAspect(d.Texture.Format, format),
		BaseMipLevel:    r.FirstLevel,
		MipLevelCount:   lc,
		BaseArrayLayer:  r.FirstLayer,
		ArrayLayerCount: ly,
	}, nil
}

// DestroyResourceView destroys a view. Null handles are ignored.
func (c *Core) DestroyResourceView(v api.ResourceView) {
	if v.IsNull() {
		return
	}
	rec := c.registry.RemoveView(v)
	if rec.Texture != nil {
		c.dev.DestroyTextureView(rec.Texture)
	}
	slogger().Debug("device: view destroyed", "handle", uint64(v))
}

// GetResourceFromView returns the resource v was created over.
func (c *Core) GetResourceFromView(v api.ResourceView) api.Resource {
	return c.registry.View(v).Resource.Handle
}

// GetResourceViewDesc returns the description v was created with.
func (c *Core) GetResourceViewDesc(v api.ResourceView) api.ResourceViewDesc {
	return c.registry.View(v).Desc
}

// SetResourceViewName attaches a debug name to v.
func (c *Core) SetResourceViewName(v api.ResourceView, name string) {
	c.registry.View(v).SetName(name)
}

// NativeResourceView returns the native object of v: a hal.TextureView for
// texture views. Buffer views have no native object and return nil.
func (c *Core) NativeResourceView(v api.ResourceView) hal.TextureView {
	rec := c.registry.View(v)
	if rec.Texture == nil {
		return nil
	}
	return rec.Native.(*nativeView)
}
