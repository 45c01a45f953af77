package device

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/registry"
)

// levels and layers of a normalized texture description.
func levels(d api.ResourceDesc) uint32 { return max(d.Texture.Levels, 1) }

func layers(d api.ResourceDesc) uint32 {
	if d.Type == api.ResourceTypeTexture3D {
		return 1
	}
	return max(d.Texture.DepthOrLayers, 1)
}

// splitSubresource returns the mip level and array layer of subresource.
func splitSubresource(d api.ResourceDesc, sub uint32) (level, layer uint32) {
	n := levels(d)
	return sub % n, sub / n
}

// mipExtent returns the texel extent of level.
func mipExtent(d api.ResourceDesc, level uint32) (w, h, depth uint32) {
	w = max(d.Texture.Width>>level, 1)
	h = max(d.Texture.Height>>level, 1)
	depth = 1
	if d.Type == api.ResourceTypeTexture3D {
		depth = max(d.Texture.DepthOrLayers>>level, 1)
	}
	return w, h, depth
}

// stagingLayout lays every subresource of a texture out in one linear
// buffer, rows aligned to align. It returns the layouts and the total size.
func stagingLayout(d api.ResourceDesc, align uint32) ([]registry.SubresourceLayout, uint64) {
	format := d.Texture.Format
	n := d.Subresources()
	out := make([]registry.SubresourceLayout, n)
	var off uint64
	for sub := uint32(0); sub < n; sub++ {
		level, _ := splitSubresource(d, sub)
		w, h, depth := mipExtent(d, level)
		pitch := api.RowPitch(format, w, align)
		slice := pitch * api.RowCount(format, h)
		out[sub] = registry.SubresourceLayout{
			Offset:     off,
			RowPitch:   pitch,
			SlicePitch: slice,
			Width:      w,
			Height:     h,
			Depth:      depth,
		}
		off += uint64(slice) * uint64(depth)
		off = alignUp64(off, uint64(max(align, 4)))
	}
	return out, off
}

func alignUp64(v, a uint64) uint64 { return (v + a - 1) / a * a }

// textureBytes estimates the device memory of a texture.
func textureBytes(d api.ResourceDesc) uint64 {
	format := d.Texture.Format
	var total uint64
	for sub := uint32(0); sub < d.Subresources(); sub++ {
		level, _ := splitSubresource(d, sub)
		w, h, depth := mipExtent(d, level)
		total += uint64(api.RowPitch(format, w, 1)) * uint64(api.RowCount(format, h)) * uint64(depth)
	}
	return total * uint64(max(d.Texture.Samples, 1))
}

// resolveBox returns box, or the whole subresource when box is nil, and
// reports whether it lies inside the subresource and on block boundaries.
func resolveBox(d api.ResourceDesc, level uint32, box *api.SubresourceBox) (api.SubresourceBox, bool) {
	w, h, depth := mipExtent(d, level)
	if box == nil {
		return api.SubresourceBox{Right: w, Bottom: h, Back: depth}, true
	}
	b := *box
	if b.Left >= b.Right || b.Top >= b.Bottom || b.Front >= b.Back ||
		b.Right > w || b.Bottom > h || b.Back > depth {
		return b, false
	}
	blk := api.BlockOf(d.Texture.Format)
	if blk.Width > 1 && (b.Left%blk.Width != 0 || b.Top%blk.Height != 0) {
		return b, false
	}
	return b, true
}

// copyTarget returns the copy location of a box in subresource sub.
func copyTarget(rec *registry.Resource, sub uint32, box api.SubresourceBox) (*hal.ImageCopyTexture, *hal.Extent3D) {
	level, layer := splitSubresource(rec.Desc, sub)
	z := layer
	if rec.Desc.Type == api.ResourceTypeTexture3D {
		z = box.Front
	}
	dst := &hal.ImageCopyTexture{
		Texture:  rec.Texture,
		MipLevel: level,
		Origin:   hal.Origin3D{X: box.Left, Y: box.Top, Z: z},
		Aspect:   copyAspect(rec),
	}
	size := &hal.Extent3D{Width: box.Width(), Height: box.Height(), DepthOrArrayLayers: box.Depth()}
	return dst, size
}

// copyRows copies rows of rowBytes bytes between differently pitched
// images of rows rows and depth slices.
func copyRows(dst []byte, dstPitch, dstSlice uint32, src []byte, srcPitch, srcSlice uint32, rowBytes, rows, depth uint32) {
	for z := uint32(0); z < depth; z++ {
		for y := uint32(0); y < rows; y++ {
			d := uint64(z)*uint64(dstSlice) + uint64(y)*uint64(dstPitch)
			s := uint64(z)*uint64(srcSlice) + uint64(y)*uint64(srcPitch)
			if s+uint64(rowBytes) > uint64(len(src)) || d+uint64(rowBytes) > uint64(len(dst)) {
				return
			}
			copy(dst[d:d+uint64(rowBytes)], src[s:s+uint64(rowBytes)])
		}
	}
}
