package device

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/registry"
)

func checkAccess(heap api.MemoryHeap, access api.MapAccess) error {
	if access < api.MapReadOnly || access > api.MapWriteDiscard {
		return fmt.Errorf("%w: map access %d", api.ErrInvalidDesc, access)
	}
	if heap == api.HeapGPUOnly ||
		access.Reads() && !heap.CPUReadable() ||
		access.Writes() && !heap.CPUWritable() {
		return fmt.Errorf("%w: heap %d does not allow access %d", api.ErrNotMappable, heap, access)
	}
	return nil
}

// mapBytes maps size bytes at offset of a raw HAL buffer.
func (c *Core) mapBytes(buf hal.Buffer, offset, size uint64) ([]byte, error) {
	m, err := c.dev.MapBuffer(buf, offset, size)
	if err != nil {
		return nil, c.halError("map buffer", err)
	}
	return unsafe.Slice((*byte)(m.Ptr), size), nil
}

// MapBufferRegion maps size bytes at offset of a buffer. A size of zero maps
// the rest of the buffer.
func (c *Core) MapBufferRegion(r api.Resource, offset, size uint64, access api.MapAccess) ([]byte, error) {
	rec := c.registry.Resource(r)
	if rec.Desc.Type != api.ResourceTypeBuffer {
		return nil, fmt.Errorf("%w: resource %#x is not a buffer", api.ErrInvalidDesc, uint64(r))
	}
	if err := checkAccess(rec.Desc.Heap, access); err != nil {
		return nil, err
	}
	total := rec.Desc.Buffer.Size
	if offset >= total {
		return nil, fmt.Errorf("%w: offset %d outside %d-byte buffer", api.ErrInvalidDesc, offset, total)
	}
	if size == 0 {
		size = total - offset
	}
	if size > total-offset {
		return nil, fmt.Errorf("%w: range %d+%d outside %d-byte buffer", api.ErrInvalidDesc, offset, size, total)
	}
	if err := rec.BeginMap(access, 0); err != nil {
		return nil, err
	}
	data, err := c.mapBytes(rec.Buffer, offset, size)
	if err != nil {
		rec.EndMap()
		return nil, err
	}
	return data, nil
}

// UnmapBufferRegion releases a buffer mapping. Unmapping an unmapped buffer
// is a no-op.
func (c *Core) UnmapBufferRegion(r api.Resource) {
	rec := c.registry.Resource(r)
	if rec.EndMap() == registry.Unmapped {
		return
	}
	if err := c.dev.UnmapBuffer(rec.Buffer); err != nil {
		slogger().Warn("device: unmap buffer", "handle", uint64(r), "err", err)
	}
}

// MapTextureRegion maps one subresource of a CPU-visible texture, or the box
// within it. The returned data starts at the box origin.
func (c *Core) MapTextureRegion(r api.Resource, sub uint32, box *api.SubresourceBox, access api.MapAccess) (api.SubresourceData, error) {
	rec := c.registry.Resource(r)
	if !rec.Desc.Type.IsTexture() {
		return api.SubresourceData{}, fmt.Errorf("%w: resource %#x is not a texture", api.ErrInvalidDesc, uint64(r))
	}
	if rec.Staging == nil {
		return api.SubresourceData{}, fmt.Errorf("%w: texture %#x has no CPU copy", api.ErrNotMappable, uint64(r))
	}
	if err := checkAccess(rec.Desc.Heap, access); err != nil {
		return api.SubresourceData{}, err
	}
	if sub >= rec.Desc.Subresources() {
		return api.SubresourceData{}, fmt.Errorf("%w: subresource %d of %d", api.ErrInvalidDesc, sub, rec.Desc.Subresources())
	}
	level, _ := splitSubresource(rec.Desc, sub)
	b, ok := resolveBox(rec.Desc, level, box)
	if !ok {
		return api.SubresourceData{}, fmt.Errorf("%w: box %+v outside subresource %d", api.ErrInvalidDesc, b, sub)
	}
	if err := rec.BeginMap(access, sub); err != nil {
		return api.SubresourceData{}, err
	}

	if access.Reads() && rec.Desc.Heap == api.HeapGPUToCPU {
		if err := c.readback(rec, sub); err != nil {
			rec.EndMap()
			return api.SubresourceData{}, err
		}
	}
	l := rec.Layout[sub]
	data, err := c.mapBytes(rec.Staging, l.Offset, uint64(l.SlicePitch)*uint64(l.Depth))
	if err != nil {
		rec.EndMap()
		return api.SubresourceData{}, err
	}
	rec.Mapped = data
	return api.SubresourceData{
		Data:       data[boxOffset(rec, l, b):],
		RowPitch:   l.RowPitch,
		SlicePitch: l.SlicePitch,
	}, nil
}

// boxOffset is the byte offset of the box origin in a staged subresource.
func boxOffset(rec *registry.Resource, l registry.SubresourceLayout, b api.SubresourceBox) uint64 {
	blk := api.BlockOf(rec.Desc.Texture.Format)
	return uint64(b.Front)*uint64(l.SlicePitch) +
		uint64(b.Top/blk.Height)*uint64(l.RowPitch) +
		uint64(b.Left/blk.Width)*uint64(blk.Bytes)
}

// readback copies a subresource of the texture into its staging buffer and
// waits for the copy.
func (c *Core) readback(rec *registry.Resource, sub uint32) error {
	l := rec.Layout[sub]
	dst, size := copyTarget(rec, sub, api.SubresourceBox{Right: l.Width, Bottom: l.Height, Back: l.Depth})
	_, err := c.submit("interpose readback", func(enc hal.CommandEncoder) {
		enc.CopyTextureToBuffer(rec.Texture, rec.Staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{
				Offset:       l.Offset,
				BytesPerRow:  l.RowPitch,
				RowsPerImage: api.RowCount(rec.Desc.Texture.Format, l.Height),
			},
			TextureBase: *dst,
			Size:        *size,
		}})
	})
	if err != nil {
		return err
	}
	return c.WaitIdle()
}

// UnmapTextureRegion releases a texture mapping. Writes are flushed to the
// texture. It panics if sub is not the mapped subresource.
func (c *Core) UnmapTextureRegion(r api.Resource, sub uint32) {
	rec := c.registry.Resource(r)
	if rec.MapState() == registry.Unmapped {
		return
	}
	if mapped := rec.MappedSubresource(); mapped != sub {
		panic(fmt.Sprintf("device: unmapping subresource %d of texture %#x, mapped %d", sub, uint64(r), mapped))
	}
	data := rec.Mapped
	rec.Mapped = nil
	state := rec.EndMap()

	if state == registry.MappedWrite {
		l := rec.Layout[sub]
		dst, size := copyTarget(rec, sub, api.SubresourceBox{Right: l.Width, Bottom: l.Height, Back: l.Depth})
		err := c.queue.WriteTexture(dst, data, &hal.ImageDataLayout{
			BytesPerRow:  l.RowPitch,
			RowsPerImage: api.RowCount(rec.Desc.Texture.Format, l.Height),
		}, size)
		if err != nil {
			slogger().Warn("device: flush texture mapping", "handle", uint64(r), "err", c.halError("write texture", err))
		}
	}
	if err := c.dev.UnmapBuffer(rec.Staging); err != nil {
		slogger().Warn("device: unmap staging buffer", "handle", uint64(r), "err", err)
	}
}

// UpdateBufferRegion queues a write of data at offset of a buffer.
func (c *Core) UpdateBufferRegion(data []byte, r api.Resource, offset uint64) error {
	if err := c.alive(); err != nil {
		return err
	}
	rec := c.registry.Resource(r)
	if rec.Desc.Type != api.ResourceTypeBuffer {
		return fmt.Errorf("%w: resource %#x is not a buffer", api.ErrInvalidDesc, uint64(r))
	}
	return c.writeBuffer(rec, data, offset)
}

func (c *Core) writeBuffer(rec *registry.Resource, data []byte, offset uint64) error {
	size := rec.Desc.Buffer.Size
	if offset > size || uint64(len(data)) > size-offset {
		return fmt.Errorf("%w: write %d+%d outside %d-byte buffer", api.ErrInvalidDesc, offset, len(data), size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := c.queue.WriteBuffer(rec.Buffer, offset, data); err != nil {
		return c.halError("write buffer", err)
	}
	return nil
}

// UpdateTextureRegion queues a write of data into a texture subresource, or
// the box within it.
func (c *Core) UpdateTextureRegion(data api.SubresourceData, r api.Resource, sub uint32, box *api.SubresourceBox) error {
	if err := c.alive(); err != nil {
		return err
	}
	rec := c.registry.Resource(r)
	if !rec.Desc.Type.IsTexture() {
		return fmt.Errorf("%w: resource %#x is not a texture", api.ErrInvalidDesc, uint64(r))
	}
	return c.writeTexture(rec, sub, data, box)
}

func (c *Core) writeTexture(rec *registry.Resource, sub uint32, data api.SubresourceData, box *api.SubresourceBox) error {
	d := rec.Desc
	if sub >= d.Subresources() {
		return fmt.Errorf("%w: subresource %d of %d", api.ErrInvalidDesc, sub, d.Subresources())
	}
	level, _ := splitSubresource(d, sub)
	b, ok := resolveBox(d, level, box)
	if !ok {
		return fmt.Errorf("%w: box %+v outside subresource %d", api.ErrInvalidDesc, b, sub)
	}

	format := d.Texture.Format
	rowBytes := api.RowPitch(format, b.Width(), 1)
	rows := api.RowCount(format, b.Height())
	pitch := data.RowPitch
	if pitch == 0 {
		pitch = rowBytes
	}
	slice := data.SlicePitch
	if slice == 0 {
		slice = pitch * rows
	}
	if rowBytes == 0 || pitch < rowBytes || slice < pitch*rows {
		return fmt.Errorf("%w: row pitch %d, slice pitch %d for %d-byte rows", api.ErrInvalidDesc, pitch, slice, rowBytes)
	}
	need := uint64(slice)*uint64(b.Depth()-1) + uint64(pitch)*uint64(rows-1) + uint64(rowBytes)
	if uint64(len(data.Data)) < need {
		return fmt.Errorf("%w: %d bytes of texel data, need %d", api.ErrInvalidDesc, len(data.Data), need)
	}

	dst, size := copyTarget(rec, sub, b)
	err := c.queue.WriteTexture(dst, data.Data, &hal.ImageDataLayout{
		BytesPerRow:  pitch,
		RowsPerImage: slice / pitch,
	}, size)
	if err != nil {
		return c.halError("write texture", err)
	}

	// Keep the CPU copy in step so later read mappings observe the write.
	if rec.Staging != nil && rec.MapState() == registry.Unmapped {
		l := rec.Layout[sub]
		staged, err := c.mapBytes(rec.Staging, l.Offset, uint64(l.SlicePitch)*uint64(l.Depth))
		if err != nil {
			return err
		}
		copyRows(staged[boxOffset(rec, l, b):], l.RowPitch, l.SlicePitch,
			data.Data, pitch, slice, rowBytes, rows, b.Depth())
		if err := c.dev.UnmapBuffer(rec.Staging); err != nil {
			return c.halError("unmap staging buffer", err)
		}
	}
	return nil
}
