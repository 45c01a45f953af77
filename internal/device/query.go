package device

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/identity"
)

const queryResultSize = 8

type nativeQuerySet struct {
	hal.QuerySet
	identity.Storage
}

// queryPoolRecord holds a query set and the buffers its results are
// resolved through.
type queryPoolRecord struct {
	typ  api.QueryType
	size uint32
	set  hal.QuerySet

	resolve  hal.Buffer
	readback hal.Buffer

	mu sync.Mutex
	// pending is the submission index of an unread resolve, or zero.
	pending      uint64
	first, count uint32
}

func halQueryType(t api.QueryType) (hal.QueryType, error) {
	switch t {
	case api.QueryOcclusion, api.QueryBinaryOcclusion:
		return hal.QueryTypeOcclusion, nil
	case api.QueryTimestamp:
		return hal.QueryTypeTimestamp, nil
	case api.QueryPipelineStatistics:
		return 0, fmt.Errorf("%w: %s queries", api.ErrUnsupported, t)
	}
	return 0, fmt.Errorf("%w: query type %d", api.ErrInvalidDesc, t)
}

// CreateQueryPool creates a pool of size queries of type t.
func (c *Core) CreateQueryPool(t api.QueryType, size uint32) (api.QueryPool, error) {
	if err := c.alive(); err != nil {
		return api.NullHandle, err
	}
	if size == 0 {
		return api.NullHandle, fmt.Errorf("%w: empty query pool", api.ErrInvalidDesc)
	}
	ht, err := halQueryType(t)
	if err != nil {
		return api.NullHandle, err
	}
	if t == api.QueryTimestamp && !c.CheckCapability(api.CapTimestampQuery) {
		return api.NullHandle, fmt.Errorf("%w: %s queries", api.ErrUnsupported, t)
	}

	set, err := c.dev.CreateQuerySet(&hal.QuerySetDescriptor{Type: ht, Count: size})
	if err != nil {
		return api.NullHandle, c.halError("create query set", err)
	}
	rec := &queryPoolRecord{typ: t, size: size, set: set}
	bytes := uint64(size) * queryResultSize
	rec.resolve, err = c.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "interpose query resolve",
		Size:  bytes,
		Usage: gputypes.BufferUsageQueryResolve | gputypes.BufferUsageCopySrc,
	})
	if err == nil {
		rec.readback, err = c.dev.CreateBuffer(&hal.BufferDescriptor{
			Label: "interpose query readback",
			Size:  bytes,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
	}
	if err != nil {
		c.releaseQueryPool(rec)
		return api.NullHandle, c.halError("create query buffer", err)
	}

	key := c.table.Register(identity.KindQueryPool, &nativeQuerySet{QuerySet: set}, rec)
	slogger().Debug("device: query pool created", "handle", uint64(key), "type", t, "size", size)
	return api.QueryPool(key), nil
}

func (c *Core) releaseQueryPool(rec *queryPoolRecord) {
	if rec.readback != nil {
		c.dev.DestroyBuffer(rec.readback)
	}
	if rec.resolve != nil {
		c.dev.DestroyBuffer(rec.resolve)
	}
	c.dev.DestroyQuerySet(rec.set)
}

// DestroyQueryPool destroys a query pool. Null handles are ignored.
func (c *Core) DestroyQueryPool(q api.QueryPool) {
	if q.IsNull() {
		return
	}
	rec := c.table.UnregisterKey(identity.KindQueryPool, identity.Key(q)).(*queryPoolRecord)
	c.releaseQueryPool(rec)
}

// GetQueryPoolResults copies count results starting at first into results.
// Without wait it returns api.ErrNotReady while the GPU has not produced
// them; a later call with the same range picks up the same resolve.
// Binary occlusion results are 0 or 1.
func (c *Core) GetQueryPoolResults(q api.QueryPool, first, count uint32, results []uint64, wait bool) error {
	if err := c.alive(); err != nil {
		return err
	}
	rec := identity.ResolveAs[*queryPoolRecord](c.table, identity.KindQueryPool, identity.Key(q))
	if count == 0 || first >= rec.size || count > rec.size-first {
		return fmt.Errorf("%w: queries %d+%d outside pool of %d", api.ErrInvalidDesc, first, count, rec.size)
	}
	if len(results) < int(count) {
		return fmt.Errorf("%w: %d result slots for %d queries", api.ErrInvalidDesc, len(results), count)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.pending == 0 || rec.first != first || rec.count != count {
		offset := uint64(first) * queryResultSize
		size := uint64(count) * queryResultSize
		idx, err := c.submit("interpose query resolve", func(enc hal.CommandEncoder) {
			enc.ResolveQuerySet(rec.set, first, count, rec.resolve, offset)
			enc.CopyBufferToBuffer(rec.resolve, rec.readback, []hal.BufferCopy{{
				SrcOffset: offset,
				DstOffset: offset,
				Size:      size,
			}})
		})
		if err != nil {
			return err
		}
		rec.pending, rec.first, rec.count = idx, first, count
	}

	if c.queue.PollCompleted() < rec.pending {
		if !wait {
			return api.ErrNotReady
		}
		if err := c.WaitIdle(); err != nil {
			return err
		}
	}

	data, err := c.mapBytes(rec.readback, uint64(first)*queryResultSize, uint64(count)*queryResultSize)
	if err != nil {
		return err
	}
	for i := range count {
		v := binary.LittleEndian.Uint64(data[i*queryResultSize:])
		if rec.typ == api.QueryBinaryOcclusion && v != 0 {
			v = 1
		}
		results[i] = v
	}
	if err := c.dev.UnmapBuffer(rec.readback); err != nil {
		return c.halError("unmap query readback", err)
	}
	rec.pending = 0
	return nil
}
