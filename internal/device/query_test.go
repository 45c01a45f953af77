package device

import (
	"testing"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/interpose/api"
)

// queryDevice hands out query sets the noop backend refuses to create.
type queryDevice struct {
	hal.Device
}

func (queryDevice) CreateQuerySet(*hal.QuerySetDescriptor) (hal.QuerySet, error) {
	return &noop.Resource{}, nil
}

// lagQueue reports no submission as complete until caught up.
type lagQueue struct {
	hal.Queue
	done uint64
}

func (q *lagQueue) PollCompleted() uint64 { return q.done }

func TestQueryPoolUnsupportedOnNoop(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	_, err := c.CreateQueryPool(api.QueryOcclusion, 8)
	assert.ErrorIs(t, err, api.ErrUnsupported)
	_, err = c.CreateQueryPool(api.QueryTimestamp, 8)
	assert.ErrorIs(t, err, api.ErrUnsupported, "timestamps without the feature")
	_, err = c.CreateQueryPool(api.QueryPipelineStatistics, 8)
	assert.ErrorIs(t, err, api.ErrUnsupported)
	_, err = c.CreateQueryPool(api.QueryOcclusion, 0)
	assert.ErrorIs(t, err, api.ErrInvalidDesc)
}

func TestQueryPoolResults(t *testing.T) {
	open, adapter := noopAdapter(t)
	open.Device = queryDevice{open.Device}
	queue := &lagQueue{Queue: open.Queue}
	open.Queue = queue
	c := newCoreOver(t, open, adapter, &testQuirks{caps: map[api.DeviceCaps]bool{api.CapTimestampQuery: true}})
	defer c.Destroy()

	q, err := c.CreateQueryPool(api.QueryTimestamp, 4)
	require.NoError(t, err)
	defer c.DestroyQueryPool(q)

	results := []uint64{7, 7, 7}
	err = c.GetQueryPoolResults(q, 1, 3, results, false)
	require.ErrorIs(t, err, api.ErrNotReady)
	assert.Equal(t, []uint64{7, 7, 7}, results)

	queue.done = queue.Queue.PollCompleted()
	require.NoError(t, c.GetQueryPoolResults(q, 1, 3, results, false))
	assert.Equal(t, []uint64{0, 0, 0}, results)

	results[0] = 7
	queue.done = 0
	require.NoError(t, c.GetQueryPoolResults(q, 0, 1, results, true))
	assert.Zero(t, results[0])

	assert.ErrorIs(t, c.GetQueryPoolResults(q, 2, 3, results, true), api.ErrInvalidDesc)
	assert.ErrorIs(t, c.GetQueryPoolResults(q, 0, 4, results, true), api.ErrInvalidDesc, "short result slice")
}
