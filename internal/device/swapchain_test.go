package device

import (
	"image"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/interpose/api"
)

// outdatedQueue fails the next present with an outdated surface.
type outdatedQueue struct {
	hal.Queue
	outdated bool
	presents int
}

func (q *outdatedQueue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	q.presents++
	if q.outdated {
		q.outdated = false
		return hal.ErrSurfaceOutdated
	}
	return q.Queue.Present(s, t, damage)
}

func TestSwapchainLifecycle(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	window := gpucontext.NullWindowProvider{W: 400, H: 300, SF: 2}
	sc := c.NewSwapchain(nil, &noop.Surface{}, window, SwapchainConfig{})
	require.NoError(t, sc.OnInit())

	assert.Equal(t, uint32(DefaultBackBufferCount), sc.GetBackBufferCount())
	assert.Equal(t, gputypes.TextureFormatBGRA8Unorm, c.SurfaceFormat())
	w, h := sc.Size()
	assert.Equal(t, [2]uint32{800, 600}, [2]uint32{w, h})

	bb := sc.GetBackBuffer(0)
	require.False(t, bb.IsNull())
	desc := c.GetResourceDesc(bb)
	assert.Equal(t, api.ResourceTypeSurface, desc.Type)
	assert.Equal(t, uint32(800), desc.Texture.Width)
	handles := make([]api.Resource, DefaultBackBufferCount)
	for i := range handles {
		handles[i] = sc.GetBackBuffer(uint32(i))
		require.False(t, handles[i].IsNull(), "back buffer %d", i)
	}
	assert.True(t, sc.GetBackBuffer(DefaultBackBufferCount).IsNull())

	rtv, err := c.CreateResourceView(bb, api.UsageRenderTarget, api.ResourceViewDesc{})
	require.NoError(t, err)
	c.DestroyResourceView(rtv)
	_, err = c.CreateResourceView(handles[1], api.UsageRenderTarget, api.ResourceViewDesc{})
	assert.ErrorIs(t, err, api.ErrNotReady, "back buffer 1 is not acquired yet")

	before := c.sets.Rotations()
	for frame := 1; frame <= 4; frame++ {
		require.NoError(t, sc.OnPresent())
		cur := sc.GetCurrentBackBufferIndex()
		assert.Equal(t, uint32(frame%DefaultBackBufferCount), cur)
		for i, h := range handles {
			assert.Equal(t, h, sc.GetBackBuffer(uint32(i)), "handle of back buffer %d is stable", i)
		}
		rtv, err := c.CreateResourceView(handles[cur], api.UsageRenderTarget, api.ResourceViewDesc{})
		require.NoError(t, err)
		c.DestroyResourceView(rtv)
	}
	assert.Equal(t, before+4, c.sets.Rotations(), "one pool rotation per present")
	assert.Equal(t, DefaultBackBufferCount, c.registry.ResourceCount(true), "one resource per back buffer")

	sc.OnReset()
	assert.Zero(t, c.registry.ResourceCount(true))
	require.NoError(t, sc.OnInit())
	assert.Equal(t, uint32(5%DefaultBackBufferCount), sc.GetCurrentBackBufferIndex(),
		"acquire-indexed chains keep counting across reconfiguration")
	sc.Destroy()
	assert.Zero(t, c.registry.ResourceCount(true))
}

func TestSwapchainPresentIndexed(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	sc := c.NewSwapchain(nil, &noop.Surface{}, gpucontext.NullWindowProvider{W: 64, H: 64},
		SwapchainConfig{BufferCount: 2, PresentIndexed: true})
	defer sc.Destroy()
	require.NoError(t, sc.OnInit())

	require.NoError(t, sc.OnPresent())
	assert.Equal(t, uint32(1), sc.GetCurrentBackBufferIndex())

	sc.OnReset()
	require.NoError(t, sc.OnInit())
	assert.Zero(t, sc.GetCurrentBackBufferIndex(), "reconfiguration restarts at the first buffer")
}

func TestSwapchainOutdatedReconfigures(t *testing.T) {
	open, adapter := noopAdapter(t)
	queue := &outdatedQueue{Queue: open.Queue}
	open.Queue = queue
	c := newCoreOver(t, open, adapter, nil)
	defer c.Destroy()

	window := &gpucontext.NullWindowProvider{W: 100, H: 100}
	sc := c.NewSwapchain(nil, &noop.Surface{}, window, SwapchainConfig{})
	defer sc.Destroy()
	require.NoError(t, sc.OnInit())

	window.W = 200
	queue.outdated = true
	require.NoError(t, sc.OnPresent())
	w, _ := sc.Size()
	assert.Equal(t, uint32(200), w)
	assert.False(t, sc.GetBackBuffer(sc.GetCurrentBackBufferIndex()).IsNull())
	assert.Equal(t, 1, queue.presents)
}

func TestSwapchainErrors(t *testing.T) {
	c := newTestCore(t, nil)
	defer c.Destroy()

	sc := c.NewSwapchain(nil, &noop.Surface{}, gpucontext.NullWindowProvider{}, SwapchainConfig{})
	assert.ErrorIs(t, sc.OnInit(), api.ErrInvalidDesc, "zero-sized window")
	assert.ErrorIs(t, sc.OnPresent(), api.ErrNotReady, "present before init")

	sc.SetPrivateData(api.GUID{9}, 1)
	assert.Panics(t, sc.Destroy)
	sc.SetPrivateData(api.GUID{9}, 0)
	sc.Destroy()
}
