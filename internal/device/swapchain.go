package device

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/privdata"
	"github.com/gogpu/interpose/internal/registry"
)

// DefaultBackBufferCount is the back buffer count of a swap chain
// configured without one.
const DefaultBackBufferCount = 3

// SwapchainConfig configures the surface behind a Swapchain. Zero fields
// take defaults.
type SwapchainConfig struct {
	Format      gputypes.TextureFormat
	PresentMode gputypes.PresentMode
	AlphaMode   gputypes.CompositeAlphaMode
	BufferCount uint32

	// PresentIndexed advances the back buffer index once per present and
	// restarts it at zero on every OnInit. Otherwise the index advances once
	// per acquired back buffer.
	PresentIndexed bool
}

func (cfg SwapchainConfig) withDefaults() SwapchainConfig {
	if cfg.Format == gputypes.TextureFormatUndefined {
		cfg.Format = gputypes.TextureFormatBGRA8Unorm
	}
	if cfg.PresentMode == 0 {
		cfg.PresentMode = hal.PresentModeFifo
	}
	if cfg.AlphaMode == 0 {
		cfg.AlphaMode = hal.CompositeAlphaModeOpaque
	}
	if cfg.BufferCount == 0 {
		cfg.BufferCount = DefaultBackBufferCount
	}
	return cfg
}

// backBuffer is the stable resource of one back buffer index. Its native
// texture is bound while the index is acquired and nil otherwise.
type backBuffer struct {
	handle api.Resource
	rec    *registry.Resource
	native *nativeTexture
}

func (b *backBuffer) bind(tex hal.Texture) {
	b.rec.Texture = tex
	b.native.Texture = tex
}

// Swapchain exposes the back buffers of a surface as resources of its
// device. Every index has a resource for the lifetime of the configuration;
// only the current one is backed by a surface texture, so views of a back
// buffer must be created after it is acquired and destroyed before the
// next present.
type Swapchain struct {
	core    *Core
	owner   api.Device
	surface hal.Surface
	window  gpucontext.WindowProvider
	cfg     SwapchainConfig
	priv    privdata.List

	mu            sync.Mutex
	configured    bool
	width, height uint32
	texture       hal.SurfaceTexture
	buffers       []backBuffer
	index         uint32
	acquires      uint64
	presents      uint64
}

// NewSwapchain creates a swap chain over surface, sized from window. owner
// is the device reported by Device. The surface is configured by OnInit.
func (c *Core) NewSwapchain(owner api.Device, surface hal.Surface, window gpucontext.WindowProvider, cfg SwapchainConfig) *Swapchain {
	return &Swapchain{
		core:    c,
		owner:   owner,
		surface: surface,
		window:  window,
		cfg:     cfg.withDefaults(),
	}
}

// Device returns the device the swap chain presents from.
func (s *Swapchain) Device() api.Device { return s.owner }

// GetPrivateData returns the value stored under guid, or zero.
func (s *Swapchain) GetPrivateData(guid api.GUID) uint64 { return s.priv.Get(guid) }

// SetPrivateData stores value under guid; zero removes it.
func (s *Swapchain) SetPrivateData(guid api.GUID, value uint64) { s.priv.Set(guid, value) }

// GetBackBufferCount returns the number of back buffers.
func (s *Swapchain) GetBackBufferCount() uint32 { return s.cfg.BufferCount }

// GetCurrentBackBufferIndex returns the index of the back buffer being
// rendered.
func (s *Swapchain) GetCurrentBackBufferIndex() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// GetBackBuffer returns the resource of back buffer index. The handle is
// stable from OnInit to OnReset. It is null before OnInit and for indices
// past GetBackBufferCount.
func (s *Swapchain) GetBackBuffer(index uint32) api.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(index) >= len(s.buffers) {
		return api.NullHandle
	}
	return s.buffers[index].handle
}

// Size returns the configured size in pixels.
func (s *Swapchain) Size() (width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// OnInit configures the surface at the window's pixel size, registers a
// resource per back buffer and acquires the first one.
func (s *Swapchain) OnInit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.init()
}

func (s *Swapchain) init() error {
	if err := s.core.alive(); err != nil {
		return err
	}
	w, h := s.window.Size()
	scale := s.window.ScaleFactor()
	width := uint32(max(0, math.Round(float64(w)*scale)))
	height := uint32(max(0, math.Round(float64(h)*scale)))
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: window size %dx%d", api.ErrInvalidDesc, w, h)
	}

	err := s.surface.Configure(s.core.dev, &hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      s.cfg.Format,
		Usage:       gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
		PresentMode: s.cfg.PresentMode,
		AlphaMode:   s.cfg.AlphaMode,
	})
	if err != nil {
		return s.core.halError("configure surface", err)
	}
	s.configured = true
	s.width, s.height = width, height
	s.core.surfaceFormat.Store(uint32(s.cfg.Format))
	if s.cfg.PresentIndexed {
		s.presents = 0
	}
	desc := s.backBufferDesc()
	s.buffers = make([]backBuffer, s.cfg.BufferCount)
	for i := range s.buffers {
		b := &s.buffers[i]
		b.handle, b.rec, b.native = s.core.adoptSlot(desc, api.UsagePresent)
	}
	slogger().Info("device: swapchain configured",
		"width", width, "height", height, "format", s.cfg.Format, "buffers", s.cfg.BufferCount)
	return s.acquire()
}

func (s *Swapchain) acquire() error {
	at, err := s.surface.AcquireTexture(nil)
	if err != nil {
		return s.core.halError("acquire surface texture", err)
	}
	if at.Suboptimal {
		slogger().Debug("device: suboptimal back buffer", "width", s.width, "height", s.height)
	}
	if s.cfg.PresentIndexed {
		s.index = uint32(s.presents % uint64(s.cfg.BufferCount))
	} else {
		s.index = uint32(s.acquires % uint64(s.cfg.BufferCount))
	}
	s.acquires++
	s.texture = at.Texture
	s.buffers[s.index].bind(at.Texture)
	return nil
}

func (s *Swapchain) backBufferDesc() api.ResourceDesc {
	return api.ResourceDesc{
		Type: api.ResourceTypeSurface,
		Texture: api.TextureDesc{
			Width:         s.width,
			Height:        s.height,
			DepthOrLayers: 1,
			Levels:        1,
			Format:        s.cfg.Format,
			Samples:       1,
		},
		Heap:  api.HeapGPUOnly,
		Usage: api.UsageRenderTarget | api.UsagePresent | api.UsageCopy,
	}
}

// unbind detaches the surface texture from the current back buffer.
func (s *Swapchain) unbind() {
	if s.texture == nil {
		return
	}
	s.buffers[s.index].bind(nil)
	s.texture = nil
}

// OnReset discards the current back buffer, unregisters every back buffer
// and unconfigures the surface. Views of the back buffers must already be
// destroyed.
func (s *Swapchain) OnReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Swapchain) reset() {
	if s.texture != nil {
		s.surface.DiscardTexture(s.texture)
	}
	s.unbind()
	for _, b := range s.buffers {
		s.core.DestroyResource(b.handle)
	}
	s.buffers = nil
	if s.configured {
		s.surface.Unconfigure(s.core.dev)
		s.configured = false
	}
}

// OnPresent presents the current back buffer, rotates the device's
// transient descriptor pool and acquires the next back buffer. An
// outdated surface is reconfigured at the window's current size, which
// replaces every back buffer handle.
func (s *Swapchain) OnPresent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.texture == nil {
		return fmt.Errorf("%w: no back buffer acquired", api.ErrNotReady)
	}

	err := s.core.queue.Present(s.surface, s.texture, nil)
	s.unbind()
	s.core.AdvanceTransientDescriptorPool()
	if err == nil {
		s.presents++
		err = s.acquire()
	} else {
		err = s.core.halError("present", err)
	}
	if errors.Is(err, hal.ErrSurfaceOutdated) {
		slogger().Info("device: swapchain outdated, reconfiguring")
		s.reset()
		return s.init()
	}
	return err
}

// Destroy releases the back buffers and unconfigures the surface. The
// surface itself stays owned by the caller.
func (s *Swapchain) Destroy() {
	s.priv.AssertEmpty("swapchain")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}
