// Package device implements the backend-neutral device and swap chain
// wrappers over a HAL device.
//
// A Core owns every object created through it: it registers each one in an
// identity table so handles and tagged native objects resolve back to their
// records, carves descriptor sets out of its allocator, and charges
// allocations against its memory budget. Backend flavors embed a Core and
// supply a Quirks implementation for the behavior that differs between
// them.
package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/descriptor"
	"github.com/gogpu/interpose/internal/identity"
	"github.com/gogpu/interpose/internal/memory"
	"github.com/gogpu/interpose/internal/privdata"
	"github.com/gogpu/interpose/internal/registry"
	"github.com/gogpu/interpose/internal/shadercache"
)

// Core is the backend-agnostic part of a device.
type Core struct {
	quirks  Quirks
	dev     hal.Device
	queue   hal.Queue
	adapter hal.ExposedAdapter
	opts    options
	owned   bool

	table    *identity.Table
	registry *registry.Registry
	sets     *descriptor.Allocator
	budget   *memory.Budget
	shaders  *shadercache.Cache
	priv     privdata.List

	// submitMu guards pending.
	submitMu sync.Mutex
	pending  []submission

	surfaceFormat atomic.Uint32
	lost          atomic.Bool
}

// submission is command recording kept alive until the GPU completes it.
type submission struct {
	index   uint64
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
}

// New creates a Core over an open HAL device. When owned is true, Destroy
// also destroys the HAL device.
func New(open hal.OpenDevice, adapter hal.ExposedAdapter, quirks Quirks, owned bool, opts ...Option) (*Core, error) {
	if open.Device == nil || open.Queue == nil {
		return nil, fmt.Errorf("%w: HAL device and queue are required", api.ErrInvalidDesc)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	table, err := identity.NewTable()
	if err != nil {
		return nil, err
	}

	c := &Core{
		quirks:   quirks,
		dev:      open.Device,
		queue:    open.Queue,
		adapter:  adapter,
		opts:     o,
		owned:    owned,
		table:    table,
		registry: registry.New(table),
		budget:   memory.New(o.memory),
		shaders: shadercache.New(o.shaderCacheSize,
			shadercache.WithValidation(o.validateShaders)),
	}
	c.sets = descriptor.New(o.descriptors, open.Device.DestroyBindGroup)

	slogger().Info("device: created",
		"api", quirks.API(),
		"adapter", adapter.Info.Name,
		"backend", adapter.Info.Backend,
		"transient_pools", c.sets.TransientPools())
	return c, nil
}

// API returns the device's API flavor.
func (c *Core) API() api.DeviceAPI { return c.quirks.API() }

// NativeDevice returns the HAL device.
func (c *Core) NativeDevice() hal.Device { return c.dev }

// NativeQueue returns the HAL queue the device submits on.
func (c *Core) NativeQueue() hal.Queue { return c.queue }

// Features returns the feature set recorded at creation.
func (c *Core) Features() gputypes.Features { return c.adapter.Features }

// Limits returns the adapter limits.
func (c *Core) Limits() gputypes.Limits { return c.adapter.Capabilities.Limits }

// MemoryStats returns the allocation budget usage.
func (c *Core) MemoryStats() memory.Stats { return c.budget.Stats() }

// Device implements gpucontext.DeviceProvider.
func (c *Core) Device() gpucontext.Device { return c.dev }

// Queue implements gpucontext.DeviceProvider.
func (c *Core) Queue() gpucontext.Queue { return c.queue }

// Adapter implements gpucontext.DeviceProvider.
func (c *Core) Adapter() gpucontext.Adapter { return c.adapter.Adapter }

// SurfaceFormat implements gpucontext.DeviceProvider. It is the back
// buffer format of the last configured swap chain.
func (c *Core) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormat(c.surfaceFormat.Load())
}

// AdapterInfo implements gpucontext.DeviceProvider.
func (c *Core) AdapterInfo() gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch c.adapter.Info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: c.adapter.Info.Name, Type: t}
}

// Info returns the full description of the adapter the device runs on.
func (c *Core) Info() gputypes.AdapterInfo { return c.adapter.Info }

// GetPrivateData returns the value stored under guid.
func (c *Core) GetPrivateData(guid api.GUID) uint64 { return c.priv.Get(guid) }

// SetPrivateData stores value under guid; zero removes it.
func (c *Core) SetPrivateData(guid api.GUID, value uint64) { c.priv.Set(guid, value) }

// Lost reports whether the device has been lost.
func (c *Core) Lost() bool { return c.lost.Load() }

// alive fails fast once the device is lost.
func (c *Core) alive() error {
	if c.lost.Load() {
		return api.ErrDeviceLost
	}
	return nil
}

// halError maps a HAL failure onto the error taxonomy, latching device
// loss.
func (c *Core) halError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hal.ErrDeviceLost):
		if !c.lost.Swap(true) {
			slogger().Warn("device: lost", "op", op)
		}
		return fmt.Errorf("%s: %w", op, api.ErrDeviceLost)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("%s: %w", op, api.ErrOutOfMemory)
	case errors.Is(err, hal.ErrTimestampsNotSupported):
		return fmt.Errorf("%s: %w", op, api.ErrUnsupported)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// submit records commands with encode and submits them. The recording is
// released once the GPU reports it complete.
func (c *Core) submit(label string, encode func(hal.CommandEncoder)) (uint64, error) {
	enc, err := c.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return 0, c.halError("create command encoder", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.Destroy()
		return 0, c.halError("begin encoding", err)
	}
	encode(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.Destroy()
		return 0, c.halError("end encoding", err)
	}

	c.submitMu.Lock()
	idx, err := c.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		c.submitMu.Unlock()
		c.dev.FreeCommandBuffer(cmd)
		enc.Destroy()
		return 0, c.halError("submit", err)
	}
	c.pending = append(c.pending, submission{index: idx, encoder: enc, cmd: cmd})
	c.submitMu.Unlock()

	if c.opts.waitForIdle {
		if err := c.WaitIdle(); err != nil {
			return idx, err
		}
	}
	c.reclaim()
	return idx, nil
}

// reclaim releases recordings the GPU has finished with.
func (c *Core) reclaim() {
	done := c.queue.PollCompleted()
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	n := 0
	for _, s := range c.pending {
		if s.index > done {
			c.pending[n] = s
			n++
			continue
		}
		c.dev.FreeCommandBuffer(s.cmd)
		s.encoder.Destroy()
	}
	clear(c.pending[n:])
	c.pending = c.pending[:n]
}

// WaitIdle blocks until the GPU has finished all submitted work.
func (c *Core) WaitIdle() error {
	if err := c.dev.WaitIdle(); err != nil {
		return c.halError("wait idle", err)
	}
	c.reclaim()
	return nil
}

// Destroy releases the device. It panics if any object created through the
// device is still alive or private data remains.
func (c *Core) Destroy() {
	if n := c.table.Len(); n != 0 {
		panic(fmt.Sprintf("device: destroyed with %d live objects (%d resources, %d views)",
			n, c.registry.ResourceCount(true), c.registry.ViewCount()))
	}
	if n := c.sets.Live(); n != 0 {
		panic(fmt.Sprintf("device: destroyed with %d live descriptor sets", n))
	}
	c.priv.AssertEmpty("device")

	if err := c.dev.WaitIdle(); err != nil {
		slogger().Warn("device: wait idle on destroy", "err", err)
	}
	c.reclaim()
	c.sets.Close()
	c.quirks.Close()
	c.shaders.Clear()
	c.budget.Close()
	c.table.Close()
	if c.owned {
		c.dev.Destroy()
	}
	slogger().Info("device: destroyed", "api", c.quirks.API())
}
