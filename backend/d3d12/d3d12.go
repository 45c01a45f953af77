// Package d3d12 provides the Direct3D 12 device flavor.
//
// Descriptor offsets are absolute within the device-wide descriptor heap,
// mapped texture rows are pitched to 256 bytes, shared resources are
// exported as process-local handles and swap chain back buffers are
// indexed by present count. Import the package for side effects to register the
// flavor:
//
//	import _ "github.com/gogpu/interpose/backend/d3d12"
package d3d12

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/backend"
	"github.com/gogpu/interpose/internal/device"
	"github.com/gogpu/interpose/internal/registry"
	"github.com/gogpu/interpose/internal/renderpass"
)

// TexturePitchAlignment is the row pitch alignment of texture data in
// buffers (D3D12_TEXTURE_DATA_PITCH_ALIGNMENT).
const TexturePitchAlignment = 256

// Sampler LOD bias range (D3D12_MIP_LOD_BIAS_MIN and _MAX).
const (
	minMipLODBias = -16
	maxMipLODBias = 15.99
)

func init() {
	backend.Register(Flavor{})
}

// Flavor creates D3D12-flavored devices.
type Flavor struct{}

// Name implements backend.Flavor.
func (Flavor) Name() string { return backend.FlavorD3D12 }

// API implements backend.Flavor.
func (Flavor) API() api.DeviceAPI { return api.DeviceAPID3D12 }

// Wrap implements backend.Flavor. Extension switches do not apply.
func (Flavor) Wrap(open hal.OpenDevice, adapter hal.ExposedAdapter, cfg backend.Config) (backend.Device, error) {
	return New(open, adapter, cfg.Owned, cfg.Options...)
}

// Device is a D3D12-flavored device.
type Device struct {
	*device.Core
	quirks *quirks
}

// New creates a device over open.
func New(open hal.OpenDevice, adapter hal.ExposedAdapter, owned bool, opts ...device.Option) (*Device, error) {
	q := &quirks{}
	core, err := device.New(open, adapter, q, owned, opts...)
	if err != nil {
		return nil, err
	}
	return &Device{Core: core, quirks: q}, nil
}

// NewSwapchain creates a swap chain presenting to surface. The back buffer
// index advances with every present and restarts at zero whenever the
// swap chain is reconfigured.
func (d *Device) NewSwapchain(surface hal.Surface, window gpucontext.WindowProvider, opts backend.SwapchainOptions) api.Swapchain {
	return d.Core.NewSwapchain(d, surface, window, device.SwapchainConfig{
		Format:         opts.Format,
		PresentMode:    opts.PresentMode,
		BufferCount:    opts.BufferCount,
		PresentIndexed: true,
	})
}

// OpenSharedHandle returns the description of the resource h was exported
// for, if it is still alive.
func (d *Device) OpenSharedHandle(h api.SharedHandle) (api.ResourceDesc, bool) {
	return shared.lookup(h)
}

type quirks struct {
	// mu guards exported, the live handles this device exported.
	mu       sync.Mutex
	exported []api.SharedHandle
}

func (q *quirks) API() api.DeviceAPI { return api.DeviceAPID3D12 }

func (q *quirks) Capability(c api.DeviceCaps) (bool, bool) {
	switch c {
	case api.CapSharedResource,
		api.CapDynamicRendering,
		api.CapPartialPushDescriptorUpdates:
		return true, true
	case api.CapExtendedDynamicState,
		api.CapSharedResourceNTHandle,
		api.CapSamplerCustomBorderColor:
		return false, true
	}
	return false, false
}

func (q *quirks) RowPitchAlignment(hal.Capabilities) uint32 { return TexturePitchAlignment }

func (q *quirks) AbsoluteDescriptorOffsets() bool { return true }

// RenderPass reports no class: D3D12 pipelines only record attachment
// formats.
func (q *quirks) RenderPass(renderpass.Key) (uint64, error) { return 0, nil }

func (q *quirks) ExportShared(res *registry.Resource) (api.SharedHandle, error) {
	h := shared.export(res.Desc)
	q.mu.Lock()
	q.exported = append(q.exported, h)
	q.mu.Unlock()
	return h, nil
}

func (q *quirks) ReleaseShared(h api.SharedHandle) {
	shared.revoke(h)
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.exported {
		if e == h {
			q.exported = append(q.exported[:i], q.exported[i+1:]...)
			return
		}
	}
}

func (q *quirks) ValidateSampler(desc api.SamplerDesc) error {
	if desc.MipLODBias < minMipLODBias || desc.MipLODBias > maxMipLODBias {
		return fmt.Errorf("%w: mip LOD bias %g", api.ErrInvalidDesc, desc.MipLODBias)
	}
	return nil
}

func (q *quirks) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, h := range q.exported {
		shared.revoke(h)
	}
	q.exported = nil
}

var _ backend.Device = (*Device)(nil)
