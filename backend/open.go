package backend

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// adapterRank orders device types from most to least preferred.
var adapterRank = map[gputypes.DeviceType]int{
	gputypes.DeviceTypeDiscreteGPU:   0,
	gputypes.DeviceTypeIntegratedGPU: 1,
	gputypes.DeviceTypeVirtualGPU:    2,
	gputypes.DeviceTypeCPU:           3,
	gputypes.DeviceTypeOther:         4,
}

// Open creates an instance of HAL backend variant, opens its preferred
// adapter with every feature the adapter exposes and wraps the device in
// flavor. An empty flavor picks the flavor matching variant.
//
// The returned device owns the HAL instance and device: Destroy releases
// both.
func Open(variant gputypes.Backend, flavor string, cfg Config) (Device, error) {
	hb, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%w: HAL backend %s", ErrBackendNotAvailable, variant)
	}
	f := ForBackend(variant)
	if flavor != "" {
		f = Get(flavor)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: flavor %q", ErrBackendNotAvailable, flavor)
	}

	inst, err := hb.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.Backends(1) << variant,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: create %s instance: %w", variant, err)
	}
	adapter, err := pickAdapter(inst.EnumerateAdapters(nil))
	if err != nil {
		inst.Destroy()
		return nil, fmt.Errorf("%s: %w", variant, err)
	}
	open, err := adapter.Adapter.Open(adapter.Features, adapter.Capabilities.Limits)
	if err != nil {
		inst.Destroy()
		return nil, fmt.Errorf("backend: open %q: %w", adapter.Info.Name, err)
	}

	cfg.Owned = true
	d, err := f.Wrap(open, adapter, cfg)
	if err != nil {
		open.Device.Destroy()
		inst.Destroy()
		return nil, err
	}
	slogger().Info("backend: device opened",
		"flavor", f.Name(), "backend", variant, "adapter", adapter.Info.Name)
	return &instanceDevice{flavorDevice: d, instance: inst}, nil
}

// Wrap wraps a HAL device opened by the caller in the named flavor. The
// caller keeps ownership of the HAL device unless cfg.Owned is set.
func Wrap(flavor string, open hal.OpenDevice, adapter hal.ExposedAdapter, cfg Config) (Device, error) {
	f := Get(flavor)
	if f == nil {
		return nil, fmt.Errorf("%w: flavor %q", ErrBackendNotAvailable, flavor)
	}
	return f.Wrap(open, adapter, cfg)
}

func pickAdapter(adapters []hal.ExposedAdapter) (hal.ExposedAdapter, error) {
	if len(adapters) == 0 {
		return hal.ExposedAdapter{}, ErrNoAdapter
	}
	rank := func(a hal.ExposedAdapter) int {
		if r, ok := adapterRank[a.Info.DeviceType]; ok {
			return r
		}
		return len(adapterRank)
	}
	return slices.MinFunc(adapters, func(a, b hal.ExposedAdapter) int {
		return cmp.Compare(rank(a), rank(b))
	}), nil
}

// flavorDevice lets instanceDevice embed a Device without the field name
// shadowing the Device method of gpucontext.DeviceProvider.
type flavorDevice = Device

// instanceDevice releases the HAL instance Open created after the device.
type instanceDevice struct {
	flavorDevice
	instance hal.Instance
}

func (d *instanceDevice) Destroy() {
	d.flavorDevice.Destroy()
	d.instance.Destroy()
}

var _ Device = (*instanceDevice)(nil)
