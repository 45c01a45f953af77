package interpose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/backend"
	_ "github.com/gogpu/interpose/backend/d3d12" // registers the "d3d12" flavor
	_ "github.com/gogpu/interpose/backend/vulkan" // registers the "vulkan" flavor
)

// ErrUnknownBackend is returned when a backend name does not name a HAL
// backend.
var ErrUnknownBackend = errors.New("interpose: unknown backend")

// Device is an interposed device. See [backend.Device].
type Device = backend.Device

// backendPreference is the order Open tries registered HAL backends in
// when none is named.
var backendPreference = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendDX12,
	gputypes.BackendMetal,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// ParseBackend maps a backend name to its HAL variant. Names are case
// insensitive; "d3d12" and "empty" are accepted as aliases.
func ParseBackend(name string) (gputypes.Backend, error) {
	switch strings.ToLower(name) {
	case "vulkan", "vk":
		return gputypes.BackendVulkan, nil
	case "dx12", "d3d12":
		return gputypes.BackendDX12, nil
	case "metal":
		return gputypes.BackendMetal, nil
	case "gl", "gles", "opengl":
		return gputypes.BackendGL, nil
	case "noop", "empty":
		return gputypes.BackendEmpty, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Open creates a device on a registered HAL backend. Without WithBackend
// it picks the first registered of Vulkan, DX12, Metal, GL and the noop
// backend, in that order.
//
// HAL backends register themselves on import:
//
//	import _ "github.com/gogpu/wgpu/hal/allbackends"
func Open(opts ...Option) (Device, error) {
	o := collect(opts)

	variant, err := o.variant()
	if err != nil {
		return nil, err
	}
	d, err := backend.Open(variant, o.flavor, o.config())
	if err != nil {
		return nil, fmt.Errorf("interpose: %w", err)
	}
	return d, nil
}

// Wrap interposes on a HAL device the caller opened. The caller keeps
// ownership of open: Destroy on the returned device releases only what
// interpose created.
//
// WithBackend is ignored; the flavor follows adapter's backend unless
// WithFlavor names one.
func Wrap(open hal.OpenDevice, adapter hal.ExposedAdapter, opts ...Option) (Device, error) {
	o := collect(opts)
	flavor := o.flavor
	if flavor == "" {
		f := backend.ForBackend(adapter.Info.Backend)
		if f == nil {
			return nil, fmt.Errorf("interpose: %w", backend.ErrBackendNotAvailable)
		}
		flavor = f.Name()
	}
	d, err := backend.Wrap(flavor, open, adapter, o.config())
	if err != nil {
		return nil, fmt.Errorf("interpose: %w", err)
	}
	return d, nil
}

// Backends returns the names of the registered HAL backends in Open's
// preference order.
func Backends() []string {
	var names []string
	for _, b := range backendPreference {
		if _, ok := hal.GetBackend(b); ok {
			names = append(names, backendName(b))
		}
	}
	return names
}

func backendName(b gputypes.Backend) string {
	switch b {
	case gputypes.BackendVulkan:
		return "vulkan"
	case gputypes.BackendDX12:
		return "dx12"
	case gputypes.BackendMetal:
		return "metal"
	case gputypes.BackendGL:
		return "gl"
	case gputypes.BackendEmpty:
		return "noop"
	}
	return b.String()
}

func (o *options) variant() (gputypes.Backend, error) {
	if o.backend != "" {
		return ParseBackend(o.backend)
	}
	for _, b := range backendPreference {
		if _, ok := hal.GetBackend(b); ok {
			return b, nil
		}
	}
	return 0, fmt.Errorf("interpose: %w: no HAL backend registered", backend.ErrBackendNotAvailable)
}

func (o *options) config() backend.Config {
	return backend.Config{
		Options:    o.core,
		Extensions: o.extensions,
	}
}
