package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/interpose"
	"github.com/gogpu/interpose/backend/vulkan"
	"github.com/gogpu/interpose/internal/device"
)

func TestReport(t *testing.T) {
	inst, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Destroy()
	adapter := inst.EnumerateAdapters(nil)[0]
	open, err := adapter.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	d, err := vulkan.New(open, adapter, vulkan.Extensions{PushDescriptors: true}, true,
		device.WithShaderValidation(false))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Destroy()

	var buf bytes.Buffer
	if err := report(&buf, interpose.Device(d)); err != nil {
		t.Fatalf("report() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Noop Adapter", "custom border color", "RGBA8Unorm", "FORMAT"} {
		if !strings.Contains(out, want) {
			t.Errorf("report() output lacks %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got < len(capNames)+len(formats) {
		t.Errorf("report() wrote %d lines, want at least %d", got, len(capNames)+len(formats))
	}
}
