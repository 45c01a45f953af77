// Command interpose-info opens a device through interpose and prints the
// adapter, its capability matrix and texture format support.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/interpose"
	"github.com/gogpu/interpose/api"
)

var capNames = []struct {
	cap  api.DeviceCaps
	name string
}{
	{api.CapComputeShader, "compute shader"},
	{api.CapGeometryShader, "geometry shader"},
	{api.CapHullAndDomainShader, "hull and domain shader"},
	{api.CapLogicOp, "logic op"},
	{api.CapDualSourceBlend, "dual source blend"},
	{api.CapIndependentBlend, "independent blend"},
	{api.CapFillModeNonSolid, "non-solid fill"},
	{api.CapConservativeRasterization, "conservative rasterization"},
	{api.CapBindRenderTargetsAndDepthStencil, "bind render targets"},
	{api.CapMultiViewport, "multi viewport"},
	{api.CapPartialPushConstantUpdates, "partial push constants"},
	{api.CapPartialPushDescriptorUpdates, "partial push descriptors"},
	{api.CapDrawInstanced, "draw instanced"},
	{api.CapDrawOrDispatchIndirect, "indirect draw/dispatch"},
	{api.CapCopyBufferRegion, "copy buffer region"},
	{api.CapCopyBufferToTexture, "copy buffer to texture"},
	{api.CapBlit, "blit"},
	{api.CapResolveRegion, "resolve region"},
	{api.CapCopyQueryPoolResults, "copy query results"},
	{api.CapSamplerCompare, "comparison sampler"},
	{api.CapSamplerAnisotropic, "anisotropic sampler"},
	{api.CapSamplerCustomBorderColor, "custom border color"},
	{api.CapSharedResource, "shared resource"},
	{api.CapSharedResourceNTHandle, "shared NT handle"},
	{api.CapDynamicRendering, "dynamic rendering"},
	{api.CapExtendedDynamicState, "extended dynamic state"},
	{api.CapTimestampQuery, "timestamp query"},
	{api.CapPipelineStatisticsQuery, "pipeline statistics"},
}

var formats = []gputypes.TextureFormat{
	gputypes.TextureFormatR8Unorm,
	gputypes.TextureFormatRG8Unorm,
	gputypes.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatRGBA16Float,
	gputypes.TextureFormatRGBA32Float,
	gputypes.TextureFormatRGB10A2Unorm,
	gputypes.TextureFormatDepth32Float,
	gputypes.TextureFormatDepth24PlusStencil8,
}

var usages = []struct {
	usage api.ResourceUsage
	name  string
}{
	{api.UsageShaderResource, "SRV"},
	{api.UsageUnorderedAccess, "UAV"},
	{api.UsageRenderTarget, "RTV"},
	{api.UsageDepthStencil, "DSV"},
	{api.UsageResolveDest, "resolve"},
}

func main() {
	var (
		backendName = flag.String("backend", "", "HAL backend (vulkan, dx12, metal, gl, empty); empty is the software rasterizer")
		flavor      = flag.String("flavor", "", "device flavor (vulkan, d3d12)")
		configPath  = flag.String("config", "", "TOML config file")
		verbose     = flag.Bool("v", false, "log device lifecycle to stderr")
	)
	flag.Parse()

	if *verbose {
		interpose.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var opts []interpose.Option
	if *configPath != "" {
		cfg, err := interpose.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		if opts, err = cfg.Options(); err != nil {
			log.Fatal(err)
		}
	}
	if *backendName != "" {
		opts = append(opts, interpose.WithBackend(*backendName))
	}
	if *flavor != "" {
		opts = append(opts, interpose.WithFlavor(*flavor))
	}

	log.Printf("registered backends: %v", interpose.Backends())
	d, err := interpose.Open(opts...)
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	defer d.Destroy()

	if err := report(os.Stdout, d); err != nil {
		log.Fatal(err)
	}
}

func report(out io.Writer, d interpose.Device) error {
	info := d.Info()
	fmt.Fprintf(out, "Adapter:  %s (%s)\n", info.Name, info.Vendor)
	fmt.Fprintf(out, "Driver:   %s %s\n", info.Driver, info.DriverInfo)
	fmt.Fprintf(out, "Type:     %s\n", info.DeviceType)
	fmt.Fprintf(out, "Backend:  %s\n", info.Backend)
	fmt.Fprintf(out, "Device:   %s\n\n", d.API())

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CAPABILITY\tSUPPORTED")
	for _, c := range capNames {
		fmt.Fprintf(w, "%s\t%s\n", c.name, yesNo(d.CheckCapability(c.cap)))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	fmt.Fprint(w, "FORMAT")
	for _, u := range usages {
		fmt.Fprintf(w, "\t%s", u.name)
	}
	fmt.Fprintln(w)
	for _, f := range formats {
		fmt.Fprint(w, f)
		for _, u := range usages {
			fmt.Fprintf(w, "\t%s", yesNo(d.CheckFormatSupport(f, u.usage)))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
