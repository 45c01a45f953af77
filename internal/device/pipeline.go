package device

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/interpose/api"
	"github.com/gogpu/interpose/internal/identity"
	"github.com/gogpu/interpose/internal/renderpass"
	"github.com/gogpu/interpose/internal/shadercache"
)

type nativePipeline struct {
	identity.Storage
}

// pipelineRecord is the record of a render or compute pipeline.
type pipelineRecord struct {
	layout     api.PipelineLayout
	render     hal.RenderPipeline
	compute    hal.ComputePipeline
	modules    []hal.ShaderModule
	renderPass uint64
}

// pipelineState is the aggregate of a pipeline's subobjects.
type pipelineState struct {
	vs, ps, cs   *api.ShaderDesc
	input        []api.InputElement
	blend        *api.BlendDesc
	raster       *api.RasterizerDesc
	depthStencil *api.DepthStencilDesc
	topology     gputypes.PrimitiveTopology
	targets      []gputypes.TextureFormat
	depthFormat  gputypes.TextureFormat
	samples      uint32
	sampleMask   uint32
}

func payloadError(t api.PipelineSubobjectType, v any) error {
	return fmt.Errorf("%w: subobject %d carries %T", api.ErrInvalidDesc, t, v)
}

func collectState(subobjects []api.PipelineSubobject) (*pipelineState, error) {
	st := &pipelineState{samples: 1, sampleMask: ^uint32(0)}
	for _, so := range subobjects {
		var ok bool
		switch so.Type {
		case api.SubobjectVertexShader:
			st.vs, ok = so.Value.(*api.ShaderDesc)
		case api.SubobjectPixelShader:
			st.ps, ok = so.Value.(*api.ShaderDesc)
		case api.SubobjectComputeShader:
			st.cs, ok = so.Value.(*api.ShaderDesc)
		case api.SubobjectInputLayout:
			st.input, ok = so.Value.([]api.InputElement)
		case api.SubobjectBlendState:
			st.blend, ok = so.Value.(*api.BlendDesc)
		case api.SubobjectRasterizerState:
			st.raster, ok = so.Value.(*api.RasterizerDesc)
		case api.SubobjectDepthStencilState:
			st.depthStencil, ok = so.Value.(*api.DepthStencilDesc)
		case api.SubobjectPrimitiveTopology:
			st.topology, ok = so.Value.(gputypes.PrimitiveTopology)
		case api.SubobjectRenderTargetFormats:
			st.targets, ok = so.Value.([]gputypes.TextureFormat)
		case api.SubobjectDepthStencilFormat:
			st.depthFormat, ok = so.Value.(gputypes.TextureFormat)
		case api.SubobjectSampleCount:
			st.samples, ok = so.Value.(uint32)
		case api.SubobjectSampleMask:
			st.sampleMask, ok = so.Value.(uint32)
		default:
			return nil, fmt.Errorf("%w: unknown subobject type %d", api.ErrInvalidDesc, so.Type)
		}
		if !ok {
			return nil, payloadError(so.Type, so.Value)
		}
	}
	if st.cs != nil && (st.vs != nil || st.ps != nil) {
		return nil, fmt.Errorf("%w: compute and graphics stages in one pipeline", api.ErrInvalidDesc)
	}
	if st.cs == nil && st.vs == nil {
		return nil, fmt.Errorf("%w: pipeline has no vertex or compute shader", api.ErrInvalidDesc)
	}
	st.samples = max(st.samples, 1)
	return st, nil
}

// CreatePipeline creates a render or compute pipeline from subobjects.
// Shader stages that fail to compile return *api.PipelineCompileError.
func (c *Core) CreatePipeline(layout api.PipelineLayout, subobjects []api.PipelineSubobject) (api.Pipeline, error) {
	if err := c.alive(); err != nil {
		return api.NullHandle, err
	}
	st, err := collectState(subobjects)
	if err != nil {
		return api.NullHandle, err
	}
	var halLayout hal.PipelineLayout
	if !layout.IsNull() {
		halLayout = c.layout(layout).native
	}

	rec := &pipelineRecord{layout: layout}
	if st.cs != nil {
		err = c.createCompute(rec, halLayout, st)
	} else {
		err = c.createRender(rec, halLayout, st)
	}
	if err != nil {
		for _, m := range rec.modules {
			c.dev.DestroyShaderModule(m)
		}
		return api.NullHandle, err
	}
	key := c.table.Register(identity.KindPipeline, &nativePipeline{}, rec)
	slogger().Debug("device: pipeline created", "handle", uint64(key), "compute", st.cs != nil)
	return api.Pipeline(key), nil
}

// shaderModule compiles one stage and creates its module.
func (c *Core) shaderModule(rec *pipelineRecord, stage api.ShaderStage, desc *api.ShaderDesc) (hal.ShaderModule, string, error) {
	entry := desc.EntryPoint
	if entry == "" {
		entry = "main"
	}
	compileErr := func(err error) error {
		return &api.PipelineCompileError{Stage: stage, EntryPoint: entry, Err: err}
	}

	var src hal.ShaderSource
	switch {
	case desc.Source != "" && desc.Code != nil:
		return nil, "", fmt.Errorf("%w: %s shader has both source and code", api.ErrInvalidDesc, stage)
	case desc.Source != "":
		words, err := c.shaders.Compile(desc.Source)
		if err != nil {
			return nil, "", compileErr(err)
		}
		src = hal.ShaderSource{WGSL: desc.Source, SPIRV: words}
	case desc.Code != nil:
		words, err := shadercache.Words(desc.Code)
		if err != nil {
			return nil, "", compileErr(err)
		}
		src = hal.ShaderSource{SPIRV: words}
	default:
		return nil, "", compileErr(errors.New("empty shader"))
	}

	m, err := c.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: entry, Source: src})
	if err != nil {
		if err = c.halError("create shader module", err); errors.Is(err, api.ErrDeviceLost) {
			return nil, "", err
		}
		return nil, "", compileErr(err)
	}
	rec.modules = append(rec.modules, m)
	return m, entry, nil
}

func (c *Core) createCompute(rec *pipelineRecord, layout hal.PipelineLayout, st *pipelineState) error {
	if !c.CheckCapability(api.CapComputeShader) {
		return fmt.Errorf("%w: compute shaders", api.ErrUnsupported)
	}
	m, entry, err := c.shaderModule(rec, api.StageCompute, st.cs)
	if err != nil {
		return err
	}
	p, err := c.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Layout: layout,
		Compute: hal.ComputeState{
			Module:                        m,
			EntryPoint:                    entry,
			ZeroInitializeWorkgroupMemory: true,
		},
	})
	if err != nil {
		return c.halError("create compute pipeline", err)
	}
	rec.compute = p
	return nil
}

func (c *Core) createRender(rec *pipelineRecord, layout hal.PipelineLayout, st *pipelineState) error {
	if limit := c.adapter.Capabilities.Limits.MaxColorAttachments; limit > 0 && uint32(len(st.targets)) > limit {
		return fmt.Errorf("%w: %d render targets, limit %d", api.ErrInvalidDesc, len(st.targets), limit)
	}
	primitive := gputypes.PrimitiveState{Topology: st.topology}
	if r := st.raster; r != nil {
		if r.FillMode == api.FillWireframe && !c.CheckCapability(api.CapFillModeNonSolid) {
			return fmt.Errorf("%w: wireframe fill", api.ErrUnsupported)
		}
		if r.ConservativeRasterization && !c.CheckCapability(api.CapConservativeRasterization) {
			return fmt.Errorf("%w: conservative rasterization", api.ErrUnsupported)
		}
		if r.DepthClipDisabled && !c.adapter.Features.Contains(gputypes.FeatureDepthClipControl) {
			return fmt.Errorf("%w: depth clip control", api.ErrUnsupported)
		}
		primitive.CullMode = r.CullMode
		primitive.FrontFace = r.FrontFace
		primitive.UnclippedDepth = r.DepthClipDisabled
	}

	rp, err := c.quirks.RenderPass(renderpass.Key{
		ColorFormats: st.targets,
		DepthFormat:  st.depthFormat,
		Samples:      st.samples,
	})
	if err != nil {
		return err
	}
	rec.renderPass = rp

	vs, vsEntry, err := c.shaderModule(rec, api.StageVertex, st.vs)
	if err != nil {
		return err
	}
	desc := &hal.RenderPipelineDescriptor{
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs,
			EntryPoint: vsEntry,
			Buffers:    vertexBuffers(st.input),
		},
		Primitive:    primitive,
		DepthStencil: depthStencilState(st.depthFormat, st.depthStencil),
		Multisample: gputypes.MultisampleState{
			Count:                  st.samples,
			Mask:                   uint64(st.sampleMask),
			AlphaToCoverageEnabled: st.blend != nil && st.blend.AlphaToCoverage,
		},
	}
	if st.ps != nil {
		ps, psEntry, err := c.shaderModule(rec, api.StagePixel, st.ps)
		if err != nil {
			return err
		}
		desc.Fragment = &hal.FragmentState{
			Module:     ps,
			EntryPoint: psEntry,
			Targets:    colorTargets(st.targets, st.blend),
		}
	}

	p, err := c.dev.CreateRenderPipeline(desc)
	if err != nil {
		return c.halError("create render pipeline", err)
	}
	rec.render = p
	return nil
}

// vertexBuffers groups input elements by buffer slot.
func vertexBuffers(input []api.InputElement) []gputypes.VertexBufferLayout {
	if len(input) == 0 {
		return nil
	}
	slots := make([]uint32, 0, len(input))
	for _, e := range input {
		if !slices.Contains(slots, e.Buffer) {
			slots = append(slots, e.Buffer)
		}
	}
	slices.Sort(slots)
	last := slots[len(slots)-1]

	out := make([]gputypes.VertexBufferLayout, last+1)
	for i := range out {
		out[i].StepMode = gputypes.VertexStepModeVertexBufferNotUsed
	}
	for _, e := range input {
		b := &out[e.Buffer]
		b.StepMode = gputypes.VertexStepModeVertex
		if e.InstanceStepRate != 0 {
			b.StepMode = gputypes.VertexStepModeInstance
		}
		b.ArrayStride = max(b.ArrayStride, e.Stride)
		b.Attributes = append(b.Attributes, gputypes.VertexAttribute{
			Format:         e.Format,
			Offset:         e.Offset,
			ShaderLocation: e.Location,
		})
	}
	return out
}

func depthStencilState(format gputypes.TextureFormat, d *api.DepthStencilDesc) *hal.DepthStencilState {
	if format == gputypes.TextureFormatUndefined {
		return nil
	}
	out := &hal.DepthStencilState{
		Format:       format,
		DepthCompare: gputypes.CompareFunctionAlways,
		StencilFront: hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
		StencilBack:  hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways},
	}
	if d == nil {
		return out
	}
	if d.DepthEnable {
		out.DepthWriteEnabled = d.DepthWrite
		out.DepthCompare = d.DepthCompare
	}
	if d.StencilEnable {
		out.StencilReadMask = uint32(d.StencilReadMask)
		out.StencilWriteMask = uint32(d.StencilWriteMask)
		out.StencilFront = stencilFace(d.Front)
		out.StencilBack = stencilFace(d.Back)
	}
	return out
}

func stencilFace(f api.StencilFaceDesc) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      stencilOp(f.FailOp),
		DepthFailOp: stencilOp(f.DepthFail),
		PassOp:      stencilOp(f.PassOp),
	}
}

// colorTargets pairs render target formats with blend state, repeating the
// last blend entry for the remaining targets.
func colorTargets(formats []gputypes.TextureFormat, blend *api.BlendDesc) []gputypes.ColorTargetState {
	out := make([]gputypes.ColorTargetState, len(formats))
	for i, f := range formats {
		out[i] = gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll}
		if blend == nil || len(blend.Targets) == 0 {
			continue
		}
		t := blend.Targets[min(i, len(blend.Targets)-1)]
		out[i].Blend = t.Blend
		out[i].WriteMask = t.WriteMask
	}
	return out
}

// DestroyPipeline destroys a pipeline. Null handles are ignored.
func (c *Core) DestroyPipeline(p api.Pipeline) {
	if p.IsNull() {
		return
	}
	rec := c.table.UnregisterKey(identity.KindPipeline, identity.Key(p)).(*pipelineRecord)
	if rec.render != nil {
		c.dev.DestroyRenderPipeline(rec.render)
	}
	if rec.compute != nil {
		c.dev.DestroyComputePipeline(rec.compute)
	}
	for _, m := range rec.modules {
		c.dev.DestroyShaderModule(m)
	}
}

func (c *Core) pipeline(p api.Pipeline) *pipelineRecord {
	return identity.ResolveAs[*pipelineRecord](c.table, identity.KindPipeline, identity.Key(p))
}

// NativeRenderPipeline returns the render pipeline of p, or nil for compute
// pipelines.
func (c *Core) NativeRenderPipeline(p api.Pipeline) hal.RenderPipeline {
	return c.pipeline(p).render
}

// NativeComputePipeline returns the compute pipeline of p, or nil for
// render pipelines.
func (c *Core) NativeComputePipeline(p api.Pipeline) hal.ComputePipeline {
	return c.pipeline(p).compute
}

// PipelineRenderPass returns the render pass identifier p was created
// against, or zero.
func (c *Core) PipelineRenderPass(p api.Pipeline) uint64 {
	return c.pipeline(p).renderPass
}

// PipelineLayoutOf returns the layout p was created with.
func (c *Core) PipelineLayoutOf(p api.Pipeline) api.PipelineLayout {
	return c.pipeline(p).layout
}
