package api

import "github.com/gogpu/gputypes"

// ResourceDesc describes a buffer or texture.
//
// Buffer is used when Type is ResourceTypeBuffer, Texture otherwise.
// ResourceDesc is comparable; two descriptions are equal when all fields
// match.
type ResourceDesc struct {
	// Type is the resource dimensionality.
	Type ResourceType

	// Buffer holds the buffer size and structure stride.
	Buffer BufferDesc

	// Texture holds the texture extent, format and sample count.
	Texture TextureDesc

	// Heap selects the memory heap and allowed CPU access.
	Heap MemoryHeap

	// Usage lists every way the resource will be used.
	Usage ResourceUsage

	// Flags are additional creation flags.
	Flags ResourceFlags
}

// BufferDesc describes buffer storage.
type BufferDesc struct {
	// Size in bytes.
	Size uint64

	// Stride of structured elements in bytes, or zero.
	Stride uint32
}

// TextureDesc describes texture storage.
type TextureDesc struct {
	// Width in texels.
	Width uint32

	// Height in texels. One for 1D textures.
	Height uint32

	// DepthOrLayers is the depth of a 3D texture or the array layer count.
	DepthOrLayers uint32

	// Levels is the mip level count.
	Levels uint32

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Samples is the multisample count.
	Samples uint32
}

// NewBufferDesc returns a buffer description.
func NewBufferDesc(size uint64, heap MemoryHeap, usage ResourceUsage) ResourceDesc {
	return ResourceDesc{
		Type:   ResourceTypeBuffer,
		Buffer: BufferDesc{Size: size},
		Heap:   heap,
		Usage:  usage,
	}
}

// NewTexture2DDesc returns a single-layer, single-sample 2D texture
// description.
func NewTexture2DDesc(width, height, levels uint32, format gputypes.TextureFormat, heap MemoryHeap, usage ResourceUsage) ResourceDesc {
	return ResourceDesc{
		Type: ResourceTypeTexture2D,
		Texture: TextureDesc{
			Width:         width,
			Height:        height,
			DepthOrLayers: 1,
			Levels:        levels,
			Format:        format,
			Samples:       1,
		},
		Heap:  heap,
		Usage: usage,
	}
}

// Subresources returns the number of subresources (levels times layers) of a
// texture, or 1 for a buffer.
func (d ResourceDesc) Subresources() uint32 {
	if d.Type == ResourceTypeBuffer {
		return 1
	}
	if d.Type == ResourceTypeTexture3D {
		return max(d.Texture.Levels, 1)
	}
	return max(d.Texture.Levels, 1) * max(d.Texture.DepthOrLayers, 1)
}

// ResourceViewDesc describes a view over a resource.
type ResourceViewDesc struct {
	// Type is the view dimensionality.
	Type ResourceViewType

	// Format is the view format. Must be view-compatible with the resource.
	Format gputypes.TextureFormat

	// Buffer holds the viewed byte range of a buffer view.
	Buffer BufferRangeDesc

	// Texture holds the mip and layer range of a texture view.
	Texture TextureRangeDesc
}

// BufferRangeDesc is a byte range of a buffer view.
type BufferRangeDesc struct {
	Offset uint64
	Size   uint64
}

// TextureRangeDesc is a subresource range of a texture view.
type TextureRangeDesc struct {
	FirstLevel uint32
	Levels     uint32
	FirstLayer uint32
	Layers     uint32
}

// AllLevels and AllLayers select the remainder of a texture's range.
const (
	AllLevels = ^uint32(0)
	AllLayers = ^uint32(0)
)

// NewTextureViewDesc returns a view description covering every level and
// layer of a texture.
func NewTextureViewDesc(viewType ResourceViewType, format gputypes.TextureFormat) ResourceViewDesc {
	return ResourceViewDesc{
		Type:    viewType,
		Format:  format,
		Texture: TextureRangeDesc{Levels: AllLevels, Layers: AllLayers},
	}
}

// SubresourceData is CPU memory holding one subresource.
type SubresourceData struct {
	// Data holds the texels or bytes.
	Data []byte

	// RowPitch is the byte stride between rows of a texture.
	RowPitch uint32

	// SlicePitch is the byte stride between depth slices or layers.
	SlicePitch uint32
}

// SubresourceBox is a region of a texture subresource. Right, Bottom and
// Back are exclusive.
type SubresourceBox struct {
	Left, Top, Front    uint32
	Right, Bottom, Back uint32
}

// Width returns the box width.
func (b SubresourceBox) Width() uint32 { return b.Right - b.Left }

// Height returns the box height.
func (b SubresourceBox) Height() uint32 { return b.Bottom - b.Top }

// Depth returns the box depth.
func (b SubresourceBox) Depth() uint32 { return b.Back - b.Front }

// SharedHandle is a cross-process handle to a resource. A zero value passed
// to CreateResource requests an export; the created handle is written back.
type SharedHandle uintptr

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	MinFilter     gputypes.FilterMode
	MagFilter     gputypes.FilterMode
	MipFilter     gputypes.FilterMode
	AddressU      gputypes.AddressMode
	AddressV      gputypes.AddressMode
	AddressW      gputypes.AddressMode
	MipLODBias    float32
	MaxAnisotropy uint16

	// Compare enables comparison sampling when not CompareFunctionUndefined.
	Compare gputypes.CompareFunction

	// BorderColor is used by border address modes. Values other than
	// transparent black, opaque black and opaque white need
	// CapSamplerCustomBorderColor. The HAL has no border address mode, so
	// the standard colors are accepted and never sampled.
	BorderColor [4]float32

	MinLOD float32
	MaxLOD float32
}

// HasCustomBorderColor reports whether BorderColor is not one of the three
// standard border colors.
func (d SamplerDesc) HasCustomBorderColor() bool {
	switch d.BorderColor {
	case [4]float32{0, 0, 0, 0}, [4]float32{0, 0, 0, 1}, [4]float32{1, 1, 1, 1}:
		return false
	}
	return true
}

// DescriptorRange is a contiguous run of descriptors of one type inside a
// descriptor table.
type DescriptorRange struct {
	// Binding is the first binding number of the range.
	Binding uint32

	// Count is the number of descriptors (array size).
	Count uint32

	// Type is the descriptor type.
	Type DescriptorType

	// Visibility lists the shader stages that read the range.
	Visibility ShaderStage
}

// PushConstantRange is a range of 32-bit inline constants.
type PushConstantRange struct {
	// Offset in 32-bit values.
	Offset uint32

	// Count of 32-bit values.
	Count uint32

	// Visibility lists the shader stages that read the constants.
	Visibility ShaderStage
}

// PipelineLayoutParam is one logical binding group of a pipeline layout.
type PipelineLayoutParam struct {
	Type PipelineLayoutParamType

	// Ranges is used by ParamDescriptorTable and ParamPushDescriptors.
	Ranges []DescriptorRange

	// PushConstants is used by ParamPushConstants.
	PushConstants PushConstantRange
}

// DescriptorCount returns the number of descriptors the parameter holds.
func (p PipelineLayoutParam) DescriptorCount() uint32 {
	var n uint32
	for _, r := range p.Ranges {
		n += r.Count
	}
	return n
}

// PipelineSubobject is one piece of pipeline state. Value holds the payload
// documented on the PipelineSubobjectType constant.
type PipelineSubobject struct {
	Type  PipelineSubobjectType
	Value any
}

// ShaderDesc is the code of one shader stage. Exactly one of Code and
// Source is set.
type ShaderDesc struct {
	// Code is SPIR-V bytecode, little-endian.
	Code []byte

	// Source is WGSL source text.
	Source string

	// EntryPoint is the function name. Defaults to "main".
	EntryPoint string
}

// InputElement describes one vertex attribute.
type InputElement struct {
	Location uint32
	Format   gputypes.VertexFormat
	Buffer   uint32
	Offset   uint64
	Stride   uint64

	// InstanceStepRate is non-zero for per-instance attributes.
	InstanceStepRate uint32
}

// BlendDesc describes output merger blending.
type BlendDesc struct {
	AlphaToCoverage bool

	// Targets holds per-render-target blend state. With fewer entries than
	// render targets the last entry is repeated.
	Targets []BlendTarget
}

// BlendTarget is the blend state of one render target.
type BlendTarget struct {
	// Blend is nil to disable blending.
	Blend     *gputypes.BlendState
	WriteMask gputypes.ColorWriteMask
}

// FillMode selects solid or wireframe rasterization.
type FillMode uint8

// Fill modes.
const (
	FillSolid FillMode = iota
	FillWireframe
)

// RasterizerDesc describes rasterizer state.
type RasterizerDesc struct {
	FillMode                  FillMode
	CullMode                  gputypes.CullMode
	FrontFace                 gputypes.FrontFace
	DepthClipDisabled         bool
	ConservativeRasterization bool
}

// StencilOp is a stencil buffer operation.
type StencilOp uint8

// Stencil operations.
const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilInvert
	StencilIncrementClamp
	StencilDecrementClamp
	StencilIncrementWrap
	StencilDecrementWrap
)

// StencilFaceDesc is the stencil state of one face.
type StencilFaceDesc struct {
	Compare   gputypes.CompareFunction
	FailOp    StencilOp
	DepthFail StencilOp
	PassOp    StencilOp
}

// DepthStencilDesc describes depth and stencil testing.
type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWrite       bool
	DepthCompare     gputypes.CompareFunction
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	Front            StencilFaceDesc
	Back             StencilFaceDesc
}

// BufferRange references a byte range of a buffer resource.
type BufferRange struct {
	Buffer Resource
	Offset uint64

	// Size of zero covers the rest of the buffer.
	Size uint64
}

// Descriptor is the content of one descriptor slot. Which fields are used
// depends on the DescriptorType of the slot's range.
type Descriptor struct {
	View    ResourceView
	Sampler Sampler
	Buffer  BufferRange
}

// IsZero reports whether the descriptor references nothing.
func (d Descriptor) IsZero() bool { return d == Descriptor{} }

// DescriptorSetUpdate writes descriptors into consecutive slots of a set.
type DescriptorSetUpdate struct {
	Set         DescriptorSet
	Binding     uint32
	ArrayOffset uint32

	// Type must match the type of the targeted range.
	Type        DescriptorType
	Descriptors []Descriptor
}

// DescriptorSetCopy copies descriptors between sets.
type DescriptorSetCopy struct {
	Source            DescriptorSet
	SourceBinding     uint32
	SourceArrayOffset uint32
	Dest              DescriptorSet
	DestBinding       uint32
	DestArrayOffset   uint32
	Count             uint32
}
