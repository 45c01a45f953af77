package api

import "github.com/gogpu/gputypes"

// FormatBlock describes the storage block of a texel format.
type FormatBlock struct {
	// Bytes is the size of one block. Zero for unknown formats.
	Bytes uint32

	// Width and Height are the block dimensions in texels.
	Width, Height uint32
}

// BlockOf returns the storage block of format.
func BlockOf(format gputypes.TextureFormat) FormatBlock {
	switch format {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatStencil8:
		return FormatBlock{1, 1, 1}
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatDepth16Unorm:
		return FormatBlock{2, 1, 1}
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint,
		gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint,
		gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm, gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGB10A2Uint, gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG11B10Ufloat, gputypes.TextureFormatRGB9E5Ufloat,
		gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float:
		return FormatBlock{4, 1, 1}
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint,
		gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint,
		gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return FormatBlock{8, 1, 1}
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint,
		gputypes.TextureFormatRGBA32Sint:
		return FormatBlock{16, 1, 1}
	case gputypes.TextureFormatBC1RGBAUnorm, gputypes.TextureFormatBC1RGBAUnormSrgb,
		gputypes.TextureFormatBC4RUnorm, gputypes.TextureFormatBC4RSnorm,
		gputypes.TextureFormatETC2RGB8Unorm, gputypes.TextureFormatETC2RGB8UnormSrgb,
		gputypes.TextureFormatETC2RGB8A1Unorm, gputypes.TextureFormatETC2RGB8A1UnormSrgb,
		gputypes.TextureFormatEACR11Unorm, gputypes.TextureFormatEACR11Snorm:
		return FormatBlock{8, 4, 4}
	case gputypes.TextureFormatBC2RGBAUnorm, gputypes.TextureFormatBC2RGBAUnormSrgb,
		gputypes.TextureFormatBC3RGBAUnorm, gputypes.TextureFormatBC3RGBAUnormSrgb,
		gputypes.TextureFormatBC5RGUnorm, gputypes.TextureFormatBC5RGSnorm,
		gputypes.TextureFormatBC6HRGBUfloat, gputypes.TextureFormatBC6HRGBFloat,
		gputypes.TextureFormatBC7RGBAUnorm, gputypes.TextureFormatBC7RGBAUnormSrgb,
		gputypes.TextureFormatETC2RGBA8Unorm, gputypes.TextureFormatETC2RGBA8UnormSrgb,
		gputypes.TextureFormatEACRG11Unorm, gputypes.TextureFormatEACRG11Snorm,
		gputypes.TextureFormatASTC4x4Unorm, gputypes.TextureFormatASTC4x4UnormSrgb:
		return FormatBlock{16, 4, 4}
	default:
		return FormatBlock{}
	}
}

// RowPitch returns the tightly packed byte size of one row of blocks of a
// texture that is width texels wide, rounded up to alignment.
func RowPitch(format gputypes.TextureFormat, width, alignment uint32) uint32 {
	b := BlockOf(format)
	if b.Bytes == 0 {
		return 0
	}
	pitch := (width + b.Width - 1) / b.Width * b.Bytes
	return AlignUp(pitch, alignment)
}

// RowCount returns the number of block rows of a texture that is height
// texels high.
func RowCount(format gputypes.TextureFormat, height uint32) uint32 {
	b := BlockOf(format)
	if b.Height == 0 {
		return 0
	}
	return (height + b.Height - 1) / b.Height
}

// AlignUp rounds v up to a multiple of alignment. Alignments of zero or one
// leave v unchanged.
func AlignUp(v, alignment uint32) uint32 {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}

// LinearFormat strips the sRGB encoding from a format.
func LinearFormat(format gputypes.TextureFormat) gputypes.TextureFormat {
	switch format {
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return gputypes.TextureFormatRGBA8Unorm
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return gputypes.TextureFormatBGRA8Unorm
	case gputypes.TextureFormatBC1RGBAUnormSrgb:
		return gputypes.TextureFormatBC1RGBAUnorm
	case gputypes.TextureFormatBC2RGBAUnormSrgb:
		return gputypes.TextureFormatBC2RGBAUnorm
	case gputypes.TextureFormatBC3RGBAUnormSrgb:
		return gputypes.TextureFormatBC3RGBAUnorm
	case gputypes.TextureFormatBC7RGBAUnormSrgb:
		return gputypes.TextureFormatBC7RGBAUnorm
	case gputypes.TextureFormatETC2RGB8UnormSrgb:
		return gputypes.TextureFormatETC2RGB8Unorm
	case gputypes.TextureFormatETC2RGB8A1UnormSrgb:
		return gputypes.TextureFormatETC2RGB8A1Unorm
	case gputypes.TextureFormatETC2RGBA8UnormSrgb:
		return gputypes.TextureFormatETC2RGBA8Unorm
	case gputypes.TextureFormatASTC4x4UnormSrgb:
		return gputypes.TextureFormatASTC4x4Unorm
	default:
		return format
	}
}

// ViewCompatible reports whether a view of format view may be created over a
// resource of format resource. Formats are compatible when equal, when they
// differ only in sRGB encoding, or when a depth-stencil resource is viewed
// through one of its aspects.
func ViewCompatible(resource, view gputypes.TextureFormat) bool {
	if view == gputypes.TextureFormatUndefined || view == resource {
		return true
	}
	if LinearFormat(resource) == LinearFormat(view) {
		return true
	}
	switch resource {
	case gputypes.TextureFormatDepth24PlusStencil8:
		return view == gputypes.TextureFormatDepth24Plus || view == gputypes.TextureFormatStencil8
	case gputypes.TextureFormatDepth32FloatStencil8:
		return view == gputypes.TextureFormatDepth32Float || view == gputypes.TextureFormatStencil8
	}
	return false
}
