// Package formats describes the memory footprint of Vulkan image formats: the texel block each
// format is stored in, how many bytes one block takes in each aspect, and which aspects the
// format carries.
package formats

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/core1_0"
)

// ChannelOrder identifies formats whose bytes can be read directly as 8-bit color
type ChannelOrder int

const (
	OrderOther ChannelOrder = iota
	OrderRGBA8
	OrderBGRA8
)

// DepthEncoding identifies how the depth aspect of a format is stored once copied to a buffer
type DepthEncoding int

const (
	DepthNone DepthEncoding = iota
	DepthUnorm16
	DepthUnorm24
	DepthFloat32
)

// Info is the block layout of a single format
type Info struct {
	Format core1_0.Format

	BlockWidth  int
	BlockHeight int
	// ColorBytes is the size of one block of the color aspect, zero for depth/stencil formats
	ColorBytes int
	// DepthBytes is the size of one texel of the depth aspect once copied to a buffer
	DepthBytes int
	// StencilBytes is the size of one texel of the stencil aspect once copied to a buffer
	StencilBytes int

	Order ChannelOrder
	Depth DepthEncoding
}

// Compressed is true for formats stored in blocks larger than one texel
func (i Info) Compressed() bool {
	return i.BlockWidth > 1 || i.BlockHeight > 1
}

func (i Info) Aspects() core1_0.ImageAspectFlags {
	var aspects core1_0.ImageAspectFlags
	if i.ColorBytes > 0 {
		aspects |= core1_0.ImageAspectColor
	}
	if i.DepthBytes > 0 {
		aspects |= core1_0.ImageAspectDepth
	}
	if i.StencilBytes > 0 {
		aspects |= core1_0.ImageAspectStencil
	}
	return aspects
}

func (i Info) String() string {
	return fmt.Sprintf("format %d (%dx%d block, color %d, depth %d, stencil %d)",
		int(i.Format), i.BlockWidth, i.BlockHeight, i.ColorBytes, i.DepthBytes, i.StencilBytes)
}

var formatTable = make(map[core1_0.Format]Info)

func register(first, last core1_0.Format, info Info) {
	for format := first; format <= last; format++ {
		entry := info
		entry.Format = format
		if entry.BlockWidth == 0 {
			entry.BlockWidth = 1
			entry.BlockHeight = 1
		}
		formatTable[format] = entry
	}
}

func color(bytes int) Info {
	return Info{ColorBytes: bytes}
}

func block(width, height, bytes int) Info {
	return Info{BlockWidth: width, BlockHeight: height, ColorBytes: bytes}
}

func init() {
	// Each range is contiguous in the VkFormat enumeration
	register(core1_0.FormatR4G4UnsignedNormalizedPacked, core1_0.FormatR4G4UnsignedNormalizedPacked, color(1))
	register(core1_0.FormatR4G4B4A4UnsignedNormalizedPacked, core1_0.FormatA1R5G5B5UnsignedNormalizedPacked, color(2))
	register(core1_0.FormatR8UnsignedNormalized, core1_0.FormatR8SRGB, color(1))
	register(core1_0.FormatR8G8UnsignedNormalized, core1_0.FormatR8G8SRGB, color(2))
	register(core1_0.FormatR8G8B8UnsignedNormalized, core1_0.FormatB8G8R8SRGB, color(3))
	register(core1_0.FormatR8G8B8A8UnsignedNormalized, core1_0.FormatR8G8B8A8SRGB, Info{ColorBytes: 4, Order: OrderRGBA8})
	register(core1_0.FormatB8G8R8A8UnsignedNormalized, core1_0.FormatB8G8R8A8SRGB, Info{ColorBytes: 4, Order: OrderBGRA8})
	register(core1_0.FormatA8B8G8R8UnsignedNormalizedPacked, core1_0.FormatA8B8G8R8SRGBPacked, Info{ColorBytes: 4, Order: OrderRGBA8})
	register(core1_0.FormatA2R10G10B10UnsignedNormalizedPacked, core1_0.FormatA2B10G10R10SignedIntPacked, color(4))
	register(core1_0.FormatR16UnsignedNormalized, core1_0.FormatR16SignedFloat, color(2))
	register(core1_0.FormatR16G16UnsignedNormalized, core1_0.FormatR16G16SignedFloat, color(4))
	register(core1_0.FormatR16G16B16UnsignedNormalized, core1_0.FormatR16G16B16SignedFloat, color(6))
	register(core1_0.FormatR16G16B16A16UnsignedNormalized, core1_0.FormatR16G16B16A16SignedFloat, color(8))
	register(core1_0.FormatR32UnsignedInt, core1_0.FormatR32SignedFloat, color(4))
	register(core1_0.FormatR32G32UnsignedInt, core1_0.FormatR32G32SignedFloat, color(8))
	register(core1_0.FormatR32G32B32UnsignedInt, core1_0.FormatR32G32B32SignedFloat, color(12))
	register(core1_0.FormatR32G32B32A32UnsignedInt, core1_0.FormatR32G32B32A32SignedFloat, color(16))
	register(core1_0.FormatR64UnsignedInt, core1_0.FormatR64SignedFloat, color(8))
	register(core1_0.FormatR64G64UnsignedInt, core1_0.FormatR64G64SignedFloat, color(16))
	register(core1_0.FormatR64G64B64UnsignedInt, core1_0.FormatR64G64B64SignedFloat, color(24))
	register(core1_0.FormatR64G64B64A64UnsignedInt, core1_0.FormatR64G64B64A64SignedFloat, color(32))
	register(core1_0.FormatB10G11R11UnsignedFloatPacked, core1_0.FormatE5B9G9R9UnsignedFloatPacked, color(4))

	register(core1_0.FormatD16UnsignedNormalized, core1_0.FormatD16UnsignedNormalized, Info{DepthBytes: 2, Depth: DepthUnorm16})
	register(core1_0.FormatD24X8UnsignedNormalizedPacked, core1_0.FormatD24X8UnsignedNormalizedPacked, Info{DepthBytes: 4, Depth: DepthUnorm24})
	register(core1_0.FormatD32SignedFloat, core1_0.FormatD32SignedFloat, Info{DepthBytes: 4, Depth: DepthFloat32})
	register(core1_0.FormatS8UnsignedInt, core1_0.FormatS8UnsignedInt, Info{StencilBytes: 1})
	register(core1_0.FormatD16UnsignedNormalizedS8UnsignedInt, core1_0.FormatD16UnsignedNormalizedS8UnsignedInt, Info{DepthBytes: 2, StencilBytes: 1, Depth: DepthUnorm16})
	register(core1_0.FormatD24UnsignedNormalizedS8UnsignedInt, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt, Info{DepthBytes: 4, StencilBytes: 1, Depth: DepthUnorm24})
	register(core1_0.FormatD32SignedFloatS8UnsignedInt, core1_0.FormatD32SignedFloatS8UnsignedInt, Info{DepthBytes: 4, StencilBytes: 1, Depth: DepthFloat32})

	// BC
	register(core1_0.FormatBC1_RGBUnsignedNormalized, core1_0.FormatBC1_RGBAsRGB, block(4, 4, 8))
	register(core1_0.FormatBC2_UnsignedNormalized, core1_0.FormatBC3_sRGB, block(4, 4, 16))
	register(core1_0.FormatBC4_UnsignedNormalized, core1_0.FormatBC4_SignedNormalized, block(4, 4, 8))
	register(core1_0.FormatBC5_UnsignedNormalized, core1_0.FormatBC7_sRGB, block(4, 4, 16))
	// ETC2 / EAC
	register(core1_0.FormatETC2_R8G8B8UnsignedNormalized, core1_0.FormatETC2_R8G8B8A1sRGB, block(4, 4, 8))
	register(core1_0.FormatETC2_R8G8B8A8UnsignedNormalized, core1_0.FormatETC2_R8G8B8A8sRGB, block(4, 4, 16))
	register(core1_0.FormatEAC_R11UnsignedNormalized, core1_0.FormatEAC_R11SignedNormalized, block(4, 4, 8))
	register(core1_0.FormatEAC_R11G11UnsignedNormalized, core1_0.FormatEAC_R11G11SignedNormalized, block(4, 4, 16))
	// ASTC, each block size as a UNORM/SRGB pair
	astcBlocks := []struct {
		format        core1_0.Format
		width, height int
	}{
		{core1_0.FormatASTC4x4_UnsignedNormalized, 4, 4},
		{core1_0.FormatASTC5x4_UnsignedNormalized, 5, 4},
		{core1_0.FormatASTC5x5_UnsignedNormalized, 5, 5},
		{core1_0.FormatASTC6x5_UnsignedNormalized, 6, 5},
		{core1_0.FormatASTC6x6_UnsignedNormalized, 6, 6},
		{core1_0.FormatASTC8x5_UnsignedNormalized, 8, 5},
		{core1_0.FormatASTC8x6_UnsignedNormalized, 8, 6},
		{core1_0.FormatASTC8x8_UnsignedNormalized, 8, 8},
		{core1_0.FormatASTC10x5_UnsignedNormalized, 10, 5},
		{core1_0.FormatASTC10x6_UnsignedNormalized, 10, 6},
		{core1_0.FormatASTC10x8_UnsignedNormalized, 10, 8},
		{core1_0.FormatASTC10x10_UnsignedNormalized, 10, 10},
		{core1_0.FormatASTC12x10_UnsignedNormalized, 12, 10},
		{core1_0.FormatASTC12x12_UnsignedNormalized, 12, 12},
	}
	for _, astc := range astcBlocks {
		register(astc.format, astc.format+1, block(astc.width, astc.height, 16))
	}
}

// Lookup returns the block layout of format
func Lookup(format core1_0.Format) (Info, bool) {
	info, ok := formatTable[format]
	return info, ok
}

// Aspects returns the aspects an image of format carries, zero for unknown formats
func Aspects(format core1_0.Format) core1_0.ImageAspectFlags {
	info, ok := formatTable[format]
	if !ok {
		return 0
	}
	return info.Aspects()
}

// DecomposeAspects splits the aspects of format into the single-aspect masks a copy region may
// name: color alone, or depth followed by stencil
func DecomposeAspects(format core1_0.Format) []core1_0.ImageAspectFlags {
	aspects := Aspects(format)

	var result []core1_0.ImageAspectFlags
	for _, aspect := range []core1_0.ImageAspectFlags{core1_0.ImageAspectColor, core1_0.ImageAspectDepth, core1_0.ImageAspectStencil} {
		if aspects&aspect != 0 {
			result = append(result, aspect)
		}
	}
	return result
}

// BlockBytes returns the bytes one block of a single aspect of format occupies in a buffer
func BlockBytes(format core1_0.Format, aspect core1_0.ImageAspectFlags) int {
	info, ok := formatTable[format]
	if !ok {
		return 0
	}

	switch aspect {
	case core1_0.ImageAspectColor:
		return info.ColorBytes
	case core1_0.ImageAspectDepth:
		return info.DepthBytes
	case core1_0.ImageAspectStencil:
		return info.StencilBytes
	}
	return 0
}

// BlockExtent returns the texel width and height of one block, 1x1 for uncompressed and unknown formats
func BlockExtent(format core1_0.Format) (int, int) {
	info, ok := formatTable[format]
	if !ok {
		return 1, 1
	}
	return info.BlockWidth, info.BlockHeight
}

// IsBlockFormat is true for block-compressed formats
func IsBlockFormat(format core1_0.Format) bool {
	info, ok := formatTable[format]
	return ok && info.Compressed()
}

// ByteSize returns the bytes a width x height x depth region of one aspect occupies in a
// tightly packed buffer
func ByteSize(format core1_0.Format, aspect core1_0.ImageAspectFlags, width, height, depth int) uint64 {
	blockWidth, blockHeight := BlockExtent(format)
	blocksWide := (width + blockWidth - 1) / blockWidth
	blocksHigh := (height + blockHeight - 1) / blockHeight

	return uint64(blocksWide) * uint64(blocksHigh) * uint64(depth) * uint64(BlockBytes(format, aspect))
}
