package transfer

import (
	"github.com/bjoeris/renderdoc-sub003/formats"
	"github.com/bjoeris/renderdoc-sub003/memutils"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// MaxRegionsPerCommand bounds the number of regions handed to a single copy command
const MaxRegionsPerCommand = 100

// bufferOffsetAlignment is the alignment Vulkan requires of every bufferOffset in a buffer/image copy
const bufferOffsetAlignment = 4

// AlignToBlock prepares one mip level for packing into a staging buffer. Block-compressed
// formats round the extent up to whole blocks; every format rounds the buffer offset up to
// the copy offset alignment. The final result reports whether format is block-compressed.
func AlignToBlock(format core1_0.Format, extent core1_0.Extent3D, offset uint64) (core1_0.Extent3D, uint64, bool) {
	offset = memutils.AlignUp(offset, bufferOffsetAlignment)

	if !formats.IsBlockFormat(format) {
		return extent, offset, false
	}

	blockWidth, blockHeight := formats.BlockExtent(format)
	return core1_0.Extent3D{
		Width:  memutils.AlignUp(extent.Width, blockWidth),
		Height: memutils.AlignUp(extent.Height, blockHeight),
		Depth:  memutils.Max(extent.Depth, 1),
	}, offset, true
}

func nextMip(extent core1_0.Extent3D) core1_0.Extent3D {
	return core1_0.Extent3D{
		Width:  memutils.Max(extent.Width/2, 1),
		Height: memutils.Max(extent.Height/2, 1),
		Depth:  memutils.Max(extent.Depth/2, 1),
	}
}

// BuildImageRegions packs every subresource of the image into one buffer. Regions are ordered
// by aspect, then array layer, then mip level. The second result is the number of buffer bytes
// the regions cover.
func BuildImageRegions(info ImageInfo) ([]core1_0.BufferImageCopy, uint64) {
	var regions []core1_0.BufferImageCopy
	var offset uint64

	for _, aspect := range formats.DecomposeAspects(info.Format) {
		for layer := 0; layer < info.ArrayLayers; layer++ {
			extent := info.Extent

			for mip := 0; mip < info.MipLevels; mip++ {
				packedExtent, alignedOffset, _ := AlignToBlock(info.Format, extent, offset)

				regions = append(regions, core1_0.BufferImageCopy{
					BufferOffset: int(alignedOffset),
					ImageSubresource: core1_0.ImageSubresourceLayers{
						AspectMask:     aspect,
						MipLevel:       mip,
						BaseArrayLayer: layer,
						LayerCount:     1,
					},
					// The region names the real mip extent; a partial block at the edge of
					// the image is allowed because it reaches the edge of the subresource
					ImageExtent: extent,
				})

				offset = alignedOffset + formats.ByteSize(info.Format, aspect, packedExtent.Width, packedExtent.Height, packedExtent.Depth)
				extent = nextMip(extent)
			}
		}
	}

	return regions, offset
}

// RegionSize is the number of staging buffer bytes BuildImageRegions lays the image out in
func RegionSize(info ImageInfo) uint64 {
	_, size := BuildImageRegions(info)
	return size
}

// Chunk splits items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}

	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := memutils.Min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
