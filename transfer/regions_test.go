package transfer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
)

var alignToBlockTestCases = map[string]struct {
	Format core1_0.Format
	Extent core1_0.Extent3D
	Offset uint64

	ExpectedExtent core1_0.Extent3D
	ExpectedOffset uint64
	ExpectedBlock  bool
}{
	"UncompressedKeepsExtent": {
		Format:         core1_0.FormatR8G8B8UnsignedNormalized,
		Extent:         core1_0.Extent3D{Width: 5, Height: 3, Depth: 1},
		Offset:         45,
		ExpectedExtent: core1_0.Extent3D{Width: 5, Height: 3, Depth: 1},
		ExpectedOffset: 48,
		ExpectedBlock:  false,
	},
	"UncompressedAlignedOffset": {
		Format:         core1_0.FormatR8G8B8A8UnsignedNormalized,
		Extent:         core1_0.Extent3D{Width: 1, Height: 1, Depth: 1},
		Offset:         64,
		ExpectedExtent: core1_0.Extent3D{Width: 1, Height: 1, Depth: 1},
		ExpectedOffset: 64,
		ExpectedBlock:  false,
	},
	"BC1RoundsUp": {
		Format:         core1_0.FormatBC1_RGBUnsignedNormalized,
		Extent:         core1_0.Extent3D{Width: 5, Height: 2, Depth: 0},
		Offset:         10,
		ExpectedExtent: core1_0.Extent3D{Width: 8, Height: 4, Depth: 1},
		ExpectedOffset: 12,
		ExpectedBlock:  true,
	},
	"BC1AlreadyAligned": {
		Format:         core1_0.FormatBC1_RGBUnsignedNormalized,
		Extent:         core1_0.Extent3D{Width: 16, Height: 16, Depth: 1},
		Offset:         0,
		ExpectedExtent: core1_0.Extent3D{Width: 16, Height: 16, Depth: 1},
		ExpectedOffset: 0,
		ExpectedBlock:  true,
	},
	"ASTCNonSquare": {
		Format:         core1_0.FormatASTC8x6_UnsignedNormalized,
		Extent:         core1_0.Extent3D{Width: 9, Height: 7, Depth: 1},
		Offset:         3,
		ExpectedExtent: core1_0.Extent3D{Width: 16, Height: 12, Depth: 1},
		ExpectedOffset: 4,
		ExpectedBlock:  true,
	},
}

func TestAlignToBlock(t *testing.T) {
	for testName, testCase := range alignToBlockTestCases {
		t.Run(testName, func(t *testing.T) {
			extent, offset, block := AlignToBlock(testCase.Format, testCase.Extent, testCase.Offset)
			require.Equal(t, testCase.ExpectedExtent, extent)
			require.Equal(t, testCase.ExpectedOffset, offset)
			require.Equal(t, testCase.ExpectedBlock, block)
			require.Zero(t, offset%4)
		})
	}
}

func TestBuildImageRegions_MipChain(t *testing.T) {
	regions, size := BuildImageRegions(ImageInfo{
		Format:      core1_0.FormatR8G8B8A8UnsignedNormalized,
		Extent:      core1_0.Extent3D{Width: 8, Height: 4, Depth: 1},
		MipLevels:   4,
		ArrayLayers: 1,
	})

	require.Len(t, regions, 4)
	expectedExtents := []core1_0.Extent3D{
		{Width: 8, Height: 4, Depth: 1},
		{Width: 4, Height: 2, Depth: 1},
		{Width: 2, Height: 1, Depth: 1},
		{Width: 1, Height: 1, Depth: 1},
	}
	expectedOffsets := []int{0, 128, 160, 168}

	for i, region := range regions {
		require.Equal(t, expectedExtents[i], region.ImageExtent)
		require.Equal(t, expectedOffsets[i], region.BufferOffset)
		require.Equal(t, i, region.ImageSubresource.MipLevel)
		require.Equal(t, core1_0.ImageAspectColor, region.ImageSubresource.AspectMask)
		require.Equal(t, 1, region.ImageSubresource.LayerCount)
	}
	require.Equal(t, uint64(172), size)
	require.Equal(t, size, RegionSize(ImageInfo{
		Format:      core1_0.FormatR8G8B8A8UnsignedNormalized,
		Extent:      core1_0.Extent3D{Width: 8, Height: 4, Depth: 1},
		MipLevels:   4,
		ArrayLayers: 1,
	}))
}

func TestBuildImageRegions_DepthStencilSplit(t *testing.T) {
	regions, size := BuildImageRegions(ImageInfo{
		Format:      core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		Extent:      core1_0.Extent3D{Width: 3, Height: 3, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 2,
	})

	require.Len(t, regions, 4)
	require.Equal(t, core1_0.ImageAspectDepth, regions[0].ImageSubresource.AspectMask)
	require.Equal(t, core1_0.ImageAspectDepth, regions[1].ImageSubresource.AspectMask)
	require.Equal(t, core1_0.ImageAspectStencil, regions[2].ImageSubresource.AspectMask)
	require.Equal(t, core1_0.ImageAspectStencil, regions[3].ImageSubresource.AspectMask)

	require.Equal(t, 0, regions[0].ImageSubresource.BaseArrayLayer)
	require.Equal(t, 1, regions[1].ImageSubresource.BaseArrayLayer)

	// Depth is 4 bytes a texel, stencil 1 byte a texel padded to the next 4-byte boundary
	require.Equal(t, []int{0, 36, 72, 84}, []int{regions[0].BufferOffset, regions[1].BufferOffset, regions[2].BufferOffset, regions[3].BufferOffset})
	require.Equal(t, uint64(93), size)
}

func TestBuildImageRegions_BlockMipTail(t *testing.T) {
	regions, size := BuildImageRegions(ImageInfo{
		Format:      core1_0.FormatBC1_RGBUnsignedNormalized,
		Extent:      core1_0.Extent3D{Width: 8, Height: 8, Depth: 1},
		MipLevels:   4,
		ArrayLayers: 1,
	})

	require.Len(t, regions, 4)
	// 2x2 blocks, then 1 block for every level below 4x4
	require.Equal(t, []int{0, 32, 40, 48}, []int{regions[0].BufferOffset, regions[1].BufferOffset, regions[2].BufferOffset, regions[3].BufferOffset})
	require.Equal(t, core1_0.Extent3D{Width: 2, Height: 2, Depth: 1}, regions[2].ImageExtent)
	require.Equal(t, uint64(56), size)
}

func TestBuildImageRegions_UnknownFormat(t *testing.T) {
	regions, size := BuildImageRegions(ImageInfo{
		Format:      core1_0.FormatUndefined,
		Extent:      core1_0.Extent3D{Width: 8, Height: 8, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
	})
	require.Empty(t, regions)
	require.Zero(t, size)
}

func TestChunk(t *testing.T) {
	items := make([]int, 250)
	for i := range items {
		items[i] = i
	}

	chunks := Chunk(items, 100)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 100)
	require.Len(t, chunks[1], 100)
	require.Len(t, chunks[2], 50)
	require.Equal(t, 0, chunks[0][0])
	require.Equal(t, 100, chunks[1][0])
	require.Equal(t, 200, chunks[2][0])
	require.Equal(t, 249, chunks[2][49])

	require.Empty(t, Chunk([]int{}, 100))
	require.Len(t, Chunk(items, 0), 1)
	require.Len(t, Chunk(items[:100], 100), 1)
}
