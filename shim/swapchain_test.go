package shim

import (
	"testing"

	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/bjoeris/renderdoc-sub003/internal/vulkantest"
	"github.com/bjoeris/renderdoc-sub003/transfer"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/mocks"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

var swapchainCreateInfo = core1_0.ImageCreateInfo{
	ImageType:   core1_0.ImageType2D,
	Format:      core1_0.FormatR8G8B8A8UnsignedNormalized,
	Extent:      core1_0.Extent3D{Width: 640, Height: 480, Depth: 1},
	ArrayLayers: 1,
	Samples:     core1_0.Samples1,
	Tiling:      core1_0.ImageTilingOptimal,
	Usage:       core1_0.ImageUsageColorAttachment,
}

// virtualImageInfo is swapchainCreateInfo as the virtual images are created from it
func virtualImageInfo() core1_0.ImageCreateInfo {
	info := swapchainCreateInfo
	info.Usage |= core1_0.ImageUsageTransferSrc
	info.MipLevels = 1
	return info
}

var virtualImageRequirements = core1_0.MemoryRequirements{
	Size:           640 * 480 * 4,
	Alignment:      256,
	MemoryTypeBits: 0xffffffff,
}

func readySwapchain(t *testing.T, ctrl *gomock.Controller, device *mocks.MockDevice, realImages []core1_0.Image) (*vulkan.DeviceMemoryProperties, *VirtualSwapchain, error) {
	properties, err := vulkan.NewDeviceMemoryProperties(testLogger(), false, nil, device, vulkantest.DiscretePhysicalDevice(ctrl, 1))
	require.NoError(t, err)

	swapchain, err := NewVirtualSwapchain(testLogger(), properties, transfer.NewCopier(testLogger(), transfer.Options{}), realImages, swapchainCreateInfo)
	return properties, swapchain, err
}

// expectVirtualImages expects one device-local image per real image
func expectVirtualImages(ctrl *gomock.Controller, device *mocks.MockDevice, count int) ([]*mocks.MockImage, []*vulkantest.Allocation) {
	var images []*mocks.MockImage
	var allocations []*vulkantest.Allocation
	for i := 0; i < count; i++ {
		image, allocation := vulkantest.ExpectImage(ctrl, device, virtualImageInfo(), virtualImageRequirements, 0)
		images = append(images, image)
		allocations = append(allocations, allocation)
	}
	return images, allocations
}

func TestVirtualSwapchain_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)
	realImages := []core1_0.Image{mocks.EasyMockImage(ctrl), mocks.EasyMockImage(ctrl), mocks.EasyMockImage(ctrl)}

	images, allocations := expectVirtualImages(ctrl, device, 3)

	properties, swapchain, err := readySwapchain(t, ctrl, device, realImages)
	require.NoError(t, err)
	require.Equal(t, 3, swapchain.ImageCount())

	for i, image := range images {
		require.Same(t, image, swapchain.Image(i))
		require.NotSame(t, realImages[i], swapchain.Image(i))
	}

	attachment := swapchain.Attachment(2)
	require.Same(t, images[2], attachment.Image)
	require.Equal(t, khr_swapchain.ImageLayoutPresentSrc, attachment.Info.Layout)
	require.Equal(t, uint32(3), properties.AllocationCount())

	for i := range images {
		vulkantest.ExpectDestroyImage(images[i], allocations[i])
	}
	swapchain.Destroy()
	require.Equal(t, uint32(0), properties.AllocationCount())
}

func TestVirtualSwapchain_CreateFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)

	// The first image cannot get memory, so it is destroyed and the second is never created
	image := mocks.EasyMockImage(ctrl)
	device.EXPECT().CreateImage(gomock.Any(), virtualImageInfo()).Return(image, core1_0.VKSuccess, nil)
	image.EXPECT().MemoryRequirements().Return(&virtualImageRequirements)
	device.EXPECT().AllocateMemory(gomock.Any(), gomock.Any()).Return(nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError())
	image.EXPECT().Destroy(gomock.Any())

	properties, _, err := readySwapchain(t, ctrl, device, []core1_0.Image{mocks.EasyMockImage(ctrl), mocks.EasyMockImage(ctrl)})
	require.ErrorContains(t, err, "failed to create virtual swapchain image 0")
	require.Equal(t, uint32(0), properties.AllocationCount())
}

func TestVirtualSwapchain_RecordPresentCopy(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)
	realImages := []core1_0.Image{mocks.EasyMockImage(ctrl), mocks.EasyMockImage(ctrl)}

	expectVirtualImages(ctrl, device, 2)
	_, swapchain, err := readySwapchain(t, ctrl, device, realImages)
	require.NoError(t, err)

	cmd := mocks.EasyMockCommandBuffer(ctrl)

	var barriers [][]core1_0.ImageMemoryBarrier
	cmd.EXPECT().CmdPipelineBarrier(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Nil(), gomock.Any()).DoAndReturn(
		func(src, dst core1_0.PipelineStageFlags, deps core1_0.DependencyFlags, memoryBarriers []core1_0.MemoryBarrier, bufferBarriers []core1_0.BufferMemoryBarrier, imageBarriers []core1_0.ImageMemoryBarrier) error {
			barriers = append(barriers, imageBarriers)
			return nil
		}).Times(4)

	var copies []core1_0.ImageCopy
	cmd.EXPECT().CmdCopyImage(gomock.Any(), core1_0.ImageLayoutTransferSrcOptimal, realImages[1], core1_0.ImageLayoutTransferDstOptimal, gomock.Len(1)).DoAndReturn(
		func(src core1_0.Image, srcLayout core1_0.ImageLayout, dst core1_0.Image, dstLayout core1_0.ImageLayout, regions []core1_0.ImageCopy) error {
			copies = regions
			return nil
		})

	require.NoError(t, swapchain.RecordPresentCopy(cmd, 1))

	virtual := swapchain.Image(1)
	expected := []struct {
		image     core1_0.Image
		oldLayout core1_0.ImageLayout
		newLayout core1_0.ImageLayout
	}{
		{virtual, khr_swapchain.ImageLayoutPresentSrc, core1_0.ImageLayoutTransferSrcOptimal},
		{realImages[1], core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal},
		{realImages[1], core1_0.ImageLayoutTransferDstOptimal, khr_swapchain.ImageLayoutPresentSrc},
		{virtual, core1_0.ImageLayoutTransferSrcOptimal, khr_swapchain.ImageLayoutPresentSrc},
	}

	require.Len(t, barriers, len(expected))
	for i, barrier := range expected {
		require.Len(t, barriers[i], 1)
		require.Same(t, barrier.image, barriers[i][0].Image, "barrier %d", i)
		require.Equal(t, barrier.oldLayout, barriers[i][0].OldLayout, "barrier %d", i)
		require.Equal(t, barrier.newLayout, barriers[i][0].NewLayout, "barrier %d", i)
	}

	require.Len(t, copies, 1)
	require.Equal(t, core1_0.Extent3D{Width: 640, Height: 480, Depth: 1}, copies[0].Extent)
	require.Equal(t, core1_0.ImageAspectColor, copies[0].SrcSubresource.AspectMask)

	require.ErrorContains(t, swapchain.RecordPresentCopy(cmd, 2), "out of range")
}
