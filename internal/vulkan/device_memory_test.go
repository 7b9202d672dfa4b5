package vulkan

import (
	"io"
	"testing"

	"github.com/bjoeris/renderdoc-sub003/internal/vulkantest"
	"github.com/bjoeris/renderdoc-sub003/memutils"
	cerrors "github.com/cockroachdb/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/mocks"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyProperties(t *testing.T, ctrl *gomock.Controller, atomSize int) (*mocks.MockDevice, *DeviceMemoryProperties) {
	device := mocks.NewMockDevice(ctrl)
	properties, err := NewDeviceMemoryProperties(testLogger(), false, nil, device, vulkantest.DiscretePhysicalDevice(ctrl, atomSize))
	require.NoError(t, err)

	return device, properties
}

func TestNewDeviceMemoryProperties_BadAtomSize(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := NewDeviceMemoryProperties(testLogger(), false, nil, mocks.NewMockDevice(ctrl), vulkantest.DiscretePhysicalDevice(ctrl, 48))
	require.True(t, cerrors.Is(err, memutils.PowerOfTwoError))
}

func TestNewDeviceMemoryProperties_MissingMemoryProperties(t *testing.T) {
	ctrl := gomock.NewController(t)

	physicalDevice := mocks.NewMockPhysicalDevice(ctrl)
	properties := vulkantest.DiscreteProperties(1)
	physicalDevice.EXPECT().Properties().Return(&properties, nil)
	physicalDevice.EXPECT().MemoryProperties().Return(nil)

	_, err := NewDeviceMemoryProperties(testLogger(), false, nil, mocks.NewMockDevice(ctrl), physicalDevice)
	require.Error(t, err)
}

func TestDeviceMemoryProperties_Queries(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, properties := readyProperties(t, ctrl, 64)

	require.Equal(t, 4, properties.MemoryTypeCount())
	require.Equal(t, 2, properties.MemoryHeapCount())
	require.Equal(t, 1, properties.MemoryTypeIndexToHeapIndex(3))
	require.Equal(t, uint64(64), properties.NonCoherentAtomSize())
	require.True(t, properties.IsMemoryTypeHostNonCoherent(2))
	require.False(t, properties.IsMemoryTypeHostNonCoherent(3))
	require.False(t, properties.IsMemoryTypeHostNonCoherent(0))
	require.False(t, properties.IsIntegratedGPU())
}

func TestDeviceMemoryProperties_FindMemoryTypeIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, properties := readyProperties(t, ctrl, 1)

	index, _, err := properties.FindMemoryTypeIndex(0xffffffff, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent, core1_0.MemoryPropertyHostVisible)
	require.NoError(t, err)
	require.Equal(t, 3, index)

	// Coherent type masked out, fall back to the cached non-coherent type
	index, _, err = properties.FindMemoryTypeIndex(0b0111, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent, core1_0.MemoryPropertyHostVisible)
	require.NoError(t, err)
	require.Equal(t, 2, index)

	_, res, err := properties.FindMemoryTypeIndex(0b0011, core1_0.MemoryPropertyHostVisible, core1_0.MemoryPropertyHostVisible)
	require.Error(t, err)
	require.Equal(t, core1_0.VKErrorFeatureNotPresent, res)
}

func TestDeviceMemoryProperties_AllocateAndFree(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, properties := readyProperties(t, ctrl, 1)

	allocation := vulkantest.ExpectAllocate(ctrl, device, 1024, 3)

	memory, _, err := properties.AllocateVulkanMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  1024,
		MemoryTypeIndex: 3,
	})
	require.NoError(t, err)
	require.Same(t, allocation.Memory, memory.VulkanDeviceMemory())
	require.Equal(t, uint32(1), properties.AllocationCount())
	require.Equal(t, memutils.HeapStatistics{BlockCount: 1, BlockBytes: 1024}, properties.HeapStatistics(1))
	require.Equal(t, memutils.HeapStatistics{}, properties.HeapStatistics(0))

	allocation.Memory.EXPECT().Free(gomock.Any())
	properties.FreeVulkanMemory(3, 1024, memory)
	require.Equal(t, uint32(0), properties.AllocationCount())
	require.Equal(t, memutils.HeapStatistics{}, properties.HeapStatistics(1))
}

func TestDeviceMemoryProperties_AllocateFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, properties := readyProperties(t, ctrl, 1)

	device.EXPECT().AllocateMemory(gomock.Any(), core1_0.MemoryAllocateInfo{
		AllocationSize:  1024,
		MemoryTypeIndex: 0,
	}).Return(nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError())

	_, res, err := properties.AllocateVulkanMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  1024,
		MemoryTypeIndex: 0,
	})
	require.Error(t, err)
	require.Equal(t, core1_0.VKErrorOutOfDeviceMemory, res)
	require.Equal(t, uint32(0), properties.AllocationCount())
	require.Equal(t, memutils.HeapStatistics{}, properties.HeapStatistics(0))

	// Out of range memory types never reach the driver
	_, _, err = properties.AllocateVulkanMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  1024,
		MemoryTypeIndex: 9,
	})
	require.Error(t, err)
}

func TestDeviceMemoryProperties_FlushBatching(t *testing.T) {
	ctrl := gomock.NewController(t)
	device, properties := readyProperties(t, ctrl, 1)

	// Empty range lists issue nothing
	_, err := properties.FlushOrInvalidateAllocations(nil, CacheOperationFlush)
	require.NoError(t, err)

	memory := mocks.EasyMockDeviceMemory(ctrl)
	ranges := []core1_0.MappedMemoryRange{
		{Memory: memory, Offset: 0, Size: 64},
		{Memory: memory, Offset: 128, Size: memutils.WholeSize},
	}

	device.EXPECT().FlushMappedMemoryRanges(ranges).Return(core1_0.VKSuccess, nil)
	_, err = properties.FlushOrInvalidateAllocations(ranges, CacheOperationFlush)
	require.NoError(t, err)

	device.EXPECT().InvalidateMappedMemoryRanges(ranges).Return(core1_0.VKSuccess, nil)
	_, err = properties.FlushOrInvalidateAllocations(ranges, CacheOperationInvalidate)
	require.NoError(t, err)

	_, err = properties.FlushOrInvalidateAllocations(ranges, CacheOperation(7))
	require.Error(t, err)
}
