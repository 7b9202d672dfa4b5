// Package vulkantest sets up vkngwrapper mocks the way the replay core uses them: physical
// devices reporting fixed tables, and device memory backed by Go byte slices so mapped
// writes can be inspected.
package vulkantest

import (
	"unsafe"

	"github.com/golang/mock/gomock"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/mocks"
)

// DiscreteMemoryProperties has separate device-local and host-visible heaps, with a
// non-coherent host-visible type at index 2 and a coherent one at index 3
func DiscreteMemoryProperties() core1_0.PhysicalDeviceMemoryProperties {
	return core1_0.PhysicalDeviceMemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal, HeapIndex: 0},
			{PropertyFlags: 0, HeapIndex: 1},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCached, HeapIndex: 1},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent, HeapIndex: 1},
		},
		MemoryHeaps: []core1_0.MemoryHeap{
			{Size: 8000000000, Flags: core1_0.MemoryHeapDeviceLocal},
			{Size: 16000000000, Flags: 0},
		},
	}
}

func DiscreteProperties(nonCoherentAtomSize int) core1_0.PhysicalDeviceProperties {
	return core1_0.PhysicalDeviceProperties{
		DriverType: core1_0.PhysicalDeviceTypeDiscreteGPU,
		DriverName: "Mock Discrete GPU",
		Limits: &core1_0.PhysicalDeviceLimits{
			NonCoherentAtomSize:      nonCoherentAtomSize,
			BufferImageGranularity:   1,
			MaxMemoryAllocationCount: 4096,
		},
	}
}

// MockPhysicalDevice reports properties and memoryProperties any number of times
func MockPhysicalDevice(ctrl *gomock.Controller, properties core1_0.PhysicalDeviceProperties, memoryProperties core1_0.PhysicalDeviceMemoryProperties) *mocks.MockPhysicalDevice {
	physicalDevice := mocks.NewMockPhysicalDevice(ctrl)
	physicalDevice.EXPECT().Handle().Return(mocks.NewFakePhysicalDeviceHandle()).AnyTimes()
	physicalDevice.EXPECT().Properties().DoAndReturn(func() (*core1_0.PhysicalDeviceProperties, error) {
		props := properties
		return &props, nil
	}).AnyTimes()
	physicalDevice.EXPECT().MemoryProperties().DoAndReturn(func() *core1_0.PhysicalDeviceMemoryProperties {
		props := memoryProperties
		return &props
	}).AnyTimes()

	return physicalDevice
}

func DiscretePhysicalDevice(ctrl *gomock.Controller, nonCoherentAtomSize int) *mocks.MockPhysicalDevice {
	return MockPhysicalDevice(ctrl, DiscreteProperties(nonCoherentAtomSize), DiscreteMemoryProperties())
}

// Allocation is a mocked device memory allocation whose mapping is Data
type Allocation struct {
	Memory *mocks.MockDeviceMemory
	Data   []byte
}

// MockAllocation maps Data any number of times. Unmap and Free are left for the test to expect.
func MockAllocation(ctrl *gomock.Controller, size int) *Allocation {
	allocation := &Allocation{
		Memory: mocks.EasyMockDeviceMemory(ctrl),
		Data:   make([]byte, size),
	}

	allocation.Memory.EXPECT().Map(gomock.Any(), gomock.Any(), core1_0.MemoryMapFlags(0)).DoAndReturn(
		func(offset int, _ int, _ core1_0.MemoryMapFlags) (unsafe.Pointer, common.VkResult, error) {
			return unsafe.Pointer(&allocation.Data[offset]), core1_0.VKSuccess, nil
		}).AnyTimes()

	return allocation
}

// ExpectAllocate expects one vkAllocateMemory call for size bytes of memoryType
func ExpectAllocate(ctrl *gomock.Controller, device *mocks.MockDevice, size int, memoryType int) *Allocation {
	allocation := MockAllocation(ctrl, size)
	device.EXPECT().AllocateMemory(gomock.Any(), core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryType,
	}).Return(allocation.Memory, core1_0.VKSuccess, nil)

	return allocation
}

// BufferSetup describes one buffer a test expects the device to create
type BufferSetup struct {
	Usage core1_0.BufferUsageFlags
	Size  int
	// Requirements defaults to Size bytes in any memory type
	Requirements *core1_0.MemoryRequirements
	// MemoryType is the type the allocation is expected to come from
	MemoryType int
}

// ExpectBuffer expects a buffer to be created, allocated for, and bound to offset 0 of a
// fresh allocation
func ExpectBuffer(ctrl *gomock.Controller, device *mocks.MockDevice, setup BufferSetup) (*mocks.MockBuffer, *Allocation) {
	requirements := core1_0.MemoryRequirements{
		Size:           setup.Size,
		Alignment:      1,
		MemoryTypeBits: 0xffffffff,
	}
	if setup.Requirements != nil {
		requirements = *setup.Requirements
	}

	buffer := mocks.EasyMockBuffer(ctrl)
	device.EXPECT().CreateBuffer(gomock.Any(), core1_0.BufferCreateInfo{
		Size:        setup.Size,
		Usage:       setup.Usage,
		SharingMode: core1_0.SharingModeExclusive,
	}).Return(buffer, core1_0.VKSuccess, nil)
	buffer.EXPECT().MemoryRequirements().Return(&requirements)

	allocation := ExpectAllocate(ctrl, device, requirements.Size, setup.MemoryType)
	buffer.EXPECT().BindBufferMemory(allocation.Memory, 0).Return(core1_0.VKSuccess, nil)

	return buffer, allocation
}

// ExpectImage expects an image to be created from info, allocated for in memoryType, and bound
// to offset 0 of a fresh allocation
func ExpectImage(ctrl *gomock.Controller, device *mocks.MockDevice, info core1_0.ImageCreateInfo, requirements core1_0.MemoryRequirements, memoryType int) (*mocks.MockImage, *Allocation) {
	image := mocks.EasyMockImage(ctrl)
	device.EXPECT().CreateImage(gomock.Any(), info).Return(image, core1_0.VKSuccess, nil)
	image.EXPECT().MemoryRequirements().Return(&requirements)

	allocation := ExpectAllocate(ctrl, device, requirements.Size, memoryType)
	image.EXPECT().BindImageMemory(allocation.Memory, 0).Return(core1_0.VKSuccess, nil)

	return image, allocation
}

// ExpectDestroyBuffer expects a buffer and its allocation to be released
func ExpectDestroyBuffer(buffer *mocks.MockBuffer, allocation *Allocation) {
	buffer.EXPECT().Destroy(gomock.Any())
	allocation.Memory.EXPECT().Free(gomock.Any())
}

// ExpectDestroyImage expects an image and its allocation to be released
func ExpectDestroyImage(image *mocks.MockImage, allocation *Allocation) {
	image.EXPECT().Destroy(gomock.Any())
	allocation.Memory.EXPECT().Free(gomock.Any())
}
