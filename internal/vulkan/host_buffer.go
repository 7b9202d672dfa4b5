package vulkan

import (
	"github.com/bjoeris/renderdoc-sub003/memutils"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// HostBuffer is a buffer backed by its own host-visible allocation. It is used for staging
// captured contents into device resources and for reading resources back.
type HostBuffer struct {
	Buffer     core1_0.Buffer
	Memory     *SynchronizedMemory
	Size       int
	MemoryType int

	properties *DeviceMemoryProperties
}

// CreateHostBuffer creates a buffer of the requested size and usage bound to a fresh
// host-visible allocation, preferring coherent memory
func (m *DeviceMemoryProperties) CreateHostBuffer(usage core1_0.BufferUsageFlags, size int) (*HostBuffer, common.VkResult, error) {
	m.logger.Debug("DeviceMemoryProperties::CreateHostBuffer")

	if size <= 0 {
		return nil, core1_0.VKErrorUnknown, errors.Newf("cannot create a host buffer of size %d", size)
	}

	buffer, res, err := m.device.CreateBuffer(m.allocationCallbacks, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, res, err
	}

	requirements := buffer.MemoryRequirements()
	memoryType, res, err := m.FindMemoryTypeIndex(
		requirements.MemoryTypeBits,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent,
		core1_0.MemoryPropertyHostVisible,
	)
	if err != nil {
		buffer.Destroy(m.allocationCallbacks)
		return nil, res, err
	}

	memory, res, err := m.AllocateVulkanMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	})
	if err != nil {
		buffer.Destroy(m.allocationCallbacks)
		return nil, res, err
	}

	res, err = memory.BindVulkanBuffer(0, buffer)
	if err != nil {
		buffer.Destroy(m.allocationCallbacks)
		m.FreeVulkanMemory(memoryType, requirements.Size, memory)
		return nil, res, err
	}

	return &HostBuffer{
		Buffer:     buffer,
		Memory:     memory,
		Size:       size,
		MemoryType: memoryType,
		properties: m,
	}, core1_0.VKSuccess, nil
}

// Map returns the buffer contents as a byte slice of the buffer's size
func (b *HostBuffer) Map() ([]byte, common.VkResult, error) {
	_, res, err := b.Memory.Map(1)
	if err != nil {
		return nil, res, err
	}

	data := b.Memory.MappedBytes()
	if len(data) < b.Size {
		_ = b.Memory.Unmap(1)
		return nil, core1_0.VKErrorMemoryMapFailed, errors.Newf("mapped %d bytes for a buffer of size %d", len(data), b.Size)
	}

	return data[:b.Size], res, nil
}

func (b *HostBuffer) Unmap() error {
	return b.Memory.Unmap(1)
}

// Invalidate makes device writes visible to the host when the memory is not coherent
func (b *HostBuffer) Invalidate() (common.VkResult, error) {
	if !b.properties.IsMemoryTypeHostNonCoherent(b.MemoryType) {
		return core1_0.VKSuccess, nil
	}

	return b.properties.FlushOrInvalidateAllocations([]core1_0.MappedMemoryRange{
		{
			Memory: b.Memory.VulkanDeviceMemory(),
			Offset: 0,
			Size:   memutils.WholeSize,
		},
	}, CacheOperationInvalidate)
}

// Flush makes host writes visible to the device when the memory is not coherent
func (b *HostBuffer) Flush() (common.VkResult, error) {
	if !b.properties.IsMemoryTypeHostNonCoherent(b.MemoryType) {
		return core1_0.VKSuccess, nil
	}

	return b.properties.FlushOrInvalidateAllocations([]core1_0.MappedMemoryRange{
		{
			Memory: b.Memory.VulkanDeviceMemory(),
			Offset: 0,
			Size:   memutils.WholeSize,
		},
	}, CacheOperationFlush)
}

func (b *HostBuffer) Destroy() {
	b.Buffer.Destroy(b.properties.allocationCallbacks)
	b.properties.FreeVulkanMemory(b.MemoryType, b.Memory.Size(), b.Memory)
}

// DeviceImage is an image backed by its own device-local allocation
type DeviceImage struct {
	Image      core1_0.Image
	Memory     *SynchronizedMemory
	MemoryType int
	Info       core1_0.ImageCreateInfo

	properties *DeviceMemoryProperties
}

// CreateDeviceImage creates an image and binds it to a fresh device-local allocation
func (m *DeviceMemoryProperties) CreateDeviceImage(info core1_0.ImageCreateInfo) (*DeviceImage, common.VkResult, error) {
	m.logger.Debug("DeviceMemoryProperties::CreateDeviceImage")

	image, res, err := m.device.CreateImage(m.allocationCallbacks, info)
	if err != nil {
		return nil, res, err
	}

	requirements := image.MemoryRequirements()
	memoryType, res, err := m.FindMemoryTypeIndex(requirements.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal, 0)
	if err != nil {
		image.Destroy(m.allocationCallbacks)
		return nil, res, err
	}

	memory, res, err := m.AllocateVulkanMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	})
	if err != nil {
		image.Destroy(m.allocationCallbacks)
		return nil, res, err
	}

	res, err = memory.BindVulkanImage(0, image)
	if err != nil {
		image.Destroy(m.allocationCallbacks)
		m.FreeVulkanMemory(memoryType, requirements.Size, memory)
		return nil, res, err
	}

	return &DeviceImage{
		Image:      image,
		Memory:     memory,
		MemoryType: memoryType,
		Info:       info,
		properties: m,
	}, core1_0.VKSuccess, nil
}

func (i *DeviceImage) Destroy() {
	i.Image.Destroy(i.properties.allocationCallbacks)
	i.properties.FreeVulkanMemory(i.MemoryType, i.Memory.Size(), i.Memory)
}
