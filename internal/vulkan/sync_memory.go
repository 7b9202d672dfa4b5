package vulkan

import (
	"unsafe"

	"github.com/bjoeris/renderdoc-sub003/internal/utils"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
)

// SynchronizedMemory wraps one dedicated device memory allocation. Mapping is reference
// counted so the restore engine and the readback path can share a mapping.
type SynchronizedMemory struct {
	mapReferences int
	mapData       unsafe.Pointer
	mapSize       int

	mapMutex utils.OptionalMutex
	memory   core1_0.DeviceMemory
	size     int

	allocationCallbacks *driver.AllocationCallbacks
}

func allocateSynchronizedMemory(device core1_0.Device, useMutex bool, callbacks *driver.AllocationCallbacks, allocateInfo core1_0.MemoryAllocateInfo) (*SynchronizedMemory, common.VkResult, error) {
	memory, res, err := device.AllocateMemory(callbacks, allocateInfo)
	if err != nil {
		return nil, res, err
	}

	mem := &SynchronizedMemory{
		memory:              memory,
		size:                allocateInfo.AllocationSize,
		mapMutex:            utils.NewOptionalMutex(useMutex),
		allocationCallbacks: callbacks,
	}

	return mem, res, nil
}

func (m *SynchronizedMemory) VulkanDeviceMemory() core1_0.DeviceMemory {
	return m.memory
}

// Size is the allocation size requested from the driver
func (m *SynchronizedMemory) Size() int {
	return m.size
}

func (m *SynchronizedMemory) BindVulkanBuffer(offset int, buffer core1_0.Buffer) (common.VkResult, error) {
	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	return buffer.BindBufferMemory(m.memory, offset)
}

func (m *SynchronizedMemory) BindVulkanImage(offset int, image core1_0.Image) (common.VkResult, error) {
	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	return image.BindImageMemory(m.memory, offset)
}

func (m *SynchronizedMemory) References() int {
	return m.mapReferences
}

func (m *SynchronizedMemory) MappedData() unsafe.Pointer {
	return m.mapData
}

// MappedBytes views the current mapping as a byte slice. It returns nil while unmapped.
func (m *SynchronizedMemory) MappedBytes() []byte {
	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	if m.mapData == nil {
		return nil
	}

	return unsafe.Slice((*byte)(m.mapData), m.mapSize)
}

// Map maps the whole allocation on the first reference and hands out the existing mapping
// to later ones
func (m *SynchronizedMemory) Map(references int) (unsafe.Pointer, common.VkResult, error) {
	if references == 0 {
		return nil, core1_0.VKSuccess, nil
	}

	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	if m.mapReferences > 0 {
		m.mapReferences += references
		if m.mapData == nil {
			return nil, core1_0.VKErrorUnknown, errors.New("the allocation is showing existing memory mapping references, but no mapped memory")
		}

		return m.mapData, core1_0.VKSuccess, nil
	}

	mappedData, result, err := m.memory.Map(0, m.size, 0)
	if err != nil {
		return nil, result, err
	}

	m.mapData = mappedData
	m.mapSize = m.size
	m.mapReferences = references
	return mappedData, result, nil
}

func (m *SynchronizedMemory) Unmap(references int) error {
	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	if m.mapReferences == 0 {
		return nil
	}

	if m.mapReferences < references {
		return errors.New("device memory has more references being unmapped than are currently mapped")
	}

	m.mapReferences -= references

	if m.mapReferences <= 0 {
		m.memory.Unmap()
		m.mapData = nil
		m.mapSize = 0
	}

	return nil
}

func (m *SynchronizedMemory) FreeMemory() {
	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	if m.mapData != nil {
		m.memory.Unmap()
		m.mapData = nil
		m.mapReferences = 0
	}

	m.memory.Free(m.allocationCallbacks)
}
