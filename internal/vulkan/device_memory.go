package vulkan

import (
	"fmt"
	"sync/atomic"

	"github.com/bjoeris/renderdoc-sub003/memtype"
	"github.com/bjoeris/renderdoc-sub003/memutils"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"golang.org/x/exp/slog"
)

// PropertySource is the part of a physical device that DeviceMemoryProperties reads once at creation
type PropertySource interface {
	Properties() (*core1_0.PhysicalDeviceProperties, error)
	MemoryProperties() *core1_0.PhysicalDeviceMemoryProperties
}

// DeviceMemoryProperties caches the physical device tables the replay needs on every call and
// keeps per-heap accounting of the dedicated allocations made through it. One is created per
// replay session.
type DeviceMemoryProperties struct {
	logger *slog.Logger

	// Number of real allocations that have been made from device memory
	blockCount [common.MaxMemoryHeaps]int32
	// Size of real allocations that have been made from device memory
	blockBytes [common.MaxMemoryHeaps]int64

	// Whether the SynchronizedMemory objects created from this object should use a mutex to control access
	useMutex            bool
	allocationCallbacks *driver.AllocationCallbacks
	memoryCount         uint32

	device           core1_0.Device
	deviceProperties *core1_0.PhysicalDeviceProperties
	memoryProperties *core1_0.PhysicalDeviceMemoryProperties
}

func NewDeviceMemoryProperties(
	logger *slog.Logger,
	useMutex bool,
	allocationCallbacks *driver.AllocationCallbacks,
	device core1_0.Device,
	physicalDevice PropertySource,
) (*DeviceMemoryProperties, error) {
	deviceProperties := &DeviceMemoryProperties{
		logger:              logger,
		useMutex:            useMutex,
		allocationCallbacks: allocationCallbacks,

		device: device,
	}

	var err error
	deviceProperties.deviceProperties, err = physicalDevice.Properties()
	if err != nil {
		return nil, err
	}

	deviceProperties.memoryProperties = physicalDevice.MemoryProperties()
	if deviceProperties.memoryProperties == nil {
		return nil, errors.New("physical device did not report memory properties")
	}

	if deviceProperties.deviceProperties.Limits != nil {
		err = memutils.CheckPow2(deviceProperties.deviceProperties.Limits.NonCoherentAtomSize, "device nonCoherentAtomSize")
		if err != nil {
			return nil, err
		}
	}

	if deviceProperties.MemoryHeapCount() > common.MaxMemoryHeaps {
		return nil, errors.Newf("physical device reported %d memory heaps, more than the maximum of %d", deviceProperties.MemoryHeapCount(), common.MaxMemoryHeaps)
	}

	return deviceProperties, nil
}

func (m *DeviceMemoryProperties) MemoryTypeCount() int {
	return len(m.memoryProperties.MemoryTypes)
}

func (m *DeviceMemoryProperties) MemoryHeapCount() int {
	return len(m.memoryProperties.MemoryHeaps)
}

func (m *DeviceMemoryProperties) MemoryTypeIndexToHeapIndex(memTypeIndex int) int {
	return m.memoryProperties.MemoryTypes[memTypeIndex].HeapIndex
}

func (m *DeviceMemoryProperties) DeviceProperties() *core1_0.PhysicalDeviceProperties {
	return m.deviceProperties
}

func (m *DeviceMemoryProperties) MemoryProperties() *core1_0.PhysicalDeviceMemoryProperties {
	return m.memoryProperties
}

func (m *DeviceMemoryProperties) MemoryTypeProperties(memoryTypeIndex int) core1_0.MemoryType {
	return m.memoryProperties.MemoryTypes[memoryTypeIndex]
}

func (m *DeviceMemoryProperties) MemoryHeapProperties(heapIndex int) core1_0.MemoryHeap {
	return m.memoryProperties.MemoryHeaps[heapIndex]
}

// NonCoherentAtomSize is the alignment host writes to non-coherent memory must be flushed at
func (m *DeviceMemoryProperties) NonCoherentAtomSize() uint64 {
	if m.deviceProperties.Limits == nil || m.deviceProperties.Limits.NonCoherentAtomSize < 1 {
		return 1
	}

	return uint64(m.deviceProperties.Limits.NonCoherentAtomSize)
}

func (m *DeviceMemoryProperties) IsMemoryTypeHostNonCoherent(memoryTypeIndex int) bool {
	flags := m.memoryProperties.MemoryTypes[memoryTypeIndex].PropertyFlags

	return flags&(core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent) == core1_0.MemoryPropertyHostVisible
}

func (m *DeviceMemoryProperties) IsIntegratedGPU() bool {
	return m.deviceProperties.DriverType == core1_0.PhysicalDeviceTypeIntegratedGPU
}

// FindMemoryTypeIndex picks the first allowed memory type carrying every required flag, falling
// back to the first allowed type carrying the fallback flags
func (m *DeviceMemoryProperties) FindMemoryTypeIndex(memoryTypeBits uint32, required, fallback core1_0.MemoryPropertyFlags) (int, common.VkResult, error) {
	m.logger.Debug("DeviceMemoryProperties::FindMemoryTypeIndex")

	index, found := memtype.ResolveMemoryType(required, memoryTypeBits, m.memoryProperties)
	if found {
		return index, core1_0.VKSuccess, nil
	}

	index, found = memtype.ResolveMemoryType(fallback, memoryTypeBits, m.memoryProperties)
	if found {
		return index, core1_0.VKSuccess, nil
	}

	return memtype.NoMemoryType, core1_0.VKErrorFeatureNotPresent, errors.Wrapf(core1_0.VKErrorFeatureNotPresent.ToError(),
		"no memory type in bits %b has flags %s", memoryTypeBits, required)
}

func (m *DeviceMemoryProperties) addBlockAllocation(heapIndex int, allocationSize int) {
	atomic.AddInt64(&m.blockBytes[heapIndex], int64(allocationSize))
	atomic.AddInt32(&m.blockCount[heapIndex], 1)
}

func (m *DeviceMemoryProperties) removeBlockAllocation(heapIndex, allocationSize int) {
	newVal := atomic.AddInt64(&m.blockBytes[heapIndex], int64(-allocationSize))

	if newVal < 0 {
		panic(fmt.Sprintf("block bytes for heapIndex %d went negative", heapIndex))
	}

	newCountVal := atomic.AddInt32(&m.blockCount[heapIndex], -1)
	if newCountVal < 0 {
		panic(fmt.Sprintf("block count for heapIndex %d went negative", heapIndex))
	}
}

// AllocateVulkanMemory makes one dedicated device memory allocation and records it against its heap
func (m *DeviceMemoryProperties) AllocateVulkanMemory(
	allocateInfo core1_0.MemoryAllocateInfo,
) (mem *SynchronizedMemory, res common.VkResult, err error) {
	m.logger.Debug("DeviceMemoryProperties::AllocateVulkanMemory")

	if allocateInfo.MemoryTypeIndex < 0 || allocateInfo.MemoryTypeIndex >= m.MemoryTypeCount() {
		return nil, core1_0.VKErrorUnknown, errors.Newf("memory type index %d is out of range", allocateInfo.MemoryTypeIndex)
	}

	newDeviceCount := atomic.AddUint32(&m.memoryCount, 1)
	defer func() {
		// If we failed out, roll back the device increment
		if err != nil {
			// Decrement
			atomic.AddUint32(&m.memoryCount, ^uint32(0))
		}
	}()

	if m.deviceProperties.Limits != nil && m.deviceProperties.Limits.MaxMemoryAllocationCount > 0 &&
		int(newDeviceCount) > m.deviceProperties.Limits.MaxMemoryAllocationCount {
		return nil, core1_0.VKErrorTooManyObjects, core1_0.VKErrorTooManyObjects.ToError()
	}

	mem, res, err = allocateSynchronizedMemory(m.device, m.useMutex, m.allocationCallbacks, allocateInfo)
	if err != nil {
		return nil, res, err
	}

	heapIndex := m.MemoryTypeIndexToHeapIndex(allocateInfo.MemoryTypeIndex)
	m.addBlockAllocation(heapIndex, allocateInfo.AllocationSize)

	return mem, res, nil
}

func (m *DeviceMemoryProperties) FreeVulkanMemory(memoryType int, size int, memory *SynchronizedMemory) {
	m.logger.Debug("DeviceMemoryProperties::FreeVulkanMemory")

	memory.FreeMemory()

	heapIndex := m.MemoryTypeIndexToHeapIndex(memoryType)
	m.removeBlockAllocation(heapIndex, size)
	// Decrement
	atomic.AddUint32(&m.memoryCount, ^uint32(0))
}

func (m *DeviceMemoryProperties) AllocationCount() uint32 {
	return atomic.LoadUint32(&m.memoryCount)
}

// HeapStatistics reports the live dedicated allocations recorded against a heap
func (m *DeviceMemoryProperties) HeapStatistics(heapIndex int) memutils.HeapStatistics {
	return memutils.HeapStatistics{
		BlockCount: int(atomic.LoadInt32(&m.blockCount[heapIndex])),
		BlockBytes: int(atomic.LoadInt64(&m.blockBytes[heapIndex])),
	}
}

type CacheOperation uint32

const (
	CacheOperationFlush CacheOperation = iota
	CacheOperationInvalidate
)

var cacheOperationMapping = make(map[CacheOperation]string)

func (o CacheOperation) String() string {
	return cacheOperationMapping[o]
}

func init() {
	cacheOperationMapping[CacheOperationFlush] = "CacheOperationFlush"
	cacheOperationMapping[CacheOperationInvalidate] = "CacheOperationInvalidate"
}

// FlushOrInvalidateAllocations issues every range in a single driver call. An empty range
// list issues nothing.
func (m *DeviceMemoryProperties) FlushOrInvalidateAllocations(memRanges []core1_0.MappedMemoryRange, operation CacheOperation) (common.VkResult, error) {
	if len(memRanges) == 0 {
		return core1_0.VKSuccess, nil
	}

	switch operation {
	case CacheOperationFlush:
		return m.device.FlushMappedMemoryRanges(memRanges)
	case CacheOperationInvalidate:
		return m.device.InvalidateMappedMemoryRanges(memRanges)
	}

	return core1_0.VKErrorUnknown, errors.Newf("attempted to carry out invalid cache operation %s", operation.String())
}
