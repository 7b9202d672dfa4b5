// Package session owns the long-lived Vulkan objects one replay run is driven through: a
// single command pool, a single primary command buffer that is re-recorded for every
// operation, a fence, and an acquire/present semaphore pair. Every operation is synchronous;
// there is never more than one submission in flight.
package session

import (
	"math"
	"time"

	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/bjoeris/renderdoc-sub003/memtype"
	"github.com/bjoeris/renderdoc-sub003/names"
	"github.com/bjoeris/renderdoc-sub003/restore"
	"github.com/bjoeris/renderdoc-sub003/transfer"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

const (
	// DefaultAcquireTimeout bounds swapchain image acquisition so that a disconnected surface
	// produces a timeout error instead of a hang
	DefaultAcquireTimeout = 10 * time.Second
	// DefaultFenceTimeout is used when Options.FenceTimeout is zero
	DefaultFenceTimeout = time.Duration(math.MaxInt64)
)

// Options configures a ReplaySession. The zero value is usable.
type Options struct {
	// QueueFamilyIndex selects the queue family the session submits to. When nil, the first
	// family with graphics support is used.
	QueueFamilyIndex *int
	// DeviceQueues lists the queues the device was created with. ClassifyQueue only looks up
	// these and fails when the list is empty.
	DeviceQueues []core1_0.DeviceQueueCreateInfo

	// CapturedMemoryProperties is the memory table of the device the capture was recorded on.
	// When nil the replay device's own table is used.
	CapturedMemoryProperties *core1_0.PhysicalDeviceMemoryProperties

	AcquireTimeout time.Duration
	FenceTimeout   time.Duration

	// UseMutex makes the memory bookkeeping and name table safe to use from several goroutines
	UseMutex bool
	// MaxRegionsPerCommand is passed through to the session's Copier
	MaxRegionsPerCommand int
}

// QueueFamily is the part of a queue family's properties the session needs
type QueueFamily struct {
	Flags      core1_0.QueueFlags
	QueueCount int
}

// ReplaySession is the context for one replay run. It is created once after device creation,
// reused by every operation, and destroyed by Close. It is not safe for concurrent use.
type ReplaySession struct {
	logger *slog.Logger

	instance       core1_0.Instance
	physicalDevice core1_0.PhysicalDevice
	device         core1_0.Device

	properties    *core1_0.PhysicalDeviceProperties
	queueFamilies []QueueFamily
	deviceQueues  []core1_0.DeviceQueueCreateInfo

	queueFamilyIndex int
	queue            core1_0.Queue
	commandPool      core1_0.CommandPool
	commandBuffer    core1_0.CommandBuffer
	fence            core1_0.Fence

	acquireSemaphore core1_0.Semaphore
	presentSemaphore core1_0.Semaphore
	presentation     *Presentation
	imageAcquired    bool

	acquireTimeout time.Duration
	fenceTimeout   time.Duration

	memory     *vulkan.DeviceMemoryProperties
	extensions *vulkan.ExtensionData
	labeler    Labeler

	resolver *memtype.Resolver
	restorer *restore.Restorer
	stager   *restore.Stager
	copier   *transfer.Copier
	names    *names.Table

	closed bool
}

// Open builds a ReplaySession around an already-created device. Every native call made here
// is expected to succeed; any failure is returned and should be treated as fatal.
func Open(logger *slog.Logger, instance core1_0.Instance, physicalDevice core1_0.PhysicalDevice, device core1_0.Device, options Options) (*ReplaySession, error) {
	properties, err := physicalDevice.Properties()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read physical device properties")
	}

	var families []QueueFamily
	for _, family := range physicalDevice.QueueFamilyProperties() {
		families = append(families, QueueFamily{
			Flags:      family.QueueFlags,
			QueueCount: family.QueueCount,
		})
	}

	memory, err := vulkan.NewDeviceMemoryProperties(logger, options.UseMutex, nil, device, physicalDevice)
	if err != nil {
		return nil, err
	}

	extensions := vulkan.NewExtensionData(device, instance)

	session, err := open(logger, device, properties, families, memory, extensions, options)
	if err != nil {
		return nil, err
	}
	session.instance = instance
	session.physicalDevice = physicalDevice

	return session, nil
}

func open(
	logger *slog.Logger,
	device core1_0.Device,
	properties *core1_0.PhysicalDeviceProperties,
	families []QueueFamily,
	memory *vulkan.DeviceMemoryProperties,
	extensions *vulkan.ExtensionData,
	options Options,
) (*ReplaySession, error) {
	logger.Debug("ReplaySession::Open")

	familyIndex, err := selectQueueFamily(families, options.QueueFamilyIndex)
	if err != nil {
		return nil, err
	}

	s := &ReplaySession{
		logger:           logger,
		device:           device,
		properties:       properties,
		queueFamilies:    families,
		deviceQueues:     options.DeviceQueues,
		queueFamilyIndex: familyIndex,
		acquireTimeout:   options.AcquireTimeout,
		fenceTimeout:     options.FenceTimeout,
		memory:           memory,
		extensions:       extensions,
		labeler:          newLabeler(extensions),
	}

	if s.acquireTimeout <= 0 {
		s.acquireTimeout = DefaultAcquireTimeout
	}
	if s.fenceTimeout <= 0 {
		s.fenceTimeout = DefaultFenceTimeout
	}

	err = s.createObjects()
	if err != nil {
		s.destroyObjects()
		return nil, err
	}

	captured := options.CapturedMemoryProperties
	if captured == nil {
		captured = memory.MemoryProperties()
	}
	s.resolver = memtype.NewResolver(logger, captured, memory.MemoryProperties())
	s.restorer = restore.NewRestorer(logger, memory, restore.Options{UseMutex: options.UseMutex})
	s.stager = restore.NewStager(logger, memory, s.restorer)
	s.copier = transfer.NewCopier(logger, transfer.Options{MaxRegionsPerCommand: options.MaxRegionsPerCommand})
	s.names = names.NewTable(logger, options.UseMutex)

	return s, nil
}

func selectQueueFamily(families []QueueFamily, requested *int) (int, error) {
	if requested != nil {
		if *requested < 0 || *requested >= len(families) {
			return -1, errors.Newf("queue family %d requested but the device has %d families", *requested, len(families))
		}
		return *requested, nil
	}

	for index, family := range families {
		if family.Flags&core1_0.QueueGraphics != 0 {
			return index, nil
		}
	}

	return -1, errors.New("the device has no queue family with graphics support")
}

func (s *ReplaySession) createObjects() error {
	s.queue = s.device.GetQueue(s.queueFamilyIndex, 0)

	var res common.VkResult
	var err error

	s.commandPool, res, err = s.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: s.queueFamilyIndex,
	})
	if err != nil {
		return wrapResult(err, res, "vkCreateCommandPool")
	}

	buffers, res, err := s.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        s.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return wrapResult(err, res, "vkAllocateCommandBuffers")
	}
	s.commandBuffer = buffers[0]

	// Signaled so that the first Execute does not wait on a submission that never happened
	s.fence, res, err = s.device.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: core1_0.FenceCreateSignaled,
	})
	if err != nil {
		return wrapResult(err, res, "vkCreateFence")
	}

	s.acquireSemaphore, res, err = s.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return wrapResult(err, res, "vkCreateSemaphore")
	}

	s.presentSemaphore, res, err = s.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return wrapResult(err, res, "vkCreateSemaphore")
	}

	return nil
}

func (s *ReplaySession) destroyObjects() {
	if s.presentSemaphore != nil {
		s.presentSemaphore.Destroy(nil)
		s.presentSemaphore = nil
	}
	if s.acquireSemaphore != nil {
		s.acquireSemaphore.Destroy(nil)
		s.acquireSemaphore = nil
	}
	if s.fence != nil {
		s.fence.Destroy(nil)
		s.fence = nil
	}
	if s.commandBuffer != nil {
		s.device.FreeCommandBuffers([]core1_0.CommandBuffer{s.commandBuffer})
		s.commandBuffer = nil
	}
	if s.commandPool != nil {
		s.commandPool.Destroy(nil)
		s.commandPool = nil
	}
}

// Close waits for the device to go idle and destroys every object the session created. It is
// safe to call more than once.
func (s *ReplaySession) Close() error {
	if s.closed {
		return nil
	}
	s.logger.Debug("ReplaySession::Close")
	s.closed = true

	res, err := s.device.WaitIdle()
	s.destroyObjects()
	s.presentation = nil

	if err != nil {
		return wrapResult(err, res, "vkDeviceWaitIdle")
	}
	return nil
}

func wrapResult(err error, res common.VkResult, call string) error {
	return errors.Wrapf(err, "%s failed with %s", call, res)
}

func (s *ReplaySession) Device() core1_0.Device { return s.device }

func (s *ReplaySession) Instance() core1_0.Instance { return s.instance }

func (s *ReplaySession) PhysicalDevice() core1_0.PhysicalDevice { return s.physicalDevice }

func (s *ReplaySession) Properties() *core1_0.PhysicalDeviceProperties { return s.properties }

func (s *ReplaySession) QueueFamilies() []QueueFamily { return s.queueFamilies }

func (s *ReplaySession) QueueFamilyIndex() int { return s.queueFamilyIndex }

func (s *ReplaySession) Queue() core1_0.Queue { return s.queue }

func (s *ReplaySession) CommandBuffer() core1_0.CommandBuffer { return s.commandBuffer }

func (s *ReplaySession) Memory() *vulkan.DeviceMemoryProperties { return s.memory }

// Extensions reports the optional entry points that were found. Absent entry points are nil.
func (s *ReplaySession) Extensions() *vulkan.ExtensionData { return s.extensions }

func (s *ReplaySession) Resolver() *memtype.Resolver { return s.resolver }

func (s *ReplaySession) Restorer() *restore.Restorer { return s.restorer }

func (s *ReplaySession) Stager() *restore.Stager { return s.stager }

func (s *ReplaySession) Copier() *transfer.Copier { return s.copier }

func (s *ReplaySession) Names() *names.Table { return s.names }
