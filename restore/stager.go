package restore

import (
	"os"

	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/bjoeris/renderdoc-sub003/memutils"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// ReadBuffer loads a whole file of captured bytes. Failures are logged and produce an empty
// buffer so the caller can continue with zeroed contents.
func ReadBuffer(logger *slog.Logger, path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed to read buffer contents", slog.String("path", path), slog.String("error", err.Error()))
		return []byte{}
	}

	return data
}

// Stager creates host-visible staging buffers around the restore engine
type Stager struct {
	logger     *slog.Logger
	properties *vulkan.DeviceMemoryProperties
	restorer   *Restorer
}

func NewStager(logger *slog.Logger, properties *vulkan.DeviceMemoryProperties, restorer *Restorer) *Stager {
	return &Stager{
		logger:     logger,
		properties: properties,
		restorer:   restorer,
	}
}

// InitializeSourceBuffer creates a TRANSFER_SRC staging buffer holding data laid out through
// remaps. The buffer is large enough for both the captured data and every replay region.
func (s *Stager) InitializeSourceBuffer(data []byte, remaps memutils.MemoryRemapVec) (*vulkan.HostBuffer, error) {
	s.logger.Debug("Stager::InitializeSourceBuffer")

	size := memutils.Max(uint64(len(data)), remaps.ReplayExtent())
	if size == 0 {
		return nil, errors.New("cannot stage an empty source buffer")
	}

	buffer, _, err := s.properties.CreateHostBuffer(core1_0.BufferUsageTransferSrc, int(size))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create source staging buffer")
	}

	mapped, _, err := buffer.Map()
	if err != nil {
		buffer.Destroy()
		return nil, errors.Wrap(err, "failed to map source staging buffer")
	}

	_, err = s.restorer.RestoreInto(Destination{
		Data:           mapped,
		Memory:         buffer.Memory.VulkanDeviceMemory(),
		AllocationSize: uint64(buffer.Size),
	}, data, memutils.Region{Offset: 0, Size: uint64(len(data))}, remaps)

	unmapErr := buffer.Unmap()
	if err == nil {
		err = unmapErr
	}
	if err != nil {
		buffer.Destroy()
		return nil, errors.Wrap(err, "failed to restore source staging buffer")
	}

	return buffer, nil
}

// InitializeDestinationBuffer creates a TRANSFER_DST staging buffer for reading a resource back
func (s *Stager) InitializeDestinationBuffer(size uint64) (*vulkan.HostBuffer, error) {
	s.logger.Debug("Stager::InitializeDestinationBuffer")

	buffer, _, err := s.properties.CreateHostBuffer(core1_0.BufferUsageTransferDst, int(size))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create destination staging buffer")
	}

	return buffer, nil
}
