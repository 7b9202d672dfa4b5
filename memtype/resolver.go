package memtype

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// Resolver carries the memory property tables for the capture device and the present device.
// The capture table comes from the capture file, the present table from the live physical device.
type Resolver struct {
	logger   *slog.Logger
	captured *core1_0.PhysicalDeviceMemoryProperties
	present  *core1_0.PhysicalDeviceMemoryProperties
}

func NewResolver(logger *slog.Logger, captured, present *core1_0.PhysicalDeviceMemoryProperties) *Resolver {
	return &Resolver{
		logger:   logger,
		captured: captured,
		present:  present,
	}
}

func (r *Resolver) Captured() *core1_0.PhysicalDeviceMemoryProperties {
	return r.captured
}

func (r *Resolver) Present() *core1_0.PhysicalDeviceMemoryProperties {
	return r.present
}

// SetPresent replaces the present device's memory table, used when the live table is
// observed through an intercepted properties query
func (r *Resolver) SetPresent(present *core1_0.PhysicalDeviceMemoryProperties) {
	r.present = present
}

// SetCaptured replaces the capture device's memory table
func (r *Resolver) SetCaptured(captured *core1_0.PhysicalDeviceMemoryProperties) {
	r.captured = captured
}

// Resolve finds the first present-device memory type allowed by availableBits that carries every required flag
func (r *Resolver) Resolve(required core1_0.MemoryPropertyFlags, availableBits uint32) (int, bool) {
	return ResolveMemoryType(required, availableBits, r.present)
}

// Translate maps a memory type index recorded on the capture device to the present device
func (r *Resolver) Translate(capturedIndex int, availableBits uint32) (int, bool) {
	r.logger.Debug("Resolver::Translate")
	return TranslateCompatibleType(capturedIndex, r.captured, r.present, availableBits)
}

// Check runs CheckCompatibility and logs a warning when the two resolutions disagree. Replay
// always continues.
func (r *Resolver) Check(memoryType int, requirements core1_0.MemoryRequirements) Compatibility {
	result := CheckCompatibility(memoryType, r.captured, r.present, requirements)

	if !result.Compatible() {
		r.logger.Warn("memory type compatibility mismatch",
			slog.Int("capturedMemoryType", memoryType),
			slog.String("resolution", result.String()),
			slog.Uint64("memoryTypeBits", uint64(requirements.MemoryTypeBits)),
		)
	}

	return result
}
