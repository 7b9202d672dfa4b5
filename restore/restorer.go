// Package restore writes captured resource contents into replay-time device memory, moving
// bytes through the capture-to-replay remap table when the two devices lay the resource out
// differently.
package restore

import (
	"github.com/bjoeris/renderdoc-sub003/internal/utils"
	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/bjoeris/renderdoc-sub003/memutils"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// Flusher issues batched cache maintenance for mapped memory
type Flusher interface {
	FlushOrInvalidateAllocations(memRanges []core1_0.MappedMemoryRange, operation vulkan.CacheOperation) (common.VkResult, error)
	NonCoherentAtomSize() uint64
}

type Options struct {
	// UseMutex guards the restore statistics when restores run from several goroutines
	UseMutex bool
}

// Destination is a mapped replay-time allocation. Data must cover the whole allocation.
type Destination struct {
	Data           []byte
	Memory         core1_0.DeviceMemory
	AllocationSize uint64
}

type Restorer struct {
	logger  *slog.Logger
	flusher Flusher

	statsMutex utils.OptionalMutex
	stats      memutils.RestoreStatistics
}

func NewRestorer(logger *slog.Logger, flusher Flusher, options Options) *Restorer {
	return &Restorer{
		logger:     logger,
		flusher:    flusher,
		statsMutex: utils.NewOptionalMutex(options.UseMutex),
	}
}

type copyOp struct {
	srcOffset uint64
	dstOffset uint64
	size      uint64
}

// restorePlan is computed and bounds-checked in full before any byte is written
type restorePlan struct {
	copies  []copyOp
	skipped int
}

// planDirect copies rng to the same offsets. Only here is rng an offset into the destination;
// with remaps it addresses the capture-time allocation, which may be larger.
func (r *Restorer) planDirect(src []byte, rng memutils.Region, allocationSize uint64) (restorePlan, error) {
	if rng.Offset > allocationSize {
		return restorePlan{}, errors.Wrapf(memutils.RegionOutOfBoundsError, "restore range %s, allocation size %d", rng, allocationSize)
	}

	size := memutils.Min(rng.Size, allocationSize-rng.Offset)
	if uint64(len(src)) < size {
		return restorePlan{}, errors.Newf("source holds %d bytes but the restore range needs %d", len(src), size)
	}

	var plan restorePlan
	if size > 0 {
		plan.copies = append(plan.copies, copyOp{srcOffset: 0, dstOffset: rng.Offset, size: size})
	}
	return plan, nil
}

func (r *Restorer) planRemapped(src []byte, rng memutils.Region, allocationSize uint64, remaps memutils.MemoryRemapVec) (restorePlan, error) {
	err := remaps.Validate(allocationSize)
	if err != nil {
		return restorePlan{}, err
	}

	var plan restorePlan
	for i, remap := range remaps {
		if !memutils.Overlaps(remap.Capture, rng) {
			continue
		}

		inter := memutils.Intersect(remap.Capture, rng)
		skippedResource := inter.Offset - remap.Capture.Offset
		skippedMemory := inter.Offset - rng.Offset

		if skippedResource >= remap.Replay.Size {
			// The replay layout of this resource is smaller than the captured bytes that reach it
			plan.skipped++
			continue
		}

		size := memutils.Min(inter.Size, remap.Replay.Size-skippedResource)
		dstOffset := remap.Replay.Offset + skippedResource

		if skippedMemory+size > uint64(len(src)) {
			return restorePlan{}, errors.Newf("remap entry %d reads [%d, %d) from a source of %d bytes", i, skippedMemory, skippedMemory+size, len(src))
		}

		plan.copies = append(plan.copies, copyOp{srcOffset: skippedMemory, dstOffset: dstOffset, size: size})
	}

	return plan, nil
}

// flushRange rounds [offset, offset+size) out to the flush granularity. A range whose rounded
// end passes the end of the allocation flushes to the end of the allocation instead.
func flushRange(memory core1_0.DeviceMemory, offset, size, allocationSize, atomSize uint64) (core1_0.MappedMemoryRange, bool) {
	start := memutils.AlignDown(offset, atomSize)
	end := memutils.AlignUp(offset+size, atomSize)

	if end > allocationSize {
		return core1_0.MappedMemoryRange{
			Memory: memory,
			Offset: int(start),
			Size:   memutils.WholeSize,
		}, true
	}

	return core1_0.MappedMemoryRange{
		Memory: memory,
		Offset: int(start),
		Size:   int(end - start),
	}, false
}

// RestoreInto copies the captured bytes in src into dst. src[0] holds byte rng.Offset of the
// capture-time allocation. With an empty remap table the bytes land at the same offsets;
// otherwise each remap entry overlapping rng moves its share of the bytes to its replay region.
// Every written span is flushed in one batched call.
func (r *Restorer) RestoreInto(dst Destination, src []byte, rng memutils.Region, remaps memutils.MemoryRemapVec) (common.VkResult, error) {
	r.logger.Debug("Restorer::RestoreInto")

	if uint64(len(dst.Data)) < dst.AllocationSize {
		return core1_0.VKErrorUnknown, errors.Newf("destination maps %d bytes of a %d byte allocation", len(dst.Data), dst.AllocationSize)
	}

	var plan restorePlan
	var err error
	if remaps.Identity() {
		plan, err = r.planDirect(src, rng, dst.AllocationSize)
	} else {
		plan, err = r.planRemapped(src, rng, dst.AllocationSize, remaps)
	}
	if err != nil {
		return core1_0.VKErrorUnknown, err
	}

	atomSize := r.flusher.NonCoherentAtomSize()
	ranges := make([]core1_0.MappedMemoryRange, 0, len(plan.copies))
	var stats memutils.RestoreStatistics
	stats.RestoreCount = 1
	stats.RemapsSkipped = plan.skipped

	for _, op := range plan.copies {
		copy(dst.Data[op.dstOffset:op.dstOffset+op.size], src[op.srcOffset:op.srcOffset+op.size])

		memRange, wholeSize := flushRange(dst.Memory, op.dstOffset, op.size, dst.AllocationSize, atomSize)
		ranges = append(ranges, memRange)

		stats.BytesCopied += op.size
		if wholeSize {
			stats.WholeSizeFlush++
		}
	}
	if !remaps.Identity() {
		stats.RemapsApplied = len(plan.copies)
	}
	stats.FlushRanges = len(ranges)

	r.statsMutex.Lock()
	r.stats.AddStatistics(&stats)
	r.statsMutex.Unlock()

	return r.flusher.FlushOrInvalidateAllocations(ranges, vulkan.CacheOperationFlush)
}

// Statistics returns a snapshot of everything restored so far
func (r *Restorer) Statistics() memutils.RestoreStatistics {
	r.statsMutex.Lock()
	defer r.statsMutex.Unlock()

	return r.stats
}
