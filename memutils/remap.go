package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

// MemoryRemap associates the bytes a resource occupied in a capture-time allocation with the
// bytes the same resource occupies in the replay-time allocation. The two sizes may differ
// when the replay driver pads the resource differently.
type MemoryRemap struct {
	Capture Region
	Replay  Region
}

// CopySize is the number of bytes that can move from the capture region to the replay region
func (m MemoryRemap) CopySize() uint64 {
	return Min(m.Capture.Size, m.Replay.Size)
}

// MemoryRemapVec is the ordered remap table for one allocation. An empty table means the
// capture and replay layouts are identical.
type MemoryRemapVec []MemoryRemap

// Identity is true when the table is empty and bytes can be copied across directly
func (v MemoryRemapVec) Identity() bool {
	return len(v) == 0
}

// ReplayExtent returns the first byte past the end of the furthest replay region
func (v MemoryRemapVec) ReplayExtent() uint64 {
	var extent uint64
	for _, remap := range v {
		extent = Max(extent, remap.Replay.End())
	}
	return extent
}

// Validate verifies that every replay region fits inside an allocation of the provided size
func (v MemoryRemapVec) Validate(replayAllocationSize uint64) error {
	for i, remap := range v {
		err := remap.Replay.CheckBounds(replayAllocationSize)
		if err != nil {
			return cerrors.Wrapf(err, "remap entry %d", i)
		}
	}

	return nil
}
