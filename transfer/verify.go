package transfer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// MappableMemory is the part of a device memory allocation VerifyUnchanged maps
type MappableMemory interface {
	Map(offset int, size int, flags core1_0.MemoryMapFlags) (unsafe.Pointer, common.VkResult, error)
	Unmap()
}

func mapBytes(memory MappableMemory, offset, size int) ([]byte, error) {
	ptr, _, err := memory.Map(offset, size, 0)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

// VerifyUnchanged compares size bytes of expected at expectedOffset against actual at
// actualOffset. A difference is reported as a warning and returned as false; only a failure to
// map either allocation is an error.
func VerifyUnchanged(logger *slog.Logger, expected MappableMemory, expectedOffset int, actual MappableMemory, actualOffset int, size int, label string) (bool, error) {
	if size <= 0 {
		return true, nil
	}

	var expectedBytes, actualBytes []byte

	if expected == actual {
		// An allocation may only be mapped once at a time
		start := expectedOffset
		if actualOffset < start {
			start = actualOffset
		}
		end := expectedOffset + size
		if actualOffset+size > end {
			end = actualOffset + size
		}

		data, err := mapBytes(expected, start, end-start)
		if err != nil {
			return false, errors.Wrapf(err, "failed to map %s", label)
		}
		defer expected.Unmap()

		expectedBytes = data[expectedOffset-start : expectedOffset-start+size]
		actualBytes = data[actualOffset-start : actualOffset-start+size]
	} else {
		var err error
		expectedBytes, err = mapBytes(expected, expectedOffset, size)
		if err != nil {
			return false, errors.Wrapf(err, "failed to map expected contents of %s", label)
		}
		defer expected.Unmap()

		actualBytes, err = mapBytes(actual, actualOffset, size)
		if err != nil {
			return false, errors.Wrapf(err, "failed to map actual contents of %s", label)
		}
		defer actual.Unmap()
	}

	firstDiff := -1
	diffCount := 0
	for i := 0; i < size; i++ {
		if expectedBytes[i] != actualBytes[i] {
			if firstDiff < 0 {
				firstDiff = i
			}
			diffCount++
		}
	}

	if diffCount == 0 {
		return true, nil
	}

	logger.Warn("resource contents changed",
		slog.String("resource", label),
		slog.Int("firstDifference", firstDiff),
		slog.Int("differingBytes", diffCount),
		slog.Int("size", size),
	)
	return false, nil
}
