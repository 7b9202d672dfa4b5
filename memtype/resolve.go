// Package memtype maps memory type indices recorded against one physical device onto the
// memory types of the device a capture is being replayed on.
//
// Resolution is first-match: the lowest index whose property flags are a superset of the
// requested flags wins. On a unified-memory capture device a single memory type can satisfy
// several flag combinations at once, so a best-match search could pick a different index than
// the application originally did. First-match keeps replay reproducible on a given device and
// is accepted as an approximation. A matching flag set is also treated as a compatible
// allocation even though size and alignment requirements may differ between devices.
package memtype

import (
	"github.com/vkngwrapper/core/v2/core1_0"
)

// NoMemoryType is returned alongside false when no memory type satisfies a request
const NoMemoryType int = -1

// ResolveMemoryType returns the first memory type index, scanning upward from zero, whose bit is
// set in availableBits and whose property flags contain every flag in required.
func ResolveMemoryType(required core1_0.MemoryPropertyFlags, availableBits uint32, props *core1_0.PhysicalDeviceMemoryProperties) (int, bool) {
	if props == nil {
		return NoMemoryType, false
	}

	for memoryTypeIndex, memoryType := range props.MemoryTypes {
		if memoryTypeIndex >= 32 {
			break
		}

		if availableBits&(1<<memoryTypeIndex) == 0 {
			continue
		}

		if memoryType.PropertyFlags&required == required {
			return memoryTypeIndex, true
		}
	}

	return NoMemoryType, false
}

// TranslateCompatibleType looks up the property flags the capture device associated with
// capturedIndex and resolves those flags against the present device's memory types.
func TranslateCompatibleType(capturedIndex int, captured, present *core1_0.PhysicalDeviceMemoryProperties, availableBits uint32) (int, bool) {
	if captured == nil || capturedIndex < 0 || capturedIndex >= len(captured.MemoryTypes) {
		return NoMemoryType, false
	}

	flags := captured.MemoryTypes[capturedIndex].PropertyFlags
	return ResolveMemoryType(flags, availableBits, present)
}

// AllMemoryTypeBits returns a bitmask with one bit set for each memory type in props
func AllMemoryTypeBits(props *core1_0.PhysicalDeviceMemoryProperties) uint32 {
	if props == nil {
		return 0
	}

	count := len(props.MemoryTypes)
	if count >= 32 {
		return ^uint32(0)
	}

	return (uint32(1) << count) - 1
}
