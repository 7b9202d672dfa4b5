package memtype

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/core1_0"
)

// Compatibility holds the two independent resolutions of a captured memory type index
type Compatibility struct {
	// Translated is the captured type's flags resolved against every memory type on the present device
	Translated      int
	TranslatedFound bool
	// Live is the captured type's flags resolved against only the types the live resource reports it can use
	Live      int
	LiveFound bool
}

// Compatible is true when both resolutions found a memory type and agree on which one
func (c Compatibility) Compatible() bool {
	return c.TranslatedFound && c.LiveFound && c.Translated == c.Live
}

func (c Compatibility) String() string {
	return fmt.Sprintf("translated=%s live=%s", indexString(c.Translated, c.TranslatedFound), indexString(c.Live, c.LiveFound))
}

func indexString(index int, found bool) string {
	if !found {
		return "none"
	}
	return fmt.Sprintf("%d", index)
}

// CheckCompatibility resolves memoryType two ways: translation against all of the present
// device's memory types, and translation restricted to the MemoryTypeBits of the live resource
// requirements. Disagreement is a diagnostic, not a failure.
func CheckCompatibility(memoryType int, captured, present *core1_0.PhysicalDeviceMemoryProperties, requirements core1_0.MemoryRequirements) Compatibility {
	var result Compatibility

	result.Translated, result.TranslatedFound = TranslateCompatibleType(memoryType, captured, present, AllMemoryTypeBits(present))
	result.Live, result.LiveFound = TranslateCompatibleType(memoryType, captured, present, requirements.MemoryTypeBits)

	return result
}
