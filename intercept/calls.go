package intercept

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// PropertiesSource is anything that reports a memory properties table, such as a physical device
type PropertiesSource interface {
	MemoryProperties() *core1_0.PhysicalDeviceMemoryProperties
}

// MemoryPropertiesCall is vkGetPhysicalDeviceMemoryProperties
type MemoryPropertiesCall struct {
	PhysicalDevice PropertiesSource
	Properties     *core1_0.PhysicalDeviceMemoryProperties
}

func (c *MemoryPropertiesCall) CallName() string { return "vkGetPhysicalDeviceMemoryProperties" }

// RequirementsSource is any resource that reports memory requirements, such as a buffer or image
type RequirementsSource interface {
	MemoryRequirements() *core1_0.MemoryRequirements
}

// MemoryRequirementsCall is vkGetBufferMemoryRequirements or vkGetImageMemoryRequirements
type MemoryRequirementsCall struct {
	Resource     RequirementsSource
	Requirements *core1_0.MemoryRequirements
}

func (c *MemoryRequirementsCall) CallName() string { return "vkGet*MemoryRequirements" }

// PresentCall is vkQueuePresentKHR
type PresentCall struct {
	Queue      core1_0.Queue
	ImageIndex int
	Result     common.VkResult

	// TargetFrame is set by PresentCounter when this present ends the target frame
	TargetFrame bool
}

func (c *PresentCall) CallName() string { return "vkQueuePresentKHR" }

// QueryMemoryProperties is a terminal that fills a MemoryPropertiesCall from its physical device
func QueryMemoryProperties(call Call) error {
	properties, ok := call.(*MemoryPropertiesCall)
	if !ok {
		return errors.Newf("cannot query memory properties for %s", call.CallName())
	}
	if properties.PhysicalDevice == nil {
		return errors.New("memory properties call has no physical device")
	}

	properties.Properties = properties.PhysicalDevice.MemoryProperties()
	return nil
}

// QueryMemoryRequirements is a terminal that fills a MemoryRequirementsCall from its resource
func QueryMemoryRequirements(call Call) error {
	requirements, ok := call.(*MemoryRequirementsCall)
	if !ok {
		return errors.Newf("cannot query memory requirements for %s", call.CallName())
	}
	if requirements.Resource == nil {
		return errors.New("memory requirements call has no resource")
	}

	requirements.Requirements = requirements.Resource.MemoryRequirements()
	return nil
}
