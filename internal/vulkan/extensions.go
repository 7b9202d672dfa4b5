package vulkan

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_2"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_draw_indirect_count"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

// ExtensionSource reports which extensions were enabled on the device
type ExtensionSource interface {
	IsDeviceExtensionActive(extensionName string) bool
}

// ExtensionData holds the optional entry points a replay session can use. A nil entry point
// means the capability is absent, which is never an error.
type ExtensionData struct {
	// DebugUtils is used for command buffer labels and object names
	DebugUtils ext_debug_utils.Extension
	// DrawIndirectCount is set when the capability comes from the extension rather than core 1.2
	DrawIndirectCount     khr_draw_indirect_count.Extension
	CoreDrawIndirectCount bool
	Swapchain             bool
	PortabilitySubset     bool
}

// HasDrawIndirectCount is true when indirect count draws are available from core or extension
func (e *ExtensionData) HasDrawIndirectCount() bool {
	return e.CoreDrawIndirectCount || e.DrawIndirectCount != nil
}

func NewExtensionData(device core1_0.Device, instance core1_0.Instance) *ExtensionData {
	data := detectExtensions(device)

	// Apply device capabilities- prefer core entry points over extension entry points
	if core1_2.PromoteDevice(device) != nil {
		// Core 1.2 active - that means we can use khr_draw_indirect_count
		data.CoreDrawIndirectCount = true
	}

	// khr_draw_indirect_count if core 1.2 is not active
	if !data.CoreDrawIndirectCount && device.IsDeviceExtensionActive(khr_draw_indirect_count.ExtensionName) {
		data.DrawIndirectCount = khr_draw_indirect_count.CreateExtensionFromDevice(device, instance)
	}

	// ext_debug_utils is an instance extension
	if instance != nil && instance.IsInstanceExtensionActive(ext_debug_utils.ExtensionName) {
		data.DebugUtils = ext_debug_utils.CreateExtensionFromInstance(instance)
	}

	return data
}

func detectExtensions(device ExtensionSource) *ExtensionData {
	data := &ExtensionData{}

	data.Swapchain = device.IsDeviceExtensionActive(khr_swapchain.ExtensionName)
	data.PortabilitySubset = device.IsDeviceExtensionActive(khr_portability_subset.ExtensionName)

	return data
}
