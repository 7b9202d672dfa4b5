package vulkan

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/mocks"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

func TestDetectExtensions(t *testing.T) {
	testCases := map[string]struct {
		active   map[string]bool
		expected *ExtensionData
	}{
		"NoExtensions": {
			expected: &ExtensionData{},
		},
		"Swapchain": {
			active: map[string]bool{
				khr_swapchain.ExtensionName:          true,
				khr_portability_subset.ExtensionName: true,
			},
			expected: &ExtensionData{
				Swapchain:         true,
				PortabilitySubset: true,
			},
		},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			device := mocks.NewMockDevice(ctrl)
			device.EXPECT().IsDeviceExtensionActive(gomock.Any()).DoAndReturn(func(name string) bool {
				return testCase.active[name]
			}).AnyTimes()

			extension := detectExtensions(device)
			require.Equal(t, testCase.expected, extension)
			require.False(t, extension.HasDrawIndirectCount())
		})
	}
}

func TestExtensionData_CoreDrawIndirectCount(t *testing.T) {
	extension := &ExtensionData{CoreDrawIndirectCount: true}
	require.True(t, extension.HasDrawIndirectCount())
}
