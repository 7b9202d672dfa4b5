package transfer

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/mocks"
	"golang.org/x/exp/slog"
)

// expectMapOnce expects one mapping of [offset, offset+size) of data followed by one unmap
func expectMapOnce(memory *mocks.MockDeviceMemory, data []byte, offset, size int) {
	gomock.InOrder(
		memory.EXPECT().Map(offset, size, core1_0.MemoryMapFlags(0)).Return(unsafe.Pointer(&data[offset]), core1_0.VKSuccess, nil),
		memory.EXPECT().Unmap(),
	)
}

func TestVerifyUnchanged_SeparateMemory(t *testing.T) {
	ctrl := gomock.NewController(t)

	expectedData := make([]byte, 64)
	actualData := make([]byte, 64)
	for i := range expectedData {
		expectedData[i] = byte(i)
		actualData[i] = byte(i)
	}

	expected := mocks.EasyMockDeviceMemory(ctrl)
	actual := mocks.EasyMockDeviceMemory(ctrl)
	expectMapOnce(expected, expectedData, 16, 32)
	expectMapOnce(actual, actualData, 16, 32)

	same, err := VerifyUnchanged(testLogger(), expected, 16, actual, 16, 32, "buffer 7")
	require.NoError(t, err)
	require.True(t, same)
}

func TestVerifyUnchanged_ReportsDifference(t *testing.T) {
	ctrl := gomock.NewController(t)

	expectedData := make([]byte, 64)
	actualData := make([]byte, 64)
	actualData[20] = 1
	actualData[30] = 1

	expected := mocks.EasyMockDeviceMemory(ctrl)
	actual := mocks.EasyMockDeviceMemory(ctrl)
	expectMapOnce(expected, expectedData, 0, 64)
	expectMapOnce(actual, actualData, 0, 64)

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	same, err := VerifyUnchanged(logger, expected, 0, actual, 0, 64, "image 3")
	require.NoError(t, err)
	require.False(t, same)

	logged := out.String()
	require.Contains(t, logged, "resource contents changed")
	require.Contains(t, logged, "resource=\"image 3\"")
	require.Contains(t, logged, "firstDifference=20")
	require.Contains(t, logged, "differingBytes=2")
	require.Contains(t, logged, "size=64")
}

func TestVerifyUnchanged_SameMemory(t *testing.T) {
	ctrl := gomock.NewController(t)

	data := make([]byte, 128)
	copy(data[0:8], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	copy(data[64:72], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	// One mapping covers both ranges
	memory := mocks.EasyMockDeviceMemory(ctrl)
	expectMapOnce(memory, data, 0, 72)

	same, err := VerifyUnchanged(testLogger(), memory, 64, memory, 0, 8, "snapshot")
	require.NoError(t, err)
	require.True(t, same)

	data[3] = 0xff
	expectMapOnce(memory, data, 0, 72)

	same, err = VerifyUnchanged(testLogger(), memory, 64, memory, 0, 8, "snapshot")
	require.NoError(t, err)
	require.False(t, same)
}

func TestVerifyUnchanged_MapFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	expected := mocks.EasyMockDeviceMemory(ctrl)
	actual := mocks.EasyMockDeviceMemory(ctrl)

	// expected was mapped before actual failed and must still be released
	expectMapOnce(expected, make([]byte, 16), 0, 16)
	actual.EXPECT().Map(0, 16, core1_0.MemoryMapFlags(0)).Return(unsafe.Pointer(nil), core1_0.VKErrorMemoryMapFailed, errors.New("device lost"))

	_, err := VerifyUnchanged(testLogger(), expected, 0, actual, 0, 16, "buffer 1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "actual contents of buffer 1")
}

func TestVerifyUnchanged_EmptyRange(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Nothing is mapped for an empty range
	memory := mocks.EasyMockDeviceMemory(ctrl)

	same, err := VerifyUnchanged(testLogger(), memory, 0, memory, 0, 0, "empty")
	require.NoError(t, err)
	require.True(t, same)
}
