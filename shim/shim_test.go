package shim

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bjoeris/renderdoc-sub003/dump"
	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/bjoeris/renderdoc-sub003/internal/vulkantest"
	"github.com/bjoeris/renderdoc-sub003/restore"
	"github.com/bjoeris/renderdoc-sub003/session"
	"github.com/bjoeris/renderdoc-sub003/transfer"
	"github.com/cockroachdb/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/mocks"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingExecutor runs every recording against one command buffer without submitting it
type recordingExecutor struct {
	cmd   core1_0.CommandBuffer
	waits []session.WaitMode
	err   error
}

func (e *recordingExecutor) Execute(record session.RecordFunc, wait session.WaitMode) error {
	e.waits = append(e.waits, wait)
	if e.err != nil {
		return e.err
	}
	return record(e.cmd)
}

type shimFixture struct {
	ctrl       *gomock.Controller
	device     *mocks.MockDevice
	properties *vulkan.DeviceMemoryProperties
	cmd        *mocks.MockCommandBuffer
	executor   *recordingExecutor
	dir        string
	shim       *Shim
}

func readyShim(t *testing.T, captureFrame int) *shimFixture {
	ctrl := gomock.NewController(t)

	device := mocks.NewMockDevice(ctrl)
	properties, err := vulkan.NewDeviceMemoryProperties(testLogger(), false, nil, device, vulkantest.DiscretePhysicalDevice(ctrl, 1))
	require.NoError(t, err)

	stager := restore.NewStager(testLogger(), properties, restore.NewRestorer(testLogger(), properties, restore.Options{}))
	cmd := mocks.EasyMockCommandBuffer(ctrl)
	executor := &recordingExecutor{cmd: cmd}
	dir := t.TempDir()

	shim := New(testLogger(), Config{CaptureFrame: captureFrame, OutputDir: dir},
		transfer.NewCopier(testLogger(), transfer.Options{}), stager, executor)

	return &shimFixture{
		ctrl:       ctrl,
		device:     device,
		properties: properties,
		cmd:        cmd,
		executor:   executor,
		dir:        dir,
		shim:       shim,
	}
}

// expectReadbackBuffer expects the 64 byte buffer a 4x4 RGBA8 attachment is read back into
func (f *shimFixture) expectReadbackBuffer() (*mocks.MockBuffer, *vulkantest.Allocation) {
	return vulkantest.ExpectBuffer(f.ctrl, f.device, vulkantest.BufferSetup{
		Usage:      core1_0.BufferUsageTransferDst,
		Size:       64,
		MemoryType: 3,
	})
}

// expectImageToBuffer expects image to be transitioned, copied into buffer, and transitioned back
func expectImageToBuffer(cmd *mocks.MockCommandBuffer, image core1_0.Image, buffer core1_0.Buffer) {
	gomock.InOrder(
		cmd.EXPECT().CmdPipelineBarrier(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Nil(), gomock.Len(1)).Return(nil),
		cmd.EXPECT().CmdCopyImageToBuffer(image, core1_0.ImageLayoutTransferSrcOptimal, buffer, gomock.Len(1)).Return(nil),
		cmd.EXPECT().CmdPipelineBarrier(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Nil(), gomock.Len(1)).Return(nil),
	)
}

func colorAttachment(ctrl *gomock.Controller) ImageAndView {
	return ImageAndView{
		Image: mocks.EasyMockImage(ctrl),
		Info: transfer.ImageInfo{
			Format:      core1_0.FormatR8G8B8A8UnsignedNormalized,
			Extent:      core1_0.Extent3D{Width: 4, Height: 4, Depth: 1},
			MipLevels:   1,
			ArrayLayers: 1,
			Layout:      core1_0.ImageLayoutColorAttachmentOptimal,
		},
	}
}

func noPresent() error { return nil }

func TestShim_OutsideTargetFrame(t *testing.T) {
	fixture := readyShim(t, 2)

	// Outside the target frame nothing is recorded and no buffer is created
	fixture.shim.OnRenderPassBegin(fixture.cmd, RenderPassInfo{Name: "main", Attachments: []ImageAndView{colorAttachment(fixture.ctrl)}})
	require.NoError(t, fixture.shim.OnRenderPassEnd(fixture.cmd))
	require.Equal(t, 0, fixture.shim.PendingReadbacks())

	waited := 0
	require.NoError(t, fixture.shim.OnQueueSubmit([]core1_0.CommandBuffer{fixture.cmd}, func() error {
		waited++
		return nil
	}))
	require.Equal(t, 0, waited)

	require.NoError(t, fixture.shim.Present(noPresent, nil))
	require.False(t, fixture.shim.ShouldQuit())
	require.NoFileExists(t, filepath.Join(fixture.dir, dump.ManifestName))
}

func TestShim_TargetFrameReadback(t *testing.T) {
	fixture := readyShim(t, 0)
	attachment := colorAttachment(fixture.ctrl)

	buffer, allocation := fixture.expectReadbackBuffer()
	expectImageToBuffer(fixture.cmd, attachment.Image, buffer)

	fixture.shim.OnRenderPassBegin(fixture.cmd, RenderPassInfo{Name: "main", Attachments: []ImageAndView{attachment}})
	require.NoError(t, fixture.shim.OnRenderPassEnd(fixture.cmd))
	require.Equal(t, 1, fixture.shim.PendingReadbacks())

	// Stand in for the GPU writing the attachment into the readback buffer
	for i := range allocation.Data {
		allocation.Data[i] = byte(i)
	}

	allocation.Memory.EXPECT().Unmap()
	vulkantest.ExpectDestroyBuffer(buffer, allocation)

	waited := 0
	require.NoError(t, fixture.shim.OnQueueSubmit([]core1_0.CommandBuffer{fixture.cmd}, func() error {
		waited++
		return nil
	}))
	require.Equal(t, 1, waited)
	require.Equal(t, 0, fixture.shim.PendingReadbacks())
	require.Equal(t, uint32(0), fixture.properties.AllocationCount())

	written, err := os.ReadFile(filepath.Join(fixture.dir, "frame0_pass0_attachment0.ppm"))
	require.NoError(t, err)
	header := "P6\n4 4\n255\n"
	require.Equal(t, header, string(written[:len(header)]))
	require.Equal(t, []byte{0, 1, 2, 4, 5, 6}, written[len(header):len(header)+6])

	// A second submission of the same command buffer has nothing left to read back
	require.NoError(t, fixture.shim.OnQueueSubmit([]core1_0.CommandBuffer{fixture.cmd}, func() error {
		waited++
		return nil
	}))
	require.Equal(t, 1, waited)

	require.NoError(t, fixture.shim.Present(noPresent, nil))
	require.True(t, fixture.shim.ShouldQuit())
	require.FileExists(t, filepath.Join(fixture.dir, dump.ManifestName))
	require.Len(t, fixture.shim.Writer().Entries(), 1)
}

func TestShim_SeveralPassesInOneCommandBuffer(t *testing.T) {
	fixture := readyShim(t, 0)

	for _, name := range []string{"shadow", "main"} {
		attachment := colorAttachment(fixture.ctrl)
		buffer, allocation := fixture.expectReadbackBuffer()
		expectImageToBuffer(fixture.cmd, attachment.Image, buffer)
		allocation.Memory.EXPECT().Unmap()
		vulkantest.ExpectDestroyBuffer(buffer, allocation)

		fixture.shim.OnRenderPassBegin(fixture.cmd, RenderPassInfo{Name: name, Attachments: []ImageAndView{attachment}})
		require.NoError(t, fixture.shim.OnRenderPassEnd(fixture.cmd))
	}
	require.Equal(t, 1, fixture.shim.PendingReadbacks())

	require.NoError(t, fixture.shim.OnQueueSubmit([]core1_0.CommandBuffer{fixture.cmd}, func() error { return nil }))
	require.FileExists(t, filepath.Join(fixture.dir, "frame0_pass0_attachment0.ppm"))
	require.FileExists(t, filepath.Join(fixture.dir, "frame0_pass1_attachment0.ppm"))
	require.Equal(t, uint32(0), fixture.properties.AllocationCount())
}

func TestShim_WaitIdleFailure(t *testing.T) {
	fixture := readyShim(t, 0)
	attachment := colorAttachment(fixture.ctrl)

	buffer, allocation := fixture.expectReadbackBuffer()
	expectImageToBuffer(fixture.cmd, attachment.Image, buffer)

	fixture.shim.OnRenderPassBegin(fixture.cmd, RenderPassInfo{Name: "main", Attachments: []ImageAndView{attachment}})
	require.NoError(t, fixture.shim.OnRenderPassEnd(fixture.cmd))

	// The buffer is released without ever being mapped
	vulkantest.ExpectDestroyBuffer(buffer, allocation)

	err := fixture.shim.OnQueueSubmit([]core1_0.CommandBuffer{fixture.cmd}, func() error {
		return errors.New("device lost")
	})
	require.ErrorContains(t, err, "device lost")
	require.Equal(t, 0, fixture.shim.PendingReadbacks())
}

func TestShim_ReadbackBufferFailure(t *testing.T) {
	fixture := readyShim(t, 0)

	buffer := mocks.EasyMockBuffer(fixture.ctrl)
	fixture.device.EXPECT().CreateBuffer(gomock.Any(), gomock.Any()).Return(buffer, core1_0.VKSuccess, nil)
	buffer.EXPECT().MemoryRequirements().Return(&core1_0.MemoryRequirements{Size: 64, Alignment: 1, MemoryTypeBits: 0xffffffff})
	fixture.device.EXPECT().AllocateMemory(gomock.Any(), gomock.Any()).Return(nil, core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError())
	buffer.EXPECT().Destroy(gomock.Any())

	// No copy is recorded into the command buffer
	fixture.shim.OnRenderPassBegin(fixture.cmd, RenderPassInfo{Name: "main", Attachments: []ImageAndView{colorAttachment(fixture.ctrl)}})
	err := fixture.shim.OnRenderPassEnd(fixture.cmd)
	require.ErrorContains(t, err, "failed to create readback buffer")
	require.Equal(t, 0, fixture.shim.PendingReadbacks())
}

func TestShim_PresentScreenshot(t *testing.T) {
	fixture := readyShim(t, 1)
	screenshot := colorAttachment(fixture.ctrl)

	var order []string
	present := func() error {
		order = append(order, "present")
		return nil
	}

	require.NoError(t, fixture.shim.Present(present, &screenshot))
	require.Empty(t, fixture.executor.waits)
	require.False(t, fixture.shim.ShouldQuit())

	buffer, allocation := fixture.expectReadbackBuffer()
	expectImageToBuffer(fixture.cmd, screenshot.Image, buffer)
	allocation.Memory.EXPECT().Unmap()
	vulkantest.ExpectDestroyBuffer(buffer, allocation)

	require.NoError(t, fixture.shim.Present(func() error {
		order = append(order, "present")
		require.FileExists(t, filepath.Join(fixture.dir, "frame1_screenshot.ppm"))
		return nil
	}, &screenshot))

	require.Equal(t, []string{"present", "present"}, order)
	require.Equal(t, []session.WaitMode{session.WaitIdle}, fixture.executor.waits)
	require.True(t, fixture.shim.ShouldQuit())
	require.FileExists(t, filepath.Join(fixture.dir, dump.ManifestName))
}

func TestShim_PresentFailure(t *testing.T) {
	testCases := map[string]struct {
		executorErr error
		presentErr  error
		errText     string
	}{
		"Screenshot": {
			executorErr: errors.New("queue submit failed"),
			errText:     "failed to read back screenshot",
		},
		"Present": {
			presentErr: errors.New("surface lost"),
			errText:    "surface lost",
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			fixture := readyShim(t, 0)
			fixture.executor.err = testCase.executorErr
			screenshot := colorAttachment(fixture.ctrl)

			buffer, allocation := fixture.expectReadbackBuffer()
			if testCase.executorErr == nil {
				expectImageToBuffer(fixture.cmd, screenshot.Image, buffer)
				allocation.Memory.EXPECT().Unmap()
			}
			vulkantest.ExpectDestroyBuffer(buffer, allocation)

			err := fixture.shim.Present(func() error { return testCase.presentErr }, &screenshot)
			require.ErrorContains(t, err, testCase.errText)
			require.NoFileExists(t, filepath.Join(fixture.dir, dump.ManifestName))
		})
	}
}
