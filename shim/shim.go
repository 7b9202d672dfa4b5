package shim

import (
	"fmt"

	"github.com/bjoeris/renderdoc-sub003/dump"
	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/bjoeris/renderdoc-sub003/names"
	"github.com/bjoeris/renderdoc-sub003/session"
	"github.com/bjoeris/renderdoc-sub003/transfer"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// ImageAndView is one image a render pass draws to
type ImageAndView struct {
	Image core1_0.Image
	View  core1_0.ImageView
	// Info.Layout is the layout the image is in once the render pass has ended
	Info transfer.ImageInfo
}

// RenderPassInfo lists the attachments of one render pass instance
type RenderPassInfo struct {
	Name        string
	Attachments []ImageAndView
}

// ReadbackInfo is one attachment copied into a host-visible buffer
type ReadbackInfo struct {
	Attachment ImageAndView
	Buffer     *vulkan.HostBuffer
	Size       uint64
}

// ReadbackInfos holds the readbacks recorded at the end of one render pass instance
type ReadbackInfos struct {
	RenderPass RenderPassInfo
	PassIndex  int
	Readbacks  []ReadbackInfo
}

// Executor runs recorded work to completion
type Executor interface {
	Execute(record session.RecordFunc, wait session.WaitMode) error
}

// BufferSource creates host-visible buffers to read resources back into
type BufferSource interface {
	InitializeDestinationBuffer(size uint64) (*vulkan.HostBuffer, error)
}

// Shim is the per-replay state behind the present and submission hooks. Outside the target
// frame every hook passes straight through.
type Shim struct {
	logger *slog.Logger
	frame  *FrameState

	copier   *transfer.Copier
	buffers  BufferSource
	executor Executor
	writer   *dump.Writer

	// Readbacks are owned by the command buffer they were recorded into until that command
	// buffer's submission completes
	readbacks *names.Arena[[]*ReadbackInfos]
	pending   map[core1_0.CommandBuffer]names.Slot
	active    map[core1_0.CommandBuffer]RenderPassInfo
	passCount int
}

func New(logger *slog.Logger, config Config, copier *transfer.Copier, buffers BufferSource, executor Executor) *Shim {
	return &Shim{
		logger:    logger,
		frame:     NewFrameState(config.CaptureFrame),
		copier:    copier,
		buffers:   buffers,
		executor:  executor,
		writer:    dump.NewWriter(logger, config.OutputDir),
		readbacks: names.NewArena[[]*ReadbackInfos](core1_0.ObjectTypeCommandBuffer),
		pending:   make(map[core1_0.CommandBuffer]names.Slot),
		active:    make(map[core1_0.CommandBuffer]RenderPassInfo),
	}
}

func (s *Shim) Frame() *FrameState { return s.frame }

func (s *Shim) Writer() *dump.Writer { return s.writer }

// ShouldQuit is true once the target frame has been presented
func (s *Shim) ShouldQuit() bool { return s.frame.ShouldQuit() }

// PendingReadbacks is the number of command buffers holding readbacks that have not been
// written out yet
func (s *Shim) PendingReadbacks() int { return s.readbacks.Len() }

// OnRenderPassBegin remembers the attachments of the render pass cmd is beginning when the
// target frame is being rendered
func (s *Shim) OnRenderPassBegin(cmd core1_0.CommandBuffer, info RenderPassInfo) {
	if !s.frame.IsTargetFrame() {
		return
	}
	s.active[cmd] = info
}

// OnRenderPassEnd records a readback of every attachment of the render pass that just ended
// in cmd. It must be called after the render pass has ended, while cmd is still recording.
func (s *Shim) OnRenderPassEnd(cmd core1_0.CommandBuffer) error {
	info, ok := s.active[cmd]
	if !ok {
		return nil
	}
	delete(s.active, cmd)

	s.logger.Debug("Shim::OnRenderPassEnd", slog.String("renderPass", info.Name), slog.Int("pass", s.passCount))

	pass := &ReadbackInfos{
		RenderPass: info,
		PassIndex:  s.passCount,
	}
	s.passCount++

	for _, attachment := range info.Attachments {
		size := transfer.RegionSize(attachment.Info)
		buffer, err := s.buffers.InitializeDestinationBuffer(size)
		if err != nil {
			freeReadbacks([]*ReadbackInfos{pass})
			return errors.Wrapf(err, "failed to create readback buffer for render pass %d", pass.PassIndex)
		}
		pass.Readbacks = append(pass.Readbacks, ReadbackInfo{
			Attachment: attachment,
			Buffer:     buffer,
			Size:       size,
		})

		err = s.copier.ImageToBuffer(cmd, attachment.Image, buffer.Buffer, attachment.Info)
		if err != nil {
			freeReadbacks([]*ReadbackInfos{pass})
			return err
		}
	}

	slot, ok := s.pending[cmd]
	if !ok {
		s.pending[cmd] = s.readbacks.Insert([]*ReadbackInfos{pass})
		return nil
	}

	passes, err := s.readbacks.Get(slot)
	if err != nil {
		return err
	}
	return s.readbacks.Set(slot, append(passes, pass))
}

// OnQueueSubmit is called after cmds have been submitted. When any of them carries
// readbacks, waitIdle is called and every readback is written to disk and freed.
func (s *Shim) OnQueueSubmit(cmds []core1_0.CommandBuffer, waitIdle func() error) error {
	var passes []*ReadbackInfos
	for _, cmd := range cmds {
		slot, ok := s.pending[cmd]
		if !ok {
			continue
		}
		delete(s.pending, cmd)

		owned, err := s.readbacks.Remove(slot)
		if err != nil {
			return err
		}
		passes = append(passes, owned...)
	}

	if len(passes) == 0 {
		return nil
	}
	defer freeReadbacks(passes)

	err := waitIdle()
	if err != nil {
		return errors.Wrap(err, "failed to wait for readback submission")
	}

	for _, pass := range passes {
		for attachmentIndex, readback := range pass.Readbacks {
			name := fmt.Sprintf("frame%d_pass%d_attachment%d.ppm", s.frame.Target(), pass.PassIndex, attachmentIndex)
			label := fmt.Sprintf("render pass %d %q attachment %d", pass.PassIndex, pass.RenderPass.Name, attachmentIndex)

			err = s.writeReadback(name, label, readback)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// Present wraps a present call. When it presents the target frame, screenshot (if any) is read
// back first, and once present returns the manifest is written and ShouldQuit becomes true.
func (s *Shim) Present(present func() error, screenshot *ImageAndView) error {
	target := s.frame.BeginPresent()

	if target && screenshot != nil {
		err := s.captureScreenshot(*screenshot)
		if err != nil {
			return err
		}
	}

	err := present()
	s.frame.EndPresent()
	if err != nil {
		return err
	}

	if target {
		path, err := s.writer.WriteManifest(s.frame.Target())
		if err != nil {
			return err
		}
		s.logger.Info("target frame captured", slog.Int("frame", s.frame.Target()), slog.String("manifest", path))
	}

	return nil
}

func (s *Shim) captureScreenshot(screenshot ImageAndView) error {
	s.logger.Debug("Shim::captureScreenshot")

	size := transfer.RegionSize(screenshot.Info)
	buffer, err := s.buffers.InitializeDestinationBuffer(size)
	if err != nil {
		return errors.Wrap(err, "failed to create screenshot buffer")
	}
	defer buffer.Destroy()

	err = s.executor.Execute(func(cmd core1_0.CommandBuffer) error {
		return s.copier.ImageToBuffer(cmd, screenshot.Image, buffer.Buffer, screenshot.Info)
	}, session.WaitIdle)
	if err != nil {
		return errors.Wrap(err, "failed to read back screenshot")
	}

	return s.writeReadback(fmt.Sprintf("frame%d_screenshot.ppm", s.frame.Target()), "screenshot", ReadbackInfo{
		Attachment: screenshot,
		Buffer:     buffer,
		Size:       size,
	})
}

func (s *Shim) writeReadback(name, label string, readback ReadbackInfo) error {
	_, err := readback.Buffer.Invalidate()
	if err != nil {
		return errors.Wrapf(err, "failed to invalidate %s", label)
	}

	mapped, _, err := readback.Buffer.Map()
	if err != nil {
		return errors.Wrapf(err, "failed to map %s", label)
	}
	data := make([]byte, readback.Size)
	copy(data, mapped)

	err = readback.Buffer.Unmap()
	if err != nil {
		return errors.Wrapf(err, "failed to unmap %s", label)
	}

	return s.writer.WriteReadback(name, label, readback.Attachment.Info, data)
}

func freeReadbacks(passes []*ReadbackInfos) {
	for _, pass := range passes {
		for _, readback := range pass.Readbacks {
			readback.Buffer.Destroy()
		}
		pass.Readbacks = nil
	}
}
