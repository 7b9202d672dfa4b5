package session

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// WaitMode selects whether Execute returns as soon as work is submitted or only after the
// queue has drained
type WaitMode int

const (
	// NoWait returns once the command buffer is submitted. The next Execute waits on the fence.
	NoWait WaitMode = iota
	// WaitIdle waits for the queue to go idle before returning, so results can be read back on
	// the CPU
	WaitIdle
)

func (m WaitMode) String() string {
	if m == WaitIdle {
		return "WaitIdle"
	}
	return "NoWait"
}

// RecordFunc records commands into the session's command buffer
type RecordFunc func(cmd core1_0.CommandBuffer) error

// Execute runs one synchronous operation: wait for the previous submission's fence, reset it,
// begin the command buffer, record, end, and submit. When an image was acquired since the
// last Execute, the submission waits on the acquire semaphore and signals the present
// semaphore.
func (s *ReplaySession) Execute(record RecordFunc, wait WaitMode) error {
	s.logger.Debug("ReplaySession::Execute")

	if s.closed {
		return errors.New("the replay session has been closed")
	}

	res, err := s.fence.Wait(s.fenceTimeout)
	if err != nil {
		return wrapResult(err, res, "vkWaitForFences")
	}
	if res == core1_0.VKTimeout {
		return errors.Newf("vkWaitForFences timed out after %s", s.fenceTimeout)
	}

	res, err = s.fence.Reset()
	if err != nil {
		return wrapResult(err, res, "vkResetFences")
	}

	res, err = s.commandBuffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return wrapResult(err, res, "vkBeginCommandBuffer")
	}

	if record != nil {
		err = record(s.commandBuffer)
		if err != nil {
			// The fence was already reset, so it is signaled again with an empty submission.
			// The partial recording is discarded by the next Begin.
			_, _ = s.commandBuffer.End()
			_, submitErr := s.queue.Submit(s.fence, nil)
			if submitErr != nil {
				s.logger.Error("failed to signal fence after recording failure", slog.String("error", submitErr.Error()))
			}
			return errors.Wrap(err, "failed to record commands")
		}
	}

	res, err = s.commandBuffer.End()
	if err != nil {
		return wrapResult(err, res, "vkEndCommandBuffer")
	}

	submit := core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{s.commandBuffer},
	}
	if s.imageAcquired {
		submit.WaitSemaphores = []core1_0.Semaphore{s.acquireSemaphore}
		submit.WaitDstStageMask = []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput}
		submit.SignalSemaphores = []core1_0.Semaphore{s.presentSemaphore}
		s.imageAcquired = false
	}

	res, err = s.queue.Submit(s.fence, []core1_0.SubmitInfo{submit})
	if err != nil {
		return wrapResult(err, res, "vkQueueSubmit")
	}

	if wait == WaitIdle {
		res, err = s.queue.WaitIdle()
		if err != nil {
			return wrapResult(err, res, "vkQueueWaitIdle")
		}
	}

	return nil
}
