package session

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
)

// Swapchain is the part of a khr_swapchain.Swapchain the session acquires images through
type Swapchain interface {
	AcquireNextImage(timeout time.Duration, semaphore core1_0.Semaphore, fence core1_0.Fence) (int, common.VkResult, error)
}

// Presentation is the surface and swapchain pair used when replaying to a real window. The
// session does not create or destroy either one.
type Presentation struct {
	Surface   khr_surface.Surface
	Swapchain Swapchain
}

// AttachPresentation stores the presentation pair used by AcquireNextImage. Passing a nil
// swapchain detaches it.
func (s *ReplaySession) AttachPresentation(surface khr_surface.Surface, swapchain Swapchain) {
	if swapchain == nil {
		s.presentation = nil
		return
	}

	s.presentation = &Presentation{
		Surface:   surface,
		Swapchain: swapchain,
	}
}

func (s *ReplaySession) Presentation() *Presentation { return s.presentation }

// PresentSemaphore is signaled by the first Execute after AcquireNextImage and should be
// waited on by the present call
func (s *ReplaySession) PresentSemaphore() core1_0.Semaphore { return s.presentSemaphore }

// AcquireNextImage acquires the next swapchain image, signaling the session's acquire
// semaphore. The wait is bounded by the acquire timeout.
func (s *ReplaySession) AcquireNextImage() (int, common.VkResult, error) {
	s.logger.Debug("ReplaySession::AcquireNextImage")

	if s.presentation == nil {
		return -1, core1_0.VKErrorUnknown, errors.New("no presentation is attached to the replay session")
	}

	index, res, err := s.presentation.Swapchain.AcquireNextImage(s.acquireTimeout, s.acquireSemaphore, nil)
	if err != nil {
		return -1, res, wrapResult(err, res, "vkAcquireNextImageKHR")
	}
	if res == core1_0.VKTimeout || res == core1_0.VKNotReady {
		return -1, res, errors.Newf("vkAcquireNextImageKHR did not return an image within %s", s.acquireTimeout)
	}

	s.imageAcquired = true
	return index, res, nil
}
