package shim

import (
	"github.com/bjoeris/renderdoc-sub003/formats"
	"github.com/bjoeris/renderdoc-sub003/internal/vulkan"
	"github.com/bjoeris/renderdoc-sub003/transfer"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"golang.org/x/exp/slog"
)

// VirtualSwapchain stands in for the images of a real swapchain. The replayed frame renders
// into device-local virtual images that can be read back at any time, and each present copies
// the virtual image into the real one.
type VirtualSwapchain struct {
	logger *slog.Logger
	copier *transfer.Copier

	real    []core1_0.Image
	virtual []*vulkan.DeviceImage
	info    transfer.ImageInfo
}

// NewVirtualSwapchain creates one virtual image for every real image. createInfo is the
// swapchain's image description; TRANSFER_SRC is added to its usage.
func NewVirtualSwapchain(logger *slog.Logger, memory *vulkan.DeviceMemoryProperties, copier *transfer.Copier, realImages []core1_0.Image, createInfo core1_0.ImageCreateInfo) (*VirtualSwapchain, error) {
	createInfo.Usage |= core1_0.ImageUsageTransferSrc
	createInfo.MipLevels = 1
	if createInfo.ArrayLayers == 0 {
		createInfo.ArrayLayers = 1
	}

	swapchain := &VirtualSwapchain{
		logger: logger,
		copier: copier,
		real:   realImages,
		info: transfer.ImageInfo{
			Format:      createInfo.Format,
			Extent:      createInfo.Extent,
			MipLevels:   1,
			ArrayLayers: 1,
			Layout:      khr_swapchain.ImageLayoutPresentSrc,
		},
	}

	for i := range realImages {
		image, _, err := memory.CreateDeviceImage(createInfo)
		if err != nil {
			swapchain.Destroy()
			return nil, errors.Wrapf(err, "failed to create virtual swapchain image %d", i)
		}
		swapchain.virtual = append(swapchain.virtual, image)
	}

	logger.Debug("created virtual swapchain", slog.Int("images", len(realImages)))
	return swapchain, nil
}

func (s *VirtualSwapchain) ImageCount() int { return len(s.virtual) }

// Image returns the virtual image standing in for real image index
func (s *VirtualSwapchain) Image(index int) core1_0.Image {
	return s.virtual[index].Image
}

// Attachment describes virtual image index the way readbacks and screenshots need it
func (s *VirtualSwapchain) Attachment(index int) ImageAndView {
	return ImageAndView{
		Image: s.virtual[index].Image,
		Info:  s.info,
	}
}

// RecordPresentCopy copies virtual image index into its real image and leaves the real image
// ready to present. The virtual image is expected in PRESENT_SRC and is returned there.
func (s *VirtualSwapchain) RecordPresentCopy(cmd transfer.CommandRecorder, index int) error {
	if index < 0 || index >= len(s.virtual) {
		return errors.Newf("swapchain image index %d out of range for %d images", index, len(s.virtual))
	}

	virtual := s.virtual[index].Image
	realImage := s.real[index]
	aspect := formats.Aspects(s.info.Format)

	err := transfer.TransitionWholeImage(cmd, virtual, s.info, core1_0.ImageLayoutTransferSrcOptimal, s.info.Layout)
	if err != nil {
		return err
	}

	err = transfer.TransitionWholeImage(cmd, realImage, s.info, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutUndefined)
	if err != nil {
		return err
	}

	err = s.copier.CopyImage(cmd, virtual, core1_0.ImageLayoutTransferSrcOptimal, realImage, core1_0.ImageLayoutTransferDstOptimal, s.info.Extent, aspect)
	if err != nil {
		return err
	}

	err = transfer.TransitionWholeImage(cmd, realImage, s.info, khr_swapchain.ImageLayoutPresentSrc, core1_0.ImageLayoutTransferDstOptimal)
	if err != nil {
		return err
	}

	return transfer.TransitionWholeImage(cmd, virtual, s.info, s.info.Layout, core1_0.ImageLayoutTransferSrcOptimal)
}

func (s *VirtualSwapchain) Destroy() {
	for _, image := range s.virtual {
		image.Destroy()
	}
	s.virtual = nil
}
