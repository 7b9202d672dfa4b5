package transfer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

type Options struct {
	// MaxRegionsPerCommand overrides the number of regions recorded per copy command. Zero uses
	// MaxRegionsPerCommand.
	MaxRegionsPerCommand int
}

// Copier records the copies that populate images and buffers from staging buffers and read
// them back
type Copier struct {
	logger     *slog.Logger
	maxRegions int
}

func NewCopier(logger *slog.Logger, options Options) *Copier {
	maxRegions := options.MaxRegionsPerCommand
	if maxRegions <= 0 {
		maxRegions = MaxRegionsPerCommand
	}

	return &Copier{
		logger:     logger,
		maxRegions: maxRegions,
	}
}

// restingLayout is the layout an image is left in after a transfer. An image cannot be
// transitioned into UNDEFINED.
func restingLayout(layout core1_0.ImageLayout) core1_0.ImageLayout {
	if layout == core1_0.ImageLayoutUndefined {
		return core1_0.ImageLayoutGeneral
	}
	return layout
}

// ResetImage overwrites every subresource of dst with the contents of src, laid out as
// BuildImageRegions describes, and leaves dst in info.Layout
func (c *Copier) ResetImage(cmd CommandRecorder, dst core1_0.Image, src core1_0.Buffer, info ImageInfo) error {
	c.logger.Debug("Copier::ResetImage")

	regions, _ := BuildImageRegions(info)
	if len(regions) == 0 {
		return errors.Newf("image format %d has no copyable aspects", int(info.Format))
	}

	err := TransitionFromUndefined(cmd, dst, info.WholeRange(), core1_0.ImageLayoutTransferDstOptimal)
	if err != nil {
		return err
	}

	for _, chunk := range Chunk(regions, c.maxRegions) {
		err = cmd.CmdCopyBufferToImage(src, dst, core1_0.ImageLayoutTransferDstOptimal, chunk)
		if err != nil {
			return errors.Wrap(err, "failed to record buffer to image copy")
		}
	}

	return TransitionWholeImage(cmd, dst, info, restingLayout(info.Layout), core1_0.ImageLayoutTransferDstOptimal)
}

// ImageToBuffer copies every subresource of src into dst, laid out as BuildImageRegions
// describes. src is returned to info.Layout afterward.
func (c *Copier) ImageToBuffer(cmd CommandRecorder, src core1_0.Image, dst core1_0.Buffer, info ImageInfo) error {
	c.logger.Debug("Copier::ImageToBuffer")

	regions, _ := BuildImageRegions(info)
	if len(regions) == 0 {
		return errors.Newf("image format %d has no copyable aspects", int(info.Format))
	}

	err := TransitionWholeImage(cmd, src, info, core1_0.ImageLayoutTransferSrcOptimal, info.Layout)
	if err != nil {
		return err
	}

	for _, chunk := range Chunk(regions, c.maxRegions) {
		err = cmd.CmdCopyImageToBuffer(src, core1_0.ImageLayoutTransferSrcOptimal, dst, chunk)
		if err != nil {
			return errors.Wrap(err, "failed to record image to buffer copy")
		}
	}

	return TransitionWholeImage(cmd, src, info, restingLayout(info.Layout), core1_0.ImageLayoutTransferSrcOptimal)
}

// ResetBuffer overwrites the first size bytes of dst with the first size bytes of src
func (c *Copier) ResetBuffer(cmd CommandRecorder, dst core1_0.Buffer, src core1_0.Buffer, size int) error {
	c.logger.Debug("Copier::ResetBuffer")

	if size <= 0 {
		return nil
	}

	err := cmd.CmdCopyBuffer(src, dst, []core1_0.BufferCopy{
		{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to record buffer copy")
	}
	return nil
}

// CopyImage records a copy of mip 0, layer 0 of one aspect between two images of the same
// extent that are already in srcLayout and dstLayout
func (c *Copier) CopyImage(cmd CommandRecorder, src core1_0.Image, srcLayout core1_0.ImageLayout, dst core1_0.Image, dstLayout core1_0.ImageLayout, extent core1_0.Extent3D, aspect core1_0.ImageAspectFlags) error {
	c.logger.Debug("Copier::CopyImage")

	subresource := core1_0.ImageSubresourceLayers{
		AspectMask:     aspect,
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	err := cmd.CmdCopyImage(src, srcLayout, dst, dstLayout, []core1_0.ImageCopy{
		{
			SrcSubresource: subresource,
			DstSubresource: subresource,
			Extent:         extent,
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to record image copy")
	}
	return nil
}
