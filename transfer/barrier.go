package transfer

import (
	"github.com/bjoeris/renderdoc-sub003/formats"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Every transition waits on all prior memory access at every stage. Replay correctness is
// worth more than replay throughput, and a narrower mask can drop a hazard the captured
// application relied on.
// QueueFamilyIgnored is VK_QUEUE_FAMILY_IGNORED. Queue family indices are ints that reach the
// driver as uint32, so -1 becomes ~0U.
const QueueFamilyIgnored = -1

const (
	allAccess = core1_0.AccessMemoryRead | core1_0.AccessMemoryWrite
	allStages = core1_0.PipelineStageAllCommands
)

// ImageInfo describes an image well enough to decompose it into copy regions
type ImageInfo struct {
	Format      core1_0.Format
	Extent      core1_0.Extent3D
	MipLevels   int
	ArrayLayers int
	// Layout is the layout the image is in before and after a transfer
	Layout core1_0.ImageLayout
}

// WholeRange covers every aspect, mip level and array layer of the image
func (i ImageInfo) WholeRange() core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     formats.Aspects(i.Format),
		BaseMipLevel:   0,
		LevelCount:     i.MipLevels,
		BaseArrayLayer: 0,
		LayerCount:     i.ArrayLayers,
	}
}

// TransitionLayout records one image barrier moving subresourceRange of image from oldLayout
// to newLayout and between queue families
func TransitionLayout(
	cmd CommandRecorder,
	image core1_0.Image,
	subresourceRange core1_0.ImageSubresourceRange,
	newLayout core1_0.ImageLayout,
	dstQueueFamily int,
	oldLayout core1_0.ImageLayout,
	srcQueueFamily int,
) error {
	err := cmd.CmdPipelineBarrier(allStages, allStages, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			SrcAccessMask:       allAccess,
			DstAccessMask:       allAccess,
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: srcQueueFamily,
			DstQueueFamilyIndex: dstQueueFamily,
			Image:               image,
			SubresourceRange:    subresourceRange,
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to transition image from %s to %s", oldLayout, newLayout)
	}
	return nil
}

// TransitionWholeImage transitions every subresource of image without a queue family transfer
func TransitionWholeImage(cmd CommandRecorder, image core1_0.Image, info ImageInfo, newLayout, oldLayout core1_0.ImageLayout) error {
	return TransitionLayout(cmd, image, info.WholeRange(), newLayout, QueueFamilyIgnored, oldLayout, QueueFamilyIgnored)
}

// TransitionSubresource transitions a single mip level of a single array layer of one aspect
func TransitionSubresource(cmd CommandRecorder, image core1_0.Image, aspect core1_0.ImageAspectFlags, mipLevel, arrayLayer int, newLayout, oldLayout core1_0.ImageLayout) error {
	return TransitionLayout(cmd, image, core1_0.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   mipLevel,
		LevelCount:     1,
		BaseArrayLayer: arrayLayer,
		LayerCount:     1,
	}, newLayout, QueueFamilyIgnored, oldLayout, QueueFamilyIgnored)
}

// TransitionFromUndefined transitions subresourceRange to newLayout, discarding its contents
func TransitionFromUndefined(cmd CommandRecorder, image core1_0.Image, subresourceRange core1_0.ImageSubresourceRange, newLayout core1_0.ImageLayout) error {
	return TransitionLayout(cmd, image, subresourceRange, newLayout, QueueFamilyIgnored, core1_0.ImageLayoutUndefined, QueueFamilyIgnored)
}
