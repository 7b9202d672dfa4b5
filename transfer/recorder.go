// Package transfer records the layout transitions and copies that move resource contents
// between staging buffers and images during replay.
package transfer

import (
	"github.com/vkngwrapper/core/v2/core1_0"
)

//go:generate mockgen -source recorder.go -destination ./mocks/recorder.go -package mock_transfer

// CommandRecorder is the part of a command buffer the transfer layer records into.
// core1_0.CommandBuffer satisfies it.
type CommandRecorder interface {
	CmdPipelineBarrier(srcStageMask, dstStageMask core1_0.PipelineStageFlags, dependencies core1_0.DependencyFlags, memoryBarriers []core1_0.MemoryBarrier, bufferMemoryBarriers []core1_0.BufferMemoryBarrier, imageMemoryBarriers []core1_0.ImageMemoryBarrier) error
	CmdCopyBufferToImage(buffer core1_0.Buffer, image core1_0.Image, layout core1_0.ImageLayout, regions []core1_0.BufferImageCopy) error
	CmdCopyImageToBuffer(srcImage core1_0.Image, srcImageLayout core1_0.ImageLayout, dstBuffer core1_0.Buffer, regions []core1_0.BufferImageCopy) error
	CmdCopyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, copyRegions []core1_0.BufferCopy) error
	CmdCopyImage(srcImage core1_0.Image, srcImageLayout core1_0.ImageLayout, dstImage core1_0.Image, dstImageLayout core1_0.ImageLayout, regions []core1_0.ImageCopy) error
}
