package vkres

import (
	"github.com/cdragan/minivulkan-sub000/internal/vulkan"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// queueFamilyIgnored is VK_QUEUE_FAMILY_IGNORED: the barriers this layer
// issues never transfer queue ownership.
const queueFamilyIgnored = -1

// BatchCapacity is the maximum number of buffer barriers and of image
// barriers one batch can hold. It reflects the known upper bound on
// simultaneous transitions per synchronization point in this engine;
// exceeding it is a logic error, not a runtime condition.
const BatchCapacity = 4

// BarrierBatch accumulates pending memory barriers and flushes them as a
// single pipeline barrier command. Construct one per render context and
// share it between the resources that synchronize at the same points.
//
// The batch is not thread-safe: all queuing and flushing happens on the
// render thread.
type BarrierBatch struct {
	srcStageMask core1_0.PipelineStageFlags
	dstStageMask core1_0.PipelineStageFlags

	bufferBarriers [BatchCapacity]core1_0.BufferMemoryBarrier
	imageBarriers  [BatchCapacity]core1_0.ImageMemoryBarrier
	numBuffer      int
	numImage       int
}

// AddBufferBarrier queues one buffer memory barrier. Panics when the batch
// is already full.
func (b *BarrierBatch) AddBufferBarrier(barrier core1_0.BufferMemoryBarrier, srcStageMask, dstStageMask core1_0.PipelineStageFlags) {
	if b.numBuffer == BatchCapacity {
		panic("barrier batch has no room for another buffer barrier")
	}
	b.bufferBarriers[b.numBuffer] = barrier
	b.numBuffer++
	b.srcStageMask |= srcStageMask
	b.dstStageMask |= dstStageMask
}

// AddImageBarrier queues one image memory barrier. Panics when the batch is
// already full.
func (b *BarrierBatch) AddImageBarrier(barrier core1_0.ImageMemoryBarrier, srcStageMask, dstStageMask core1_0.PipelineStageFlags) {
	if b.numImage == BatchCapacity {
		panic("barrier batch has no room for another image barrier")
	}
	b.imageBarriers[b.numImage] = barrier
	b.numImage++
	b.srcStageMask |= srcStageMask
	b.dstStageMask |= dstStageMask
}

// Pending returns the number of queued barriers.
func (b *BarrierBatch) Pending() int {
	return b.numBuffer + b.numImage
}

// Send issues every queued barrier as one pipeline barrier command and
// empties the batch. Sending an empty batch records nothing.
func (b *BarrierBatch) Send(commandBuffer vulkan.CommandBuffer) error {
	if b.Pending() == 0 {
		return nil
	}

	srcStageMask := b.srcStageMask
	if srcStageMask == 0 {
		srcStageMask = core1_0.PipelineStageTopOfPipe
	}

	err := commandBuffer.CmdPipelineBarrier(
		srcStageMask,
		b.dstStageMask,
		0,
		nil,
		b.bufferBarriers[:b.numBuffer],
		b.imageBarriers[:b.numImage],
	)

	b.numBuffer = 0
	b.numImage = 0
	b.srcStageMask = 0
	b.dstStageMask = 0
	return err
}
