package vkres

import (
	"github.com/cdragan/minivulkan-sub000/internal/vulkan"
	"github.com/cdragan/minivulkan-sub000/vkmem"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Buffer is a linear buffer bound to a heap range.
type Buffer struct {
	Resource

	buffer vulkan.Buffer
}

// Allocate creates the buffer, carves backing memory from the usage's heap,
// and binds it. Allocating a buffer that is still live is a caller bug.
func (buf *Buffer) Allocate(device vulkan.Device, allocator *vkmem.Allocator, usage vkmem.Usage, size int, bufferUsage core1_0.BufferUsageFlags, name string) error {
	if buf.buffer != nil {
		panic("allocating a buffer that is already allocated")
	}

	buffer, _, err := device.CreateBuffer(core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       bufferUsage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create buffer %q", name)
	}

	reqs := buffer.MemoryRequirements()
	offset, allocSize, heap, err := allocator.AllocateMemory(reqs, usage, name)
	if err != nil {
		buffer.Destroy()
		return err
	}

	_, err = buffer.BindBufferMemory(heap.Memory(), offset)
	if err != nil {
		heap.FreeMemory(offset, allocSize)
		buffer.Destroy()
		return errors.Wrapf(err, "failed to bind memory for buffer %q", name)
	}

	buf.buffer = buffer
	buf.heap = heap
	buf.heapOffset = offset
	buf.allocSize = allocSize
	buf.usage = usage
	return nil
}

func (buf *Buffer) GetBuffer() vulkan.Buffer {
	return buf.buffer
}

// Barrier queues a whole-buffer memory barrier. Buffers have no layout to
// track; only the access scopes change.
func (buf *Buffer) Barrier(batch *BarrierBatch, srcStageMask core1_0.PipelineStageFlags, srcAccessMask core1_0.AccessFlags, dstStageMask core1_0.PipelineStageFlags, dstAccessMask core1_0.AccessFlags) {
	batch.AddBufferBarrier(core1_0.BufferMemoryBarrier{
		SrcAccessMask:       srcAccessMask,
		DstAccessMask:       dstAccessMask,
		SrcQueueFamilyIndex: queueFamilyIgnored,
		DstQueueFamilyIndex: queueFamilyIgnored,
		Buffer:              buf.buffer.Handle(),
		Offset:              0,
		Size:                buf.allocSize,
	}, srcStageMask, dstStageMask)
}

// Destroy releases the buffer and returns the backing range to the heap.
func (buf *Buffer) Destroy() {
	if buf.buffer != nil {
		buf.buffer.Destroy()
		buf.buffer = nil
	}
	buf.freeMemory()
	*buf = Buffer{}
}
