// Package vulkan narrows the vkngwrapper device surface down to the handful
// of entry points the memory and resource layers actually call. The higher
// layers depend on these interfaces rather than on core1_0 objects directly,
// which keeps them testable against in-memory fakes.
package vulkan

import (
	"unsafe"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// PhysicalDevice exposes the device property queries the allocator needs at
// startup. core1_0.PhysicalDevice satisfies it as-is.
type PhysicalDevice interface {
	Properties() (*core1_0.PhysicalDeviceProperties, error)
	MemoryProperties() *core1_0.PhysicalDeviceMemoryProperties
}

// Device is the slice of core1_0.Device consumed by the memory heaps and
// resource constructors.
type Device interface {
	AllocateMemory(info core1_0.MemoryAllocateInfo) (DeviceMemory, common.VkResult, error)
	FlushMappedMemoryRanges(ranges []core1_0.MappedMemoryRange) (common.VkResult, error)
	InvalidateMappedMemoryRanges(ranges []core1_0.MappedMemoryRange) (common.VkResult, error)
	CreateImage(info core1_0.ImageCreateInfo) (Image, common.VkResult, error)
	CreateBuffer(info core1_0.BufferCreateInfo) (Buffer, common.VkResult, error)
	CreateImageView(info core1_0.ImageViewCreateInfo) (ImageView, common.VkResult, error)
}

// DeviceMemory is one vkAllocateMemory block. Handle returns the underlying
// core object for use in wire structs such as core1_0.MappedMemoryRange.
type DeviceMemory interface {
	Map(offset, size int, flags core1_0.MemoryMapFlags) (unsafe.Pointer, common.VkResult, error)
	Unmap()
	Free()
	Handle() core1_0.DeviceMemory
}

// Image wraps a core1_0.Image together with the allocation callbacks it was
// created with.
type Image interface {
	MemoryRequirements() *core1_0.MemoryRequirements
	BindImageMemory(memory DeviceMemory, offset int) (common.VkResult, error)
	Destroy()
	Handle() core1_0.Image
}

// Buffer wraps a core1_0.Buffer together with the allocation callbacks it was
// created with.
type Buffer interface {
	MemoryRequirements() *core1_0.MemoryRequirements
	BindBufferMemory(memory DeviceMemory, offset int) (common.VkResult, error)
	Destroy()
	Handle() core1_0.Buffer
}

type ImageView interface {
	Destroy()
	Handle() core1_0.ImageView
}

// CommandBuffer carries the two commands the resource layer records: barrier
// batches and host-copy image transfers.
type CommandBuffer interface {
	CmdPipelineBarrier(
		srcStageMask, dstStageMask core1_0.PipelineStageFlags,
		dependencies core1_0.DependencyFlags,
		memoryBarriers []core1_0.MemoryBarrier,
		bufferMemoryBarriers []core1_0.BufferMemoryBarrier,
		imageMemoryBarriers []core1_0.ImageMemoryBarrier,
	) error
	CmdCopyImage(
		srcImage Image, srcImageLayout core1_0.ImageLayout,
		dstImage Image, dstImageLayout core1_0.ImageLayout,
		regions []core1_0.ImageCopy,
	) error
}
