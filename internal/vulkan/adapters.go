package vulkan

import (
	"unsafe"

	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
)

// WrapDevice adapts a core1_0.Device to the Device interface. The allocation
// callbacks may be nil and are applied to every create, allocate, and destroy
// call made through the adapter.
func WrapDevice(device core1_0.Device, callbacks *driver.AllocationCallbacks) Device {
	return &deviceAdapter{device: device, callbacks: callbacks}
}

// WrapCommandBuffer adapts a core1_0.CommandBuffer to the CommandBuffer
// interface.
func WrapCommandBuffer(commandBuffer core1_0.CommandBuffer) CommandBuffer {
	return &commandBufferAdapter{commandBuffer: commandBuffer}
}

type deviceAdapter struct {
	device    core1_0.Device
	callbacks *driver.AllocationCallbacks
}

func (d *deviceAdapter) AllocateMemory(info core1_0.MemoryAllocateInfo) (DeviceMemory, common.VkResult, error) {
	mem, res, err := d.device.AllocateMemory(d.callbacks, info)
	if err != nil {
		return nil, res, err
	}
	return &deviceMemoryAdapter{memory: mem, callbacks: d.callbacks}, res, nil
}

func (d *deviceAdapter) FlushMappedMemoryRanges(ranges []core1_0.MappedMemoryRange) (common.VkResult, error) {
	return d.device.FlushMappedMemoryRanges(ranges)
}

func (d *deviceAdapter) InvalidateMappedMemoryRanges(ranges []core1_0.MappedMemoryRange) (common.VkResult, error) {
	return d.device.InvalidateMappedMemoryRanges(ranges)
}

func (d *deviceAdapter) CreateImage(info core1_0.ImageCreateInfo) (Image, common.VkResult, error) {
	image, res, err := d.device.CreateImage(d.callbacks, info)
	if err != nil {
		return nil, res, err
	}
	return &imageAdapter{image: image, callbacks: d.callbacks}, res, nil
}

func (d *deviceAdapter) CreateBuffer(info core1_0.BufferCreateInfo) (Buffer, common.VkResult, error) {
	buffer, res, err := d.device.CreateBuffer(d.callbacks, info)
	if err != nil {
		return nil, res, err
	}
	return &bufferAdapter{buffer: buffer, callbacks: d.callbacks}, res, nil
}

func (d *deviceAdapter) CreateImageView(info core1_0.ImageViewCreateInfo) (ImageView, common.VkResult, error) {
	view, res, err := d.device.CreateImageView(d.callbacks, info)
	if err != nil {
		return nil, res, err
	}
	return &imageViewAdapter{view: view, callbacks: d.callbacks}, res, nil
}

type deviceMemoryAdapter struct {
	memory    core1_0.DeviceMemory
	callbacks *driver.AllocationCallbacks
}

func (m *deviceMemoryAdapter) Map(offset, size int, flags core1_0.MemoryMapFlags) (unsafe.Pointer, common.VkResult, error) {
	return m.memory.Map(offset, size, flags)
}

func (m *deviceMemoryAdapter) Unmap() {
	m.memory.Unmap()
}

func (m *deviceMemoryAdapter) Free() {
	m.memory.Free(m.callbacks)
}

func (m *deviceMemoryAdapter) Handle() core1_0.DeviceMemory {
	return m.memory
}

type imageAdapter struct {
	image     core1_0.Image
	callbacks *driver.AllocationCallbacks
}

func (i *imageAdapter) MemoryRequirements() *core1_0.MemoryRequirements {
	return i.image.MemoryRequirements()
}

func (i *imageAdapter) BindImageMemory(memory DeviceMemory, offset int) (common.VkResult, error) {
	return i.image.BindImageMemory(memory.Handle(), offset)
}

func (i *imageAdapter) Destroy() {
	i.image.Destroy(i.callbacks)
}

func (i *imageAdapter) Handle() core1_0.Image {
	return i.image
}

type bufferAdapter struct {
	buffer    core1_0.Buffer
	callbacks *driver.AllocationCallbacks
}

func (b *bufferAdapter) MemoryRequirements() *core1_0.MemoryRequirements {
	return b.buffer.MemoryRequirements()
}

func (b *bufferAdapter) BindBufferMemory(memory DeviceMemory, offset int) (common.VkResult, error) {
	return b.buffer.BindBufferMemory(memory.Handle(), offset)
}

func (b *bufferAdapter) Destroy() {
	b.buffer.Destroy(b.callbacks)
}

func (b *bufferAdapter) Handle() core1_0.Buffer {
	return b.buffer
}

type imageViewAdapter struct {
	view      core1_0.ImageView
	callbacks *driver.AllocationCallbacks
}

func (v *imageViewAdapter) Destroy() {
	v.view.Destroy(v.callbacks)
}

func (v *imageViewAdapter) Handle() core1_0.ImageView {
	return v.view
}

type commandBufferAdapter struct {
	commandBuffer core1_0.CommandBuffer
}

func (c *commandBufferAdapter) CmdPipelineBarrier(
	srcStageMask, dstStageMask core1_0.PipelineStageFlags,
	dependencies core1_0.DependencyFlags,
	memoryBarriers []core1_0.MemoryBarrier,
	bufferMemoryBarriers []core1_0.BufferMemoryBarrier,
	imageMemoryBarriers []core1_0.ImageMemoryBarrier,
) error {
	return c.commandBuffer.CmdPipelineBarrier(srcStageMask, dstStageMask, dependencies, memoryBarriers, bufferMemoryBarriers, imageMemoryBarriers)
}

func (c *commandBufferAdapter) CmdCopyImage(
	srcImage Image, srcImageLayout core1_0.ImageLayout,
	dstImage Image, dstImageLayout core1_0.ImageLayout,
	regions []core1_0.ImageCopy,
) error {
	return c.commandBuffer.CmdCopyImage(srcImage.Handle(), srcImageLayout, dstImage.Handle(), dstImageLayout, regions)
}
