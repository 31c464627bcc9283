// Package fake provides in-memory stand-ins for the vulkan capability
// interfaces. Device memory is backed by an ordinary byte slice so that
// host-pointer paths can be exercised without a GPU, and every call the
// layers above make is recorded for assertions.
package fake

import (
	"unsafe"

	"github.com/cdragan/minivulkan-sub000/internal/vulkan"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

var (
	_ vulkan.PhysicalDevice = &PhysicalDevice{}
	_ vulkan.Device         = &Device{}
	_ vulkan.DeviceMemory   = &DeviceMemory{}
	_ vulkan.Image          = &Image{}
	_ vulkan.Buffer         = &Buffer{}
	_ vulkan.ImageView      = &ImageView{}
	_ vulkan.CommandBuffer  = &CommandBuffer{}
)

type PhysicalDevice struct {
	DeviceProperties       *core1_0.PhysicalDeviceProperties
	DeviceMemoryProperties *core1_0.PhysicalDeviceMemoryProperties
}

func (d *PhysicalDevice) Properties() (*core1_0.PhysicalDeviceProperties, error) {
	return d.DeviceProperties, nil
}

func (d *PhysicalDevice) MemoryProperties() *core1_0.PhysicalDeviceMemoryProperties {
	return d.DeviceMemoryProperties
}

type Device struct {
	// Requirements handed out by the next CreateImage/CreateBuffer call.
	ImageRequirements  core1_0.MemoryRequirements
	BufferRequirements core1_0.MemoryRequirements

	FailAllocation bool
	FailBind       bool

	Allocations       []*DeviceMemory
	FlushedRanges     []core1_0.MappedMemoryRange
	InvalidatedRanges []core1_0.MappedMemoryRange
	Images            []*Image
	Buffers           []*Buffer
	ImageViews        []*ImageView
}

func (d *Device) AllocateMemory(info core1_0.MemoryAllocateInfo) (vulkan.DeviceMemory, common.VkResult, error) {
	if d.FailAllocation {
		return nil, core1_0.VKErrorOutOfDeviceMemory, errors.New("device is out of memory")
	}

	mem := &DeviceMemory{
		AllocateInfo: info,
		Backing:      make([]byte, info.AllocationSize),
	}
	d.Allocations = append(d.Allocations, mem)
	return mem, core1_0.VKSuccess, nil
}

func (d *Device) FlushMappedMemoryRanges(ranges []core1_0.MappedMemoryRange) (common.VkResult, error) {
	d.FlushedRanges = append(d.FlushedRanges, ranges...)
	return core1_0.VKSuccess, nil
}

func (d *Device) InvalidateMappedMemoryRanges(ranges []core1_0.MappedMemoryRange) (common.VkResult, error) {
	d.InvalidatedRanges = append(d.InvalidatedRanges, ranges...)
	return core1_0.VKSuccess, nil
}

func (d *Device) CreateImage(info core1_0.ImageCreateInfo) (vulkan.Image, common.VkResult, error) {
	image := &Image{
		Info:         info,
		Requirements: d.ImageRequirements,
		FailBind:     d.FailBind,
	}
	d.Images = append(d.Images, image)
	return image, core1_0.VKSuccess, nil
}

func (d *Device) CreateBuffer(info core1_0.BufferCreateInfo) (vulkan.Buffer, common.VkResult, error) {
	buffer := &Buffer{
		Info:         info,
		Requirements: d.BufferRequirements,
	}
	d.Buffers = append(d.Buffers, buffer)
	return buffer, core1_0.VKSuccess, nil
}

func (d *Device) CreateImageView(info core1_0.ImageViewCreateInfo) (vulkan.ImageView, common.VkResult, error) {
	view := &ImageView{Info: info}
	d.ImageViews = append(d.ImageViews, view)
	return view, core1_0.VKSuccess, nil
}

type DeviceMemory struct {
	AllocateInfo core1_0.MemoryAllocateInfo
	Backing      []byte
	Mapped       bool
	Freed        bool
}

func (m *DeviceMemory) Map(offset, size int, flags core1_0.MemoryMapFlags) (unsafe.Pointer, common.VkResult, error) {
	if m.Freed {
		return nil, core1_0.VKErrorUnknown, errors.New("mapping freed memory")
	}
	m.Mapped = true
	return unsafe.Pointer(&m.Backing[offset]), core1_0.VKSuccess, nil
}

func (m *DeviceMemory) Unmap() {
	m.Mapped = false
}

func (m *DeviceMemory) Free() {
	m.Freed = true
}

func (m *DeviceMemory) Handle() core1_0.DeviceMemory {
	return nil
}

type Image struct {
	Info         core1_0.ImageCreateInfo
	Requirements core1_0.MemoryRequirements
	FailBind     bool

	BoundMemory vulkan.DeviceMemory
	BoundOffset int
	Destroyed   bool
}

func (i *Image) MemoryRequirements() *core1_0.MemoryRequirements {
	reqs := i.Requirements
	return &reqs
}

func (i *Image) BindImageMemory(memory vulkan.DeviceMemory, offset int) (common.VkResult, error) {
	if i.FailBind {
		return core1_0.VKErrorUnknown, errors.New("binding image memory failed")
	}
	i.BoundMemory = memory
	i.BoundOffset = offset
	return core1_0.VKSuccess, nil
}

func (i *Image) Destroy() {
	i.Destroyed = true
}

func (i *Image) Handle() core1_0.Image {
	return nil
}

type Buffer struct {
	Info         core1_0.BufferCreateInfo
	Requirements core1_0.MemoryRequirements

	BoundMemory vulkan.DeviceMemory
	BoundOffset int
	Destroyed   bool
}

func (b *Buffer) MemoryRequirements() *core1_0.MemoryRequirements {
	reqs := b.Requirements
	return &reqs
}

func (b *Buffer) BindBufferMemory(memory vulkan.DeviceMemory, offset int) (common.VkResult, error) {
	b.BoundMemory = memory
	b.BoundOffset = offset
	return core1_0.VKSuccess, nil
}

func (b *Buffer) Destroy() {
	b.Destroyed = true
}

func (b *Buffer) Handle() core1_0.Buffer {
	return nil
}

type ImageView struct {
	Info      core1_0.ImageViewCreateInfo
	Destroyed bool
}

func (v *ImageView) Destroy() {
	v.Destroyed = true
}

func (v *ImageView) Handle() core1_0.ImageView {
	return nil
}

// BarrierCall is one recorded CmdPipelineBarrier invocation.
type BarrierCall struct {
	SrcStageMask, DstStageMask core1_0.PipelineStageFlags
	MemoryBarriers             []core1_0.MemoryBarrier
	BufferBarriers             []core1_0.BufferMemoryBarrier
	ImageBarriers              []core1_0.ImageMemoryBarrier
}

// CopyCall is one recorded CmdCopyImage invocation.
type CopyCall struct {
	Src       vulkan.Image
	SrcLayout core1_0.ImageLayout
	Dst       vulkan.Image
	DstLayout core1_0.ImageLayout
	Regions   []core1_0.ImageCopy
}

type CommandBuffer struct {
	Barriers []BarrierCall
	Copies   []CopyCall
}

func (c *CommandBuffer) CmdPipelineBarrier(
	srcStageMask, dstStageMask core1_0.PipelineStageFlags,
	dependencies core1_0.DependencyFlags,
	memoryBarriers []core1_0.MemoryBarrier,
	bufferMemoryBarriers []core1_0.BufferMemoryBarrier,
	imageMemoryBarriers []core1_0.ImageMemoryBarrier,
) error {
	c.Barriers = append(c.Barriers, BarrierCall{
		SrcStageMask:   srcStageMask,
		DstStageMask:   dstStageMask,
		MemoryBarriers: memoryBarriers,
		BufferBarriers: bufferMemoryBarriers,
		ImageBarriers:  imageMemoryBarriers,
	})
	return nil
}

func (c *CommandBuffer) CmdCopyImage(
	srcImage vulkan.Image, srcImageLayout core1_0.ImageLayout,
	dstImage vulkan.Image, dstImageLayout core1_0.ImageLayout,
	regions []core1_0.ImageCopy,
) error {
	c.Copies = append(c.Copies, CopyCall{
		Src:       srcImage,
		SrcLayout: srcImageLayout,
		Dst:       dstImage,
		DstLayout: dstImageLayout,
		Regions:   regions,
	})
	return nil
}
