package vkres

import (
	"github.com/cdragan/minivulkan-sub000/internal/vulkan"
	"github.com/cdragan/minivulkan-sub000/vkmem"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// ImageInfo describes the image to create. MipLevels of zero means one.
type ImageInfo struct {
	Width     int
	Height    int
	MipLevels int
	Format    core1_0.Format
	Usage     core1_0.ImageUsageFlags
}

// Image is a 2D image bound to a heap range, together with its view and the
// layout the pipeline currently sees it in.
type Image struct {
	Resource

	image vulkan.Image
	view  vulkan.ImageView

	layout    core1_0.ImageLayout
	format    core1_0.Format
	aspect    core1_0.ImageAspectFlags
	width     int
	height    int
	mipLevels int
}

// aspectForFormat infers the aspect an image view and its barriers address.
// The engine's depth attachments use depth-only aspects even for combined
// depth/stencil formats.
func aspectForFormat(format core1_0.Format) core1_0.ImageAspectFlags {
	switch format {
	case core1_0.FormatD16UnsignedNormalized,
		core1_0.FormatD24X8UnsignedNormalizedPacked,
		core1_0.FormatD32SignedFloat,
		core1_0.FormatD16UnsignedNormalizedS8UnsignedInt,
		core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		core1_0.FormatD32SignedFloatS8UnsignedInt:
		return core1_0.ImageAspectDepth
	default:
		return core1_0.ImageAspectColor
	}
}

// Allocate creates the image, carves backing memory from the usage's heap,
// binds it, and creates a matching view. Host-only images use linear tiling
// and get no view.
//
// An image that was destroyed with DestroyAndKeepMemory still owns its heap
// range; Allocate rebinds to that range instead of asking the heap for a
// new one. Allocating an image that is still live is a caller bug.
func (img *Image) Allocate(device vulkan.Device, allocator *vkmem.Allocator, usage vkmem.Usage, info ImageInfo, name string) error {
	if img.image != nil {
		panic("allocating an image that is already allocated")
	}

	mipLevels := info.MipLevels
	if mipLevels == 0 {
		mipLevels = 1
	}

	tiling := core1_0.ImageTilingOptimal
	if usage == vkmem.UsageHostOnly {
		tiling = core1_0.ImageTilingLinear
	}

	image, _, err := device.CreateImage(core1_0.ImageCreateInfo{
		ImageType:     core1_0.ImageType2D,
		Format:        info.Format,
		Extent:        core1_0.Extent3D{Width: info.Width, Height: info.Height, Depth: 1},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Samples:       core1_0.Samples1,
		Tiling:        tiling,
		Usage:         info.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		InitialLayout: core1_0.ImageLayoutUndefined,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create image %q", name)
	}

	err = img.bindMemory(image, allocator, usage, name)
	if err != nil {
		image.Destroy()
		return err
	}

	img.image = image
	img.layout = core1_0.ImageLayoutUndefined
	img.format = info.Format
	img.aspect = aspectForFormat(info.Format)
	img.width = info.Width
	img.height = info.Height
	img.mipLevels = mipLevels

	if usage != vkmem.UsageHostOnly {
		view, _, err := device.CreateImageView(core1_0.ImageViewCreateInfo{
			Image:    image.Handle(),
			ViewType: core1_0.ImageViewType2D,
			Format:   info.Format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask: img.aspect,
				LevelCount: mipLevels,
				LayerCount: 1,
			},
		})
		if err != nil {
			img.destroyObjects()
			img.freeMemory()
			return errors.Wrapf(err, "failed to create view for image %q", name)
		}
		img.view = view
	}

	return nil
}

func (img *Image) bindMemory(image vulkan.Image, allocator *vkmem.Allocator, usage vkmem.Usage, name string) error {
	reqs := image.MemoryRequirements()

	keptRange := img.allocSize != 0
	if keptRange {
		// Rebinding to a kept range, e.g. a depth buffer recreated at the
		// same size after a swapchain rebuild.
		if reqs.Size > img.allocSize {
			return errors.Newf("image %q needs %d bytes but its kept range holds %d", name, reqs.Size, img.allocSize)
		}
		if reqs.Alignment != 0 && img.heapOffset%reqs.Alignment != 0 {
			return errors.Newf("image %q kept range offset %d violates alignment %d", name, img.heapOffset, reqs.Alignment)
		}
	} else {
		offset, size, heap, err := allocator.AllocateMemory(reqs, usage, name)
		if err != nil {
			return err
		}
		img.heap = heap
		img.heapOffset = offset
		img.allocSize = size
		img.usage = usage
	}

	_, err := image.BindImageMemory(img.heap.Memory(), img.heapOffset)
	if err != nil {
		// A kept range stays assigned so the caller can retry the rebind
		// or tear down in bulk.
		if !keptRange {
			img.freeMemory()
		}
		return errors.Wrapf(err, "failed to bind memory for image %q", name)
	}
	return nil
}

func (img *Image) GetImage() vulkan.Image {
	return img.image
}

func (img *Image) GetView() vulkan.ImageView {
	return img.view
}

func (img *Image) Layout() core1_0.ImageLayout {
	return img.layout
}

func (img *Image) Format() core1_0.Format {
	return img.format
}

func (img *Image) Aspect() core1_0.ImageAspectFlags {
	return img.aspect
}

func (img *Image) Width() int {
	return img.width
}

func (img *Image) Height() int {
	return img.height
}

// Barrier queues a layout transition covering all mip levels. The tracked
// layout advances to the transition's new layout immediately: once queued,
// command-buffer order fixes the transition regardless of when the batch is
// sent.
func (img *Image) Barrier(batch *BarrierBatch, t Transition) {
	batch.AddImageBarrier(core1_0.ImageMemoryBarrier{
		SrcAccessMask:       t.SrcAccessMask,
		DstAccessMask:       t.DstAccessMask,
		OldLayout:           img.layout,
		NewLayout:           t.NewLayout,
		SrcQueueFamilyIndex: queueFamilyIgnored,
		DstQueueFamilyIndex: queueFamilyIgnored,
		Image:               img.image.Handle(),
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask: img.aspect,
			LevelCount: img.mipLevels,
			LayerCount: 1,
		},
	}, t.SrcStageMask, t.DstStageMask)

	img.layout = t.NewLayout
}

func (img *Image) destroyObjects() {
	if img.view != nil {
		img.view.Destroy()
		img.view = nil
	}
	if img.image != nil {
		img.image.Destroy()
		img.image = nil
	}
	img.layout = core1_0.ImageLayoutUndefined
}

// Destroy releases the view and image and returns the backing range to the
// heap. The image ends up zeroed and reusable.
func (img *Image) Destroy() {
	img.destroyObjects()
	img.freeMemory()
	*img = Image{}
}

// DestroyAndKeepMemory releases the view and image but keeps the heap range
// assigned, so the image can be reallocated at the same size without
// touching the heap. Used for resources recreated on resize under a
// checkpoint.
func (img *Image) DestroyAndKeepMemory() {
	img.destroyObjects()
	img.format = 0
	img.width = 0
	img.height = 0
	img.mipLevels = 0
}
