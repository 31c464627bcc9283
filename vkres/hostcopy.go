package vkres

import (
	"github.com/cdragan/minivulkan-sub000/internal/vulkan"
	"github.com/cdragan/minivulkan-sub000/vkmem"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// ImageWithHostCopy pairs a device-resident image with a host-visible
// shadow of the same dimensions. The host copy is written sporadically (for
// example by procedural texture generators) and uploaded only when dirty,
// so unchanged frames cost no bandwidth.
//
// On unified-memory devices the device image is itself host-visible and no
// shadow is created; writes go straight into the device image.
type ImageWithHostCopy struct {
	Image

	hostImage Image
	dirty     bool
}

// Allocate creates the device image and, when the allocator requires a
// staging path for fixed resources, the host shadow image.
func (img *ImageWithHostCopy) Allocate(device vulkan.Device, allocator *vkmem.Allocator, info ImageInfo, name string) error {
	deviceInfo := info
	if allocator.NeedHostCopy(vkmem.UsageFixed) {
		deviceInfo.Usage |= core1_0.ImageUsageTransferDst
	}

	err := img.Image.Allocate(device, allocator, vkmem.UsageFixed, deviceInfo, name)
	if err != nil {
		return err
	}

	if allocator.NeedHostCopy(vkmem.UsageFixed) {
		hostInfo := info
		hostInfo.MipLevels = 1
		hostInfo.Usage = core1_0.ImageUsageTransferSrc

		err = img.hostImage.Allocate(device, allocator, vkmem.UsageHostOnly, hostInfo, name+" (host copy)")
		if err != nil {
			img.Image.Destroy()
			return err
		}
	}

	return nil
}

// HostImage returns the image host code writes into: the shadow when one
// exists, otherwise the device image itself.
func (img *ImageWithHostCopy) HostImage() *Image {
	if img.hostImage.image != nil {
		return &img.hostImage
	}
	return &img.Image
}

// SetDirty marks the host copy as modified; the next SendToGPU uploads it.
func (img *ImageWithHostCopy) SetDirty() {
	img.dirty = true
}

func (img *ImageWithHostCopy) IsDirty() bool {
	return img.dirty
}

// SendToGPU uploads the host copy to the device image if it is dirty. The
// upload flushes host memory, batches the two transfer transitions into one
// barrier, copies, and leaves the device image shader-readable. No-op when
// clean.
func (img *ImageWithHostCopy) SendToGPU(commandBuffer vulkan.CommandBuffer, batch *BarrierBatch) error {
	if !img.dirty {
		return nil
	}

	if img.hostImage.image == nil {
		// Unified memory: the device image is host-visible, so making the
		// writes visible is the whole upload.
		err := img.Flush()
		if err != nil {
			return err
		}
		img.dirty = false
		return nil
	}

	err := img.hostImage.Flush()
	if err != nil {
		return err
	}

	img.hostImage.Barrier(batch, TransitionTransferSrc)
	img.Image.Barrier(batch, TransitionTransferDst)
	err = batch.Send(commandBuffer)
	if err != nil {
		return err
	}

	err = commandBuffer.CmdCopyImage(
		img.hostImage.image, core1_0.ImageLayoutTransferSrcOptimal,
		img.Image.image, core1_0.ImageLayoutTransferDstOptimal,
		[]core1_0.ImageCopy{
			{
				SrcSubresource: core1_0.ImageSubresourceLayers{
					AspectMask: img.hostImage.aspect,
					LayerCount: 1,
				},
				DstSubresource: core1_0.ImageSubresourceLayers{
					AspectMask: img.aspect,
					LayerCount: 1,
				},
				Extent: core1_0.Extent3D{Width: img.width, Height: img.height, Depth: 1},
			},
		})
	if err != nil {
		return err
	}

	img.Image.Barrier(batch, TransitionShaderRead)
	err = batch.Send(commandBuffer)
	if err != nil {
		return err
	}

	img.dirty = false
	return nil
}

// Destroy releases both images.
func (img *ImageWithHostCopy) Destroy() {
	img.hostImage.Destroy()
	img.Image.Destroy()
	img.dirty = false
}
