package vkres_test

import (
	"testing"

	"github.com/cdragan/minivulkan-sub000/internal/vulkan/fake"
	"github.com/cdragan/minivulkan-sub000/vkmem"
	"github.com/cdragan/minivulkan-sub000/vkres"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func TestImageAllocateBindsAndCreatesView(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(4096)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, vkres.ImageInfo{
		Width:  64,
		Height: 64,
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Usage:  core1_0.ImageUsageSampled,
	}, "test image"))

	require.Len(t, device.Images, 1)
	require.Len(t, device.ImageViews, 1)
	require.True(t, img.IsAllocated())
	require.Equal(t, 4096, img.AllocSize())
	require.Equal(t, core1_0.ImageLayoutUndefined, img.Layout())
	require.Equal(t, core1_0.ImageAspectColor, img.Aspect())
	require.Equal(t, core1_0.ImageTilingOptimal, device.Images[0].Info.Tiling)
	require.Equal(t, img.HeapOffset(), device.Images[0].BoundOffset)

	require.Panics(t, func() {
		_ = img.Allocate(device, allocator, vkmem.UsageDeviceOnly, vkres.ImageInfo{}, "double")
	})
}

func TestImageHostOnlyIsLinearWithoutView(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(4096)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageHostOnly, vkres.ImageInfo{
		Width:  64,
		Height: 64,
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Usage:  core1_0.ImageUsageTransferSrc,
	}, "staging image"))

	require.Equal(t, core1_0.ImageTilingLinear, device.Images[0].Info.Tiling)
	require.Empty(t, device.ImageViews)
	require.True(t, img.IsHostAccessible())
}

func TestImageDepthAspect(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(1 << 16)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, vkres.ImageInfo{
		Width:  256,
		Height: 256,
		Format: core1_0.FormatD32SignedFloat,
		Usage:  core1_0.ImageUsageDepthStencilAttachment,
	}, "depth"))

	require.Equal(t, core1_0.ImageAspectDepth, img.Aspect())
	require.Equal(t, core1_0.ImageAspectDepth, device.ImageViews[0].Info.SubresourceRange.AspectMask)
}

func TestImageLayoutTracksSynchronously(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(4096)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, vkres.ImageInfo{
		Width:  64,
		Height: 64,
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Usage:  core1_0.ImageUsageSampled | core1_0.ImageUsageTransferDst,
	}, "tracked"))

	batch := &vkres.BarrierBatch{}

	// The tracked layout advances at queue time, before anything is sent.
	img.Barrier(batch, vkres.TransitionTransferDst)
	require.Equal(t, core1_0.ImageLayoutTransferDstOptimal, img.Layout())

	img.Barrier(batch, vkres.TransitionShaderRead)
	require.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, img.Layout())

	commandBuffer := &fake.CommandBuffer{}
	require.NoError(t, batch.Send(commandBuffer))

	call := commandBuffer.Barriers[0]
	require.Len(t, call.ImageBarriers, 2)
	require.Equal(t, -1, call.ImageBarriers[0].SrcQueueFamilyIndex)
	require.Equal(t, -1, call.ImageBarriers[0].DstQueueFamilyIndex)
	require.Equal(t, core1_0.ImageLayoutUndefined, call.ImageBarriers[0].OldLayout)
	require.Equal(t, core1_0.ImageLayoutTransferDstOptimal, call.ImageBarriers[0].NewLayout)
	require.Equal(t, core1_0.ImageLayoutTransferDstOptimal, call.ImageBarriers[1].OldLayout)
	require.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, call.ImageBarriers[1].NewLayout)
}

func TestImageDestroyReturnsMemory(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(4096)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())

	heap := allocator.HeapForUsage(vkmem.UsageDeviceOnly)
	freeBefore := heap.SumFreeSize()

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, vkres.ImageInfo{
		Width:  64,
		Height: 64,
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Usage:  core1_0.ImageUsageSampled,
	}, "short-lived"))
	require.Equal(t, freeBefore-4096, heap.SumFreeSize())

	img.Destroy()
	require.Equal(t, freeBefore, heap.SumFreeSize())
	require.False(t, img.IsAllocated())
	require.True(t, device.Images[0].Destroyed)
	require.True(t, device.ImageViews[0].Destroyed)
}

func TestImageReallocateReusesKeptRange(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(1 << 16)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())
	heap := allocator.HeapForUsage(vkmem.UsageDeviceOnly)

	info := vkres.ImageInfo{
		Width:  256,
		Height: 256,
		Format: core1_0.FormatD32SignedFloat,
		Usage:  core1_0.ImageUsageDepthStencilAttachment,
	}

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, info, "depth"))
	offset := img.HeapOffset()
	freeAfterAlloc := heap.SumFreeSize()

	img.DestroyAndKeepMemory()
	require.True(t, img.IsAllocated())
	require.Equal(t, freeAfterAlloc, heap.SumFreeSize())
	require.True(t, device.Images[0].Destroyed)

	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, info, "depth"))
	require.Equal(t, offset, img.HeapOffset())
	require.Equal(t, freeAfterAlloc, heap.SumFreeSize())
	require.Equal(t, offset, device.Images[1].BoundOffset)
}

func TestImageBindFailureKeepsReusableRange(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(1 << 16)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())
	heap := allocator.HeapForUsage(vkmem.UsageDeviceOnly)

	info := vkres.ImageInfo{
		Width:  256,
		Height: 256,
		Format: core1_0.FormatD32SignedFloat,
		Usage:  core1_0.ImageUsageDepthStencilAttachment,
	}

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, info, "depth"))
	offset := img.HeapOffset()
	freeAfterAlloc := heap.SumFreeSize()
	img.DestroyAndKeepMemory()

	// A failed rebind must leave the kept range assigned so the caller can
	// retry or tear down in bulk.
	device.FailBind = true
	require.Error(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, info, "depth"))
	require.True(t, img.IsAllocated())
	require.Equal(t, offset, img.HeapOffset())
	require.Equal(t, freeAfterAlloc, heap.SumFreeSize())

	device.FailBind = false
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageDeviceOnly, info, "depth"))
	require.Equal(t, offset, img.HeapOffset())

	// A fresh allocation that fails to bind returns its range instead.
	freeBefore := heap.SumFreeSize()
	device.FailBind = true
	var fresh vkres.Image
	require.Error(t, fresh.Allocate(device, allocator, vkmem.UsageDeviceOnly, info, "broken depth"))
	require.False(t, fresh.IsAllocated())
	require.Equal(t, freeBefore, heap.SumFreeSize())
}

func TestHostDataBoundsChecks(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(4096)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())

	var img vkres.Image
	require.NoError(t, img.Allocate(device, allocator, vkmem.UsageHostOnly, vkres.ImageInfo{
		Width:  32,
		Height: 32,
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Usage:  core1_0.ImageUsageTransferSrc,
	}, "pixels"))

	pixels := vkres.HostSlice[uint32](&img.Resource, 32*32)
	require.Len(t, pixels, 32*32)
	pixels[0] = 0xdeadbeef
	pixels[32*32-1] = 1

	require.Panics(t, func() {
		vkres.HostSlice[uint32](&img.Resource, 4096)
	})

	var deviceImg vkres.Image
	require.NoError(t, deviceImg.Allocate(device, allocator, vkmem.UsageDeviceOnly, vkres.ImageInfo{
		Width:  32,
		Height: 32,
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Usage:  core1_0.ImageUsageSampled,
	}, "no host access"))
	require.Panics(t, func() {
		vkres.HostData[uint32](&deviceImg.Resource)
	})
}

func TestResourceFlushUsesHeapOffset(t *testing.T) {
	device := &fake.Device{ImageRequirements: imageRequirements(4096)}
	allocator := newTestAllocator(t, device, discretePhysicalDevice())

	var first, second vkres.Image
	info := vkres.ImageInfo{
		Width:  32,
		Height: 32,
		Format: core1_0.FormatR8G8B8A8UnsignedNormalized,
		Usage:  core1_0.ImageUsageTransferSrc,
	}
	require.NoError(t, first.Allocate(device, allocator, vkmem.UsageHostOnly, info, "first"))
	require.NoError(t, second.Allocate(device, allocator, vkmem.UsageHostOnly, info, "second"))

	require.NoError(t, second.FlushRange(100, 8))
	require.Len(t, device.FlushedRanges, 1)

	flushed := device.FlushedRanges[0]
	require.LessOrEqual(t, flushed.Offset, second.HeapOffset()+100)
	require.GreaterOrEqual(t, flushed.Offset+flushed.Size, second.HeapOffset()+108)

	require.Panics(t, func() {
		_ = second.FlushRange(4000, 200)
	})
}
