package vkres_test

import (
	"io"
	"testing"

	"github.com/cdragan/minivulkan-sub000/internal/vulkan/fake"
	"github.com/cdragan/minivulkan-sub000/vkmem"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

func physicalDeviceWithTypes(types []core1_0.MemoryType, heaps []core1_0.MemoryHeap) *fake.PhysicalDevice {
	return &fake.PhysicalDevice{
		DeviceProperties: &core1_0.PhysicalDeviceProperties{
			Limits: &core1_0.PhysicalDeviceLimits{
				NonCoherentAtomSize:   64,
				MinMemoryMapAlignment: 64,
			},
		},
		DeviceMemoryProperties: &core1_0.PhysicalDeviceMemoryProperties{
			MemoryTypes: types,
			MemoryHeaps: heaps,
		},
	}
}

func discretePhysicalDevice() *fake.PhysicalDevice {
	return physicalDeviceWithTypes(
		[]core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal, HeapIndex: 0},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent, HeapIndex: 1},
		},
		[]core1_0.MemoryHeap{
			{Size: 8 << 30, Flags: core1_0.MemoryHeapDeviceLocal},
			{Size: 16 << 30},
		},
	)
}

func unifiedPhysicalDevice() *fake.PhysicalDevice {
	return physicalDeviceWithTypes(
		[]core1_0.MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent, HeapIndex: 0},
		},
		[]core1_0.MemoryHeap{
			{Size: 8 << 30, Flags: core1_0.MemoryHeapDeviceLocal},
		},
	)
}

func newTestAllocator(t *testing.T, device *fake.Device, physicalDevice *fake.PhysicalDevice) *vkmem.Allocator {
	t.Helper()

	allocator, err := vkmem.New(device, physicalDevice, testLogger())
	require.NoError(t, err)
	require.NoError(t, allocator.InitHeaps(vkmem.HeapSizes{
		Device:    1 << 20,
		Host:      1 << 18,
		Dynamic:   1 << 18,
		Transient: 1 << 18,
	}))
	return allocator
}

func imageRequirements(size int) core1_0.MemoryRequirements {
	return core1_0.MemoryRequirements{
		Size:           size,
		Alignment:      256,
		MemoryTypeBits: 0xffffffff,
	}
}
