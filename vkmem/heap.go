package vkmem

import (
	"unsafe"

	"github.com/cdragan/minivulkan-sub000/internal/vulkan"
	"github.com/cdragan/minivulkan-sub000/memutil"
	"github.com/cdragan/minivulkan-sub000/suballoc"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// Heap owns exactly one device memory allocation of a single memory type and
// carves resource ranges out of it through a suballoc.Allocator strategy.
// Host-visible heaps are mapped once at creation and stay mapped for the
// heap's lifetime.
type Heap struct {
	device vulkan.Device
	logger *slog.Logger

	memory              vulkan.DeviceMemory
	hostPtr             unsafe.Pointer
	heapSize            int
	memoryTypeIndex     int
	propertyFlags       core1_0.MemoryPropertyFlags
	nonCoherentAtomSize uint

	ranges suballoc.Allocator
	names  allocNames
}

func allocateHeap(
	device vulkan.Device,
	logger *slog.Logger,
	limits *core1_0.PhysicalDeviceLimits,
	memoryProperties *core1_0.PhysicalDeviceMemoryProperties,
	memoryTypeIndex int,
	size int,
	ranges suballoc.Allocator,
) (*Heap, error) {
	size = memutil.AlignUp(size, uint(limits.MinMemoryMapAlignment))

	memory, _, err := device.AllocateMemory(core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		logger.Error("failed to allocate heap memory",
			slog.Int("memoryTypeIndex", memoryTypeIndex),
			slog.Int("size", size))
		return nil, errors.Wrapf(err, "failed to allocate %d bytes from memory type %d", size, memoryTypeIndex)
	}

	heap := &Heap{
		device:              device,
		logger:              logger,
		memory:              memory,
		heapSize:            size,
		memoryTypeIndex:     memoryTypeIndex,
		propertyFlags:       memoryProperties.MemoryTypes[memoryTypeIndex].PropertyFlags,
		nonCoherentAtomSize: uint(limits.NonCoherentAtomSize),
		ranges:              ranges,
	}

	if heap.propertyFlags&core1_0.MemoryPropertyHostVisible != 0 {
		ptr, _, err := memory.Map(0, size, 0)
		if err != nil {
			memory.Free()
			logger.Error("failed to map heap memory",
				slog.Int("memoryTypeIndex", memoryTypeIndex),
				slog.Int("size", size))
			return nil, errors.Wrapf(err, "failed to map %d bytes of memory type %d", size, memoryTypeIndex)
		}
		heap.hostPtr = ptr
	}

	heap.ranges.Init(size)
	heap.names.init()

	logger.Debug("allocated heap",
		slog.Int("memoryTypeIndex", memoryTypeIndex),
		slog.Int("size", size),
		slog.Bool("mapped", heap.hostPtr != nil))
	return heap, nil
}

// Size returns the heap's full byte capacity, after rounding up to the
// device's minimum map alignment.
func (h *Heap) Size() int {
	return h.heapSize
}

func (h *Heap) MemoryTypeIndex() int {
	return h.memoryTypeIndex
}

func (h *Heap) PropertyFlags() core1_0.MemoryPropertyFlags {
	return h.propertyFlags
}

func (h *Heap) Memory() vulkan.DeviceMemory {
	return h.memory
}

// IsMapped reports whether the heap's memory type is host-visible, in which
// case HostPointer is valid for the heap's lifetime.
func (h *Heap) IsMapped() bool {
	return h.hostPtr != nil
}

func (h *Heap) HostPointer() unsafe.Pointer {
	return h.hostPtr
}

func (h *Heap) SumFreeSize() int {
	return h.ranges.SumFreeSize()
}

// AllocateMemory carves a range satisfying the requirements out of the heap
// and returns its offset and actual size. The name is retained in debug
// builds so leaked ranges can be attributed.
func (h *Heap) AllocateMemory(requirements *core1_0.MemoryRequirements, name string) (offset int, size int, err error) {
	chunk, err := h.ranges.Allocate(requirements.Size, uint(requirements.Alignment))
	if err != nil {
		h.logger.Error("heap allocation failed",
			slog.Int("memoryTypeIndex", h.memoryTypeIndex),
			slog.Int("requestedSize", requirements.Size),
			slog.Int("alignment", requirements.Alignment),
			slog.Int("freeSize", h.ranges.SumFreeSize()),
			slog.Int("heapSize", h.heapSize),
			slog.String("name", name))
		return 0, 0, errors.Wrapf(err, "memory type %d", h.memoryTypeIndex)
	}

	if requirements.Alignment != 0 && chunk.Offset%requirements.Alignment != 0 {
		// Not an exhaustion condition: the suballocator handed back a
		// range that violates its own contract.
		h.ranges.Free(chunk.Offset, chunk.Size)
		h.logger.Error("suballocator returned a misaligned offset",
			slog.Int("offset", chunk.Offset),
			slog.Int("alignment", requirements.Alignment))
		return 0, 0, errors.Newf("suballocator returned offset %d, which is not %d-aligned", chunk.Offset, requirements.Alignment)
	}

	h.names.record(chunk.Offset, name)
	return chunk.Offset, chunk.Size, nil
}

// FreeMemory returns a previously-allocated range to the heap. It never
// fails; under a bump strategy it is a journaled no-op.
func (h *Heap) FreeMemory(offset, size int) {
	h.names.forget(offset)
	h.ranges.Free(offset, size)
}

// Reset bulk-frees the entire heap. The caller asserts that no live resource
// still references a range in it.
func (h *Heap) Reset() {
	h.names.init()
	h.ranges.Reset()
}

// Checkpoint saves the heap's current usage watermark. Panics unless the
// heap uses the bump strategy.
func (h *Heap) Checkpoint() suballoc.Mark {
	bump, ok := h.ranges.(*suballoc.Bump)
	if !ok {
		panic("checkpoints require a bump-backed heap")
	}
	return bump.Checkpoint()
}

// Rewind bulk-frees everything allocated since the mark was taken. Panics
// unless the heap uses the bump strategy.
func (h *Heap) Rewind(mark suballoc.Mark) {
	bump, ok := h.ranges.(*suballoc.Bump)
	if !ok {
		panic("checkpoints require a bump-backed heap")
	}
	bump.Rewind(mark)
}

// FlushRange makes host writes to [offset, offset+size) visible to the
// device. The range grows outward to the device's non-coherent atom size.
// Calling it on an unmapped heap is a successful no-op.
func (h *Heap) FlushRange(offset, size int) error {
	ranges, ok := h.mappedRange(offset, size)
	if !ok {
		return nil
	}
	_, err := h.device.FlushMappedMemoryRanges(ranges)
	return err
}

// InvalidateRange makes device writes to [offset, offset+size) visible to
// the host, with the same expansion and no-op rules as FlushRange.
func (h *Heap) InvalidateRange(offset, size int) error {
	ranges, ok := h.mappedRange(offset, size)
	if !ok {
		return nil
	}
	_, err := h.device.InvalidateMappedMemoryRanges(ranges)
	return err
}

func (h *Heap) mappedRange(offset, size int) ([]core1_0.MappedMemoryRange, bool) {
	if h.hostPtr == nil {
		return nil, false
	}

	start := memutil.AlignDown(offset, h.nonCoherentAtomSize)
	end := memutil.AlignUp(offset+size, h.nonCoherentAtomSize)
	if end > h.heapSize {
		end = h.heapSize
	}

	return []core1_0.MappedMemoryRange{
		{
			Memory: h.memory.Handle(),
			Offset: start,
			Size:   end - start,
		},
	}, true
}

// Destroy unmaps and releases the physical allocation. All resources backed
// by the heap must already be gone.
func (h *Heap) Destroy() {
	if h.memory == nil {
		return
	}
	if h.hostPtr != nil {
		h.memory.Unmap()
		h.hostPtr = nil
	}
	h.memory.Free()
	h.memory = nil
}
