// Package vkmem manages the device memory budget for the engine: one heap
// per distinct memory type, selected once at startup, with all resource
// memory suballocated from those heaps. There are no per-resource
// vkAllocateMemory calls.
package vkmem

import (
	"github.com/cdragan/minivulkan-sub000/internal/vulkan"
	"github.com/cdragan/minivulkan-sub000/memutil"
	"github.com/cdragan/minivulkan-sub000/suballoc"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

type heapRole int

const (
	roleDevice heapRole = iota
	roleHost
	roleDynamic
	roleTransient
	roleCount
)

var roleMapping = map[heapRole]string{
	roleDevice:    "device",
	roleHost:      "host",
	roleDynamic:   "dynamic",
	roleTransient: "transient",
}

func (r heapRole) String() string {
	str, ok := roleMapping[r]
	if !ok {
		return "unknown role"
	}
	return str
}

// Free-list slot capacity per heap. Sized for the bounded number of
// long-lived resources this engine allocates, not for general-purpose churn.
const heapFreeSlots = 16

// HeapSizes is the requested byte budget per heap role. Device and Dynamic
// are mandatory; Host and Transient fold into other heaps when the hardware
// has no suitable memory type for them.
type HeapSizes struct {
	Device    int
	Host      int
	Dynamic   int
	Transient int
}

// Allocator owns up to four role heaps and routes resource allocations to
// them by Usage. Create one with New, then call InitHeaps exactly once
// before allocating.
//
// The allocator is not thread-safe: the engine mutates it from the render
// thread only.
type Allocator struct {
	device vulkan.Device
	logger *slog.Logger

	deviceProperties *core1_0.PhysicalDeviceProperties
	memoryProperties *core1_0.PhysicalDeviceMemoryProperties

	heaps   [roleCount]*Heap
	owned   []*Heap
	unified bool
}

// New collects device properties and validates the limits the heaps depend
// on. It allocates no memory; call InitHeaps for that.
func New(device vulkan.Device, physicalDevice vulkan.PhysicalDevice, logger *slog.Logger) (*Allocator, error) {
	if device == nil {
		return nil, errors.New("a valid device is required")
	}
	if physicalDevice == nil {
		return nil, errors.New("a valid physical device is required")
	}
	if logger == nil {
		return nil, errors.New("a valid logger is required")
	}

	deviceProperties, err := physicalDevice.Properties()
	if err != nil {
		return nil, err
	}

	err = memutil.CheckPow2(deviceProperties.Limits.NonCoherentAtomSize, "device nonCoherentAtomSize")
	if err != nil {
		return nil, err
	}
	err = memutil.CheckPow2(deviceProperties.Limits.MinMemoryMapAlignment, "device minMemoryMapAlignment")
	if err != nil {
		return nil, err
	}

	return &Allocator{
		device: device,
		logger: logger,

		deviceProperties: deviceProperties,
		memoryProperties: physicalDevice.MemoryProperties(),
	}, nil
}

// Unified reports whether host-visible traffic shares a heap with device
// memory, as on unified-memory hardware. When true there is no separate
// staging path.
func (a *Allocator) Unified() bool {
	return a.unified
}

// findMemoryTypeIndex scans preference combinations in priority order and
// returns the first combination with any matching memory type. Among the
// matches for one combination, the type with the largest backing heap wins,
// so a small fast pool is not fragmented by general traffic.
func (a *Allocator) findMemoryTypeIndex(preferences []core1_0.MemoryPropertyFlags) (int, bool) {
	for _, wanted := range preferences {
		bestIndex := -1
		bestHeapSize := 0

		for typeIndex, memoryType := range a.memoryProperties.MemoryTypes {
			if memoryType.PropertyFlags&wanted != wanted {
				continue
			}

			backingSize := a.memoryProperties.MemoryHeaps[memoryType.HeapIndex].Size
			if bestIndex < 0 || backingSize > bestHeapSize {
				bestIndex = typeIndex
				bestHeapSize = backingSize
			}
		}

		if bestIndex >= 0 {
			return bestIndex, true
		}
	}

	return -1, false
}

// InitHeaps resolves each heap role to a physical memory type and performs
// the physical allocations. Roles that resolve to the same memory type share
// one heap with their budgets merged. Failure to resolve the device or
// dynamic role is fatal; a missing transient type folds its budget into the
// device heap, and a missing host type aliases the dynamic heap and marks
// the allocator unified.
func (a *Allocator) InitHeaps(sizes HeapSizes) error {
	if a.owned != nil {
		panic("InitHeaps called twice on one allocator")
	}
	if sizes.Device <= 0 || sizes.Dynamic <= 0 {
		return errors.Newf("device and dynamic heap sizes are mandatory, got %d and %d", sizes.Device, sizes.Dynamic)
	}

	deviceType, ok := a.findMemoryTypeIndex([]core1_0.MemoryPropertyFlags{
		core1_0.MemoryPropertyDeviceLocal,
		0,
	})
	if !ok {
		a.logger.Error("no memory type can back the device heap")
		return errors.New("no memory type can back the device heap")
	}

	dynamicType, ok := a.findMemoryTypeIndex([]core1_0.MemoryPropertyFlags{
		core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible,
		core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		core1_0.MemoryPropertyHostVisible,
	})
	if !ok {
		a.logger.Error("no memory type can back the dynamic heap")
		return errors.New("no memory type can back the dynamic heap")
	}

	roleTypes := [roleCount]int{}
	roleTypes[roleDevice] = deviceType
	roleTypes[roleDynamic] = dynamicType

	roleSizes := [roleCount]int{}
	roleSizes[roleDevice] = sizes.Device
	roleSizes[roleDynamic] = sizes.Dynamic

	transientType, haveTransient := a.findMemoryTypeIndex([]core1_0.MemoryPropertyFlags{
		core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyLazilyAllocated,
	})
	if haveTransient && sizes.Transient > 0 {
		roleTypes[roleTransient] = transientType
		roleSizes[roleTransient] = sizes.Transient
	} else {
		// No tile memory on this device: transient attachments live in
		// regular device memory.
		roleTypes[roleTransient] = deviceType
		roleSizes[roleDevice] += sizes.Transient
	}

	hostType, haveHost := a.findMemoryTypeIndex([]core1_0.MemoryPropertyFlags{
		core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent | core1_0.MemoryPropertyHostCached,
		core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		core1_0.MemoryPropertyHostVisible,
	})
	if haveHost && sizes.Host > 0 {
		roleTypes[roleHost] = hostType
		roleSizes[roleHost] = sizes.Host
	} else {
		roleTypes[roleHost] = dynamicType
		roleSizes[roleDynamic] += sizes.Host
		hostType = dynamicType
	}
	a.unified = hostType == deviceType

	// Roles resolving to the same memory type share one heap with their
	// budgets merged.
	order := []heapRole{roleDevice, roleDynamic, roleHost, roleTransient}
	heapByType := map[int]*Heap{}

	for _, role := range order {
		typeIndex := roleTypes[role]

		if heap, exists := heapByType[typeIndex]; exists {
			a.heaps[role] = heap
			continue
		}

		total := 0
		transientOnly := true
		for _, other := range order {
			if roleTypes[other] == typeIndex {
				total += roleSizes[other]
				if other != roleTransient {
					transientOnly = false
				}
			}
		}

		var ranges suballoc.Allocator
		if transientOnly {
			ranges = suballoc.NewBump(total, a.logger)
		} else {
			ranges = suballoc.NewFreeList(total, heapFreeSlots, a.logger)
		}

		heap, err := allocateHeap(a.device, a.logger, a.deviceProperties.Limits, a.memoryProperties, typeIndex, total, ranges)
		if err != nil {
			a.logger.Error("heap initialization failed",
				slog.String("role", role.String()),
				slog.Int("memoryTypeIndex", typeIndex))
			a.destroyOwned()
			return err
		}

		heapByType[typeIndex] = heap
		a.heaps[role] = heap
		a.owned = append(a.owned, heap)
	}

	a.logger.Info("initialized heaps",
		slog.Int("deviceType", roleTypes[roleDevice]),
		slog.Int("hostType", roleTypes[roleHost]),
		slog.Int("dynamicType", roleTypes[roleDynamic]),
		slog.Int("transientType", roleTypes[roleTransient]),
		slog.Bool("unified", a.unified))
	return nil
}

// HeapForUsage returns the heap a given usage class routes to. Aliased roles
// return their shared heap.
func (a *Allocator) HeapForUsage(usage Usage) *Heap {
	switch usage {
	case UsageDynamic:
		return a.heaps[roleDynamic]
	case UsageHostOnly:
		return a.heaps[roleHost]
	case UsageTransient:
		return a.heaps[roleTransient]
	default:
		return a.heaps[roleDevice]
	}
}

// AllocateMemory routes the request to the usage's heap and carves a range
// from it. The returned heap is the one the range must later be freed to.
func (a *Allocator) AllocateMemory(requirements *core1_0.MemoryRequirements, usage Usage, name string) (offset int, size int, heap *Heap, err error) {
	heap = a.HeapForUsage(usage)
	if heap == nil {
		return 0, 0, nil, errors.New("AllocateMemory called before InitHeaps")
	}

	if requirements.MemoryTypeBits&(1<<uint32(heap.MemoryTypeIndex())) == 0 {
		a.logger.Error("resource does not accept the heap's memory type",
			slog.String("usage", usage.String()),
			slog.Int("memoryTypeIndex", heap.MemoryTypeIndex()),
			slog.String("name", name))
		return 0, 0, nil, errors.Newf("memory type %d chosen for %s is not in the resource's acceptable mask %#x",
			heap.MemoryTypeIndex(), usage, requirements.MemoryTypeBits)
	}

	offset, size, err = heap.AllocateMemory(requirements, name)
	if err != nil {
		return 0, 0, nil, err
	}
	return offset, size, heap, nil
}

// NeedHostCopy reports whether resources of the given usage must be staged
// through a host-visible shadow copy. Only fixed resources need one, and
// only when a distinct host heap exists.
func (a *Allocator) NeedHostCopy(usage Usage) bool {
	return usage == UsageFixed && a.heaps[roleHost] != nil && a.heaps[roleHost] != a.heaps[roleDevice]
}

// Destroy releases every heap. All resources must have been destroyed first.
func (a *Allocator) Destroy() {
	a.destroyOwned()
	a.heaps = [roleCount]*Heap{}
}

func (a *Allocator) destroyOwned() {
	for _, heap := range a.owned {
		heap.Destroy()
	}
	a.owned = nil
}
