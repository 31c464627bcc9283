// Package vkres provides the engine's resource layer: images and buffers
// that carve their backing memory out of vkmem heaps, track their own
// pipeline state, and batch their layout transitions into single barrier
// commands.
package vkres

import (
	"unsafe"

	"github.com/cdragan/minivulkan-sub000/vkmem"
)

// Resource is the residency triple shared by images and buffers: a borrowed
// reference to the backing heap plus the range carved from it. The heap
// outlives every resource; resources never own heap memory beyond their
// range.
type Resource struct {
	heap       *vkmem.Heap
	heapOffset int
	allocSize  int
	usage      vkmem.Usage
}

func (r *Resource) Heap() *vkmem.Heap {
	return r.heap
}

func (r *Resource) HeapOffset() int {
	return r.heapOffset
}

// AllocSize returns the size of the backing range, which can exceed the
// requested size due to alignment.
func (r *Resource) AllocSize() int {
	return r.allocSize
}

func (r *Resource) HeapUsage() vkmem.Usage {
	return r.usage
}

// IsAllocated reports whether the resource currently owns a heap range.
func (r *Resource) IsAllocated() bool {
	return r.allocSize != 0
}

// IsHostAccessible reports whether host-pointer access into the resource is
// possible.
func (r *Resource) IsHostAccessible() bool {
	return r.heap != nil && r.heap.IsMapped()
}

func (r *Resource) hostPointer(size int) unsafe.Pointer {
	if !r.IsHostAccessible() {
		panic("host access to a resource that is not host-mapped")
	}
	if size > r.allocSize {
		panic("host access beyond the resource's allocation")
	}
	return unsafe.Add(r.heap.HostPointer(), r.heapOffset)
}

// HostData returns a typed pointer to the start of the resource's mapped
// memory. Panics if the resource is not host-mapped or T does not fit the
// allocation.
func HostData[T any](r *Resource) *T {
	var value T
	return (*T)(r.hostPointer(int(unsafe.Sizeof(value))))
}

// HostSlice returns a typed slice over the resource's mapped memory. Panics
// if the resource is not host-mapped or count elements do not fit the
// allocation.
func HostSlice[T any](r *Resource, count int) []T {
	var value T
	ptr := r.hostPointer(count * int(unsafe.Sizeof(value)))
	return unsafe.Slice((*T)(ptr), count)
}

// FlushRange makes host writes to the given range of the resource visible
// to the device. Successful no-op when the resource is not host-mapped.
func (r *Resource) FlushRange(offset, size int) error {
	if r.heap == nil {
		return nil
	}
	if offset < 0 || offset+size > r.allocSize {
		panic("flush range outside the resource's allocation")
	}
	return r.heap.FlushRange(r.heapOffset+offset, size)
}

// Flush makes all host writes to the resource visible to the device.
func (r *Resource) Flush() error {
	return r.FlushRange(0, r.allocSize)
}

// Invalidate makes device writes to the resource visible to the host.
// Successful no-op when the resource is not host-mapped.
func (r *Resource) Invalidate() error {
	if r.heap == nil {
		return nil
	}
	return r.heap.InvalidateRange(r.heapOffset, r.allocSize)
}

// freeMemory returns the backing range to the heap and zeroes the residency
// state. Safe to call on a never-allocated resource.
func (r *Resource) freeMemory() {
	if r.allocSize != 0 {
		r.heap.FreeMemory(r.heapOffset, r.allocSize)
	}
	*r = Resource{}
}
