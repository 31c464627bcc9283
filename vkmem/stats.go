package vkmem

import (
	"strconv"

	"github.com/cdragan/minivulkan-sub000/memutil"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// HeapStatistics is a point-in-time snapshot of one heap.
type HeapStatistics struct {
	Roles           []string
	MemoryTypeIndex int
	TotalSize       int
	FreeSize        int
	Mapped          bool
}

// Statistics is a point-in-time snapshot of the whole allocator.
type Statistics struct {
	Unified bool
	Heaps   []HeapStatistics
}

func (a *Allocator) Statistics() Statistics {
	stats := Statistics{
		Unified: a.unified,
	}

	for _, heap := range a.owned {
		stats.Heaps = append(stats.Heaps, HeapStatistics{
			Roles:           a.rolesForHeap(heap),
			MemoryTypeIndex: heap.MemoryTypeIndex(),
			TotalSize:       heap.Size(),
			FreeSize:        heap.SumFreeSize(),
			Mapped:          heap.IsMapped(),
		})
	}

	return stats
}

func (a *Allocator) rolesForHeap(heap *Heap) []string {
	var roles []string
	for role := heapRole(0); role < roleCount; role++ {
		if a.heaps[role] == heap {
			roles = append(roles, role.String())
		}
	}
	return roles
}

// WriteStats streams a JSON map of every heap into the writer, for debug
// dumps and leak hunting.
func (a *Allocator) WriteStats(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	obj.Name("Unified").Bool(a.unified)

	heapsObj := obj.Name("Heaps").Object()
	defer heapsObj.End()

	for _, heap := range a.owned {
		heapObj := heapsObj.Name(strconv.Itoa(heap.MemoryTypeIndex())).Object()

		rolesArr := heapObj.Name("Roles").Array()
		for _, role := range a.rolesForHeap(heap) {
			rolesArr.String(role)
		}
		rolesArr.End()

		heapObj.Name("TotalBytes").Int(heap.Size())
		heapObj.Name("FreeBytes").Int(heap.SumFreeSize())
		heapObj.Name("Mapped").Bool(heap.IsMapped())

		if memutil.DebugStats {
			allocsArr := heapObj.Name("Allocations").Array()
			heap.names.each(func(offset int, name string) {
				allocObj := allocsArr.Object()
				allocObj.Name("Offset").Int(offset)
				allocObj.Name("Name").String(name)
				allocObj.End()
			})
			allocsArr.End()
		}

		heapObj.End()
	}
}

// BuildStatsString renders WriteStats output as one JSON string.
func (a *Allocator) BuildStatsString() string {
	writer := jwriter.NewWriter()
	a.WriteStats(&writer)
	return string(writer.Bytes())
}
