//go:build !debug_gpu_mem

package suballoc

// allocStats tracks the live and high-water allocation totals of a range
// allocator. Diagnostic only- correctness never depends on these counters,
// and they compile down to nothing without the debug_gpu_mem tag.
type allocStats struct{}

func (s *allocStats) init()            {}
func (s *allocStats) addUsed(size int) {}
func (s *allocStats) subUsed(size int) {}

// UsedSize reports the number of live allocated bytes. Always zero without
// the debug_gpu_mem build tag.
func (f *FreeList) UsedSize() int { return 0 }

// MaxUsedSize reports the high-water mark of allocated bytes. Always zero
// without the debug_gpu_mem build tag.
func (f *FreeList) MaxUsedSize() int { return 0 }

// UsedSize reports the number of live allocated bytes. Always zero without
// the debug_gpu_mem build tag.
func (b *Bump) UsedSize() int { return 0 }

// MaxUsedSize reports the high-water mark of allocated bytes. Always zero
// without the debug_gpu_mem build tag.
func (b *Bump) MaxUsedSize() int { return 0 }
