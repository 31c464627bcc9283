//go:build debug_gpu_mem

package suballoc

// allocStats tracks the live and high-water allocation totals of a range
// allocator. Diagnostic only- correctness never depends on these counters,
// and they compile down to nothing without the debug_gpu_mem tag.
type allocStats struct {
	usedSize    int
	maxUsedSize int
}

func (s *allocStats) init() {
	s.usedSize = 0
	s.maxUsedSize = 0
}

func (s *allocStats) addUsed(size int) {
	s.usedSize += size
	if s.usedSize > s.maxUsedSize {
		s.maxUsedSize = s.usedSize
	}
}

func (s *allocStats) subUsed(size int) {
	s.usedSize -= size
	if s.usedSize < 0 {
		s.usedSize = 0
	}
}

// UsedSize reports the number of live allocated bytes. Always zero without
// the debug_gpu_mem build tag.
func (f *FreeList) UsedSize() int { return f.stats.usedSize }

// MaxUsedSize reports the high-water mark of allocated bytes. Always zero
// without the debug_gpu_mem build tag.
func (f *FreeList) MaxUsedSize() int { return f.stats.maxUsedSize }

// UsedSize reports the number of live allocated bytes. Always zero without
// the debug_gpu_mem build tag.
func (b *Bump) UsedSize() int { return b.stats.usedSize }

// MaxUsedSize reports the high-water mark of allocated bytes. Always zero
// without the debug_gpu_mem build tag.
func (b *Bump) MaxUsedSize() int { return b.stats.maxUsedSize }
