package suballoc

import (
	"github.com/cdragan/minivulkan-sub000/memutil"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// Mark is a saved front-watermark of a Bump allocator. Rewinding to a mark
// bulk-frees everything allocated after it was taken.
type Mark int

// Bump is the size-minimized Allocator variant: a front/back bump pointer
// with no per-range reclamation. Allocate carves from the front, AllocateBack
// from the back, and the only ways to get memory back are Rewind (to a saved
// Mark) and Reset. Free is deliberately a no-op so that teardown paths can
// never fail.
type Bump struct {
	totalSize int
	front     int
	back      int
	logger    *slog.Logger

	stats allocStats
}

var _ Allocator = &Bump{}

// NewBump creates a Bump allocator over [0, size).
func NewBump(size int, logger *slog.Logger) *Bump {
	b := &Bump{logger: logger}
	b.Init(size)
	return b
}

func (b *Bump) Init(size int) {
	b.totalSize = size
	b.front = 0
	b.back = size
	b.stats.init()
}

func (b *Bump) TotalSize() int {
	return b.totalSize
}

func (b *Bump) SumFreeSize() int {
	return b.back - b.front
}

func (b *Bump) Allocate(size int, alignment uint) (Chunk, error) {
	if err := memutil.CheckPow2(alignment, "alignment"); err != nil {
		return sentinel(b.totalSize), err
	}
	if size <= 0 {
		return sentinel(b.totalSize), errors.New("allocation size must be greater than 0")
	}

	offset := memutil.AlignUp(b.front, alignment)
	if offset+size > b.back {
		return sentinel(b.totalSize), errors.Wrapf(ErrOutOfMemory,
			"requested %d bytes with alignment %d, %d bytes left between bump pointers", size, alignment, b.back-b.front)
	}

	b.front = offset + size
	b.stats.addUsed(size)
	return Chunk{Offset: offset, Size: size}, nil
}

// AllocateBack carves a chunk from the descending end of the range. The two
// ends serve different residency classes so that rewinding the front never
// disturbs long-lived back allocations.
func (b *Bump) AllocateBack(size int, alignment uint) (Chunk, error) {
	if err := memutil.CheckPow2(alignment, "alignment"); err != nil {
		return sentinel(b.totalSize), err
	}
	if size <= 0 {
		return sentinel(b.totalSize), errors.New("allocation size must be greater than 0")
	}

	offset := memutil.AlignDown(b.back-size, alignment)
	if offset < b.front {
		return sentinel(b.totalSize), errors.Wrapf(ErrOutOfMemory,
			"requested %d bytes with alignment %d, %d bytes left between bump pointers", size, alignment, b.back-b.front)
	}

	allocSize := b.back - offset
	b.back = offset
	b.stats.addUsed(allocSize)
	return Chunk{Offset: offset, Size: allocSize}, nil
}

// Free is a no-op: the bump scheme reclaims memory only in bulk, via Rewind
// or Reset.
func (b *Bump) Free(offset, size int) {
	b.logger.Debug("bump allocator ignoring free",
		slog.Int("offset", offset),
		slog.Int("size", size))
}

// Checkpoint saves the current front watermark.
func (b *Bump) Checkpoint() Mark {
	return Mark(b.front)
}

// Rewind bulk-frees every front allocation made since the mark was taken.
func (b *Bump) Rewind(m Mark) {
	if int(m) > b.front || int(m) < 0 {
		panic("rewinding a bump allocator to a mark it never produced")
	}
	b.stats.subUsed(b.front - int(m))
	b.front = int(m)
}

func (b *Bump) Reset() {
	b.Init(b.totalSize)
}

func (b *Bump) Validate() error {
	if b.front < 0 || b.back > b.totalSize || b.front > b.back {
		return errors.Errorf("bump pointers front=%d back=%d violate the managed range [0, %d)", b.front, b.back, b.totalSize)
	}
	return nil
}
