package suballoc

import (
	"sort"

	"github.com/cdragan/minivulkan-sub000/memutil"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// FreeList is an Allocator backed by a fixed-capacity array of free chunks
// kept sorted by ascending offset. The slot capacity is chosen per call site
// for the maximum number of simultaneous free fragments that site can
// produce; when the capacity is exhausted, Free degrades to leaking the range
// rather than growing or corrupting state.
//
// Allocation uses a dual placement policy: a chunk whose start is already
// aligned is consumed from the front, and a chunk whose start is misaligned
// is consumed from the back (aligning down from its end). Carving from the
// middle of a chunk would split it in two, and with a fixed slot count that
// split can fail- the back placement sidesteps it entirely.
type FreeList struct {
	totalSize int
	maxChunks int
	chunks    []Chunk
	logger    *slog.Logger

	stats allocStats
}

var _ Allocator = &FreeList{}

// NewFreeList creates a FreeList over [0, size) with capacity for maxChunks
// simultaneous free fragments.
func NewFreeList(size, maxChunks int, logger *slog.Logger) *FreeList {
	if maxChunks < 1 {
		panic("a free list requires at least one chunk slot")
	}
	f := &FreeList{
		maxChunks: maxChunks,
		chunks:    make([]Chunk, 0, maxChunks),
		logger:    logger,
	}
	f.Init(size)
	return f
}

func (f *FreeList) Init(size int) {
	f.totalSize = size
	f.chunks = f.chunks[:0]
	if size > 0 {
		f.chunks = append(f.chunks, Chunk{Offset: 0, Size: size})
	}
	f.stats.init()
}

func (f *FreeList) TotalSize() int {
	return f.totalSize
}

func (f *FreeList) SumFreeSize() int {
	var sum int
	for _, c := range f.chunks {
		sum += c.Size
	}
	return sum
}

// FreeChunkCount returns the number of free fragments currently tracked.
func (f *FreeList) FreeChunkCount() int {
	return len(f.chunks)
}

func (f *FreeList) Allocate(size int, alignment uint) (Chunk, error) {
	if err := memutil.CheckPow2(alignment, "alignment"); err != nil {
		return sentinel(f.totalSize), err
	}
	if size <= 0 {
		return sentinel(f.totalSize), errors.New("allocation size must be greater than 0")
	}
	memutil.DebugValidate(f)

	for i := range f.chunks {
		c := &f.chunks[i]
		if c.Size < size {
			continue
		}

		if memutil.AlignUp(c.Offset, alignment) == c.Offset {
			// Chunk start is aligned- take from the front, rounding the
			// carved size up to the alignment so the remainder stays aligned
			// for future requests of the same class.
			allocSize := memutil.AlignUp(size, alignment)
			if allocSize > c.Size {
				allocSize = c.Size
			}

			out := Chunk{Offset: c.Offset, Size: allocSize}
			c.Offset += allocSize
			c.Size -= allocSize
			if c.Size == 0 {
				f.removeChunk(i)
			}
			f.stats.addUsed(out.Size)
			return out, nil
		}

		// Misaligned chunk start- take from the back instead, consuming
		// through the end of the chunk so no tail fragment is created.
		offset := memutil.AlignDown(c.End()-size, alignment)
		if offset < c.Offset {
			continue
		}

		out := Chunk{Offset: offset, Size: c.End() - offset}
		c.Size = offset - c.Offset
		if c.Size == 0 {
			f.removeChunk(i)
		}
		f.stats.addUsed(out.Size)
		return out, nil
	}

	if len(f.chunks) == 0 {
		return sentinel(f.totalSize), errors.Wrapf(ErrOutOfMemory,
			"requested %d bytes with alignment %d from a full %d-byte range", size, alignment, f.totalSize)
	}
	return sentinel(f.totalSize), errors.Wrapf(ErrFragmented,
		"requested %d bytes with alignment %d, %d bytes free in %d fragments", size, alignment, f.SumFreeSize(), len(f.chunks))
}

func (f *FreeList) Free(offset, size int) {
	if size <= 0 {
		return
	}
	f.stats.subUsed(size)

	// First chunk strictly past the freed range's start.
	next := sort.Search(len(f.chunks), func(i int) bool {
		return f.chunks[i].Offset > offset
	})
	prev := next - 1

	mergePrev := prev >= 0 && f.chunks[prev].End() == offset
	mergeNext := next < len(f.chunks) && offset+size == f.chunks[next].Offset

	switch {
	case mergePrev && mergeNext:
		// The freed range bridges two chunks- absorb all three into one slot.
		f.chunks[prev].Size += size + f.chunks[next].Size
		f.removeChunk(next)
	case mergePrev:
		f.chunks[prev].Size += size
	case mergeNext:
		f.chunks[next].Offset = offset
		f.chunks[next].Size += size
	default:
		if len(f.chunks) == f.maxChunks {
			// No slot left and nothing to coalesce with. The range is leaked.
			f.logger.Warn("free list is too fragmented, leaking range",
				slog.Int("offset", offset),
				slog.Int("size", size),
				slog.Int("maxChunks", f.maxChunks))
			f.stats.addUsed(size)
			return
		}
		f.chunks = f.chunks[:len(f.chunks)+1]
		copy(f.chunks[next+1:], f.chunks[next:])
		f.chunks[next] = Chunk{Offset: offset, Size: size}
	}
	memutil.DebugValidate(f)
}

func (f *FreeList) Reset() {
	f.Init(f.totalSize)
}

func (f *FreeList) removeChunk(i int) {
	copy(f.chunks[i:], f.chunks[i+1:])
	f.chunks = f.chunks[:len(f.chunks)-1]
}

func (f *FreeList) Validate() error {
	if len(f.chunks) > f.maxChunks {
		return errors.Errorf("free list tracks %d chunks but has capacity for %d", len(f.chunks), f.maxChunks)
	}

	var sum int
	for i, c := range f.chunks {
		if c.Size <= 0 {
			return errors.Errorf("chunk %d at offset %d has non-positive size %d", i, c.Offset, c.Size)
		}
		if c.Offset < 0 || c.End() > f.totalSize {
			return errors.Errorf("chunk %s extends outside the managed range [0, %d)", c, f.totalSize)
		}
		if i > 0 {
			prev := f.chunks[i-1]
			if prev.End() > c.Offset {
				return errors.Errorf("chunk %s overlaps or is unsorted against preceding chunk %s", c, prev)
			}
			if prev.End() == c.Offset {
				return errors.Errorf("adjacent free chunks %s and %s were left un-coalesced", prev, c)
			}
		}
		sum += c.Size
	}

	if sum > f.totalSize {
		return errors.Errorf("free chunks sum to %d bytes but the managed range is only %d bytes", sum, f.totalSize)
	}
	return nil
}
