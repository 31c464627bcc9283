// Package suballoc provides range allocators that carve byte ranges out of an
// abstract linear address space [0, size). The allocators own no memory
// themselves- they only hand out offsets, which callers bind to real device
// memory.
package suballoc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrOutOfMemory is returned from Allocate when the allocator has no free
// chunks left at all.
var ErrOutOfMemory = errors.New("suballocator is out of memory")

// ErrFragmented is returned from Allocate when free chunks exist but none of
// them can satisfy the requested size and alignment.
var ErrFragmented = errors.New("suballocator is too fragmented to satisfy the request")

// Chunk is a contiguous byte range within the allocator's address space.
type Chunk struct {
	Offset int
	Size   int
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d +%d]", c.Offset, c.Size)
}

// End returns the offset one past the last byte of the chunk.
func (c Chunk) End() int {
	return c.Offset + c.Size
}

// Allocator manages free ranges within [0, TotalSize()) and hands out chunks
// satisfying (size, alignment) requests. Implementations are not safe for
// concurrent use- the engine core is single-threaded and frame-driven.
type Allocator interface {
	// Init prepares the allocator to manage [0, size), discarding any prior
	// state. All of the range is free afterward.
	Init(size int)
	// TotalSize returns the size the allocator was initialized with.
	TotalSize() int
	// SumFreeSize returns the number of bytes currently free.
	SumFreeSize() int

	// Allocate carves a chunk of at least size bytes whose offset is a
	// multiple of alignment. The returned chunk's size may exceed the request.
	// On failure the sentinel chunk {TotalSize, 0} is returned together with
	// an error wrapping ErrOutOfMemory or ErrFragmented.
	Allocate(size int, alignment uint) (Chunk, error)
	// Free returns a previously allocated range to the allocator. Free never
	// fails: an allocator that cannot track the returned range leaks it and
	// logs a warning instead.
	Free(offset, size int)
	// Reset collapses the allocator back to a single free range spanning the
	// whole address space. Valid only when every allocation is known to be
	// dead.
	Reset()

	// Validate performs internal consistency checks, for memutil.DebugValidate.
	Validate() error
}

// sentinel is the failure chunk: an offset one past the end of the managed
// range with zero size.
func sentinel(totalSize int) Chunk {
	return Chunk{Offset: totalSize, Size: 0}
}
