package arena

import (
	"fmt"
	"unsafe"
)

// Arena is one contiguous block of memory holding every chunk of a Layout.
//
// An Arena is not safe for concurrent use; it holds no mutable state besides
// the backing memory itself, which is released exactly once.
type Arena struct {
	layout Layout
	mem    []byte
	start  uintptr
	end    uintptr
}

// New allocates the backing memory for layout in a single allocation.
// On failure no memory is retained and the returned error wraps ErrOutOfMemory.
func New(layout Layout) (*Arena, error) {
	if layout.Size() <= 0 {
		return nil, ErrEmptyLayout
	}
	mem, err := allocate(layout.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: cannot allocate arena of %d bytes: %v", ErrOutOfMemory, layout.Size(), err)
	}
	start := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	return &Arena{
		layout: layout,
		mem:    mem,
		start:  start,
		end:    start + uintptr(len(mem)),
	}, nil
}

// Layout returns the arena layout.
func (a *Arena) Layout() Layout {
	return a.layout
}

// Released reports whether the backing memory has been released.
func (a *Arena) Released() bool {
	return a.mem == nil
}

// Chunk returns the full-capacity slice of the chunk at (level, slot).
// It panics if either index is out of range.
func (a *Arena) Chunk(level, slot int) []byte {
	if a.mem == nil {
		panic(ErrArenaReleased)
	}
	lv := a.layout.levels[level]
	if slot < 0 || slot >= lv.Count {
		panic(fmt.Sprintf("arena: slot %d out of range for level %d (%d chunks)", slot, level, lv.Count))
	}
	off := lv.Base + slot*lv.Size
	return a.mem[off : off+lv.Size : off+lv.Size]
}

// Contains reports whether p points into the arena.
func (a *Arena) Contains(p unsafe.Pointer) bool {
	addr := uintptr(p)
	return a.mem != nil && addr >= a.start && addr < a.end
}

// Locate maps a pointer to the (level, slot) of the chunk starting at it.
// It returns ErrOutside if p does not point into the arena and ErrUnaligned
// if p points into the arena but not at the first byte of a chunk.
func (a *Arena) Locate(p unsafe.Pointer) (level, slot int, err error) {
	if !a.Contains(p) {
		return -1, -1, ErrOutside
	}
	offset := int(uintptr(p) - a.start)
	level = a.layout.levelAt(offset)
	lv := a.layout.levels[level]
	rel := offset - lv.Base
	if rel%lv.Size != 0 {
		return level, -1, fmt.Errorf("offset %d in level %d: %w", offset, level, ErrUnaligned)
	}
	return level, rel / lv.Size, nil
}

// Release frees the backing memory in a single operation.
// Any chunk slices still held by callers become invalid.
// Calling Release more than once is a no-op.
func (a *Arena) Release() error {
	if a.mem == nil {
		return nil
	}
	mem := a.mem
	a.mem = nil
	a.start, a.end = 0, 0
	return release(mem)
}
