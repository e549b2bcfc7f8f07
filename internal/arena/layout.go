// Package arena lays out fixed-size chunks of doubling size classes back-to-back
// in a single contiguous block of memory.
//
// Chunk addresses are computed from a (level, slot) pair and never individually
// allocated. The reverse mapping from an address to its (level, slot) is what
// allows a deallocation hook to return a bare byte slice to the right level.
package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrNoLevels      = errors.New("layout must have at least one level")
	ErrChunkSize     = errors.New("smallest chunk size must be greater than zero")
	ErrChunkCount    = errors.New("chunk count must not be negative")
	ErrEmptyLayout   = errors.New("layout holds no chunks")
	ErrLayoutTooBig  = errors.New("layout size overflows int")
	ErrOutOfMemory   = errors.New("out of memory")
	ErrOutside       = errors.New("pointer is outside the arena")
	ErrUnaligned     = errors.New("pointer is not at a chunk boundary")
	ErrArenaReleased = errors.New("arena has been released")
)

// Level describes one size class within the arena.
type Level struct {
	Size  int // Chunk size in bytes.
	Count int // Number of chunks of this size.
	Base  int // Offset of the first chunk of this level within the arena.
}

// End returns the offset just beyond the last chunk of the level.
func (l Level) End() int {
	return l.Base + l.Size*l.Count
}

// Layout is the immutable placement of every chunk of every level.
type Layout struct {
	levels []Level
	size   int
}

// NewLayout places counts[i] chunks of size smallest<<i for every level i,
// in ascending level order.
func NewLayout(smallest int, counts []int) (Layout, error) {
	if len(counts) == 0 {
		return Layout{}, ErrNoLevels
	}
	if smallest <= 0 {
		return Layout{}, ErrChunkSize
	}
	levels := make([]Level, len(counts))
	total := 0
	for i, n := range counts {
		if n < 0 {
			return Layout{}, fmt.Errorf("level %d: %w", i, ErrChunkCount)
		}
		if i >= 63 || smallest > math.MaxInt>>i {
			return Layout{}, fmt.Errorf("level %d: chunk size: %w", i, ErrLayoutTooBig)
		}
		size := smallest << i
		if n > 0 && n > (math.MaxInt-total)/size {
			return Layout{}, fmt.Errorf("level %d: total size: %w", i, ErrLayoutTooBig)
		}
		levels[i] = Level{Size: size, Count: n, Base: total}
		total += size * n
	}
	if total == 0 {
		return Layout{}, ErrEmptyLayout
	}
	return Layout{levels: levels, size: total}, nil
}

// Size returns the total number of bytes spanned by the layout.
func (l Layout) Size() int {
	return l.size
}

// NumLevels returns the number of size classes.
func (l Layout) NumLevels() int {
	return len(l.levels)
}

// Level returns the description of level i.
func (l Layout) Level(i int) Level {
	return l.levels[i]
}

// Levels returns a copy of all level descriptions.
func (l Layout) Levels() []Level {
	return slices.Clone(l.levels)
}

// Chunks returns the total number of chunks across all levels.
func (l Layout) Chunks() int {
	n := 0
	for _, lv := range l.levels {
		n += lv.Count
	}
	return n
}

// levelAt returns the level containing offset, which must be within [0, Size()).
// Levels are contiguous with non-decreasing bases, so this is the last level
// whose base is <= offset. Empty levels share their base with the next level
// and are skipped naturally.
func (l Layout) levelAt(offset int) int {
	return sort.Search(len(l.levels), func(i int) bool {
		return l.levels[i].Base > offset
	}) - 1
}

// Fingerprint returns a stable hash of the chunk sizes and counts.
// It ties reports and logs from a tuning run to the layout that produced them.
func (l Layout) Fingerprint() uint64 {
	d := xxhash.New()
	var b [16]byte
	for _, lv := range l.levels {
		binary.LittleEndian.PutUint64(b[:8], uint64(lv.Size))
		binary.LittleEndian.PutUint64(b[8:], uint64(lv.Count))
		_, _ = d.Write(b[:])
	}
	return d.Sum64()
}
