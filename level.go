package pixstore

import (
	"math/bits"

	"github.com/holmberd/go-pixstore/internal/arena"
)

// LevelStats holds the usage counters of a single level.
type LevelStats struct {
	Used      int `json:"used"`      // Total number of chunks handed out.
	InUse     int `json:"in_use"`    // Chunks currently checked out.
	Peak      int `json:"peak"`      // Maximum number of chunks checked out at once.
	Exhausted int `json:"exhausted"` // Requests served dynamically because no chunk was free.
}

// level is the free stack and bookkeeping of one size class.
type level struct {
	size  int
	count int

	// free is a stack of free slot indices; the top is the last element.
	// It starts out holding every slot in ascending address order.
	free []int32

	// out[slot] is set while the slot is checked out.
	out []bool

	// gen[slot] is bumped every time the slot is checked out, so a stale
	// copy of a Chunk handle can be told apart from the current owner's.
	gen []uint32

	stats LevelStats
}

func newLevel(lv arena.Level) level {
	l := level{
		size:  lv.Size,
		count: lv.Count,
		free:  make([]int32, lv.Count),
		out:   make([]bool, lv.Count),
		gen:   make([]uint32, lv.Count),
	}
	for i := range l.free {
		l.free[i] = int32(i)
	}
	return l
}

// pop checks out the slot on top of the free stack and returns it with its
// new generation. It reports false, and counts an exhaustion event, when the
// stack is empty.
func (l *level) pop() (int, uint32, bool) {
	n := len(l.free)
	if n == 0 {
		l.stats.Exhausted++
		return -1, 0, false
	}
	slot := int(l.free[n-1])
	l.free = l.free[:n-1]
	l.out[slot] = true
	l.gen[slot]++

	l.stats.Used++
	l.stats.InUse++
	l.stats.Peak = max(l.stats.Peak, l.stats.InUse)
	return slot, l.gen[slot], true
}

// current reports whether gen is the generation of the slot's current checkout.
func (l *level) current(slot int, gen uint32) bool {
	return slot >= 0 && slot < l.count && l.out[slot] && l.gen[slot] == gen
}

// push returns a checked out slot to the free stack.
func (l *level) push(slot int) error {
	if slot < 0 || slot >= l.count || !l.out[slot] {
		return ErrDoubleFree
	}
	l.out[slot] = false
	l.free = append(l.free, int32(slot))
	l.stats.InUse--
	return nil
}

// levelFor returns the smallest level whose chunk size fits nbytes,
// or -1 if nbytes is outside the poolable range [minDynamicSize, largest].
func (s *Store) levelFor(nbytes int) int {
	if nbytes < s.minDynamicSize || nbytes > s.largest {
		return -1
	}
	if nbytes <= s.smallest {
		return 0
	}
	// ceil(nbytes/smallest) rounded up to a power of two.
	return bits.Len(uint((nbytes - 1) / s.smallest))
}
