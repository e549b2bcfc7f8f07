// Package pixstore implements a tiered memory store for large image buffers.
//
// A Store pre-allocates a small number of large chunks whose sizes are powers
// of two times a smallest chunk size, all in a single contiguous arena.
// Requests are served from the smallest level that fits; requests that are too
// small, too large, or find their level empty fall back to the Go heap.
//
// Alloc and Free are shaped to be installed as the allocation hooks of a buffer
// owner such as pixmem.Manager. Get and Put offer the same policy through a
// Chunk handle that remembers its origin.
package pixstore

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/holmberd/go-pixstore/internal/arena"
)

// Store is a pre-allocated pool of chunks in doubling size classes.
//
// A Store is not safe for concurrent use. Callers that share one between
// goroutines must serialize access, for example through Synchronized.
type Store struct {
	logger         *slog.Logger
	arena          *arena.Arena // Nil once closed.
	layout         arena.Layout
	levels         []level
	minDynamicSize int // Requests below this size are never pooled.
	smallest       int // Chunk size of level 0.
	largest        int // Chunk size of the last level.
	fallbacks      int // Requests served by the system allocator.
	allocLog       *allocLog
}

// New creates a store and allocates its arena.
// The arena is allocated in one piece; if that fails, New returns an error
// wrapping ErrOutOfMemory and nothing is retained.
func New(config Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := config.normalize()
	layout, err := arena.NewLayout(c.SmallestChunkSize, c.ChunkCounts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if n := layout.Chunks(); n > manyChunksThreshold {
		c.Logger.Warn("pix store has an unusually large number of chunks", "chunks", n)
	}

	a, err := arena.New(layout)
	if err != nil {
		return nil, err
	}
	s := &Store{
		logger:         c.Logger,
		arena:          a,
		layout:         layout,
		levels:         make([]level, layout.NumLevels()),
		minDynamicSize: c.MinDynamicSize,
		smallest:       c.SmallestChunkSize,
		largest:        layout.Level(layout.NumLevels() - 1).Size,
	}
	for i := range s.levels {
		s.levels[i] = newLevel(layout.Level(i))
	}
	if c.LogPath != "" {
		if s.allocLog, err = openAllocLog(c.LogPath); err != nil {
			return nil, errors.Join(err, a.Release())
		}
	}

	s.logger.Debug("created pix store",
		"fingerprint", fmt.Sprintf("%016x", layout.Fingerprint()),
		"levels", layout.NumLevels(),
		"chunks", layout.Chunks(),
		"bytes", layout.Size(),
	)
	return s, nil
}

// Get returns a chunk of nbytes bytes, taken from the arena when a level fits
// and has a free chunk, or from the heap otherwise. It never fails.
// Negative sizes are treated as zero.
func (s *Store) Get(nbytes int) Chunk {
	nbytes = max(nbytes, 0)
	if s.arena != nil {
		if lv := s.levelFor(nbytes); lv >= 0 {
			if slot, gen, ok := s.levels[lv].pop(); ok {
				return Chunk{
					buf:   s.arena.Chunk(lv, slot)[:nbytes],
					store: s,
					level: lv,
					slot:  slot,
					gen:   gen,
				}
			}
		}
	}
	return Chunk{buf: s.allocDynamic(nbytes), store: s, level: -1, slot: -1}
}

// Put returns a chunk obtained from Get and clears the handle.
// Dynamic chunks are left to the garbage collector.
func (s *Store) Put(c *Chunk) error {
	if c == nil || c.store == nil {
		return ErrChunkReleased
	}
	if c.store != s {
		return ErrForeignChunk
	}
	if c.level >= 0 {
		if !s.levels[c.level].current(c.slot, c.gen) {
			return fmt.Errorf("level %d slot %d: %w", c.level, c.slot, ErrDoubleFree)
		}
		if err := s.release(c.level, c.slot); err != nil {
			return err
		}
	}
	*c = Chunk{}
	return nil
}

// Alloc returns a buffer of nbytes bytes. It is the allocation hook form of Get:
// the result carries no origin, which Free recovers from the buffer address.
func (s *Store) Alloc(nbytes int) []byte {
	return s.Get(nbytes).buf
}

// Free returns a buffer obtained from Alloc.
//
// A buffer that does not point into the arena was allocated dynamically and is
// left to the garbage collector. A buffer that points into the arena but not
// at the start of a chunk yields ErrInvalidPointer, and a chunk that is not
// checked out yields ErrDoubleFree.
//
// Free only sees an address, so it cannot tell a stale buffer from the one the
// slot's current owner holds: freeing a buffer twice after its chunk has been
// handed out again releases the new owner's chunk. Use Get and Put where that
// must be detected.
func (s *Store) Free(b []byte) error {
	p := unsafe.Pointer(unsafe.SliceData(b))
	if p == nil || s.arena == nil || !s.arena.Contains(p) {
		return nil
	}
	lv, slot, err := s.arena.Locate(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPointer, err)
	}
	return s.release(lv, slot)
}

func (s *Store) release(lv, slot int) error {
	if err := s.levels[lv].push(slot); err != nil {
		return fmt.Errorf("level %d slot %d: %w", lv, slot, err)
	}
	return nil
}

// allocDynamic serves a request from the heap.
func (s *Store) allocDynamic(nbytes int) []byte {
	s.fallbacks++
	b := make([]byte, nbytes)
	if s.allocLog != nil && nbytes >= s.smallest {
		if err := s.allocLog.logAlloc(b); err != nil {
			s.logger.Error("failed to write allocation log", "path", s.allocLog.path, "error", err)
		}
	}
	return b
}

// Outstanding returns the number of arena chunks currently checked out.
func (s *Store) Outstanding() int {
	n := 0
	for i := range s.levels {
		n += s.levels[i].stats.InUse
	}
	return n
}

// Close releases the arena in a single operation and, if an allocation log is
// configured, appends the usage report to it and closes it.
//
// Close fails with ErrChunksOutstanding, and releases nothing, while any arena
// chunk is still checked out. After Close every request is served dynamically.
func (s *Store) Close() error {
	if s.arena == nil {
		return nil
	}
	if n := s.Outstanding(); n > 0 {
		return fmt.Errorf("%w: %d", ErrChunksOutstanding, n)
	}
	report := s.Report()
	err := s.arena.Release()
	s.arena = nil
	if s.allocLog != nil {
		err = errors.Join(err, s.allocLog.writeReport(report), s.allocLog.close())
		s.allocLog = nil
	}
	s.logger.Debug("closed pix store", "report", report)
	return err
}
