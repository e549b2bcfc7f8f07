package pixstore

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/holmberd/go-pixstore/internal/arena"
)

const (
	KiB = 1024
	MiB = KiB * KiB

	// wordSize is the alignment every chunk size and the minimum poolable size
	// are rounded to.
	wordSize = int(unsafe.Sizeof(uintptr(0)))

	// manyChunksThreshold is the total chunk count above which New warns that
	// the store is probably misconfigured. It is not a limit.
	manyChunksThreshold = 1000
)

type Config struct {
	// MinDynamicSize is the smallest request, in bytes, the store will serve
	// from the arena. Smaller requests always go to the system allocator.
	// It is rounded down to a word boundary.
	MinDynamicSize int

	// SmallestChunkSize is the chunk size of level 0, in bytes. Every further
	// level doubles it. It is rounded up to a word boundary.
	SmallestChunkSize int

	// ChunkCounts holds the number of pre-allocated chunks for each level.
	// Its length is the number of levels.
	ChunkCounts []int

	// LogPath, if set, names a file that fallback allocations of at least
	// SmallestChunkSize bytes are appended to, along with the usage report
	// when the store is closed. The format is for humans only.
	LogPath string

	Logger *slog.Logger // Defaults to slog.Default().
}

// DefaultConfig returns a store of 80 MiB for images between 0.5 MiB and 8 MiB:
// ten 1 MiB chunks and five chunks each of 2, 4 and 8 MiB.
func DefaultConfig() Config {
	return Config{
		MinDynamicSize:    512 * KiB,
		SmallestChunkSize: 1 * MiB,
		ChunkCounts:       []int{10, 5, 5, 5},
	}
}

// Levels returns the number of size classes.
func (c Config) Levels() int {
	return len(c.ChunkCounts)
}

// ChunkSize returns the chunk size of the given level after normalization.
func (c Config) ChunkSize(level int) int {
	return c.normalize().SmallestChunkSize << level
}

// normalize returns a copy of c with sizes aligned to word boundaries.
func (c Config) normalize() Config {
	if r := c.MinDynamicSize % wordSize; r > 0 {
		c.MinDynamicSize -= r
	}
	if r := c.SmallestChunkSize % wordSize; c.SmallestChunkSize > 0 && r != 0 {
		c.SmallestChunkSize += wordSize - r
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate reports every problem with the config. Each returned error wraps
// ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if len(c.ChunkCounts) == 0 {
		invalid("at least one chunk level is required")
	}
	if c.SmallestChunkSize <= 0 {
		invalid("smallest chunk size must be greater than zero, got %d", c.SmallestChunkSize)
	}
	if c.MinDynamicSize < 0 {
		invalid("min dynamic size must not be negative, got %d", c.MinDynamicSize)
	}
	for i, n := range c.ChunkCounts {
		if n < 0 {
			invalid("chunk count for level %d must not be negative, got %d", i, n)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if _, err := arena.NewLayout(c.normalize().SmallestChunkSize, c.ChunkCounts); err != nil {
		invalid("%v", err)
	}
	return errors.Join(errs...)
}
