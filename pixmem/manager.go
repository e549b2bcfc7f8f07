// Package pixmem manages the pixel data of images on behalf of an installable
// allocator.
//
// By default pixel data comes from the Go heap. A Manager can instead be given
// the Alloc and Free hooks of a pixstore.Store, which must happen before the
// first image is created; the store must outlive every image created through it.
package pixmem

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrBuffersOutstanding = errors.New("image buffers are still allocated")
	ErrImageDestroyed     = errors.New("image has already been destroyed")
	ErrInvalidDimensions  = errors.New("invalid image dimensions")
)

// Allocator is the pair of hooks a Manager gets pixel buffers from.
type Allocator interface {
	Alloc(nbytes int) []byte // Returns a buffer of exactly nbytes bytes.
	Free(b []byte) error     // Releases a buffer returned by Alloc.
}

// System is the default Allocator, backed by the Go heap.
type System struct{}

func (System) Alloc(nbytes int) []byte { return make([]byte, nbytes) }

func (System) Free([]byte) error { return nil }

// Manager hands out pixel buffers through its installed Allocator and tracks
// how many are live. All calls into the Allocator are serialized, so a
// Manager may be shared between goroutines even if its Allocator may not.
type Manager struct {
	mu        sync.Mutex
	allocator Allocator
	live      int // Number of buffers obtained from allocator and not yet freed.
	logger    *slog.Logger
}

// NewManager returns a Manager that uses the System allocator.
// A nil logger means slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{allocator: System{}, logger: logger}
}

// SetAllocator installs a as the allocator for all subsequent buffers.
// A nil a restores the System allocator. It fails with ErrBuffersOutstanding
// while buffers from the current allocator are still live.
func (m *Manager) SetAllocator(a Allocator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live > 0 {
		return fmt.Errorf("%w: %d", ErrBuffersOutstanding, m.live)
	}
	if a == nil {
		a = System{}
	}
	m.allocator = a
	return nil
}

// Live returns the number of buffers currently allocated through the manager.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

func (m *Manager) alloc(nbytes int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.allocator.Alloc(nbytes)
	m.live++
	return b
}

// free hands b back to the allocator. The buffer stops counting as live even
// if the allocator rejects it, since no image refers to it any more.
func (m *Manager) free(b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live--
	if err := m.allocator.Free(b); err != nil {
		m.logger.Error("failed to release image buffer", "bytes", len(b), "error", err)
		return err
	}
	return nil
}
