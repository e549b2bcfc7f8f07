package pixmem

import (
	"fmt"
	"sync/atomic"
)

// MaxImageBytes is the largest pixel buffer NewImage will request.
const MaxImageBytes = 1<<31 - 1

// Image is a reference-counted raster whose pixel data is owned by a Manager.
// Rows are padded to whole 32-bit words.
type Image struct {
	m      *Manager
	width  int
	height int
	depth  int
	wpl    int // 32-bit words per line.
	data   []byte
	refs   atomic.Int32
}

// NewImage allocates a zeroed image with the given dimensions.
// Depth is in bits per pixel and must be one of 1, 2, 4, 8, 16, 24 or 32.
func (m *Manager) NewImage(width, height, depth int) (*Image, error) {
	switch depth {
	case 1, 2, 4, 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: depth %d", ErrInvalidDimensions, depth)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > MaxImageBytes/depth {
		return nil, fmt.Errorf("%w: width %d too large", ErrInvalidDimensions, width)
	}
	wpl := (width*depth + 31) / 32
	if height > MaxImageBytes/(4*wpl) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d bytes", ErrInvalidDimensions, width, height, MaxImageBytes)
	}

	data := m.alloc(4 * wpl * height)
	clear(data) // Pooled buffers are reused without being cleared.
	im := &Image{
		m:      m,
		width:  width,
		height: height,
		depth:  depth,
		wpl:    wpl,
		data:   data,
	}
	im.refs.Store(1)
	return im, nil
}

func (im *Image) Width() int  { return im.width }
func (im *Image) Height() int { return im.height }
func (im *Image) Depth() int  { return im.depth }

// WPL returns the number of 32-bit words per line.
func (im *Image) WPL() int { return im.wpl }

// Data returns the pixel buffer, or nil once the image has been destroyed.
func (im *Image) Data() []byte { return im.data }

// Refs returns the current reference count.
func (im *Image) Refs() int { return int(im.refs.Load()) }

// Clone returns the same image with its reference count incremented.
// Every Clone must be matched by a Destroy.
func (im *Image) Clone() *Image {
	im.refs.Add(1)
	return im
}

// Destroy drops one reference. The last reference returns the pixel data to
// the Manager's allocator.
func (im *Image) Destroy() error {
	n := im.refs.Add(-1)
	switch {
	case n > 0:
		return nil
	case n < 0:
		im.refs.Store(0)
		return ErrImageDestroyed
	}
	data := im.data
	im.data = nil
	return im.m.free(data)
}
