package pixstore

// Chunk is a buffer handed out by Store.Get. It remembers the level and slot it
// was taken from, so that Put never has to classify an address.
//
// A Chunk must be returned exactly once, through Put on the store that issued it.
// Put rejects copies of a handle that has already been returned, even after
// its slot has been handed out again.
type Chunk struct {
	buf   []byte
	store *Store
	level int // -1 for dynamic chunks.
	slot  int
	gen   uint32 // Checkout generation of the slot.
}

// Bytes returns the chunk's buffer. Its length is the requested size;
// its capacity is the chunk size for pooled chunks.
func (c Chunk) Bytes() []byte {
	return c.buf
}

func (c Chunk) Len() int {
	return len(c.buf)
}

// Level returns the level the chunk was taken from, or -1 if it was allocated
// dynamically or has been released.
func (c Chunk) Level() int {
	if c.store == nil {
		return -1
	}
	return c.level
}

// Pooled reports whether the chunk lives in the store's arena.
func (c Chunk) Pooled() bool {
	return c.Level() >= 0
}

// Released reports whether the chunk has been returned through Put,
// or is the zero Chunk.
func (c Chunk) Released() bool {
	return c.store == nil
}
