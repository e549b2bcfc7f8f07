package pixstore

import (
	"errors"

	"github.com/holmberd/go-pixstore/internal/arena"
)

var (
	ErrInvalidConfig = errors.New("invalid config")

	// ErrOutOfMemory is returned by New when the arena cannot be allocated.
	ErrOutOfMemory = arena.ErrOutOfMemory

	ErrInvalidPointer    = errors.New("pointer does not start a chunk")
	ErrDoubleFree        = errors.New("chunk is not checked out")
	ErrForeignChunk      = errors.New("chunk belongs to a different store")
	ErrChunkReleased     = errors.New("chunk has already been released")
	ErrChunksOutstanding = errors.New("chunks are still checked out")
)
