// Package workload produces, parses and replays sequences of image buffer
// allocations, so that a store layout can be tuned against them.
package workload

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/holmberd/go-pixstore/pixmem"
)

type Kind int

const (
	Alloc Kind = iota
	Free
)

func (k Kind) String() string {
	switch k {
	case Alloc:
		return "alloc"
	case Free:
		return "free"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Op is a single step of a workload. Size is only meaningful for Alloc.
type Op struct {
	Kind Kind
	ID   int
	Size int
}

type GenerateConfig struct {
	Seed    int64
	Ops     int // Number of allocations.
	MaxLive int // Maximum number of buffers alive at once.
	MinSize int // Smallest buffer size in bytes.
	MaxSize int // Largest buffer size in bytes.
}

func (c GenerateConfig) Validate() error {
	var errs []error
	if c.Ops <= 0 {
		errs = append(errs, fmt.Errorf("ops must be greater than zero, got %d", c.Ops))
	}
	if c.MaxLive <= 0 {
		errs = append(errs, fmt.Errorf("max live must be greater than zero, got %d", c.MaxLive))
	}
	if c.MinSize <= 0 || c.MaxSize < c.MinSize {
		errs = append(errs, fmt.Errorf("invalid size range [%d, %d]", c.MinSize, c.MaxSize))
	}
	return errors.Join(errs...)
}

// Generate returns a deterministic workload of c.Ops allocations interleaved
// with frees, ending with every buffer freed. Sizes are spread evenly on a log
// scale, as image sizes usually are.
func Generate(c GenerateConfig) ([]Op, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	r := rand.New(rand.NewSource(c.Seed))
	logMin, logMax := math.Log(float64(c.MinSize)), math.Log(float64(c.MaxSize))

	ops := make([]Op, 0, 2*c.Ops)
	var live []int
	nextID := 0
	freeRandom := func() {
		i := r.Intn(len(live))
		ops = append(ops, Op{Kind: Free, ID: live[i]})
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
	}
	for nextID < c.Ops {
		if len(live) == c.MaxLive || (len(live) > 0 && r.Intn(2) == 0) {
			freeRandom()
			continue
		}
		size := int(math.Round(math.Exp(logMin + r.Float64()*(logMax-logMin))))
		size = min(max(size, c.MinSize), c.MaxSize)
		ops = append(ops, Op{Kind: Alloc, ID: nextID, Size: size})
		live = append(live, nextID)
		nextID++
	}
	for len(live) > 0 {
		freeRandom()
	}
	return ops, nil
}

// Result summarizes a replay.
type Result struct {
	Allocs   int   `json:"allocs"`
	Frees    int   `json:"frees"`
	Bytes    int64 `json:"bytes"`     // Total bytes requested.
	PeakLive int   `json:"peak_live"` // Maximum number of buffers alive at once.
	Leaked   int   `json:"leaked"`    // Buffers the workload never freed; released at the end.
}

// Replay runs ops against a. Buffers still allocated when the workload ends,
// or when it fails, are freed, so the allocator can be closed afterwards.
func Replay(ops []Op, a pixmem.Allocator) (Result, error) {
	live := make(map[int][]byte)
	res, err := replayOps(ops, a, live)
	if err != nil {
		for _, b := range live {
			err = errors.Join(err, a.Free(b))
		}
		return res, err
	}
	for id, b := range live {
		if err := a.Free(b); err != nil {
			return res, fmt.Errorf("free leaked buffer %d: %w", id, err)
		}
		res.Leaked++
	}
	return res, nil
}

func replayOps(ops []Op, a pixmem.Allocator, live map[int][]byte) (Result, error) {
	var res Result
	for i, op := range ops {
		switch op.Kind {
		case Alloc:
			if _, ok := live[op.ID]; ok {
				return res, fmt.Errorf("op %d: buffer %d is already allocated", i, op.ID)
			}
			b := a.Alloc(op.Size)
			if len(b) > 0 {
				b[0] = byte(op.ID) // Touch the buffer.
			}
			live[op.ID] = b
			res.Allocs++
			res.Bytes += int64(op.Size)
			res.PeakLive = max(res.PeakLive, len(live))
		case Free:
			b, ok := live[op.ID]
			if !ok {
				return res, fmt.Errorf("op %d: buffer %d is not allocated", i, op.ID)
			}
			delete(live, op.ID)
			if err := a.Free(b); err != nil {
				return res, fmt.Errorf("op %d: free buffer %d: %w", i, op.ID, err)
			}
			res.Frees++
		default:
			return res, fmt.Errorf("op %d: unknown kind %v", i, op.Kind)
		}
	}
	return res, nil
}
