package pixstore

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/go-units"
)

// LevelReport is a snapshot of one level.
type LevelReport struct {
	Level     int `json:"level"`
	ChunkSize int `json:"chunk_size"`
	Chunks    int `json:"chunks"`
	Free      int `json:"free"`
	LevelStats
}

// Report is a snapshot of the store's usage, meant for tuning a Config
// against a workload.
type Report struct {
	Fingerprint       uint64        `json:"fingerprint"`
	MinDynamicSize    int           `json:"min_dynamic_size"`
	SmallestChunkSize int           `json:"smallest_chunk_size"`
	TotalBytes        int           `json:"total_bytes"`
	Fallbacks         int           `json:"fallbacks"` // Requests served by the system allocator.
	Closed            bool          `json:"closed"`
	Levels            []LevelReport `json:"levels"`
}

// Report returns the current usage counters. It has no effect on allocation.
func (s *Store) Report() Report {
	r := Report{
		Fingerprint:       s.layout.Fingerprint(),
		MinDynamicSize:    s.minDynamicSize,
		SmallestChunkSize: s.smallest,
		TotalBytes:        s.layout.Size(),
		Fallbacks:         s.fallbacks,
		Closed:            s.arena == nil,
		Levels:            make([]LevelReport, len(s.levels)),
	}
	for i := range s.levels {
		l := &s.levels[i]
		r.Levels[i] = LevelReport{
			Level:      i,
			ChunkSize:  l.size,
			Chunks:     l.count,
			Free:       len(l.free),
			LevelStats: l.stats,
		}
	}
	return r
}

// Exhausted returns the total number of exhaustion events across all levels.
func (r Report) Exhausted() int {
	n := 0
	for _, l := range r.Levels {
		n += l.Exhausted
	}
	return n
}

// WriteTo writes a human-readable summary of the report to w.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintf(cw, "Pix store %016x: %d levels, %s\n",
		r.Fingerprint, len(r.Levels), units.BytesSize(float64(r.TotalBytes)))

	sections := []struct {
		title string
		value func(LevelReport) int
	}{
		{"Total number of buffers used at each level", func(l LevelReport) int { return l.Used }},
		{"Max number of buffers in use at any time in each level", func(l LevelReport) int { return l.Peak }},
		{"Number of buffers allocated because none were available", func(l LevelReport) int { return l.Exhausted }},
	}
	for _, sec := range sections {
		fmt.Fprintln(cw, sec.title)
		for _, l := range r.Levels {
			fmt.Fprintf(cw, " Level %d (%s): %d\n", l.Level, units.BytesSize(float64(l.ChunkSize)), sec.value(l))
		}
	}
	fmt.Fprintf(cw, "Dynamic allocations: %d\n", r.Fallbacks)
	return cw.n, cw.err
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(r.Levels)+2)
	attrs = append(attrs,
		slog.String("fingerprint", fmt.Sprintf("%016x", r.Fingerprint)),
		slog.Int("fallbacks", r.Fallbacks),
	)
	for _, l := range r.Levels {
		attrs = append(attrs, slog.Group(fmt.Sprintf("level%d", l.Level),
			slog.Int("chunk_size", l.ChunkSize),
			slog.Int("used", l.Used),
			slog.Int("peak", l.Peak),
			slog.Int("exhausted", l.Exhausted),
		))
	}
	return slog.GroupValue(attrs...)
}

// countingWriter counts bytes written and keeps the first error.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
