package workload

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/holmberd/go-pixstore/internal/testutils"
)

var testGenerateConfig = GenerateConfig{
	Seed:    42,
	Ops:     500,
	MaxLive: 8,
	MinSize: 1024,
	MaxSize: 1 << 20,
}

func TestGenerate(t *testing.T) {
	ops, err := Generate(testGenerateConfig)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Every allocation is freed exactly once", func(t *testing.T) {
		live := make(map[int]bool)
		allocs := 0
		for i, op := range ops {
			switch op.Kind {
			case Alloc:
				if live[op.ID] {
					t.Fatalf("op %d: buffer %d allocated twice", i, op.ID)
				}
				if op.Size < testGenerateConfig.MinSize || op.Size > testGenerateConfig.MaxSize {
					t.Fatalf("op %d: size %d out of range", i, op.Size)
				}
				live[op.ID] = true
				allocs++
				if len(live) > testGenerateConfig.MaxLive {
					t.Fatalf("op %d: %d buffers live, max %d", i, len(live), testGenerateConfig.MaxLive)
				}
			case Free:
				if !live[op.ID] {
					t.Fatalf("op %d: buffer %d freed while not live", i, op.ID)
				}
				delete(live, op.ID)
			}
		}
		if allocs != testGenerateConfig.Ops {
			t.Errorf("expected %d allocations, got %d", testGenerateConfig.Ops, allocs)
		}
		if len(live) != 0 {
			t.Errorf("expected no live buffers at the end, got %d", len(live))
		}
	})

	t.Run("Same seed produces the same workload", func(t *testing.T) {
		again, err := Generate(testGenerateConfig)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ops, again) {
			t.Error("expected identical workloads")
		}
	})

	t.Run("Invalid config", func(t *testing.T) {
		_, err := Generate(GenerateConfig{MinSize: 10, MaxSize: 5})
		if err == nil {
			t.Fatal("expected an error, but got nil")
		}
		if n := strings.Count(err.Error(), "\n") + 1; n != 3 {
			t.Errorf("expected 3 joined errors, got %d: %v", n, err)
		}
	})
}

func TestReplay(t *testing.T) {
	t.Run("Replay generated workload", func(t *testing.T) {
		ops, err := Generate(testGenerateConfig)
		if err != nil {
			t.Fatal(err)
		}
		alloc := &testutils.MockAllocator{}
		res, err := Replay(ops, alloc)
		if err != nil {
			t.Fatal(err)
		}
		if res.Allocs != testGenerateConfig.Ops || res.Frees != testGenerateConfig.Ops {
			t.Errorf("expected %d allocs and frees, got %+v", testGenerateConfig.Ops, res)
		}
		if res.PeakLive == 0 || res.PeakLive > testGenerateConfig.MaxLive {
			t.Errorf("unexpected peak live %d", res.PeakLive)
		}
		if alloc.BuffersInUse() != 0 {
			t.Errorf("expected no buffers in use, got %d", alloc.BuffersInUse())
		}
		if res.Bytes != alloc.AllocBytes() {
			t.Errorf("expected %d bytes, got %d", alloc.AllocBytes(), res.Bytes)
		}
	})

	t.Run("Replay is repeatable", func(t *testing.T) {
		ops, err := Generate(testGenerateConfig)
		if err != nil {
			t.Fatal(err)
		}
		alloc := &testutils.MockAllocator{}
		first, err := Replay(ops, alloc)
		if err != nil {
			t.Fatal(err)
		}
		calls, nbytes := alloc.AllocCalls(), alloc.AllocBytes()
		alloc.Reset()
		if alloc.AllocCalls() != 0 || alloc.FreeCalls() != 0 || alloc.AllocBytes() != 0 {
			t.Fatal("expected reset to clear all counters")
		}
		second, err := Replay(ops, alloc)
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Errorf("expected equal results, got %+v and %+v", first, second)
		}
		if alloc.AllocCalls() != calls || alloc.AllocBytes() != nbytes {
			t.Errorf("expected %d calls of %d bytes, got %d calls of %d bytes",
				calls, nbytes, alloc.AllocCalls(), alloc.AllocBytes())
		}
	})

	t.Run("Leaked buffers are freed", func(t *testing.T) {
		alloc := &testutils.MockAllocator{}
		res, err := Replay([]Op{{Kind: Alloc, ID: 1, Size: 10}, {Kind: Alloc, ID: 2, Size: 10}, {Kind: Free, ID: 1}}, alloc)
		if err != nil {
			t.Fatal(err)
		}
		if res.Leaked != 1 {
			t.Errorf("expected 1 leaked buffer, got %d", res.Leaked)
		}
		if alloc.BuffersInUse() != 0 {
			t.Errorf("expected no buffers in use, got %d", alloc.BuffersInUse())
		}
	})

	t.Run("Invalid sequences", func(t *testing.T) {
		testCases := []struct {
			name string
			ops  []Op
			err  string
		}{
			{"Double alloc", []Op{{Kind: Alloc, ID: 1}, {Kind: Alloc, ID: 1}}, "op 1: buffer 1 is already allocated"},
			{"Free unknown", []Op{{Kind: Free, ID: 7}}, "op 0: buffer 7 is not allocated"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Replay(tc.ops, &testutils.MockAllocator{})
				if err == nil || err.Error() != tc.err {
					t.Errorf("expected error %q, got %v", tc.err, err)
				}
			})
		}
	})

	t.Run("Failed replay releases live buffers", func(t *testing.T) {
		alloc := &testutils.MockAllocator{}
		ops := []Op{
			{Kind: Alloc, ID: 1, Size: 10},
			{Kind: Alloc, ID: 2, Size: 10},
			{Kind: Free, ID: 3},
		}
		if _, err := Replay(ops, alloc); err == nil {
			t.Fatal("expected error")
		}
		if alloc.BuffersInUse() != 0 {
			t.Errorf("expected no buffers in use, got %d", alloc.BuffersInUse())
		}
	})

	t.Run("Allocator errors are returned", func(t *testing.T) {
		errFree := errors.New("boom")
		_, err := Replay([]Op{{Kind: Alloc, ID: 1, Size: 1}, {Kind: Free, ID: 1}}, failingAllocator{errFree})
		if !errors.Is(err, errFree) {
			t.Errorf("expected %v, got %v", errFree, err)
		}
	})
}

type failingAllocator struct{ err error }

func (a failingAllocator) Alloc(nbytes int) []byte { return make([]byte, nbytes) }
func (a failingAllocator) Free([]byte) error       { return a.err }

func TestParse(t *testing.T) {
	t.Run("Valid trace", func(t *testing.T) {
		trace := `
# two images
alloc 1 1.5MiB
alloc 2 4096
free 1
free 2
`
		ops, err := Parse(strings.NewReader(trace))
		if err != nil {
			t.Fatal(err)
		}
		expected := []Op{
			{Kind: Alloc, ID: 1, Size: 3 << 19},
			{Kind: Alloc, ID: 2, Size: 4096},
			{Kind: Free, ID: 1},
			{Kind: Free, ID: 2},
		}
		if !slices.Equal(ops, expected) {
			t.Errorf("expected %v, got %v", expected, ops)
		}
	})

	t.Run("Written trace parses back", func(t *testing.T) {
		ops, err := Generate(testGenerateConfig)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := Write(&buf, ops); err != nil {
			t.Fatal(err)
		}
		got, err := Parse(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ops, got) {
			t.Error("expected trace to parse back to the same workload")
		}
	})

	t.Run("Invalid lines", func(t *testing.T) {
		testCases := []struct {
			name  string
			trace string
			err   string
		}{
			{"Unknown operation", "resize 1 10", `line 1: unknown operation "resize"`},
			{"Missing size", "alloc 1", `line 1: expected 'alloc <id> <size>', got "alloc 1"`},
			{"Bad id", "\nfree x", "line 2: invalid id"},
			{"Bad size", "alloc 1 lots", "line 1: invalid size"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Parse(strings.NewReader(tc.trace))
				if err == nil || !strings.HasPrefix(err.Error(), tc.err) {
					t.Errorf("expected error starting with %q, got %v", tc.err, err)
				}
			})
		}
	})
}
