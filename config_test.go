package pixstore

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Run("Valid config", func(t *testing.T) {
		if err := DefaultConfig().Validate(); err != nil {
			t.Errorf("expected a valid config, but got error: %v", err)
		}
	})

	testCases := []struct {
		name        string
		config      Config
		expectedErr string
	}{
		{
			"No levels",
			Config{SmallestChunkSize: MiB},
			"invalid config: at least one chunk level is required",
		},
		{
			"Zero smallest chunk size",
			Config{ChunkCounts: []int{1}},
			"invalid config: smallest chunk size must be greater than zero, got 0",
		},
		{
			"Negative min dynamic size",
			Config{MinDynamicSize: -8, SmallestChunkSize: MiB, ChunkCounts: []int{1}},
			"invalid config: min dynamic size must not be negative, got -8",
		},
		{
			"Negative chunk count",
			Config{SmallestChunkSize: MiB, ChunkCounts: []int{1, -2}},
			"invalid config: chunk count for level 1 must not be negative, got -2",
		},
		{
			"No chunks",
			Config{SmallestChunkSize: MiB, ChunkCounts: []int{0, 0}},
			"invalid config: layout holds no chunks",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if err == nil {
				t.Fatal("expected an error, but got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected error to wrap ErrInvalidConfig, got %v", err)
			}
			if err.Error() != tc.expectedErr {
				t.Errorf("expected error %q, got %q", tc.expectedErr, err.Error())
			}
		})
	}

	t.Run("Multiple errors are joined", func(t *testing.T) {
		err := Config{MinDynamicSize: -1}.Validate()
		if err == nil {
			t.Fatal("expected an error, but got nil")
		}
		if n := strings.Count(err.Error(), "invalid config"); n != 3 {
			t.Errorf("expected 3 joined errors, got %d: %v", n, err)
		}
	})
}

func TestConfigChunkSize(t *testing.T) {
	c := DefaultConfig()
	expected := []int{MiB, 2 * MiB, 4 * MiB, 8 * MiB}
	if c.Levels() != len(expected) {
		t.Fatalf("expected %d levels, got %d", len(expected), c.Levels())
	}
	for i, want := range expected {
		if got := c.ChunkSize(i); got != want {
			t.Errorf("level %d: expected chunk size %d, got %d", i, want, got)
		}
	}
}
