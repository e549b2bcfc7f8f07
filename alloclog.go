package pixstore

import (
	"fmt"
	"os"
	"unsafe"
)

// allocLog appends a line for every large dynamic allocation to a file.
// The format is for debugging by hand and not meant to be parsed.
type allocLog struct {
	path string
	f    *os.File
}

func openAllocLog(path string) (*allocLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open allocation log: %w", err)
	}
	return &allocLog{path: path, f: f}, nil
}

func (l *allocLog) logAlloc(b []byte) error {
	_, err := fmt.Fprintf(l.f, "Alloc %d bytes at %p\n", len(b), unsafe.SliceData(b))
	return err
}

func (l *allocLog) writeReport(r Report) error {
	_, err := r.WriteTo(l.f)
	return err
}

func (l *allocLog) close() error {
	return l.f.Close()
}
