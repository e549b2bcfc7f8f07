package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// Parse reads a trace with one operation per line:
//
//	alloc <id> <size>
//	free <id>
//
// Sizes may be plain byte counts or human sizes such as "1.5MiB".
// Blank lines and lines starting with '#' are ignored.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		op, err := parseOp(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func parseOp(fields []string) (Op, error) {
	switch fields[0] {
	case "alloc":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("expected 'alloc <id> <size>', got %q", strings.Join(fields, " "))
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return Op{}, fmt.Errorf("invalid id: %w", err)
		}
		size, err := units.RAMInBytes(fields[2])
		if err != nil {
			return Op{}, fmt.Errorf("invalid size: %w", err)
		}
		if size < 0 {
			return Op{}, fmt.Errorf("invalid size: %d", size)
		}
		return Op{Kind: Alloc, ID: id, Size: int(size)}, nil
	case "free":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("expected 'free <id>', got %q", strings.Join(fields, " "))
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return Op{}, fmt.Errorf("invalid id: %w", err)
		}
		return Op{Kind: Free, ID: id}, nil
	default:
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}
}

// Write writes ops in the format read by Parse.
func Write(w io.Writer, ops []Op) error {
	bw := bufio.NewWriter(w)
	for _, op := range ops {
		switch op.Kind {
		case Alloc:
			fmt.Fprintf(bw, "alloc %d %d\n", op.ID, op.Size)
		default:
			fmt.Fprintf(bw, "free %d\n", op.ID)
		}
	}
	return bw.Flush()
}
