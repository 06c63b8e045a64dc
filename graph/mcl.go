package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed reports unparsable MCL text.
var ErrMalformed = errors.New("malformed mcl matrix")

// ReadMCL parses a matrix written by WriteMCL.
func ReadMCL(r io.Reader) (*Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	n := -1
	inBody := false
	var g *Graph
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inBody {
			if dims, ok := strings.CutPrefix(line, "dimensions "); ok {
				a, b, found := strings.Cut(dims, "x")
				na, err1 := strconv.Atoi(a)
				nb, err2 := strconv.Atoi(b)
				if !found || err1 != nil || err2 != nil || na != nb || na < 0 {
					return nil, fmt.Errorf("%w: dimensions %q", ErrMalformed, dims)
				}
				n = na
			}
			if line == "begin" {
				if n < 0 {
					return nil, fmt.Errorf("%w: missing dimensions", ErrMalformed)
				}
				g = New(n)
				inBody = true
			}
			continue
		}
		if line == "" {
			continue
		}
		if line == ")" {
			return g, nil
		}
		if err := parseRow(g, line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: unterminated matrix", ErrMalformed)
}

func parseRow(g *Graph, line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[len(fields)-1] != "$" {
		return fmt.Errorf("%w: row %q", ErrMalformed, line)
	}
	row, err := strconv.Atoi(fields[0])
	if err != nil || row < 0 || row >= len(g.rows) {
		return fmt.Errorf("%w: row id %q", ErrMalformed, fields[0])
	}
	for _, f := range fields[1 : len(fields)-1] {
		c, v, ok := strings.Cut(f, ":")
		col, err1 := strconv.Atoi(c)
		w, err2 := strconv.ParseFloat(v, 32)
		if !ok || err1 != nil || err2 != nil || col < 0 || col >= len(g.rows) {
			return fmt.Errorf("%w: item %q", ErrMalformed, f)
		}
		g.rows[row] = append(g.rows[row], Item{Col: col, Weight: float32(w)})
	}
	return nil
}
