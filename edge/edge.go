package edge

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/cvnet/matrix"
)

var (
	// ErrUnknownMethod is returned by New for unregistered policy names.
	ErrUnknownMethod = errors.New("unknown edge method")
	// ErrUnknownGenome is returned when a matrix names a genome missing from
	// the gene index.
	ErrUnknownGenome = errors.New("genome not in gene index")
	// ErrNotInitialized is returned by a stateful selector used before Init.
	ErrNotInitialized = errors.New("edge selector not initialized")
)

// Edge is a weighted (row, col) link in local or global coordinates.
type Edge struct {
	Row    int
	Col    int
	Weight float32
}

// Shift moves e by dr rows and dc columns.
func (e Edge) Shift(dr, dc int) Edge {
	return Edge{Row: e.Row + dr, Col: e.Col + dc, Weight: e.Weight}
}

// Reverse swaps the endpoints.
func (e Edge) Reverse() Edge {
	return Edge{Row: e.Col, Col: e.Row, Weight: e.Weight}
}

// ShiftAll shifts every edge in place.
func ShiftAll(es []Edge, dr, dc int) {
	for i := range es {
		es[i].Row += dr
		es[i].Col += dc
	}
}

// Lookup resolves a genome to the first global id of its genes.
type Lookup interface {
	Offset(genome string) (int, bool)
}

// PairArtifact gives a selector access to one genome pair's cached results.
type PairArtifact interface {
	Matrix(ctx context.Context) (*matrix.Matrix, error)
	RBH(ctx context.Context) (*matrix.RBH, error)
}

// Selector is an edge selection policy.
type Selector interface {
	Name() string
	Directed() bool
	// ReadsMatrix reports whether Select loads the dense pair matrix, so the
	// caller can reserve memory for it.
	ReadsMatrix() bool
	Threshold() float32
	Select(ctx context.Context, p PairArtifact, idx Lookup) ([]Edge, error)
}

// Initializer is implemented by selectors that need a pass over every pair
// before Select.
type Initializer interface {
	Init(ctx context.Context, pairs []PairArtifact, idx Lookup, ngene int) error
}

// offsets resolves the global shift of a matrix or RBH header.
func offsets(idx Lookup, h matrix.Header) (int, int, error) {
	dr, ok := idx.Offset(h.Row)
	if !ok {
		return 0, 0, fmt.Errorf("%w: row %q", ErrUnknownGenome, h.Row)
	}
	dc, ok := idx.Offset(h.Col)
	if !ok {
		return 0, 0, fmt.Errorf("%w: col %q", ErrUnknownGenome, h.Col)
	}
	return dr, dc, nil
}

// cutoff appends every cell of m with value >= floor in local coordinates.
func cutoff(m *matrix.Matrix, floor float32, es []Edge) []Edge {
	for i, v := range m.Data() {
		if v >= floor {
			r, c := m.Coord(i)
			es = append(es, Edge{Row: r, Col: c, Weight: v})
		}
	}
	return es
}
