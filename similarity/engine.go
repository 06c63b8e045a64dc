package similarity

import (
	"context"
	"fmt"

	"github.com/hupe1980/cvnet/cva"
	"github.com/hupe1980/cvnet/matrix"
)

// ctxCheckInterval is the number of aligned columns between context checks.
const ctxCheckInterval = 4096

// Engine computes pair matrices with one Method.
type Engine struct {
	method Method
}

// NewEngine returns an engine for m.
func NewEngine(m Method) *Engine {
	return &Engine{method: m}
}

// Method returns the engine's method.
func (e *Engine) Method() Method { return e.method }

// Prepare selects the method's norm on a. Arrays must be prepared before
// Compute; a prepared array can be shared by concurrent Compute calls.
func (e *Engine) Prepare(a *cva.Array) error {
	return a.SelectNorm(e.method.Norm())
}

func (e *Engine) norms(a *cva.Array) ([]float32, error) {
	kind, ok := a.Selected()
	if !ok || kind != e.method.Norm() {
		return nil, fmt.Errorf("similarity: %s needs %s norms, array has %s", e.method.Name(), e.method.Norm(), kind)
	}
	return a.Norms(), nil
}

// Compute returns the nrow(a) x nrow(b) similarity matrix of a (rows) and b
// (columns), named rowName and colName.
//
// Errors are either context cancellation or a *matrix.IndexError when an
// entry addresses a gene outside its array.
func (e *Engine) Compute(ctx context.Context, a, b *cva.Array, rowName, colName string) (*matrix.Matrix, error) {
	na, err := e.norms(a)
	if err != nil {
		return nil, err
	}
	nb, err := e.norms(b)
	if err != nil {
		return nil, err
	}

	nrow, ncol := a.GeneCount(), b.GeneCount()
	acc := make([]float64, nrow*ncol)

	for n, p := range cva.Align(a, b) {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		colA, colB := a.Column(p.A), b.Column(p.B)
		// Entries are sorted by gene, so the last one bounds the block.
		if g := int(colA[len(colA)-1].Gene); g >= nrow {
			return nil, &matrix.IndexError{Op: "accumulate", Row: g, Col: 0, NRow: nrow, NCol: ncol}
		}
		if g := int(colB[len(colB)-1].Gene); g >= ncol {
			return nil, &matrix.IndexError{Op: "accumulate", Row: 0, Col: g, NRow: nrow, NCol: ncol}
		}
		e.accumulate(acc, ncol, colA, colB)
	}

	m := matrix.New(matrix.NewHeader(rowName, colName, nrow, ncol))
	data := m.Data()
	for i := 0; i < nrow; i++ {
		row := i * ncol
		for j := 0; j < ncol; j++ {
			data[row+j] = e.method.Scale(acc[row+j], na[i], nb[j])
		}
	}
	return m, nil
}

func (e *Engine) accumulate(acc []float64, ncol int, colA, colB []cva.Entry) {
	m := e.method
	for _, ea := range colA {
		row := acc[int(ea.Gene)*ncol : (int(ea.Gene)+1)*ncol]
		for _, eb := range colB {
			row[eb.Gene] = m.Accumulate(row[eb.Gene], ea.Weight, eb.Weight)
		}
	}
}
