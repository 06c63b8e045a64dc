package similarity

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cvnet/cva"
	"github.com/hupe1980/cvnet/matrix"
	"github.com/hupe1980/cvnet/testutil"
)

func compute(t *testing.T, method string, a, b []cva.Vector) *matrix.Matrix {
	t.Helper()
	m, err := ByName(method)
	require.NoError(t, err)
	e := NewEngine(m)

	ca, cb := cva.Build(a), cva.Build(b)
	require.NoError(t, e.Prepare(ca))
	require.NoError(t, e.Prepare(cb))

	sm, err := e.Compute(context.Background(), ca, cb, "A", "B")
	require.NoError(t, err)
	return sm
}

func TestScenarioCosineByHand(t *testing.T) {
	x := []cva.Vector{
		{{Key: 1, Weight: 1}, {Key: 2, Weight: 2}, {Key: 5, Weight: 1}},
		{{Key: 2, Weight: 1}, {Key: 3, Weight: 3}},
	}
	y := []cva.Vector{
		{{Key: 1, Weight: 2}, {Key: 3, Weight: 1}},
		{{Key: 2, Weight: 2}, {Key: 3, Weight: 2}, {Key: 7, Weight: 1}},
		{{Key: 1, Weight: 1}, {Key: 2, Weight: 1}, {Key: 3, Weight: 1}},
	}

	nx := []float64{math.Sqrt(6), math.Sqrt(10)}
	ny := []float64{math.Sqrt(5), 3, math.Sqrt(3)}
	dots := [][]float64{
		{2, 4, 3},
		{3, 8, 4},
	}

	sm := compute(t, "Cosine", x, y)
	require.Equal(t, 2, sm.NRow())
	require.Equal(t, 3, sm.NCol())
	for i := range dots {
		for j := range dots[i] {
			got, err := sm.Get(i, j)
			require.NoError(t, err)
			assert.InDelta(t, dots[i][j]/(nx[i]*ny[j]), got, 1e-6, "cell (%d,%d)", i, j)
		}
	}
	assert.Equal(t, matrix.NewHeader("A", "B", 2, 3), sm.Header())
}

func TestMatchesDenseReference(t *testing.T) {
	rng := testutil.NewRNG(99)
	for _, positive := range []bool{true, false} {
		a := rng.SparseVectors(25, 30, 400, positive)
		b := rng.SparseVectors(30, 30, 400, positive)

		for _, name := range Names() {
			t.Run(name, func(t *testing.T) {
				sm := compute(t, name, a, b)
				ref := testutil.DenseSimilarity(name, a, b)
				for i := range a {
					for j := range b {
						got, _ := sm.Get(i, j)
						want := ref.At(i, j)
						// Min2Max sums are unbounded; compare relative to magnitude.
						delta := 1e-4 * math.Max(1, math.Abs(want))
						assert.InDelta(t, want, got, delta, "cell (%d,%d) positive=%v", i, j, positive)
					}
				}
			})
		}
	}
}

func TestSymmetry(t *testing.T) {
	rng := testutil.NewRNG(5)
	a := rng.SparseVectors(15, 20, 200, false)
	b := rng.SparseVectors(12, 20, 200, false)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			ab := compute(t, name, a, b)
			ba := compute(t, name, b, a)
			for i := range a {
				for j := range b {
					x, _ := ab.Get(i, j)
					y, _ := ba.Get(j, i)
					assert.Equal(t, x, y, "cell (%d,%d)", i, j)
				}
			}
		})
	}
}

func TestSelfSimilarity(t *testing.T) {
	rng := testutil.NewRNG(11)
	a := rng.SparseVectors(20, 25, 300, true)

	for _, name := range Names() {
		if name == "Min2Max" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			delta := 1e-5
			if name == "Euclidean" {
				// sqrt(1-cos) amplifies the float32 norm rounding near cos=1.
				delta = 1e-3
			}
			sm := compute(t, name, a, a)
			for i, v := range a {
				got, _ := sm.Get(i, i)
				if len(v) == 0 {
					assert.Zero(t, got)
					continue
				}
				assert.InDelta(t, 1, got, delta, "gene %d", i)
			}
		})
	}
}

func TestMin2MaxSelfIsDimensionCount(t *testing.T) {
	a := []cva.Vector{{{Key: 1, Weight: 3}, {Key: 8, Weight: 0.2}, {Key: 9, Weight: 1}}}
	got, _ := compute(t, "Min2Max", a, a).Get(0, 0)
	assert.InDelta(t, 3, got, 1e-6)
}

func TestEuclideanRange(t *testing.T) {
	a := []cva.Vector{{{Key: 1, Weight: 1}}, {{Key: 2, Weight: 1}}}
	b := []cva.Vector{{{Key: 1, Weight: -1}}}

	sm := compute(t, "Euclidean", a, b)
	opposite, _ := sm.Get(0, 0)
	orthogonal, _ := sm.Get(1, 0)
	assert.InDelta(t, 0, opposite, 1e-6)
	assert.InDelta(t, 1-math.Sqrt2/2, orthogonal, 1e-6)
}

func TestEmptyGenesScoreZero(t *testing.T) {
	a := []cva.Vector{{}, {{Key: 1, Weight: 1}}}
	b := []cva.Vector{{}}
	for _, name := range Names() {
		sm := compute(t, name, a, b)
		assert.Equal(t, []float32{0, 0}, sm.Data(), name)
	}
}

func TestComputeEmptyArrays(t *testing.T) {
	sm := compute(t, "Cosine", nil, []cva.Vector{{{Key: 1, Weight: 1}}})
	assert.Equal(t, 0, sm.NRow())
	assert.Equal(t, 1, sm.NCol())
	assert.Empty(t, sm.Data())
}

func TestComputeNeedsPreparedNorms(t *testing.T) {
	e := NewEngine(Cosine{})
	a := cva.Build([]cva.Vector{{{Key: 1, Weight: 1}}})
	b := cva.Build([]cva.Vector{{{Key: 1, Weight: 1}}})

	_, err := e.Compute(context.Background(), a, b, "A", "B")
	assert.Error(t, err)

	require.NoError(t, b.SelectNorm(cva.NormL0))
	require.NoError(t, e.Prepare(a))
	_, err = e.Compute(context.Background(), a, b, "A", "B")
	assert.Error(t, err)
	assert.Error(t, e.Prepare(b))
}

func TestComputeCanceled(t *testing.T) {
	e := NewEngine(Dice{})
	v := []cva.Vector{{{Key: 1, Weight: 1}}}
	a, b := cva.Build(v), cva.Build(v)
	require.NoError(t, e.Prepare(a))
	require.NoError(t, e.Prepare(b))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Compute(ctx, a, b, "A", "B")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"Cosine", "Euclidean", "InterList", "Min2Max", "InterSet", "Dice", "Jaccard"} {
		m, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.Name())
	}

	m, err := ByName("ItoU")
	require.NoError(t, err)
	assert.Equal(t, "Jaccard", m.Name())

	m, err = ByName("cosine")
	require.NoError(t, err)
	assert.Equal(t, "Cosine", m.Name())

	_, err = ByName("Manhattan")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	assert.Len(t, Names(), 7)
	assert.Panics(t, func() { Register("Dice", func() Method { return Dice{} }) })
}

func TestNormKinds(t *testing.T) {
	expect := map[string]cva.NormKind{
		"Cosine":    cva.NormL2,
		"Euclidean": cva.NormL2,
		"InterList": cva.NormL1,
		"Min2Max":   cva.NormL1,
		"InterSet":  cva.NormL0,
		"Dice":      cva.NormL0,
		"Jaccard":   cva.NormL0,
	}
	for name, kind := range expect {
		m, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, kind, m.Norm(), name)
	}
}

func BenchmarkCompute(b *testing.B) {
	rng := testutil.NewRNG(1)
	ga := cva.Build(rng.SparseVectors(500, 200, 20000, true))
	gb := cva.Build(rng.SparseVectors(500, 200, 20000, true))
	e := NewEngine(Cosine{})
	_ = e.Prepare(ga)
	_ = e.Prepare(gb)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Compute(context.Background(), ga, gb, "A", "B"); err != nil {
			b.Fatal(err)
		}
	}
}
