package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/cvnet/cva"
)

func TestSparseVectors(t *testing.T) {
	rng := NewRNG(4711)

	genome := rng.SparseVectors(40, 16, 1000, false)
	assert.Len(t, genome, 40)

	for _, v := range genome {
		assert.LessOrEqual(t, len(v), 16)
		seen := map[uint64]bool{}
		for _, c := range v {
			assert.False(t, seen[c.Key], "duplicate key %d", c.Key)
			seen[c.Key] = true
			assert.Less(t, c.Key, uint64(1000))
			assert.GreaterOrEqual(t, c.Weight, float32(-1))
			assert.Less(t, c.Weight, float32(1))
		}
	}
}

func TestSparseVectorsPositive(t *testing.T) {
	rng := NewRNG(1)
	for _, v := range rng.SparseVectors(20, 8, 100, true) {
		for _, c := range v {
			assert.Greater(t, c.Weight, float32(0))
		}
	}
}

func TestResetRepeats(t *testing.T) {
	rng := NewRNG(7)
	a := rng.SparseVectors(5, 4, 50, true)
	rng.Reset()
	b := rng.SparseVectors(5, 4, 50, true)
	assert.Equal(t, a, b)
}

func TestDensify(t *testing.T) {
	a := []cva.Vector{{{Key: 5, Weight: 1}, {Key: 2, Weight: 3}}}
	b := []cva.Vector{{{Key: 9, Weight: 2}}, {}}

	d := Densify(a, b)
	assert.Equal(t, []float64{3, 1, 0}, d[0].RawRowView(0))
	assert.Equal(t, []float64{0, 0, 2}, d[1].RawRowView(0))
	assert.Equal(t, []float64{0, 0, 0}, d[1].RawRowView(1))
}

func TestDenseSimilarityIdentity(t *testing.T) {
	v := []cva.Vector{{{Key: 1, Weight: 0.5}, {Key: 4, Weight: 2}}}
	for _, m := range []string{"Cosine", "Euclidean", "InterList", "InterSet", "Dice", "Jaccard"} {
		assert.InDelta(t, 1, DenseSimilarity(m, v, v).At(0, 0), 1e-12, m)
	}
	assert.InDelta(t, 2, DenseSimilarity("Min2Max", v, v).At(0, 0), 1e-12)
}

func TestZipf(t *testing.T) {
	rng := NewRNG(3)
	for i := 0; i < 100; i++ {
		v := rng.Zipf(10, 1.5)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}
	assert.Equal(t, 0, rng.Zipf(1, 1.5))
}
