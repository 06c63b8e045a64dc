package edge

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cvnet/matrix"
)

type lookup map[string]int

func (l lookup) Offset(g string) (int, bool) {
	v, ok := l[g]
	return v, ok
}

type pair struct {
	m   *matrix.Matrix
	err error
}

func (p *pair) Matrix(context.Context) (*matrix.Matrix, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.m, nil
}

func (p *pair) RBH(context.Context) (*matrix.RBH, error) {
	if p.err != nil {
		return nil, p.err
	}
	return matrix.ComputeRBH(p.m), nil
}

func newPair(row, col string, rows [][]float32) *pair {
	m := matrix.New(matrix.NewHeader(row, col, len(rows), len(rows[0])))
	for r, vals := range rows {
		copy(m.Row(r), vals)
	}
	return &pair{m: m}
}

var ctx = context.Background()

func TestEdgeShift(t *testing.T) {
	e := Edge{Row: 1, Col: 2, Weight: 0.5}
	assert.Equal(t, Edge{Row: 11, Col: 22, Weight: 0.5}, e.Shift(10, 20))
	assert.Equal(t, Edge{Row: 2, Col: 1, Weight: 0.5}, e.Reverse())

	es := []Edge{{0, 0, 1}, {1, 3, 2}}
	ShiftAll(es, 5, 7)
	assert.Equal(t, []Edge{{5, 7, 1}, {6, 10, 2}}, es)
}

func TestNew(t *testing.T) {
	for _, name := range []string{"CUT", "RBH", "SRB", "GRB", "cut", "grb"} {
		s, err := New(name, 0.3)
		require.NoError(t, err, name)
		assert.Equal(t, float32(0.3), s.Threshold())
	}

	s, _ := New("GRB", 0)
	assert.True(t, s.Directed())
	_, isInit := s.(Initializer)
	assert.True(t, isInit)

	for _, name := range []string{"CUT", "RBH", "SRB"} {
		s, _ := New(name, 0)
		assert.False(t, s.Directed(), name)
		assert.Equal(t, name, s.Name())
	}

	for name, want := range map[string]bool{"CUT": true, "RBH": false, "SRB": true, "GRB": true} {
		s, _ := New(name, 0)
		assert.Equal(t, want, s.ReadsMatrix(), name)
	}

	_, err := New("RBHP", 0)
	assert.ErrorIs(t, err, ErrUnknownMethod)
	assert.Equal(t, []string{"CUT", "GRB", "RBH", "SRB"}, Names())
}

func TestCutoff(t *testing.T) {
	p := newPair("A", "B", [][]float32{{0.9, 0.2}, {0.5, 0.49}})
	idx := lookup{"A": 0, "B": 2}

	s, _ := New("CUT", 0.5)
	es, err := s.Select(ctx, p, idx)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{0, 2, 0.9}, {1, 2, 0.5}}, es)
}

func TestMutualBest(t *testing.T) {
	p := newPair("A", "B", [][]float32{
		{0.9, 0.1, 0.2},
		{0.95, 0.3, 0.1},
		{0.2, 0.4, 0.8},
	})
	idx := lookup{"A": 10, "B": 20}

	s, _ := New("RBH", 0.8)
	es, err := s.Select(ctx, p, idx)
	require.NoError(t, err)
	// 0.8 is not strictly above the threshold.
	assert.Equal(t, []Edge{{11, 20, 0.95}}, es)
}

func TestRBHSubsetOfCutoffZero(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rbh, _ := New("RBH", 0)
	cut, _ := New("CUT", 0)
	idx := lookup{"A": 0, "B": 6}

	for round := 0; round < 20; round++ {
		rows := make([][]float32, 6)
		for i := range rows {
			rows[i] = make([]float32, 5)
			for j := range rows[i] {
				if rng.Intn(3) > 0 {
					rows[i][j] = rng.Float32()
				}
			}
		}
		p := newPair("A", "B", rows)

		best, err := rbh.Select(ctx, p, idx)
		require.NoError(t, err)
		all, err := cut.Select(ctx, p, idx)
		require.NoError(t, err)
		for _, e := range best {
			assert.Contains(t, all, e)
		}
	}
}

func TestSoftMutualBest(t *testing.T) {
	p := newPair("A", "B", [][]float32{
		{0.9, 0.1, 0.6},
		{0.95, 0.3, 0.1},
		{0.2, 0.4, 0.7},
	})
	idx := lookup{"A": 0, "B": 3}

	// RBH weights 0.95 and 0.7: floor is 0.7.
	s, _ := New("SRB", 0.1)
	es, err := s.Select(ctx, p, idx)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{0, 3, 0.9}, {1, 3, 0.95}, {2, 5, 0.7}}, es)

	// A high threshold wins over the weak RBH.
	s, _ = New("SRB", 0.92)
	es, err = s.Select(ctx, p, idx)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{1, 3, 0.95}}, es)
}

func TestSoftMutualBestWithoutHits(t *testing.T) {
	p := newPair("A", "B", [][]float32{{0.5}})
	s := &SoftMutualBest{threshold: 0}
	assert.True(t, math.IsInf(float64(s.Floor(&matrix.RBH{})), 1))

	empty := &pair{m: matrix.New(matrix.NewHeader("A", "B", 0, 0))}
	es, err := s.Select(ctx, empty, lookup{"A": 0, "B": 0})
	require.NoError(t, err)
	assert.Empty(t, es)

	es, err = s.Select(ctx, p, lookup{"A": 0, "B": 1})
	require.NoError(t, err)
	assert.Equal(t, []Edge{{0, 1, 0.5}}, es)
}

func TestGeneMutualBestFloors(t *testing.T) {
	// Gene A0 (global 0) is an RBH in A-B at 0.9 and in A-C at 0.4.
	ab := newPair("A", "B", [][]float32{{0.9, 0.5}, {0.3, 0.1}})
	ac := newPair("A", "C", [][]float32{{0.3, 0.4}, {0.1, 0.2}})
	idx := lookup{"A": 0, "B": 2, "C": 4}

	s, err := New("GRB", 0.1, WithWorkers(2))
	require.NoError(t, err)
	grb := s.(*GeneMutualBest)

	_, err = grb.Select(ctx, ab, idx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, grb.Init(ctx, []PairArtifact{ab, ac}, idx, 6))

	assert.Equal(t, float32(0.4), grb.Floor(0))
	assert.Equal(t, float32(0.9), grb.Floor(2))
	assert.Equal(t, float32(0.4), grb.Floor(5))
	assert.True(t, math.IsInf(float64(grb.Floor(1)), 1))
	assert.Equal(t, uint64(3), grb.Participants())

	es, err := grb.Select(ctx, ab, idx)
	require.NoError(t, err)
	// 0 -> 3 at 0.5 passes gene 0's floor; 3 -> 0 does not (gene 3 has no hit).
	assert.ElementsMatch(t, []Edge{{0, 2, 0.9}, {2, 0, 0.9}, {0, 3, 0.5}}, es)

	es, err = grb.Select(ctx, ac, idx)
	require.NoError(t, err)
	// 0 -> 4 at 0.3 is below gene 0's floor.
	assert.ElementsMatch(t, []Edge{{0, 5, 0.4}, {5, 0, 0.4}}, es)
}

func TestGeneMutualBestThresholdFloor(t *testing.T) {
	ab := newPair("A", "B", [][]float32{{0.2}})
	s, _ := New("GRB", 0.5)
	grb := s.(*GeneMutualBest)
	require.NoError(t, grb.Init(ctx, []PairArtifact{ab}, lookup{"A": 0, "B": 1}, 2))
	assert.Equal(t, float32(0.5), grb.Floor(0))

	es, err := grb.Select(ctx, ab, lookup{"A": 0, "B": 1})
	require.NoError(t, err)
	assert.Empty(t, es)
}

func TestGeneMutualBestWorkersAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	idx := lookup{}
	names := []string{"A", "B", "C", "D", "E"}
	for i, n := range names {
		idx[n] = i * 4
	}
	var pairs []PairArtifact
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			rows := make([][]float32, 4)
			for r := range rows {
				rows[r] = make([]float32, 4)
				for c := range rows[r] {
					rows[r][c] = rng.Float32()
				}
			}
			pairs = append(pairs, newPair(names[i], names[j], rows))
		}
	}

	one := &GeneMutualBest{threshold: 0.2, workers: 1}
	many := &GeneMutualBest{threshold: 0.2, workers: 4}
	require.NoError(t, one.Init(ctx, pairs, idx, 20))
	require.NoError(t, many.Init(ctx, pairs, idx, 20))
	assert.Equal(t, one.floors, many.floors)
}

func TestSelectErrors(t *testing.T) {
	boom := errors.New("boom")
	bad := &pair{err: boom}
	for _, name := range Names() {
		s, _ := New(name, 0)
		if init, ok := s.(Initializer); ok {
			assert.ErrorIs(t, init.Init(ctx, []PairArtifact{bad}, lookup{}, 1), boom)
			require.NoError(t, init.Init(ctx, nil, lookup{}, 1))
		}
		_, err := s.Select(ctx, bad, lookup{})
		assert.ErrorIs(t, err, boom, name)

		_, err = s.Select(ctx, newPair("A", "B", [][]float32{{1}}), lookup{"A": 0})
		assert.ErrorIs(t, err, ErrUnknownGenome, name)
	}
}
