package cva

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignKeys(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []uint64
		expect []Pair
	}{
		{"Empty", nil, nil, nil},
		{"EmptyB", []uint64{1, 2}, nil, nil},
		{"Disjoint", []uint64{1, 3, 5}, []uint64{2, 4, 6}, nil},
		{"Identical", []uint64{1, 2, 3}, []uint64{1, 2, 3}, []Pair{{0, 0}, {1, 1}, {2, 2}}},
		{"Interleaved", []uint64{1, 4, 9, 12}, []uint64{0, 4, 5, 12, 20}, []Pair{{1, 1}, {3, 3}}},
		{"APastB", []uint64{100, 200}, []uint64{1, 2, 100}, []Pair{{0, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, AlignKeys(tt.a, tt.b))
		})
	}
}

func naiveIntersect(a, b []uint64) []Pair {
	var out []Pair
	for i, ka := range a {
		for j, kb := range b {
			if ka == kb {
				out = append(out, Pair{i, j})
			}
		}
	}
	return out
}

func TestAlignMatchesNaiveIntersection(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		a := Build(randomVectors(rng, 10, 30, 200))
		b := Build(randomVectors(rng, 12, 30, 200))

		got := Align(a, b)
		assert.Equal(t, naiveIntersect(a.Keys(), b.Keys()), got)

		for _, p := range got {
			assert.Equal(t, a.ColumnInfo(p.A).Key, b.ColumnInfo(p.B).Key)
		}
	}
}
