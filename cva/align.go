package cva

import (
	"cmp"
	"slices"
)

// Pair links column A of one array to column B of another with the same key.
type Pair struct {
	A int
	B int
}

// Align returns the columns shared by a and b, in increasing order of both
// indices.
//
// The cursor into b only moves forward: each key of a is located by a
// lower-bound binary search over the unvisited suffix of b.
func Align(a, b *Array) []Pair {
	return alignFunc(a.columns, b.columns, func(c Column) uint64 { return c.Key })
}

// AlignKeys is Align over plain sorted key slices.
func AlignKeys(ka, kb []uint64) []Pair {
	return alignFunc(ka, kb, func(k uint64) uint64 { return k })
}

func alignFunc[T any](as, bs []T, key func(T) uint64) []Pair {
	var out []Pair
	j := 0
	for i := range as {
		if j >= len(bs) {
			break
		}
		k := key(as[i])
		off, found := slices.BinarySearchFunc(bs[j:], k, func(e T, t uint64) int {
			return cmp.Compare(key(e), t)
		})
		j += off
		if found {
			out = append(out, Pair{A: i, B: j})
			j++
		}
	}
	return out
}
