package cva

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/tidwall/btree"
)

// Component is one (k-mer key, weight) dimension of a composition vector.
type Component struct {
	Key    uint64
	Weight float32
}

// Vector is the sparse composition vector of one gene.
// Components may come in any order; repeated keys are summed.
type Vector []Component

// Entry is one gene's weight inside a column.
type Entry struct {
	Gene   uint32
	Weight float32
}

// Column describes the entries of one k-mer key as the half-open range
// [Start, End) of the array's entry slice.
type Column struct {
	Key   uint64
	Start uint64
	End   uint64
}

// Len returns the number of entries in the column.
func (c Column) Len() int { return int(c.End - c.Start) }

// NormKind selects one of the per-gene norms.
type NormKind int

const (
	// NormL0 is the number of non-zero dimensions of a gene.
	NormL0 NormKind = iota
	// NormL1 is the sum of absolute weights.
	NormL1
	// NormL2 is the Euclidean length.
	NormL2
)

func (k NormKind) String() string {
	switch k {
	case NormL0:
		return "L0"
	case NormL1:
		return "L1"
	case NormL2:
		return "L2"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Norms holds the three precomputed norms of one gene.
type Norms struct {
	L0 float32
	L1 float32
	L2 float32
}

// Get returns the norm of the given kind.
func (n Norms) Get(kind NormKind) float32 {
	switch kind {
	case NormL0:
		return n.L0
	case NormL1:
		return n.L1
	default:
		return n.L2
	}
}

// ErrNormDiscarded is returned by SelectNorm when a different norm was
// already selected and the remaining ones were dropped.
var ErrNormDiscarded = errors.New("norm already discarded")

const noNorm NormKind = -1

// Array is the composition-vector array of one genome.
type Array struct {
	genes   int
	columns []Column
	entries []Entry

	// norms is dropped by SelectNorm; norm then holds the selected kind.
	norms    []Norms
	norm     []float32
	selected NormKind
}

// Build creates an array from the composition vectors of a genome's genes.
// Gene i of the array is vectors[i]; genes with empty vectors are kept so
// that gene indices match the input order.
func Build(vectors []Vector) *Array {
	var byKey btree.Map[uint64, []Entry]
	for g, vec := range vectors {
		gene := uint32(g)
		for _, c := range vec {
			es, _ := byKey.Get(c.Key)
			if n := len(es); n > 0 && es[n-1].Gene == gene {
				es[n-1].Weight += c.Weight
			} else {
				es = append(es, Entry{Gene: gene, Weight: c.Weight})
			}
			byKey.Set(c.Key, es)
		}
	}

	a := &Array{
		genes:    len(vectors),
		columns:  make([]Column, 0, byKey.Len()),
		entries:  []Entry{},
		selected: noNorm,
	}
	byKey.Scan(func(key uint64, es []Entry) bool {
		start := uint64(len(a.entries))
		a.entries = append(a.entries, es...)
		a.columns = append(a.columns, Column{Key: key, Start: start, End: uint64(len(a.entries))})
		return true
	})
	a.norms = computeNorms(a.genes, a.entries)
	return a
}

// computeNorms derives the per-gene norms from the columnar layout. Build and
// Decode both use it, so reloaded arrays carry bit-identical norms.
func computeNorms(genes int, entries []Entry) []Norms {
	l0 := make([]float64, genes)
	l1 := make([]float64, genes)
	l2 := make([]float64, genes)
	for _, e := range entries {
		w := float64(e.Weight)
		l0[e.Gene]++
		l1[e.Gene] += math.Abs(w)
		l2[e.Gene] += w * w
	}

	norms := make([]Norms, genes)
	for g := range norms {
		norms[g] = Norms{
			L0: float32(l0[g]),
			L1: float32(l1[g]),
			L2: float32(math.Sqrt(l2[g])),
		}
	}
	return norms
}

// GeneCount returns the number of genes.
func (a *Array) GeneCount() int { return a.genes }

// ColumnCount returns the number of distinct k-mer keys.
func (a *Array) ColumnCount() int { return len(a.columns) }

// EntryCount returns the total number of (gene, weight) entries.
func (a *Array) EntryCount() int { return len(a.entries) }

// ColumnInfo returns the descriptor of column i.
func (a *Array) ColumnInfo(i int) Column { return a.columns[i] }

// Column returns the entries of column i, sorted by gene.
// The returned slice aliases the array and must not be modified.
func (a *Array) Column(i int) []Entry {
	c := a.columns[i]
	return a.entries[c.Start:c.End]
}

// Columns iterates the columns in key order.
func (a *Array) Columns() iter.Seq2[uint64, []Entry] {
	return func(yield func(uint64, []Entry) bool) {
		for _, c := range a.columns {
			if !yield(c.Key, a.entries[c.Start:c.End]) {
				return
			}
		}
	}
}

// Keys returns a copy of the column keys in increasing order.
func (a *Array) Keys() []uint64 {
	keys := make([]uint64, len(a.columns))
	for i, c := range a.columns {
		keys[i] = c.Key
	}
	return keys
}

// GeneNorms returns all three norms of gene i. It panics after SelectNorm.
func (a *Array) GeneNorms(i int) Norms { return a.norms[i] }

// SelectNorm keeps the norm of the given kind as the active norm array and
// drops the other two. Selecting the same kind again is a no-op.
func (a *Array) SelectNorm(kind NormKind) error {
	if kind < NormL0 || kind > NormL2 {
		return fmt.Errorf("cva: invalid norm kind %d", int(kind))
	}
	if a.norms == nil {
		if a.selected == kind {
			return nil
		}
		return fmt.Errorf("%w: have %s, want %s", ErrNormDiscarded, a.selected, kind)
	}

	a.norm = make([]float32, len(a.norms))
	for i, n := range a.norms {
		a.norm[i] = n.Get(kind)
	}
	a.norms = nil
	a.selected = kind
	return nil
}

// Selected reports the active norm kind and whether one was selected.
func (a *Array) Selected() (NormKind, bool) {
	return a.selected, a.selected != noNorm
}

// Norms returns the active per-gene norm array. It is nil until SelectNorm.
func (a *Array) Norms() []float32 { return a.norm }

// MemoryUsage estimates the heap bytes held by the array.
func (a *Array) MemoryUsage() int64 {
	return int64(len(a.columns))*24 + int64(len(a.entries))*8 +
		int64(len(a.norms))*12 + int64(len(a.norm))*4
}
