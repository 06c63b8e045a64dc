package source

import (
	"fmt"
	"slices"
)

// Method turns the genes of a genome into composition vectors.
type Method interface {
	Name() string
	// KMin is the smallest supported k.
	KMin() int
	// Vector computes the composition vector of one gene.
	Vector(a *Alphabet, gene []byte, k int) []cvEntry
}

type cvEntry struct {
	key    uint64
	weight float64
}

// MethodByName returns "Count" or "Hao".
func MethodByName(name string) (Method, error) {
	switch name {
	case "Count":
		return Count{}, nil
	case "Hao":
		return Hao{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// CheckK validates k against the method and alphabet.
func CheckK(m Method, a *Alphabet, k int) error {
	if k < m.KMin() || k > a.KMax() {
		return fmt.Errorf("%w: %s with %s letters needs k in [%d,%d], got %d",
			ErrInvalidK, m.Name(), a.Name(), m.KMin(), a.KMax(), k)
	}
	return nil
}

func sortedEntries(m map[uint64]float64) []cvEntry {
	out := make([]cvEntry, 0, len(m))
	for k, w := range m {
		out = append(out, cvEntry{key: k, weight: w})
	}
	slices.SortFunc(out, func(a, b cvEntry) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	return out
}

// Count weights every k-mer by its number of occurrences.
type Count struct{}

func (Count) Name() string { return "Count" }
func (Count) KMin() int    { return 1 }

func (Count) Vector(a *Alphabet, gene []byte, k int) []cvEntry {
	counts := make(map[uint64]float64)
	a.Count(gene, k, counts)
	return sortedEntries(counts)
}

// Hao subtracts the (k-2)-order Markov prediction from the k-mer counts:
// w = (n - n0) / n0 with n0 = factor * n(k-1 prefix) * n(k-1 suffix) / n(k-2 middle)
// and factor = N(k) * N(k-2) / N(k-1)^2 over the window totals N.
type Hao struct{}

func (Hao) Name() string { return "Hao" }
func (Hao) KMin() int    { return 3 }

func (Hao) Vector(a *Alphabet, gene []byte, k int) []cvEntry {
	nk, nk1, nk2 := map[uint64]float64{}, map[uint64]float64{}, map[uint64]float64{}
	tk := float64(a.Count(gene, k, nk))
	tk1 := float64(a.Count(gene, k-1, nk1))
	tk2 := float64(a.Count(gene, k-2, nk2))
	if tk == 0 || tk1 == 0 {
		return nil
	}
	factor := tk * tk2 / (tk1 * tk1)

	n := uint64(a.Size())
	head := pow(a.Size(), k-2)
	head1 := pow(a.Size(), k-1)
	out := make(map[uint64]float64)
	for mid, cmid := range nk2 {
		for c := uint64(0); c < n; c++ {
			suffix := mid*n + c
			csuf, ok := nk1[suffix]
			if !ok {
				continue
			}
			for d := uint64(0); d < n; d++ {
				prefix := d*head + mid
				cpre, ok := nk1[prefix]
				if !ok {
					continue
				}
				key := d*head1 + suffix
				n0 := factor * cpre * csuf / cmid
				out[key] = (nk[key] - n0) / n0
			}
		}
	}
	return sortedEntries(out)
}
