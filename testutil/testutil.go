package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/cvnet/cva"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// SparseVectors generates the composition vectors of one genome: genes
// vectors with up to dims distinct keys drawn from [0, keySpace).
// Keys follow a Zipf law so that genomes generated from the same key space
// share dimensions. Weights are in (0, 1] when positive is set, else in
// [-1, 1). Roughly one gene in ten is left empty.
func (r *RNG) SparseVectors(genes, dims int, keySpace uint64, positive bool) []cva.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	zipf := rand.NewZipf(r.rand, 1.2, 1, keySpace-1)
	out := make([]cva.Vector, genes)
	for g := range out {
		if r.rand.Intn(10) == 0 {
			continue
		}
		n := 1 + r.rand.Intn(dims)
		seen := make(map[uint64]struct{}, n)
		// The Zipf tail is short on small key spaces; bound the attempts.
		for tries := 0; len(out[g]) < n && tries < 8*n; tries++ {
			k := zipf.Uint64()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			w := 1 - r.rand.Float32()
			if !positive {
				w = r.rand.Float32()*2 - 1
				if w == 0 {
					w = 0.5
				}
			}
			out[g] = append(out[g], cva.Component{Key: k, Weight: w})
		}
	}
	return out
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// Densify lays out the vectors of several genomes as rows of dense matrices
// over the union of their keys, one matrix per genome, in key order.
func Densify(genomes ...[]cva.Vector) []*mat.Dense {
	keySet := make(map[uint64]struct{})
	for _, vecs := range genomes {
		for _, v := range vecs {
			for _, c := range v {
				keySet[c.Key] = struct{}{}
			}
		}
	}
	keys := make([]uint64, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	col := make(map[uint64]int, len(keys))
	for i, k := range keys {
		col[k] = i
	}

	ncol := max(len(keys), 1)
	out := make([]*mat.Dense, len(genomes))
	for gi, vecs := range genomes {
		d := mat.NewDense(max(len(vecs), 1), ncol, nil)
		for r, v := range vecs {
			for _, c := range v {
				j := col[c.Key]
				d.Set(r, j, d.At(r, j)+float64(c.Weight))
			}
		}
		out[gi] = d
	}
	return out
}

// DenseSimilarity computes the similarity of every gene of a against every
// gene of b from dense rows, straight from each method's definition.
// Empty genes score 0. It panics on unknown method names.
func DenseSimilarity(method string, a, b []cva.Vector) *mat.Dense {
	d := Densify(a, b)
	out := mat.NewDense(max(len(a), 1), max(len(b), 1), nil)
	for i := range a {
		x := d[0].RawRowView(i)
		for j := range b {
			y := d[1].RawRowView(j)
			out.Set(i, j, pairSimilarity(method, x, y))
		}
	}
	return out
}

func pairSimilarity(method string, x, y []float64) float64 {
	switch method {
	case "Cosine":
		nx, ny := floats.Norm(x, 2), floats.Norm(y, 2)
		if nx == 0 || ny == 0 {
			return 0
		}
		return floats.Dot(x, y) / (nx * ny)
	case "Euclidean":
		nx, ny := floats.Norm(x, 2), floats.Norm(y, 2)
		if nx == 0 || ny == 0 {
			return 0
		}
		ux := make([]float64, len(x))
		uy := make([]float64, len(y))
		floats.ScaleTo(ux, 1/nx, x)
		floats.ScaleTo(uy, 1/ny, y)
		return 1 - floats.Distance(ux, uy, 2)/2
	case "InterList":
		var inter float64
		for k := range x {
			if x[k] != 0 && y[k] != 0 {
				inter += math.Min(x[k], y[k])
			}
		}
		s := l1(x) + l1(y)
		if s == 0 {
			return 0
		}
		return 2 * inter / s
	case "Min2Max":
		var sum float64
		for k := range x {
			if x[k] != 0 && y[k] != 0 {
				if hi := math.Max(x[k], y[k]); hi != 0 {
					sum += math.Min(x[k], y[k]) / hi
				}
			}
		}
		return sum
	case "InterSet", "Dice", "Jaccard":
		var inter, nx, ny float64
		for k := range x {
			if x[k] != 0 {
				nx++
			}
			if y[k] != 0 {
				ny++
			}
			if x[k] != 0 && y[k] != 0 {
				inter++
			}
		}
		switch method {
		case "InterSet":
			if nx*ny == 0 {
				return 0
			}
			return inter / math.Sqrt(nx*ny)
		case "Dice":
			if nx+ny == 0 {
				return 0
			}
			return 2 * inter / (nx + ny)
		default:
			if nx+ny-inter == 0 {
				return 0
			}
			return inter / (nx + ny - inter)
		}
	}
	panic("testutil: unknown method " + method)
}

func l1(x []float64) float64 {
	return floats.Norm(x, 1)
}
