package similarity

import (
	"math"

	"github.com/hupe1980/cvnet/cva"
)

// Cosine is the cosine of the angle between two weight vectors.
type Cosine struct{}

func (Cosine) Name() string       { return "Cosine" }
func (Cosine) Norm() cva.NormKind { return cva.NormL2 }

func (Cosine) Accumulate(acc float64, a, b float32) float64 {
	return acc + float64(a)*float64(b)
}

func (Cosine) Scale(acc float64, na, nb float32) float32 {
	d := float64(na) * float64(nb)
	if d == 0 {
		return 0
	}
	return float32(acc / d)
}

// Euclidean maps the distance between the L2-normalised vectors â and b̂ to
// a similarity: 1 - |â-b̂|/2, which is 1 for equal directions and 0 for
// opposite ones.
//
// For unit vectors |â-b̂|² = 2 - 2cos, so the distance follows from the dot
// product alone. The cells therefore accumulate a·b exactly like Cosine and
// Scale folds in both the normalisation and the closed form. Accumulating
// (â-b̂)² over shared columns instead would miss every dimension present in
// only one of the genes.
type Euclidean struct{}

func (Euclidean) Name() string       { return "Euclidean" }
func (Euclidean) Norm() cva.NormKind { return cva.NormL2 }

func (Euclidean) Accumulate(acc float64, a, b float32) float64 {
	return acc + float64(a)*float64(b)
}

func (Euclidean) Scale(acc float64, na, nb float32) float32 {
	d := float64(na) * float64(nb)
	if d == 0 {
		return 0
	}
	cos := acc / d
	return float32(1 - 0.5*math.Sqrt2*math.Sqrt(max(0, 1-cos)))
}

// InterList is the weighted overlap 2·Σmin(a,b) / (|a|₁+|b|₁).
type InterList struct{}

func (InterList) Name() string       { return "InterList" }
func (InterList) Norm() cva.NormKind { return cva.NormL1 }

func (InterList) Accumulate(acc float64, a, b float32) float64 {
	return acc + float64(min(a, b))
}

func (InterList) Scale(acc float64, na, nb float32) float32 {
	d := float64(na) + float64(nb)
	if d == 0 {
		return 0
	}
	return float32(2 * acc / d)
}

// Min2Max sums min(a,b)/max(a,b) over shared dimensions. The sum is used as is.
type Min2Max struct{}

func (Min2Max) Name() string       { return "Min2Max" }
func (Min2Max) Norm() cva.NormKind { return cva.NormL1 }

func (Min2Max) Accumulate(acc float64, a, b float32) float64 {
	hi := max(a, b)
	if hi == 0 {
		return acc
	}
	return acc + float64(min(a, b))/float64(hi)
}

func (Min2Max) Scale(acc float64, _, _ float32) float32 {
	return float32(acc)
}

// shared counts one per dimension present in both genes.
func shared(acc float64, _, _ float32) float64 { return acc + 1 }

// InterSet is |A∩B| / √(|A|·|B|) over the dimension sets.
type InterSet struct{}

func (InterSet) Name() string       { return "InterSet" }
func (InterSet) Norm() cva.NormKind { return cva.NormL0 }

func (InterSet) Accumulate(acc float64, a, b float32) float64 { return shared(acc, a, b) }

func (InterSet) Scale(acc float64, na, nb float32) float32 {
	d := math.Sqrt(float64(na) * float64(nb))
	if d == 0 {
		return 0
	}
	return float32(acc / d)
}

// Dice is 2|A∩B| / (|A|+|B|).
type Dice struct{}

func (Dice) Name() string       { return "Dice" }
func (Dice) Norm() cva.NormKind { return cva.NormL0 }

func (Dice) Accumulate(acc float64, a, b float32) float64 { return shared(acc, a, b) }

func (Dice) Scale(acc float64, na, nb float32) float32 {
	d := float64(na) + float64(nb)
	if d == 0 {
		return 0
	}
	return float32(2 * acc / d)
}

// Jaccard is |A∩B| / |A∪B|. It is also registered as ItoU.
type Jaccard struct{}

func (Jaccard) Name() string       { return "Jaccard" }
func (Jaccard) Norm() cva.NormKind { return cva.NormL0 }

func (Jaccard) Accumulate(acc float64, a, b float32) float64 { return shared(acc, a, b) }

func (Jaccard) Scale(acc float64, na, nb float32) float32 {
	d := float64(na) + float64(nb) - acc
	if d <= 0 {
		return 0
	}
	return float32(acc / d)
}
