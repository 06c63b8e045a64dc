package edge

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cvnet/matrix"
)

// Cutoff keeps every cell at or above the threshold.
type Cutoff struct {
	threshold float32
}

func (s *Cutoff) Name() string       { return "CUT" }
func (s *Cutoff) Directed() bool     { return false }
func (s *Cutoff) ReadsMatrix() bool  { return true }
func (s *Cutoff) Threshold() float32 { return s.threshold }

func (s *Cutoff) Select(ctx context.Context, p PairArtifact, idx Lookup) ([]Edge, error) {
	m, err := p.Matrix(ctx)
	if err != nil {
		return nil, err
	}
	dr, dc, err := offsets(idx, m.Header())
	if err != nil {
		return nil, err
	}
	es := cutoff(m, s.threshold, nil)
	ShiftAll(es, dr, dc)
	return es, nil
}

// MutualBest keeps the reciprocal best hits strictly above the threshold.
type MutualBest struct {
	threshold float32
}

func (s *MutualBest) Name() string       { return "RBH" }
func (s *MutualBest) Directed() bool     { return false }
func (s *MutualBest) ReadsMatrix() bool  { return false }
func (s *MutualBest) Threshold() float32 { return s.threshold }

func (s *MutualBest) Select(ctx context.Context, p PairArtifact, idx Lookup) ([]Edge, error) {
	l, err := p.RBH(ctx)
	if err != nil {
		return nil, err
	}
	dr, dc, err := offsets(idx, l.Header)
	if err != nil {
		return nil, err
	}
	var es []Edge
	for _, h := range l.Hits {
		if h.Weight > s.threshold {
			es = append(es, Edge{Row: h.Row + dr, Col: h.Col + dc, Weight: h.Weight})
		}
	}
	return es, nil
}

// SoftMutualBest keeps every cell at or above the weakest reciprocal best hit
// of the pair, but never below the threshold. A pair without hits yields no
// edges.
type SoftMutualBest struct {
	threshold float32
}

func (s *SoftMutualBest) Name() string       { return "SRB" }
func (s *SoftMutualBest) Directed() bool     { return false }
func (s *SoftMutualBest) ReadsMatrix() bool  { return true }
func (s *SoftMutualBest) Threshold() float32 { return s.threshold }

// Floor returns the admission floor derived from l.
func (s *SoftMutualBest) Floor(l *matrix.RBH) float32 {
	lo, ok := l.MinWeight()
	if !ok {
		return float32(math.Inf(1))
	}
	return max(lo, s.threshold)
}

func (s *SoftMutualBest) Select(ctx context.Context, p PairArtifact, idx Lookup) ([]Edge, error) {
	l, err := p.RBH(ctx)
	if err != nil {
		return nil, err
	}
	floor := s.Floor(l)
	if math.IsInf(float64(floor), 1) {
		return nil, nil
	}
	m, err := p.Matrix(ctx)
	if err != nil {
		return nil, err
	}
	dr, dc, err := offsets(idx, m.Header())
	if err != nil {
		return nil, err
	}
	es := cutoff(m, floor, nil)
	ShiftAll(es, dr, dc)
	return es, nil
}

// GeneMutualBest gives every gene its own admission floor: the weakest
// reciprocal best hit the gene took part in over all genome pairs, raised to
// the threshold. Genes without any hit admit nothing. Each cell is tested
// once per endpoint, so the result is directed.
type GeneMutualBest struct {
	threshold float32
	workers   int

	floors       []float32
	participants *roaring.Bitmap
}

func (s *GeneMutualBest) Name() string       { return "GRB" }
func (s *GeneMutualBest) Directed() bool     { return true }
func (s *GeneMutualBest) ReadsMatrix() bool  { return true }
func (s *GeneMutualBest) Threshold() float32 { return s.threshold }

// Init scans the RBH lists of all pairs. Workers fold into private tables
// which are merged into the shared floor table under one lock.
func (s *GeneMutualBest) Init(ctx context.Context, pairs []PairArtifact, idx Lookup, ngene int) error {
	inf := float32(math.Inf(1))
	floors := make([]float32, ngene)
	for i := range floors {
		floors[i] = inf
	}
	participants := roaring.New()

	workers := max(1, min(s.workers, len(pairs)))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := make([]float32, ngene)
			for i := range local {
				local[i] = inf
			}
			seen := roaring.New()

			for i := w; i < len(pairs); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				l, err := pairs[i].RBH(gctx)
				if err != nil {
					return err
				}
				dr, dc, err := offsets(idx, l.Header)
				if err != nil {
					return err
				}
				for _, h := range l.Hits {
					r, c := h.Row+dr, h.Col+dc
					if r >= ngene || c >= ngene {
						return fmt.Errorf("edge: hit (%d,%d) outside %d genes", r, c, ngene)
					}
					local[r] = min(local[r], h.Weight)
					local[c] = min(local[c], h.Weight)
					seen.Add(uint32(r))
					seen.Add(uint32(c))
				}
			}

			mu.Lock()
			defer mu.Unlock()
			it := seen.Iterator()
			for it.HasNext() {
				gene := it.Next()
				floors[gene] = min(floors[gene], local[gene])
			}
			participants.Or(seen)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	it := participants.Iterator()
	for it.HasNext() {
		gene := it.Next()
		floors[gene] = max(floors[gene], s.threshold)
	}
	s.floors = floors
	s.participants = participants
	return nil
}

// Floor returns the admission floor of a global gene id.
func (s *GeneMutualBest) Floor(gene int) float32 { return s.floors[gene] }

// Participants returns how many genes took part in at least one RBH.
func (s *GeneMutualBest) Participants() uint64 {
	if s.participants == nil {
		return 0
	}
	return s.participants.GetCardinality()
}

func (s *GeneMutualBest) Select(ctx context.Context, p PairArtifact, idx Lookup) ([]Edge, error) {
	if s.floors == nil {
		return nil, ErrNotInitialized
	}
	m, err := p.Matrix(ctx)
	if err != nil {
		return nil, err
	}
	dr, dc, err := offsets(idx, m.Header())
	if err != nil {
		return nil, err
	}
	if dr+m.NRow() > len(s.floors) || dc+m.NCol() > len(s.floors) {
		return nil, fmt.Errorf("edge: pair %s outside %d genes", m.Header(), len(s.floors))
	}

	var es []Edge
	for i := 0; i < m.NRow(); i++ {
		gi := dr + i
		fi := s.floors[gi]
		for j, v := range m.Row(i) {
			gj := dc + j
			if v >= fi {
				es = append(es, Edge{Row: gi, Col: gj, Weight: v})
			}
			if v >= s.floors[gj] {
				es = append(es, Edge{Row: gj, Col: gi, Weight: v})
			}
		}
	}
	return es, nil
}
