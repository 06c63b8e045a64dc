package matrix

import (
	"fmt"
	"io"

	"github.com/hupe1980/cvnet/codec"
	"github.com/hupe1980/cvnet/persistence"
)

// Hit is one reciprocal best hit in local (row, col) coordinates.
type Hit struct {
	Row    int
	Col    int
	Weight float32
}

// RBH is the reciprocal-best-hit list of one genome pair, in row order.
type RBH struct {
	Header Header
	Hits   []Hit
}

// ComputeRBH returns every cell that is the maximum of its row and no other
// cell of its column is strictly greater. The row maximum is the first
// column holding the largest value, so every row yields at most one hit.
func ComputeRBH(m *Matrix) *RBH {
	h := m.header
	h.NSize = Dense
	out := &RBH{Header: h}
	if m.nrow == 0 || m.ncol == 0 {
		return out
	}

	colMax := make([]float32, m.ncol)
	copy(colMax, m.Row(0))
	for r := 1; r < m.nrow; r++ {
		for c, v := range m.Row(r) {
			if v > colMax[c] {
				colMax[c] = v
			}
		}
	}

	for r := 0; r < m.nrow; r++ {
		row := m.Row(r)
		best := 0
		for c := 1; c < len(row); c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		w := row[best]
		if w < colMax[best] {
			continue
		}
		out.Hits = append(out.Hits, Hit{Row: r, Col: best, Weight: w})
	}
	return out
}

// MinWeight returns the smallest hit weight and false if there are no hits.
func (l *RBH) MinWeight() (float32, bool) {
	if len(l.Hits) == 0 {
		return 0, false
	}
	lo := l.Hits[0].Weight
	for _, h := range l.Hits[1:] {
		lo = min(lo, h.Weight)
	}
	return lo, true
}

// Write encodes the list: the matrix header with NSize set to the hit count,
// then [row u64][col u64][weight f32] per hit.
func (l *RBH) Write(w io.Writer) error {
	bw := persistence.NewWriter(w)
	h := l.Header
	h.NSize = int64(len(l.Hits))
	writeHeader(bw, h)
	for _, hit := range l.Hits {
		bw.Uint64(uint64(hit.Row))
		bw.Uint64(uint64(hit.Col))
		bw.Float32(hit.Weight)
	}
	return bw.Flush()
}

// ReadRBH decodes a list written by (*RBH).Write.
func ReadRBH(r io.Reader) (*RBH, error) {
	br := persistence.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if h.NSize < 0 || h.NSize > min(h.NRow, h.NCol) {
		return nil, fmt.Errorf("%w: %d hits for %dx%d", ErrCorrupt, h.NSize, h.NRow, h.NCol)
	}

	out := &RBH{Header: h, Hits: make([]Hit, 0, h.NSize)}
	out.Header.NSize = Dense
	for i := int64(0); i < h.NSize; i++ {
		row, col := br.Uint64(), br.Uint64()
		w := br.Float32()
		if err := br.Err(); err != nil {
			return nil, fmt.Errorf("%w: hit %d: %w", ErrCorrupt, i, err)
		}
		if row >= uint64(h.NRow) || col >= uint64(h.NCol) {
			return nil, fmt.Errorf("%w: hit (%d,%d) outside %dx%d", ErrCorrupt, row, col, h.NRow, h.NCol)
		}
		out.Hits = append(out.Hits, Hit{Row: int(row), Col: int(col), Weight: w})
	}
	if err := br.ExpectEOF(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return out, nil
}

// SaveRBH writes l to path as one compressed stream.
func SaveRBH(path string, l *RBH, c codec.Codec) error {
	return save(path, c, l.Write)
}

// LoadRBH reads an RBH file.
func LoadRBH(path string) (*RBH, error) {
	var l *RBH
	err := load(path, func(r io.Reader) (err error) {
		l, err = ReadRBH(r)
		return err
	})
	return l, err
}
