package matrix

import (
	"fmt"
)

// Dense is the Header.NSize marker of a matrix stored cell by cell.
const Dense int64 = -1

// Header identifies a similarity matrix.
type Header struct {
	Row   string // row genome
	Col   string // column genome
	NRow  int64
	NCol  int64
	NSize int64 // Dense, or the number of stored (index, value) pairs
}

// NewHeader returns a dense header for a nrow x ncol matrix.
func NewHeader(row, col string, nrow, ncol int) Header {
	return Header{Row: row, Col: col, NRow: int64(nrow), NCol: int64(ncol), NSize: Dense}
}

// Cells returns nrow*ncol.
func (h Header) Cells() int64 { return h.NRow * h.NCol }

// Transpose swaps the row and column genomes.
func (h Header) Transpose() Header {
	return Header{Row: h.Col, Col: h.Row, NRow: h.NCol, NCol: h.NRow, NSize: h.NSize}
}

func (h Header) String() string {
	return fmt.Sprintf("%s-%s %dx%d", h.Row, h.Col, h.NRow, h.NCol)
}

// IndexError reports an access outside the matrix bounds. It is returned,
// never panicked, so a pair task can fail on its own.
type IndexError struct {
	Op   string
	Row  int
	Col  int
	NRow int
	NCol int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("matrix: %s (%d,%d) out of range %dx%d", e.Op, e.Row, e.Col, e.NRow, e.NCol)
}

// Matrix is a dense row-major similarity matrix.
type Matrix struct {
	header Header
	nrow   int
	ncol   int
	data   []float32
}

// New allocates a zero-filled matrix for h.
func New(h Header) *Matrix {
	m := &Matrix{}
	m.ResetByHeader(h, 0)
	return m
}

// ResetByHeader replaces the matrix with a fresh nrow*ncol buffer filled with
// fill. The stored header is always marked Dense.
func (m *Matrix) ResetByHeader(h Header, fill float32) {
	h.NSize = Dense
	m.header = h
	m.nrow = int(h.NRow)
	m.ncol = int(h.NCol)
	m.data = make([]float32, m.nrow*m.ncol)
	if fill != 0 {
		for i := range m.data {
			m.data[i] = fill
		}
	}
}

// Header returns the matrix header.
func (m *Matrix) Header() Header { return m.header }

// NRow returns the row count.
func (m *Matrix) NRow() int { return m.nrow }

// NCol returns the column count.
func (m *Matrix) NCol() int { return m.ncol }

// Data returns the row-major buffer. Its length is always NRow*NCol.
func (m *Matrix) Data() []float32 { return m.data }

// Row returns row r as a slice aliasing the buffer. r must be in range.
func (m *Matrix) Row(r int) []float32 {
	return m.data[r*m.ncol : (r+1)*m.ncol]
}

// Index maps (row, col) to the linear buffer index.
func (m *Matrix) Index(row, col int) int { return row*m.ncol + col }

// Coord maps a linear index back to (row, col).
func (m *Matrix) Coord(linear int) (row, col int) {
	return linear / m.ncol, linear % m.ncol
}

func (m *Matrix) check(op string, row, col int) error {
	if row < 0 || row >= m.nrow || col < 0 || col >= m.ncol {
		return &IndexError{Op: op, Row: row, Col: col, NRow: m.nrow, NCol: m.ncol}
	}
	return nil
}

// Get returns the value at (row, col).
func (m *Matrix) Get(row, col int) (float32, error) {
	if err := m.check("get", row, col); err != nil {
		return 0, err
	}
	return m.data[row*m.ncol+col], nil
}

// Set stores v at (row, col).
func (m *Matrix) Set(row, col int, v float32) error {
	if err := m.check("set", row, col); err != nil {
		return err
	}
	m.data[row*m.ncol+col] = v
	return nil
}

// Add adds v to the value at (row, col).
func (m *Matrix) Add(row, col int, v float32) error {
	if err := m.check("add", row, col); err != nil {
		return err
	}
	m.data[row*m.ncol+col] += v
	return nil
}

// Transpose returns the column-genome view of m as a new matrix.
func (m *Matrix) Transpose() *Matrix {
	t := New(m.header.Transpose())
	for r := 0; r < m.nrow; r++ {
		for c, v := range m.Row(r) {
			t.data[c*t.ncol+r] = v
		}
	}
	return t
}

// CountAtLeast returns the number of cells with value >= floor.
func (m *Matrix) CountAtLeast(floor float32) int {
	n := 0
	for _, v := range m.data {
		if v >= floor {
			n++
		}
	}
	return n
}
