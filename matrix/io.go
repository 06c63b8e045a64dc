package matrix

import (
	"fmt"
	"io"
	"slices"

	"github.com/hupe1980/cvnet/codec"
	"github.com/hupe1980/cvnet/persistence"
)

// ErrCorrupt reports a matrix or RBH stream that violates its format.
var ErrCorrupt = persistence.ErrCorrupt

// MaxCells bounds nrow*ncol accepted from a stream header.
var MaxCells int64 = 1 << 32

// Stream layout (little-endian, inside one compressed stream):
//
//	rowName '\n' colName '\n'
//	[nrow i64][ncol i64][nsize i64]
//	nsize == -1: nrow*ncol x [value f32]
//	nsize >= 0:  nsize x [linear u64][value f32], linear strictly increasing

func writeHeader(bw *persistence.Writer, h Header) {
	bw.Line(h.Row)
	bw.Line(h.Col)
	bw.Int64(h.NRow)
	bw.Int64(h.NCol)
	bw.Int64(h.NSize)
}

func readHeader(br *persistence.Reader) (Header, error) {
	h := Header{Row: br.Line(), Col: br.Line()}
	h.NRow = br.Int64()
	h.NCol = br.Int64()
	h.NSize = br.Int64()
	if err := br.Err(); err != nil {
		return Header{}, fmt.Errorf("%w: matrix header: %w", ErrCorrupt, err)
	}
	if h.NRow < 0 || h.NCol < 0 || (h.NCol > 0 && h.NRow > MaxCells/h.NCol) {
		return Header{}, fmt.Errorf("%w: matrix size %dx%d", ErrCorrupt, h.NRow, h.NCol)
	}
	if h.NSize < Dense {
		return Header{}, fmt.Errorf("%w: stored count %d", ErrCorrupt, h.NSize)
	}
	return h, nil
}

// ReadHeader reads only the header of an uncompressed matrix or RBH stream.
func ReadHeader(r io.Reader) (Header, error) {
	return readHeader(persistence.NewReader(r))
}

// Write encodes m to w. A negative minKept writes every cell; otherwise only
// cells with value >= minKept are stored and the header carries their count.
func (m *Matrix) Write(w io.Writer, minKept float32) error {
	bw := persistence.NewWriter(w)
	h := m.header
	if minKept < 0 {
		h.NSize = Dense
		writeHeader(bw, h)
		bw.Float32s(m.data)
		return bw.Flush()
	}

	h.NSize = int64(m.CountAtLeast(minKept))
	writeHeader(bw, h)
	for i, v := range m.data {
		if v >= minKept {
			bw.Uint64(uint64(i))
			bw.Float32(v)
		}
	}
	return bw.Flush()
}

// Read decodes a matrix written by Write into a dense buffer.
func Read(r io.Reader) (*Matrix, error) {
	br := persistence.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	var m *Matrix
	if h.NSize == Dense {
		data, err := readDense(br, h.Cells())
		if err != nil {
			return nil, err
		}
		m = &Matrix{header: h, nrow: int(h.NRow), ncol: int(h.NCol), data: data}
	} else {
		cells := uint64(h.Cells())
		if uint64(h.NSize) > cells {
			return nil, fmt.Errorf("%w: %d stored of %d cells", ErrCorrupt, h.NSize, cells)
		}
		m = New(h)
		var next uint64
		for i := int64(0); i < h.NSize; i++ {
			idx := br.Uint64()
			v := br.Float32()
			if err := br.Err(); err != nil {
				return nil, fmt.Errorf("%w: sparse pair %d: %w", ErrCorrupt, i, err)
			}
			if idx < next || idx >= cells {
				return nil, fmt.Errorf("%w: sparse index %d", ErrCorrupt, idx)
			}
			m.data[idx] = v
			next = idx + 1
		}
	}
	if err := br.ExpectEOF(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return m, nil
}

// denseChunk is the number of cells read per step of a dense body.
const denseChunk = 1 << 16

// readDense reads cells values, growing the buffer as data arrives so a
// truncated stream fails before the header's full size is allocated.
func readDense(br *persistence.Reader, cells int64) ([]float32, error) {
	data := make([]float32, 0, min(cells, denseChunk))
	for int64(len(data)) < cells {
		n := int(min(cells-int64(len(data)), denseChunk))
		data = slices.Grow(data, n)
		chunk := data[len(data) : len(data)+n]
		br.Float32s(chunk)
		if err := br.Err(); err != nil {
			return nil, fmt.Errorf("%w: dense body at cell %d: %w", ErrCorrupt, len(data), err)
		}
		data = data[:len(data)+n]
	}
	return data, nil
}

func save(path string, c codec.Codec, encode func(io.Writer) error) error {
	if c == nil {
		c = codec.Default
	}
	return persistence.SaveToFile(path, func(w io.Writer) error {
		cw, err := c.NewWriter(w)
		if err != nil {
			return err
		}
		if err := encode(cw); err != nil {
			_ = cw.Close()
			return err
		}
		return cw.Close()
	})
}

func load(path string, decode func(io.Reader) error) error {
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		dr, err := codec.NewReader(r)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		defer dr.Close()
		return decode(dr)
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes m to path as one compressed stream.
func Save(path string, m *Matrix, minKept float32, c codec.Codec) error {
	return save(path, c, func(w io.Writer) error { return m.Write(w, minKept) })
}

// Load reads a matrix file; the codec is detected from its magic bytes.
func Load(path string) (*Matrix, error) {
	var m *Matrix
	err := load(path, func(r io.Reader) (err error) {
		m, err = Read(r)
		return err
	})
	return m, err
}
