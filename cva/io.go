package cva

import (
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/cvnet/codec"
	"github.com/hupe1980/cvnet/persistence"
)

// ErrCorrupt reports an array stream that violates the format invariants.
var ErrCorrupt = persistence.ErrCorrupt

// Header is the size header at the start of every array stream.
type Header struct {
	Genes   uint64
	Columns uint64
	Entries uint64
}

// Stream layout (little-endian, inside one compressed stream):
//
//	[genes u64][columns u64][entries u64]
//	columns x [key u64][start u64][end u64]
//	entries x [gene u32][weight f32]
//
// Column ranges index the entry array. Norms are not stored; Decode derives
// them from the entries exactly as Build does.

const (
	maxGenes = math.MaxUint32
	// preallocCap bounds allocations driven by an untrusted header; slices
	// grow past it only as records actually arrive.
	preallocCap = 1 << 20
)

// Header returns the array's size header.
func (a *Array) Header() Header {
	return Header{
		Genes:   uint64(a.genes),
		Columns: uint64(len(a.columns)),
		Entries: uint64(len(a.entries)),
	}
}

// Encode writes the uncompressed array records to w.
func (a *Array) Encode(w io.Writer) error {
	bw := persistence.NewWriter(w)
	h := a.Header()
	bw.Uint64(h.Genes)
	bw.Uint64(h.Columns)
	bw.Uint64(h.Entries)
	for _, c := range a.columns {
		bw.Uint64(c.Key)
		bw.Uint64(c.Start)
		bw.Uint64(c.End)
	}
	for _, e := range a.entries {
		bw.Uint32(e.Gene)
		bw.Float32(e.Weight)
	}
	return bw.Flush()
}

func readHeader(br *persistence.Reader) (Header, error) {
	h := Header{
		Genes:   br.Uint64(),
		Columns: br.Uint64(),
		Entries: br.Uint64(),
	}
	if err := br.Err(); err != nil {
		return Header{}, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if h.Genes > maxGenes {
		return Header{}, fmt.Errorf("%w: gene count %d", ErrCorrupt, h.Genes)
	}
	if h.Columns > h.Entries {
		return Header{}, fmt.Errorf("%w: %d columns for %d entries", ErrCorrupt, h.Columns, h.Entries)
	}
	if h.Entries > 0 && h.Genes == 0 {
		return Header{}, fmt.Errorf("%w: %d entries without genes", ErrCorrupt, h.Entries)
	}
	return h, nil
}

// ReadHeader reads only the size header from an uncompressed array stream.
func ReadHeader(r io.Reader) (Header, error) {
	return readHeader(persistence.NewReader(r))
}

// Decode reads an uncompressed array stream and validates every invariant:
// strictly increasing keys, contiguous non-empty column ranges covering all
// entries, strictly increasing genes within a column and no trailing bytes.
func Decode(r io.Reader) (*Array, error) {
	br := persistence.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	a := &Array{
		genes:    int(h.Genes),
		columns:  make([]Column, 0, min(h.Columns, preallocCap)),
		entries:  make([]Entry, 0, min(h.Entries, preallocCap)),
		selected: noNorm,
	}

	var prevEnd uint64
	for i := uint64(0); i < h.Columns; i++ {
		c := Column{Key: br.Uint64(), Start: br.Uint64(), End: br.Uint64()}
		if err := br.Err(); err != nil {
			return nil, fmt.Errorf("%w: column %d: %w", ErrCorrupt, i, err)
		}
		if i > 0 && c.Key <= a.columns[i-1].Key {
			return nil, fmt.Errorf("%w: column %d key %d not increasing", ErrCorrupt, i, c.Key)
		}
		if c.Start != prevEnd || c.End <= c.Start || c.End > h.Entries {
			return nil, fmt.Errorf("%w: column %d range [%d,%d)", ErrCorrupt, i, c.Start, c.End)
		}
		prevEnd = c.End
		a.columns = append(a.columns, c)
	}
	if prevEnd != h.Entries {
		return nil, fmt.Errorf("%w: columns cover %d of %d entries", ErrCorrupt, prevEnd, h.Entries)
	}

	for _, c := range a.columns {
		for i := c.Start; i < c.End; i++ {
			e := Entry{Gene: br.Uint32(), Weight: br.Float32()}
			if err := br.Err(); err != nil {
				return nil, fmt.Errorf("%w: entry %d: %w", ErrCorrupt, i, err)
			}
			if uint64(e.Gene) >= h.Genes {
				return nil, fmt.Errorf("%w: entry %d gene %d out of %d", ErrCorrupt, i, e.Gene, h.Genes)
			}
			if i > c.Start && e.Gene <= a.entries[i-1].Gene {
				return nil, fmt.Errorf("%w: column key %d genes not increasing", ErrCorrupt, c.Key)
			}
			a.entries = append(a.entries, e)
		}
	}
	if err := br.ExpectEOF(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	a.norms = computeNorms(a.genes, a.entries)
	return a, nil
}

// Save persists a to path as one compressed stream, atomically.
func Save(path string, a *Array, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}
	return persistence.SaveToFile(path, func(w io.Writer) error {
		cw, err := c.NewWriter(w)
		if err != nil {
			return err
		}
		if err := a.Encode(cw); err != nil {
			_ = cw.Close()
			return err
		}
		return cw.Close()
	})
}

// Load reads an array saved with Save. The codec is detected from the file.
func Load(path string) (*Array, error) {
	var a *Array
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		dr, err := codec.NewReader(r)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		defer dr.Close()
		a, err = Decode(dr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return a, nil
}
