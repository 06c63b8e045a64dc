package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/hupe1980/cvnet/cva"
)

// FASTA reads one gene file per genome, <dir>/<genome><suffix>, and computes
// per-gene composition vectors.
type FASTA struct {
	dir      string
	suffix   string
	alphabet *Alphabet
	method   Method
}

// FASTAOption configures a FASTA source.
type FASTAOption func(*FASTA)

// WithSuffix sets the gene file suffix. Default ".faa".
func WithSuffix(s string) FASTAOption {
	return func(f *FASTA) { f.suffix = s }
}

// WithAlphabet sets the sequence alphabet. Default Protein.
func WithAlphabet(a *Alphabet) FASTAOption {
	return func(f *FASTA) { f.alphabet = a }
}

// NewFASTA returns a FASTA source using the named method.
func NewFASTA(dir, method string, opts ...FASTAOption) (*FASTA, error) {
	m, err := MethodByName(method)
	if err != nil {
		return nil, err
	}
	f := &FASTA{dir: dir, suffix: ".faa", alphabet: Protein, method: m}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FASTA) Method() string { return f.method.Name() }

// Path returns the gene file of genome.
func (f *FASTA) Path(genome string) string {
	return filepath.Join(f.dir, genome+f.suffix)
}

func (f *FASTA) each(ctx context.Context, genome string, fn func(seq []byte)) error {
	r, err := fastx.NewReader(nil, f.Path(genome), "")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnknownGenome, genome, err)
	}
	defer r.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Path(genome), err)
		}
		fn(record.Seq.Seq)
	}
}

// Vectors computes one vector per FASTA record.
func (f *FASTA) Vectors(ctx context.Context, genome string, k int) ([]cva.Vector, error) {
	if err := CheckK(f.method, f.alphabet, k); err != nil {
		return nil, err
	}
	var out []cva.Vector
	err := f.each(ctx, genome, func(seq []byte) {
		entries := f.method.Vector(f.alphabet, seq, k)
		v := make(cva.Vector, 0, len(entries))
		for _, e := range entries {
			v = append(v, cva.Component{Key: e.key, Weight: float32(e.weight)})
		}
		out = append(out, v)
	})
	return out, err
}

// GeneCount counts the FASTA records of genome.
func (f *FASTA) GeneCount(ctx context.Context, genome string) (int, error) {
	n := 0
	err := f.each(ctx, genome, func([]byte) { n++ })
	return n, err
}
