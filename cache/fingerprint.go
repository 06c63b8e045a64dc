package cache

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/hupe1980/cvnet/codec"
)

// Kind identifies the artifact type.
type Kind int

const (
	KindCVA Kind = iota
	KindMatrix
	KindRBH
)

func (k Kind) String() string {
	switch k {
	case KindCVA:
		return "cva"
	case KindMatrix:
		return "sm"
	case KindRBH:
		return "rbh"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Fingerprint names an artifact by the inputs that determine it.
type Fingerprint struct {
	Kind       Kind
	Genomes    []string // one for KindCVA, the row and column genome otherwise
	CVMethod   string
	K          int
	Similarity string
}

// CVA returns the fingerprint of a genome's composition-vector array.
func CVA(genome, cvMethod string, k int) Fingerprint {
	return Fingerprint{Kind: KindCVA, Genomes: []string{genome}, CVMethod: cvMethod, K: k}
}

// Matrix returns the fingerprint of the a×b similarity matrix.
func Matrix(a, b, cvMethod string, k int, sim string) Fingerprint {
	return Fingerprint{Kind: KindMatrix, Genomes: []string{a, b}, CVMethod: cvMethod, K: k, Similarity: sim}
}

// RBH returns the fingerprint of the a×b reciprocal best hit list.
func RBH(a, b, cvMethod string, k int, sim string) Fingerprint {
	return Fingerprint{Kind: KindRBH, Genomes: []string{a, b}, CVMethod: cvMethod, K: k, Similarity: sim}
}

// Row returns the first genome.
func (fp Fingerprint) Row() string { return fp.Genomes[0] }

// Col returns the second genome of a pair fingerprint.
func (fp Fingerprint) Col() string { return fp.Genomes[1] }

// Name returns the blob name, e.g. "sm/A-B.Hao5.Cosine.sm.gz".
// Genome names are path-escaped, so "x/G" and "y/G" never share a blob.
// Pair names can still collide on '-'; matrix and RBH headers carry the
// full genome names and are checked on load.
func (fp Fingerprint) Name(c codec.Codec) string {
	if c == nil {
		c = codec.Default
	}
	cv := fp.CVMethod + strconv.Itoa(fp.K)
	switch fp.Kind {
	case KindCVA:
		return "cva/" + url.PathEscape(fp.Row()) + "." + cv + ".cva" + c.Ext()
	case KindMatrix, KindRBH:
		return "sm/" + url.PathEscape(fp.Row()) + "-" + url.PathEscape(fp.Col()) + "." + cv + "." + fp.Similarity + "." + fp.Kind.String() + c.Ext()
	}
	panic(fmt.Sprintf("cache: unknown kind %d", int(fp.Kind)))
}

func (fp Fingerprint) String() string {
	return fp.Name(codec.Default)
}
