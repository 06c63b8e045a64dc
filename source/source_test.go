package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cvnet/cva"
)

func TestReadList(t *testing.T) {
	in := "# genomes\nE_coli  extra\n\nB_subtilis\nE_coli\n  S_aureus\n"
	list, err := ReadList(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"E_coli", "B_subtilis", "S_aureus"}, list)
}

func TestMemorySource(t *testing.T) {
	src := NewMemory("Hao", map[string][]cva.Vector{
		"A": {{{Key: 1, Weight: 1}}, {}},
	})
	ctx := context.Background()

	n, err := src.GeneCount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = src.Vectors(ctx, "missing", 5)
	assert.ErrorIs(t, err, ErrUnknownGenome)
}

func TestAlphabet(t *testing.T) {
	assert.Equal(t, 14, Protein.KMax())
	assert.Equal(t, 31, Nucleotide.KMax())

	key, ok := Protein.Key([]byte("acd"))
	require.True(t, ok)
	assert.Equal(t, uint64(0*400+1*20+2), key)
	assert.Equal(t, "ACD", Protein.Decode(key, 3))

	_, ok = Protein.Key([]byte("AXB"))
	assert.False(t, ok)

	a, err := AlphabetByName("ffn")
	require.NoError(t, err)
	assert.Same(t, Nucleotide, a)
	_, err = AlphabetByName("rna")
	assert.Error(t, err)
}

func TestCountSkipsForeignLetters(t *testing.T) {
	counts := map[uint64]float64{}
	total := Protein.Count([]byte("ACAXAC"), 2, counts)
	assert.Equal(t, 3, total)

	ac, _ := Protein.Key([]byte("AC"))
	ca, _ := Protein.Key([]byte("CA"))
	assert.Equal(t, map[uint64]float64{ac: 2, ca: 1}, counts)
}

func TestHaoVector(t *testing.T) {
	// ACA: n3 = {ACA:1}, n2 = {AC:1, CA:1}, n1 = {A:2, C:1}, factor = 1*3/4.
	got := Hao{}.Vector(Protein, []byte("ACA"), 3)
	require.Len(t, got, 2)

	aca, _ := Protein.Key([]byte("ACA"))
	cac, _ := Protein.Key([]byte("CAC"))
	assert.Equal(t, aca, got[0].key)
	assert.InDelta(t, 1.0/3.0, got[0].weight, 1e-12)
	assert.Equal(t, cac, got[1].key)
	assert.InDelta(t, -1.0, got[1].weight, 1e-12)

	assert.Empty(t, Hao{}.Vector(Protein, []byte("AC"), 3))
}

func TestMethodByName(t *testing.T) {
	m, err := MethodByName("Count")
	require.NoError(t, err)
	assert.Equal(t, "Count", m.Name())

	_, err = MethodByName("Markov")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	assert.ErrorIs(t, CheckK(Hao{}, Protein, 2), ErrInvalidK)
	assert.ErrorIs(t, CheckK(Count{}, Protein, 15), ErrInvalidK)
	assert.NoError(t, CheckK(Count{}, Protein, 1))
}

func TestFASTASource(t *testing.T) {
	dir := t.TempDir()
	body := ">g1 first\nMKVACA\n>g2\nACAC\nAC\n>g3\nWW\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "genomeA.faa"), []byte(body), 0o644))

	src, err := NewFASTA(dir, "Count")
	require.NoError(t, err)
	assert.Equal(t, "Count", src.Method())
	ctx := context.Background()

	n, err := src.GeneCount(ctx, "genomeA")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	vs, err := src.Vectors(ctx, "genomeA", 2)
	require.NoError(t, err)
	require.Len(t, vs, 3)

	ac, _ := Protein.Key([]byte("AC"))
	sum := func(v cva.Vector, key uint64) float32 {
		var w float32
		for _, c := range v {
			if c.Key == key {
				w += c.Weight
			}
		}
		return w
	}
	assert.Equal(t, float32(1), sum(vs[0], ac))
	assert.Equal(t, float32(3), sum(vs[1], ac))
	assert.Len(t, vs[2], 1)

	_, err = src.Vectors(ctx, "genomeA", 20)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = src.GeneCount(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownGenome)

	_, err = NewFASTA(dir, "Markov")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
