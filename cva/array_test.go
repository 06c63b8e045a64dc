package cva

import (
	"bytes"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cvnet/codec"
)

func sampleVectors() []Vector {
	return []Vector{
		{{Key: 7, Weight: 1}, {Key: 3, Weight: -2}, {Key: 9, Weight: 0.5}},
		{},
		{{Key: 3, Weight: 4}, {Key: 11, Weight: 1}},
		{{Key: 9, Weight: 2}, {Key: 9, Weight: 1}},
	}
}

func randomVectors(rng *rand.Rand, genes, dims int, keySpace uint64) []Vector {
	out := make([]Vector, genes)
	for g := range out {
		n := rng.Intn(dims + 1)
		seen := make(map[uint64]bool, n)
		for len(out[g]) < n {
			k := uint64(rng.Int63n(int64(keySpace)))
			if seen[k] {
				continue
			}
			seen[k] = true
			out[g] = append(out[g], Component{Key: k, Weight: rng.Float32()*2 - 1})
		}
	}
	return out
}

func TestBuild(t *testing.T) {
	a := Build(sampleVectors())

	assert.Equal(t, 4, a.GeneCount())
	assert.Equal(t, []uint64{3, 7, 9, 11}, a.Keys())
	assert.Equal(t, 7, a.EntryCount())

	assert.Equal(t, []Entry{{Gene: 0, Weight: -2}, {Gene: 2, Weight: 4}}, a.Column(0))
	assert.Equal(t, []Entry{{Gene: 0, Weight: 1}}, a.Column(1))
	// Repeated keys of one gene are summed.
	assert.Equal(t, []Entry{{Gene: 0, Weight: 0.5}, {Gene: 3, Weight: 3}}, a.Column(2))
	assert.Equal(t, []Entry{{Gene: 2, Weight: 1}}, a.Column(3))

	var prevEnd uint64
	for i := 0; i < a.ColumnCount(); i++ {
		c := a.ColumnInfo(i)
		assert.Equal(t, prevEnd, c.Start)
		assert.Greater(t, c.End, c.Start)
		prevEnd = c.End
	}
	assert.Equal(t, uint64(a.EntryCount()), prevEnd)
}

func TestBuildEmpty(t *testing.T) {
	a := Build(nil)
	assert.Equal(t, 0, a.GeneCount())
	assert.Equal(t, 0, a.ColumnCount())

	a = Build([]Vector{{}, {}})
	assert.Equal(t, 2, a.GeneCount())
	assert.Equal(t, 0, a.EntryCount())
	assert.Equal(t, Norms{}, a.GeneNorms(1))
}

func TestNorms(t *testing.T) {
	a := Build(sampleVectors())

	n := a.GeneNorms(0)
	assert.Equal(t, float32(3), n.L0)
	assert.InDelta(t, 3.5, n.L1, 1e-6)
	assert.InDelta(t, math.Sqrt(1+4+0.25), n.L2, 1e-6)

	assert.Equal(t, Norms{}, a.GeneNorms(1))

	n = a.GeneNorms(3)
	assert.Equal(t, float32(1), n.L0)
	assert.InDelta(t, 3, n.L1, 1e-6)
	assert.InDelta(t, 3, n.L2, 1e-6)
}

func TestSelectNorm(t *testing.T) {
	a := Build(sampleVectors())

	_, ok := a.Selected()
	assert.False(t, ok)
	assert.Nil(t, a.Norms())

	require.NoError(t, a.SelectNorm(NormL0))
	assert.Equal(t, []float32{3, 0, 2, 1}, a.Norms())

	kind, ok := a.Selected()
	assert.True(t, ok)
	assert.Equal(t, NormL0, kind)

	require.NoError(t, a.SelectNorm(NormL0))
	err := a.SelectNorm(NormL2)
	assert.ErrorIs(t, err, ErrNormDiscarded)

	assert.Error(t, Build(nil).SelectNorm(NormKind(7)))
}

func TestNormKindString(t *testing.T) {
	assert.Equal(t, "L0", NormL0.String())
	assert.Equal(t, "L1", NormL1.String())
	assert.Equal(t, "L2", NormL2.String())
	assert.Equal(t, "Unknown(9)", NormKind(9).String())
}

func TestColumnsIterator(t *testing.T) {
	a := Build(sampleVectors())

	var keys []uint64
	total := 0
	for k, es := range a.Columns() {
		keys = append(keys, k)
		total += len(es)
	}
	assert.Equal(t, a.Keys(), keys)
	assert.Equal(t, a.EntryCount(), total)

	n := 0
	for range a.Columns() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, tc := range []struct {
		name string
		vecs []Vector
	}{
		{"Sample", sampleVectors()},
		{"Empty", nil},
		{"NoEntries", []Vector{{}, {}, {}}},
		{"Random", randomVectors(rng, 50, 40, 500)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := Build(tc.vecs)

			var buf bytes.Buffer
			require.NoError(t, a.Encode(&buf))

			h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, a.Header(), h)

			b, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, a, b)

			// Norms are recomputed from the layout and must be bit-identical.
			for g := 0; g < a.GeneCount(); g++ {
				assert.Equal(t, a.GeneNorms(g), b.GeneNorms(g))
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	a := Build(sampleVectors())
	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			c, ok := codec.ByName(name)
			require.True(t, ok)

			path := filepath.Join(t.TempDir(), "g.cva"+c.Ext())
			require.NoError(t, Save(path, a, c))

			b, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cva.gz"))
	assert.Error(t, err)
}

func encodeRaw(t *testing.T, h Header, cols []Column, entries []Entry, extra ...byte) *bytes.Reader {
	t.Helper()
	a := &Array{genes: int(h.Genes), columns: cols, entries: entries}

	var buf bytes.Buffer
	require.NoError(t, a.Encode(&buf))
	raw := buf.Bytes()
	// Patch the header so it can disagree with the body.
	le := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			raw[off+i] = byte(v >> (8 * i))
		}
	}
	le(0, h.Genes)
	le(8, h.Columns)
	le(16, h.Entries)
	return bytes.NewReader(append(raw, extra...))
}

func TestDecodeCorrupt(t *testing.T) {
	entries := []Entry{{0, 1}, {1, 1}, {0, 2}}

	tests := []struct {
		name    string
		h       Header
		cols    []Column
		entries []Entry
		extra   []byte
	}{
		{
			name:    "KeysNotIncreasing",
			h:       Header{Genes: 2, Columns: 2, Entries: 3},
			cols:    []Column{{Key: 5, Start: 0, End: 2}, {Key: 5, Start: 2, End: 3}},
			entries: entries,
		},
		{
			name:    "GapInRanges",
			h:       Header{Genes: 2, Columns: 2, Entries: 3},
			cols:    []Column{{Key: 1, Start: 0, End: 1}, {Key: 2, Start: 2, End: 3}},
			entries: entries,
		},
		{
			name:    "EmptyColumn",
			h:       Header{Genes: 2, Columns: 2, Entries: 3},
			cols:    []Column{{Key: 1, Start: 0, End: 0}, {Key: 2, Start: 0, End: 3}},
			entries: entries,
		},
		{
			name:    "RangesDoNotCoverEntries",
			h:       Header{Genes: 2, Columns: 1, Entries: 3},
			cols:    []Column{{Key: 1, Start: 0, End: 2}},
			entries: entries,
		},
		{
			name:    "GenesNotIncreasing",
			h:       Header{Genes: 2, Columns: 1, Entries: 2},
			cols:    []Column{{Key: 1, Start: 0, End: 2}},
			entries: []Entry{{1, 1}, {0, 1}},
		},
		{
			name:    "GeneOutOfRange",
			h:       Header{Genes: 2, Columns: 1, Entries: 1},
			cols:    []Column{{Key: 1, Start: 0, End: 1}},
			entries: []Entry{{2, 1}},
		},
		{
			name:    "TrailingBytes",
			h:       Header{Genes: 2, Columns: 1, Entries: 1},
			cols:    []Column{{Key: 1, Start: 0, End: 1}},
			entries: []Entry{{0, 1}},
			extra:   []byte{0},
		},
		{
			name:    "Truncated",
			h:       Header{Genes: 2, Columns: 1, Entries: 2},
			cols:    []Column{{Key: 1, Start: 0, End: 2}},
			entries: []Entry{{0, 1}},
		},
		{
			name: "MoreColumnsThanEntries",
			h:    Header{Genes: 1, Columns: 2, Entries: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(encodeRaw(t, tt.h, tt.cols, tt.entries, tt.extra...))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestReadHeaderShort(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestMemoryUsage(t *testing.T) {
	a := Build(sampleVectors())
	before := a.MemoryUsage()
	assert.Positive(t, before)
	require.NoError(t, a.SelectNorm(NormL1))
	assert.Less(t, a.MemoryUsage(), before)
}
