package matrix

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRBH(t *testing.T) {
	// Row maxima: (0,0) 0.9, (1,0) 0.95, (2,2) 0.8.
	// Column maxima: col 0 is 0.95 in row 1, col 2 is 0.8 in row 2.
	m := fromRows("X", "Y", [][]float32{
		{0.9, 0.1, 0.2},
		{0.95, 0.3, 0.1},
		{0.2, 0.4, 0.8},
	})

	l := ComputeRBH(m)
	assert.Equal(t, []Hit{{Row: 1, Col: 0, Weight: 0.95}, {Row: 2, Col: 2, Weight: 0.8}}, l.Hits)
	assert.Equal(t, "X", l.Header.Row)

	lo, ok := l.MinWeight()
	assert.True(t, ok)
	assert.Equal(t, float32(0.8), lo)
}

func TestComputeRBHTies(t *testing.T) {
	// Row 0 picks its first maximum; equal column values do not reject.
	m := fromRows("X", "Y", [][]float32{
		{0.5, 0.5},
		{0.5, 0.1},
	})
	l := ComputeRBH(m)
	assert.Equal(t, []Hit{{Row: 0, Col: 0, Weight: 0.5}, {Row: 1, Col: 0, Weight: 0.5}}, l.Hits)
}

func TestComputeRBHEmpty(t *testing.T) {
	l := ComputeRBH(New(NewHeader("X", "Y", 0, 3)))
	assert.Empty(t, l.Hits)
	_, ok := l.MinWeight()
	assert.False(t, ok)
}

func TestRBHIsRowAndColumnMax(t *testing.T) {
	m := fromRows("X", "Y", [][]float32{
		{0.3, 0.7, 0.1, 0.0},
		{0.6, 0.2, 0.6, 0.4},
		{0.1, 0.7, 0.9, 0.2},
	})
	for _, h := range ComputeRBH(m).Hits {
		for c, v := range m.Row(h.Row) {
			assert.LessOrEqual(t, v, h.Weight, "row %d col %d", h.Row, c)
		}
		for r := 0; r < m.NRow(); r++ {
			v, _ := m.Get(r, h.Col)
			assert.LessOrEqual(t, v, h.Weight, "row %d col %d", r, h.Col)
		}
	}
}

func TestRBHWriteRead(t *testing.T) {
	l := &RBH{
		Header: NewHeader("X", "Y", 3, 3),
		Hits:   []Hit{{Row: 1, Col: 0, Weight: 0.95}, {Row: 2, Col: 2, Weight: 0.8}},
	}

	var buf bytes.Buffer
	require.NoError(t, l.Write(&buf))

	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.NSize)

	got, err := ReadRBH(&buf)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestReadRBHCorrupt(t *testing.T) {
	l := &RBH{Header: NewHeader("X", "Y", 2, 2), Hits: []Hit{{Row: 1, Col: 1, Weight: 1}}}
	var buf bytes.Buffer
	require.NoError(t, l.Write(&buf))
	raw := buf.Bytes()

	_, err := ReadRBH(bytes.NewReader(raw[:len(raw)-1]))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = ReadRBH(bytes.NewReader(append(bytes.Clone(raw), 0)))
	assert.ErrorIs(t, err, ErrCorrupt)

	bad := &RBH{Header: NewHeader("X", "Y", 2, 2), Hits: []Hit{{Row: 5, Col: 0, Weight: 1}}}
	buf.Reset()
	require.NoError(t, bad.Write(&buf))
	_, err = ReadRBH(&buf)
	assert.ErrorIs(t, err, ErrCorrupt)

	tooMany := &RBH{Header: NewHeader("X", "Y", 1, 1), Hits: []Hit{{0, 0, 1}, {0, 0, 1}}}
	buf.Reset()
	require.NoError(t, tooMany.Write(&buf))
	_, err = ReadRBH(&buf)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRBHSaveLoad(t *testing.T) {
	l := ComputeRBH(fromRows("X", "Y", [][]float32{{0.9, 0.1}, {0.2, 0.8}}))
	path := filepath.Join(t.TempDir(), "X-Y.rbh.gz")
	require.NoError(t, SaveRBH(path, l, nil))

	got, err := LoadRBH(path)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}
