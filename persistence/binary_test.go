package persistence

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Line("GCF_000005845")
	w.Line("")
	w.Uint32(7)
	w.Uint64(1 << 40)
	w.Int64(-1)
	w.Float32(float32(math.Pi))
	w.Float32s([]float32{0.25, -0.5, float32(math.Inf(1))})
	require.NoError(t, w.Flush())
	assert.Equal(t, int64(buf.Len()), w.BytesWritten())

	r := NewReader(&buf)
	assert.Equal(t, "GCF_000005845", r.Line())
	assert.Equal(t, "", r.Line())
	assert.Equal(t, uint32(7), r.Uint32())
	assert.Equal(t, uint64(1<<40), r.Uint64())
	assert.Equal(t, int64(-1), r.Int64())
	assert.Equal(t, float32(math.Pi), r.Float32())

	got := make([]float32, 3)
	r.Float32s(got)
	assert.Equal(t, []float32{0.25, -0.5, float32(math.Inf(1))}, got)
	require.NoError(t, r.ExpectEOF())
}

func TestReader_ShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3}))
	_ = r.Uint64()
	require.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)

	// Sticky: later reads keep the first error.
	_ = r.Uint32()
	require.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
}

func TestReader_TrailingData(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uint32(1)
	w.Uint32(2)
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	_ = r.Uint32()
	require.ErrorIs(t, r.ExpectEOF(), ErrTrailingData)
}

func TestWriter_LineTooLong(t *testing.T) {
	w := NewWriter(io.Discard)
	w.Line(strings.Repeat("x", MaxLineLength+1))
	require.ErrorIs(t, w.Flush(), ErrLineTooLong)
}

func TestWriter_LargePayloadCrossesBuffer(t *testing.T) {
	vec := make([]float32, 3*writeBufferSize)
	for i := range vec {
		vec[i] = float32(i)
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Float32s(vec)
	require.NoError(t, w.Flush())

	got := make([]float32, len(vec))
	r := NewReader(&buf)
	r.Float32s(got)
	require.NoError(t, r.ExpectEOF())
	assert.Equal(t, vec, got)
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "table.tsv")

	err := SaveToFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "genome\tstart\tsize\n")
		return err
	})
	require.NoError(t, err)

	var got string
	err = LoadFromFile(path, func(r io.Reader) error {
		b, err := io.ReadAll(r)
		got = string(b)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "genome\tstart\tsize\n", got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}
