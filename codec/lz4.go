package codec

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4 is the fastest codec; files are larger than gzip.
type LZ4 struct{}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Ext returns ".lz4".
func (LZ4) Ext() string { return ".lz4" }

// Magic returns the lz4 frame magic.
func (LZ4) Magic() []byte { return []byte{0x04, 0x22, 0x4d, 0x18} }

// NewWriter returns an lz4 frame writer.
func (LZ4) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

// NewReader returns an lz4 frame reader.
func (LZ4) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
