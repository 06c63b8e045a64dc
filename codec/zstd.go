package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// Zstd trades gzip compatibility for faster decompression.
type Zstd struct {
	// Level is the zstd level (1-22); zero selects zstd.SpeedDefault.
	Level int
}

// Name returns "zstd".
func (Zstd) Name() string { return "zstd" }

// Ext returns ".zst".
func (Zstd) Ext() string { return ".zst" }

// Magic returns the zstd frame magic.
func (Zstd) Magic() []byte { return []byte{0x28, 0xb5, 0x2f, 0xfd} }

// NewWriter returns a zstd stream encoder.
func (z Zstd) NewWriter(w io.Writer) (io.WriteCloser, error) {
	level := zstd.SpeedDefault
	if z.Level > 0 {
		level = zstd.EncoderLevelFromZstd(z.Level)
	}
	return zstd.NewWriter(w, zstd.WithEncoderLevel(level))
}

// NewReader returns a zstd stream decoder.
func (Zstd) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}
