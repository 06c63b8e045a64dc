package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip is the default artifact codec.
type Gzip struct {
	// Level is the gzip compression level; zero means gzip.DefaultCompression.
	Level int
}

// Name returns "gzip".
func (Gzip) Name() string { return "gzip" }

// Ext returns ".gz".
func (Gzip) Ext() string { return ".gz" }

// Magic returns the gzip member header.
func (Gzip) Magic() []byte { return []byte{0x1f, 0x8b} }

// NewWriter returns a gzip writer.
func (g Gzip) NewWriter(w io.Writer) (io.WriteCloser, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	return gzip.NewWriterLevel(w, level)
}

// NewReader returns a gzip reader. The gzip trailer checksum is verified when
// the stream is read to EOF.
func (Gzip) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
