// Package codec centralizes the stream compression used for cached artifacts.
//
// Every artifact (composition-vector arrays, similarity matrices, RBH lists) is
// written as one compressed stream. Gzip is the default and matches the
// historical on-disk format; zstd and lz4 are available for large runs where
// decompression speed matters more than compatibility. Readers detect the
// codec from the stream's magic bytes, so a cache directory may mix codecs.
package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrUnknownCodec is returned when a codec name or stream magic is not recognized.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec wraps writers and readers with a compression format.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name returns the stable codec name used in configuration.
	Name() string
	// Ext returns the file extension appended to artifact names (e.g. ".gz").
	Ext() string
	// Magic returns the leading bytes of every stream produced by NewWriter.
	Magic() []byte
	// NewWriter returns a compressing writer. Close must be called to flush.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader returns a decompressing reader.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Default is the codec used when none is configured.
var Default Codec = Gzip{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "", "gzip", "gz":
		return Gzip{}, true
	case "zstd", "zst":
		return Zstd{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// Names lists the built-in codec names.
func Names() []string {
	return []string{"gzip", "zstd", "lz4"}
}

var builtins = []Codec{Gzip{}, Zstd{}, LZ4{}}

// maxMagic is the longest magic prefix of the built-in codecs.
const maxMagic = 4

// Detect peeks at the head of br and returns the matching codec.
// The peeked bytes are not consumed.
func Detect(br *bufio.Reader) (Codec, error) {
	head, err := br.Peek(maxMagic)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	for _, c := range builtins {
		if bytes.HasPrefix(head, c.Magic()) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: magic % x", ErrUnknownCodec, head)
}

// NewReader detects the codec of r and returns a decompressing reader.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64*1024)
	}
	c, err := Detect(br)
	if err != nil {
		return nil, err
	}
	return c.NewReader(br)
}

// Compress encodes data with c in one call.
func Compress(c Codec, data []byte) ([]byte, error) {
	if c == nil {
		c = Default
	}
	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
