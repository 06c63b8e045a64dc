package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

var (
	// ErrCorrupt marks an artifact that decoded but violates its format.
	// Format packages wrap it so callers can tell corruption from I/O errors.
	ErrCorrupt = errors.New("corrupt artifact")
	// ErrTrailingData is returned by ExpectEOF when bytes remain after the last record.
	ErrTrailingData = errors.New("trailing data after last record")
	// ErrLineTooLong is returned when a text line exceeds MaxLineLength.
	ErrLineTooLong = errors.New("line too long")
)

// MaxLineLength bounds text lines embedded in binary artifacts (genome names).
const MaxLineLength = 4096

const writeBufferSize = 64 * 1024

// Writer encodes fixed-width little-endian records.
type Writer struct {
	w   io.Writer
	buf []byte
	n   int64
	err error
}

// NewWriter creates a new record writer. Flush must be called at the end.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:   w,
		buf: make([]byte, 0, writeBufferSize),
	}
}

func (bw *Writer) reserve(n int) {
	if len(bw.buf)+n > cap(bw.buf) {
		bw.flush()
	}
}

func (bw *Writer) flush() {
	if bw.err != nil || len(bw.buf) == 0 {
		bw.buf = bw.buf[:0]
		return
	}
	n, err := bw.w.Write(bw.buf)
	bw.n += int64(n)
	if err != nil {
		bw.err = err
	}
	bw.buf = bw.buf[:0]
}

// Uint32 writes v.
func (bw *Writer) Uint32(v uint32) {
	bw.reserve(4)
	bw.buf = binary.LittleEndian.AppendUint32(bw.buf, v)
}

// Uint64 writes v.
func (bw *Writer) Uint64(v uint64) {
	bw.reserve(8)
	bw.buf = binary.LittleEndian.AppendUint64(bw.buf, v)
}

// Int64 writes v in two's complement.
func (bw *Writer) Int64(v int64) {
	bw.Uint64(uint64(v))
}

// Float32 writes the IEEE-754 bits of v.
func (bw *Writer) Float32(v float32) {
	bw.Uint32(math.Float32bits(v))
}

// Float32s writes every element of vec.
func (bw *Writer) Float32s(vec []float32) {
	for _, v := range vec {
		bw.Float32(v)
	}
}

// Line writes s followed by a newline. s must not contain a newline.
func (bw *Writer) Line(s string) {
	if bw.err != nil {
		return
	}
	if len(s) > MaxLineLength {
		bw.err = fmt.Errorf("%w: %d bytes", ErrLineTooLong, len(s))
		return
	}
	bw.reserve(len(s) + 1)
	bw.buf = append(bw.buf, s...)
	bw.buf = append(bw.buf, '\n')
}

// Flush writes buffered records to the underlying writer.
func (bw *Writer) Flush() error {
	bw.flush()
	return bw.err
}

// Err returns the first error encountered.
func (bw *Writer) Err() error { return bw.err }

// BytesWritten returns the number of bytes handed to the underlying writer.
func (bw *Writer) BytesWritten() int64 { return bw.n }

// Reader decodes fixed-width little-endian records.
type Reader struct {
	r   *bufio.Reader
	tmp [8]byte
	err error
}

// NewReader creates a new record reader.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 256*1024)
	}
	return &Reader{r: br}
}

func (br *Reader) read(n int) []byte {
	if br.err != nil {
		return br.tmp[:n]
	}
	if _, err := io.ReadFull(br.r, br.tmp[:n]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		br.err = err
		clear(br.tmp[:n])
	}
	return br.tmp[:n]
}

// Uint32 reads a uint32.
func (br *Reader) Uint32() uint32 {
	return binary.LittleEndian.Uint32(br.read(4))
}

// Uint64 reads a uint64.
func (br *Reader) Uint64() uint64 {
	return binary.LittleEndian.Uint64(br.read(8))
}

// Int64 reads an int64.
func (br *Reader) Int64() int64 {
	return int64(br.Uint64())
}

// Float32 reads a float32.
func (br *Reader) Float32() float32 {
	return math.Float32frombits(br.Uint32())
}

// Float32s fills dst.
func (br *Reader) Float32s(dst []float32) {
	for i := range dst {
		if br.err != nil {
			return
		}
		dst[i] = br.Float32()
	}
}

// Line reads a newline-terminated line and strips the terminator.
func (br *Reader) Line() string {
	if br.err != nil {
		return ""
	}
	var line []byte
	for {
		frag, err := br.r.ReadSlice('\n')
		line = append(line, frag...)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) && len(line) <= MaxLineLength {
			continue
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			err = ErrLineTooLong
		} else if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		br.err = err
		return ""
	}
	if len(line)-1 > MaxLineLength {
		br.err = ErrLineTooLong
		return ""
	}
	return string(line[:len(line)-1])
}

// ExpectEOF consumes the rest of the stream and fails if any bytes remain.
// Draining to EOF also lets checksumming decompressors verify their trailer.
func (br *Reader) ExpectEOF() error {
	if br.err != nil {
		return br.err
	}
	n, err := io.Copy(io.Discard, br.r)
	if err != nil {
		br.err = err
		return err
	}
	if n > 0 {
		br.err = fmt.Errorf("%w: %d bytes", ErrTrailingData, n)
	}
	return br.err
}

// Err returns the first error encountered.
func (br *Reader) Err() error { return br.err }

// SaveToFile writes a file atomically: data goes to a temp file in the same
// directory which is synced and renamed over filename.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens filename and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}
