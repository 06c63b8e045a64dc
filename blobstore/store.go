package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
// It maps to os.ErrNotExist so local and remote misses look alike.
var ErrNotFound = os.ErrNotExist

// ErrClosed is returned by writes to a closed or aborted blob.
var ErrClosed = errors.New("blob writer closed")

// Info describes a stored blob.
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store is a flat namespace of immutable blobs. Names use '/' separators.
// Implementations must be safe for concurrent use.
type Store interface {
	// Open opens a blob for sequential reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create starts a new blob. It replaces any blob of the same name once
	// the writer is closed successfully.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Stat returns blob metadata.
	Stat(ctx context.Context, name string) (Info, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.Writer
	// Close commits the blob.
	Close() error
	// Abort discards everything written. It is a no-op after Close.
	Abort() error
}

// Put writes data as blob name.
func Put(ctx context.Context, s Store, name string, data []byte) error {
	return Write(ctx, s, name, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}

// Write streams fn's output into blob name, aborting on error.
func Write(ctx context.Context, s Store, name string, fn func(io.Writer) error) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return errors.Join(err, w.Abort())
	}
	return w.Close()
}

// ReadAll returns the contents of blob name.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	r, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Exists reports whether blob name is present.
func Exists(ctx context.Context, s Store, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
