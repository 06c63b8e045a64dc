package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/singleflight"
)

// CachingStore mirrors a remote store into a local one. Reads are served
// from the local copy when present and otherwise fetched once from the
// remote and written through. Writes go to both.
type CachingStore struct {
	remote Store
	local  Store
	fills  singleflight.Group
}

// NewCachingStore creates a CachingStore.
func NewCachingStore(remote, local Store) *CachingStore {
	return &CachingStore{remote: remote, local: local}
}

// Open serves name from the local mirror, filling it on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if r, err := s.local.Open(ctx, name); err == nil {
		return r, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err, _ := s.fills.Do(name, func() (any, error) {
		return nil, s.fill(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return s.local.Open(ctx, name)
}

func (s *CachingStore) fill(ctx context.Context, name string) error {
	r, err := s.remote.Open(ctx, name)
	if err != nil {
		return err
	}
	defer r.Close()
	return Write(ctx, s.local, name, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
}

// Create writes name to the remote store and mirrors it locally. The local
// copy is committed only after the remote commit succeeds.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	rw, err := s.remote.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	lw, err := s.local.Create(ctx, name)
	if err != nil {
		return nil, errors.Join(err, rw.Abort())
	}
	return &teeBlob{remote: rw, local: lw}, nil
}

// Stat asks the remote store, which is authoritative.
func (s *CachingStore) Stat(ctx context.Context, name string) (Info, error) {
	return s.remote.Stat(ctx, name)
}

// Delete removes name from both stores.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	return errors.Join(s.local.Delete(ctx, name), s.remote.Delete(ctx, name))
}

// List lists the remote store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}

type teeBlob struct {
	remote WritableBlob
	local  WritableBlob
}

func (b *teeBlob) Write(p []byte) (int, error) {
	n, err := b.remote.Write(p)
	if err != nil {
		return n, err
	}
	return b.local.Write(p[:n])
}

func (b *teeBlob) Close() error {
	if err := b.remote.Close(); err != nil {
		return errors.Join(err, b.local.Abort())
	}
	return b.local.Close()
}

func (b *teeBlob) Abort() error {
	return errors.Join(b.remote.Abort(), b.local.Abort())
}
