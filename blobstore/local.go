package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	ifs "github.com/hupe1980/cvnet/internal/fs"
)

// LocalStore implements Store on a directory of the local file system.
type LocalStore struct {
	root string
	fs   ifs.FileSystem
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return NewLocalStoreFS(root, ifs.Default)
}

// NewLocalStoreFS creates a LocalStore backed by fsys.
func NewLocalStoreFS(root string, fsys ifs.FileSystem) *LocalStore {
	return &LocalStore{root: root, fs: fsys}
}

// Root returns the store directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return s.fs.OpenFile(s.path(name), os.O_RDONLY, 0)
}

// Create writes to a temporary file next to the target and renames it into
// place on Close.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	target := s.path(name)
	dir := filepath.Dir(target)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := s.fs.CreateTemp(dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{fs: s.fs, f: f, target: target}, nil
}

// Stat returns blob metadata.
func (s *LocalStore) Stat(_ context.Context, name string) (Info, error) {
	fi, err := s.fs.Stat(s.path(name))
	if err != nil {
		return Info{}, err
	}
	if fi.IsDir() {
		return Info{}, &fs.PathError{Op: "stat", Path: s.path(name), Err: ErrNotFound}
	}
	return Info{Name: name, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// Delete removes a blob.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := s.fs.Remove(s.path(name))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// List walks the directory tree below root. Temporary files are skipped.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	var walk func(rel string) error
	walk = func(rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := s.fs.ReadDir(filepath.Join(s.root, filepath.FromSlash(rel)))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			name := path.Join(rel, e.Name())
			if e.IsDir() {
				if strings.HasPrefix(name, prefix) || strings.HasPrefix(prefix, name+"/") {
					if err := walk(name); err != nil {
						return err
					}
				}
				continue
			}
			if strings.HasSuffix(name, ".tmp") || !strings.HasPrefix(name, prefix) {
				continue
			}
			names = append(names, name)
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

type localWritableBlob struct {
	fs     ifs.FileSystem
	f      ifs.File
	target string
	done   atomic.Bool
}

func (b *localWritableBlob) Write(p []byte) (int, error) {
	if b.done.Load() {
		return 0, ErrClosed
	}
	return b.f.Write(p)
}

func (b *localWritableBlob) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return ErrClosed
	}
	tmp := b.f.Name()
	if err := b.f.Sync(); err != nil {
		_ = b.f.Close()
		_ = b.fs.Remove(tmp)
		return err
	}
	if err := b.f.Close(); err != nil {
		_ = b.fs.Remove(tmp)
		return err
	}
	if err := b.fs.Rename(tmp, b.target); err != nil {
		_ = b.fs.Remove(tmp)
		return err
	}
	return nil
}

func (b *localWritableBlob) Abort() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	tmp := b.f.Name()
	return errors.Join(b.f.Close(), b.fs.Remove(tmp))
}
