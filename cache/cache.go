package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/cvnet/blobstore"
	"github.com/hupe1980/cvnet/codec"
	"github.com/hupe1980/cvnet/cva"
	"github.com/hupe1980/cvnet/matrix"
	"github.com/hupe1980/cvnet/persistence"
	"github.com/hupe1980/cvnet/resource"
)

// ErrCorrupt wraps every artifact that exists but cannot be decoded.
var ErrCorrupt = persistence.ErrCorrupt

// Validator checks a decompressed artifact stream without decoding it fully.
type Validator func(r io.Reader, fp Fingerprint) error

// Option configures a Cache.
type Option func(*Cache)

// WithCodec sets the codec for new artifacts. Reads detect the codec.
func WithCodec(c codec.Codec) Option {
	return func(ca *Cache) { ca.codec = c }
}

// WithController rate limits writes and accounts cached arrays.
func WithController(rc *resource.Controller) Option {
	return func(ca *Cache) { ca.rc = rc }
}

// WithArrayCacheBytes bounds the in-memory cache of decoded arrays.
// 0 disables it.
func WithArrayCacheBytes(n int64) Option {
	return func(ca *Cache) { ca.arrayBytes = n }
}

// WithValidator replaces the validator of kind.
func WithValidator(kind Kind, v Validator) Option {
	return func(ca *Cache) { ca.validators[kind] = v }
}

// Cache stores and reuses run artifacts.
type Cache struct {
	store      blobstore.Store
	codec      codec.Codec
	rc         *resource.Controller
	validators map[Kind]Validator
	arrayBytes int64
	arrays     *LRU[string, *cva.Array]
	group      singleflight.Group
}

// New creates a Cache on store.
func New(store blobstore.Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		codec: codec.Default,
		validators: map[Kind]Validator{
			KindCVA:    validateCVA,
			KindMatrix: validateMatrix,
			KindRBH:    validateMatrix,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.arrayBytes > 0 {
		c.arrays = NewLRU[string, *cva.Array](c.arrayBytes, (*cva.Array).MemoryUsage, c.rc)
	}
	return c
}

// Store returns the underlying blob store.
func (c *Cache) Store() blobstore.Store { return c.store }

// Codec returns the codec of new artifacts.
func (c *Cache) Codec() codec.Codec { return c.codec }

// Name returns the blob name of fp.
func (c *Cache) Name(fp Fingerprint) string { return fp.Name(c.codec) }

func validateCVA(r io.Reader, _ Fingerprint) error {
	_, err := cva.ReadHeader(r)
	return err
}

func validateMatrix(r io.Reader, fp Fingerprint) error {
	h, err := matrix.ReadHeader(r)
	if err != nil {
		return err
	}
	return checkPair(h, fp)
}

// checkPair rejects a matrix or RBH artifact written for another pair.
func checkPair(h matrix.Header, fp Fingerprint) error {
	if h.Row != fp.Row() || h.Col != fp.Col() {
		return fmt.Errorf("%w: header names %s-%s, want %s-%s", ErrCorrupt, h.Row, h.Col, fp.Row(), fp.Col())
	}
	return nil
}

// Valid reports whether fp is present and passes its validator. An invalid
// artifact is deleted so the next computation replaces it.
func (c *Cache) Valid(ctx context.Context, fp Fingerprint) (bool, error) {
	name := c.Name(fp)
	rc, err := c.Open(ctx, fp)
	if errors.Is(err, blobstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return false, c.store.Delete(ctx, name)
		}
		return false, err
	}
	defer rc.Close()

	if err := c.validators[fp.Kind](rc, fp); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, c.store.Delete(ctx, name)
	}
	return true, nil
}

// GetOrCompute runs compute unless every fingerprint is valid. Callers asking
// for the same set at once share one run. hit reports reuse.
func (c *Cache) GetOrCompute(ctx context.Context, fps []Fingerprint, compute func(ctx context.Context) error) (hit bool, err error) {
	names := make([]string, len(fps))
	for i, fp := range fps {
		names[i] = c.Name(fp)
	}

	v, err, _ := c.group.Do("compute:"+strings.Join(names, "|"), func() (any, error) {
		for _, fp := range fps {
			ok, err := c.Valid(ctx, fp)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, compute(ctx)
			}
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Open returns the decompressed stream of fp.
func (c *Cache) Open(ctx context.Context, fp Fingerprint) (io.ReadCloser, error) {
	blob, err := c.store.Open(ctx, c.Name(fp))
	if err != nil {
		return nil, err
	}
	dr, err := codec.NewReader(blob)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, c.Name(fp), err)
	}
	return &readCloser{Reader: dr, closers: []io.Closer{dr, blob}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Save writes fp as one compressed stream. The blob appears only if encode
// and the compressor both succeed.
func (c *Cache) Save(ctx context.Context, fp Fingerprint, encode func(io.Writer) error) error {
	return blobstore.Write(ctx, c.store, c.Name(fp), func(w io.Writer) error {
		if c.rc != nil {
			w = resource.NewRateLimitedWriter(ctx, w, c.rc)
		}
		cw, err := c.codec.NewWriter(w)
		if err != nil {
			return err
		}
		if err := encode(cw); err != nil {
			_ = cw.Close()
			return err
		}
		return cw.Close()
	})
}

// load decodes fp. Decode failures delete the artifact and wrap ErrCorrupt.
func (c *Cache) load(ctx context.Context, fp Fingerprint, decode func(io.Reader) error) error {
	r, err := c.Open(ctx, fp)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := decode(r); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := c.Name(fp)
		_ = c.store.Delete(ctx, name)
		if errors.Is(err, ErrCorrupt) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}
	return nil
}

// SaveArray stores a.
func (c *Cache) SaveArray(ctx context.Context, fp Fingerprint, a *cva.Array) error {
	return c.Save(ctx, fp, a.Encode)
}

// LoadArray returns the decoded array of fp with norm selected, from memory
// when cached. Cached arrays are shared and must be treated as read-only.
func (c *Cache) LoadArray(ctx context.Context, fp Fingerprint, norm cva.NormKind) (*cva.Array, bool, error) {
	name := c.Name(fp)
	if c.arrays != nil {
		if a, ok := c.arrays.Get(name); ok {
			if err := a.SelectNorm(norm); err != nil {
				return nil, false, err
			}
			return a, true, nil
		}
	}
	v, err, _ := c.group.Do("array:"+name, func() (any, error) {
		var a *cva.Array
		err := c.load(ctx, fp, func(r io.Reader) (err error) {
			a, err = cva.Decode(r)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := a.SelectNorm(norm); err != nil {
			return nil, err
		}
		if c.arrays != nil {
			c.arrays.Set(name, a)
		}
		return a, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*cva.Array), false, nil
}

// ArrayStats returns the in-memory array cache hits and misses.
func (c *Cache) ArrayStats() (hits, misses int64) {
	if c.arrays == nil {
		return 0, 0
	}
	return c.arrays.Stats()
}

// SaveMatrix stores m keeping cells at or above minKept.
func (c *Cache) SaveMatrix(ctx context.Context, fp Fingerprint, m *matrix.Matrix, minKept float32) error {
	return c.Save(ctx, fp, func(w io.Writer) error { return m.Write(w, minKept) })
}

// LoadMatrix decodes the matrix of fp.
func (c *Cache) LoadMatrix(ctx context.Context, fp Fingerprint) (*matrix.Matrix, error) {
	var m *matrix.Matrix
	err := c.load(ctx, fp, func(r io.Reader) (err error) {
		if m, err = matrix.Read(r); err != nil {
			return err
		}
		return checkPair(m.Header(), fp)
	})
	return m, err
}

// MatrixHeader reads only the header of fp.
func (c *Cache) MatrixHeader(ctx context.Context, fp Fingerprint) (matrix.Header, error) {
	var h matrix.Header
	err := c.load(ctx, fp, func(r io.Reader) (err error) {
		if h, err = matrix.ReadHeader(r); err != nil {
			return err
		}
		return checkPair(h, fp)
	})
	return h, err
}

// SaveRBH stores l.
func (c *Cache) SaveRBH(ctx context.Context, fp Fingerprint, l *matrix.RBH) error {
	return c.Save(ctx, fp, l.Write)
}

// LoadRBH decodes the RBH list of fp.
func (c *Cache) LoadRBH(ctx context.Context, fp Fingerprint) (*matrix.RBH, error) {
	var l *matrix.RBH
	err := c.load(ctx, fp, func(r io.Reader) (err error) {
		if l, err = matrix.ReadRBH(r); err != nil {
			return err
		}
		return checkPair(l.Header, fp)
	})
	return l, err
}
