package blobstore

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts Open calls per blob.
type countingStore struct {
	Store
	mu    sync.Mutex
	opens map[string]int
}

func newCountingStore(s Store) *countingStore {
	return &countingStore{Store: s, opens: map[string]int{}}
}

func (c *countingStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return c.Store.Open(ctx, name)
}

func (c *countingStore) Opens(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

func TestCachingStoreFillsOnce(t *testing.T) {
	ctx := context.Background()
	remote := newCountingStore(NewMemoryStore())
	local := NewMemoryStore()
	require.NoError(t, Put(ctx, remote, "cva/A.Hao5.cva.gz", []byte("payload")))

	s := NewCachingStore(remote, local)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := ReadAll(ctx, s, "cva/A.Hao5.cva.gz")
			assert.NoError(t, err)
			assert.Equal(t, "payload", string(data))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, remote.Opens("cva/A.Hao5.cva.gz"), 8)
	ok, err := Exists(ctx, local, "cva/A.Hao5.cva.gz")
	require.NoError(t, err)
	assert.True(t, ok)

	before := remote.Opens("cva/A.Hao5.cva.gz")
	_, err = ReadAll(ctx, s, "cva/A.Hao5.cva.gz")
	require.NoError(t, err)
	assert.Equal(t, before, remote.Opens("cva/A.Hao5.cva.gz"))
}

func TestCachingStoreMissing(t *testing.T) {
	s := NewCachingStore(NewMemoryStore(), NewMemoryStore())
	_, err := s.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStoreWriteThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryStore()
	local := NewMemoryStore()
	s := NewCachingStore(remote, local)

	require.NoError(t, Put(ctx, s, "sm/A-B.sm.gz", []byte("matrix")))
	for _, st := range []Store{remote, local} {
		data, err := ReadAll(ctx, st, "sm/A-B.sm.gz")
		require.NoError(t, err)
		assert.Equal(t, "matrix", string(data))
	}

	names, err := s.List(ctx, "sm/")
	require.NoError(t, err)
	assert.Equal(t, []string{"sm/A-B.sm.gz"}, names)

	require.NoError(t, s.Delete(ctx, "sm/A-B.sm.gz"))
	for _, st := range []Store{remote, local} {
		ok, err := Exists(ctx, st, "sm/A-B.sm.gz")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestCachingStoreAbort(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryStore()
	local := NewMemoryStore()
	s := NewCachingStore(remote, local)

	err := Write(ctx, s, "x", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encode failed")
	})
	assert.Error(t, err)
	for _, st := range []Store{remote, local} {
		ok, err := Exists(ctx, st, "x")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
