package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/cvnet/resource"
)

func byteLen(b []byte) int64 { return int64(len(b)) }

func TestLRUEviction(t *testing.T) {
	c := NewLRU[string, []byte](10, byteLen, nil)
	c.Set("a", make([]byte, 4))
	c.Set("b", make([]byte, 4))
	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("c", make([]byte, 4))
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(8), c.Size())
	assert.Equal(t, 2, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUOversized(t *testing.T) {
	c := NewLRU[string, []byte](4, byteLen, nil)
	c.Set("big", make([]byte, 5))
	assert.Zero(t, c.Len())
}

func TestLRUReplaceAndRemove(t *testing.T) {
	c := NewLRU[string, []byte](10, byteLen, nil)
	c.Set("a", make([]byte, 4))
	c.Set("a", make([]byte, 6))
	assert.Equal(t, int64(6), c.Size())
	c.Remove("a")
	assert.Zero(t, c.Size())
	c.Remove("missing")
}

func TestLRUTracksController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 6})
	c := NewLRU[string, []byte](100, byteLen, rc)

	c.Set("a", make([]byte, 4))
	assert.Equal(t, int64(4), rc.MemoryUsage())

	// The controller has no room; the value is not cached.
	c.Set("b", make([]byte, 4))
	_, ok := c.Get("b")
	assert.False(t, ok)

	c.Purge()
	assert.Zero(t, rc.MemoryUsage())
	assert.Zero(t, c.Len())
}
