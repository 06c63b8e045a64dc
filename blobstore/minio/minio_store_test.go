package minio

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cvnet/blobstore"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Set CVNET_MINIO_ENDPOINT (e.g. localhost:9000) to enable it.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("CVNET_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("CVNET_MINIO_ENDPOINT not set")
	}
	ctx := context.Background()

	store, err := Dial(ctx, Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "test-cvnet",
		Prefix:    "test-prefix/",
	})
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	require.NoError(t, blobstore.Put(ctx, store, "cva/A.Hao5.cva.gz", []byte("hello minio world")))

	data, err := blobstore.ReadAll(ctx, store, "cva/A.Hao5.cva.gz")
	require.NoError(t, err)
	assert.Equal(t, "hello minio world", string(data))

	info, err := store.Stat(ctx, "cva/A.Hao5.cva.gz")
	require.NoError(t, err)
	assert.Equal(t, int64(17), info.Size)

	names, err := store.List(ctx, "cva/")
	require.NoError(t, err)
	assert.Contains(t, names, "cva/A.Hao5.cva.gz")

	w, err := store.Create(ctx, "cva/aborted")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())
	ok, err := blobstore.Exists(ctx, store, "cva/aborted")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "cva/A.Hao5.cva.gz"))
	_, err = store.Open(ctx, "cva/A.Hao5.cva.gz")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestKey(t *testing.T) {
	s := NewStore(nil, "b", "/root/")
	assert.Equal(t, "root/sm/A-B.sm.gz", s.key("sm/A-B.sm.gz"))
	s = NewStore(nil, "b", "")
	assert.Equal(t, "sm/A-B.sm.gz", s.key("sm/A-B.sm.gz"))
}
