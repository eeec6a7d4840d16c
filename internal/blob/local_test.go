package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutGetDelete(t *testing.T) {
	storage, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "exports/ds-1/v1.jsonl"
	require.NoError(t, storage.Put(ctx, key, []byte("line\n")))

	data, err := storage.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))

	require.NoError(t, storage.Delete(ctx, key))
	_, err = storage.Get(ctx, key)
	require.Error(t, err)

	// Deleting a missing key is not an error.
	require.NoError(t, storage.Delete(ctx, key))
}

func TestLocal_Presign(t *testing.T) {
	storage, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.Put(ctx, "a/b.jsonl", []byte("x")))
	url, err := storage.Presign(ctx, "a/b.jsonl")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.True(t, strings.HasSuffix(url, "a/b.jsonl"))
}

func TestLocal_RejectsTraversal(t *testing.T) {
	storage, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = storage.Put(ctx, "../outside.txt", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes storage root")
}
