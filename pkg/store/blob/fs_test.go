package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_PutThenGetOverwrites(t *testing.T) {
	store := NewFS(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "reports", "daily/snapshot.json", []byte(`{"services":[]}`), "application/json"))
	require.NoError(t, store.Put(ctx, "reports", "daily/snapshot.json", []byte(`{}`), "application/json"))

	body, err := store.Get(ctx, "reports", "daily/snapshot.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(body))
}

func TestFS_GetMissing(t *testing.T) {
	store := NewFS(t.TempDir())

	_, err := store.Get(context.Background(), "reports", "absent.json")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFS_RejectsEscapingKeys(t *testing.T) {
	store := NewFS(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "reports", "../../etc/passwd", []byte("x"), ""))
	_, err := store.Get(ctx, "", "snapshot.json")
	assert.Error(t, err)
}
