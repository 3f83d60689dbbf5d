package badger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/hupe1980/bigramdict/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T, prefix string) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true, Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t, "dict/")

	_, err := s.Open(ctx, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, s.Put(ctx, "snapshots/00000001.bgs", []byte("one")))
	require.NoError(t, s.Put(ctx, "snapshots/00000002.bgs", []byte("two")))
	require.NoError(t, s.Put(ctx, "CURRENT", []byte("manifests/00000002.json")))

	data, err := blobstore.ReadFile(ctx, s, "snapshots/00000002.bgs")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	names, err := s.List(ctx, "snapshots/")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/00000001.bgs", "snapshots/00000002.bgs"}, names)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Delete(ctx, "snapshots/00000001.bgs"))
	require.NoError(t, s.Delete(ctx, "snapshots/00000001.bgs"))
	_, err = s.Open(ctx, "snapshots/00000001.bgs")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_PutCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t, "")

	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "x", buf))
	buf[0] = 'z'

	data, err := blobstore.ReadFile(ctx, s, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
}

func TestStore_SharedDatabase(t *testing.T) {
	ctx := context.Background()
	owner := openInMemory(t, "a/")
	other := NewStore(owner.db, "b/")

	require.NoError(t, owner.Put(ctx, "CURRENT", []byte("1")))
	require.NoError(t, other.Put(ctx, "CURRENT", []byte("2")))

	a, err := blobstore.ReadFile(ctx, owner, "CURRENT")
	require.NoError(t, err)
	b, err := blobstore.ReadFile(ctx, other, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "1", string(a))
	assert.Equal(t, "2", string(b))

	// Closing a borrowed store leaves the database open.
	require.NoError(t, other.Close())
	require.NoError(t, owner.Put(ctx, "x", nil))
}

func TestStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Config{Path: dir, SyncWrites: true, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "CURRENT", []byte("manifests/00000001.json")))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	data, err := blobstore.ReadFile(ctx, s, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "manifests/00000001.json", string(data))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := openInMemory(t, "")

	assert.ErrorIs(t, s.Put(ctx, "x", nil), context.Canceled)
	_, err := s.Open(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
