package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *KVRepository {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())
	return NewKVRepository(db)
}

func TestGetAbsentKey(t *testing.T) {
	repo := newTestRepo(t)

	value, ok, err := repo.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestSetAndGet(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("watchlist:v1", `[{"id":1}]`))

	value, ok, err := repo.Get("watchlist:v1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, value)
}

func TestSetOverwrites(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("k", "first"))
	require.NoError(t, repo.Set("k", "second"))

	value, ok, err := repo.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestKeysAreIndependent(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("a", "1"))
	require.NoError(t, repo.Set("b", "2"))

	value, _, err := repo.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("k", "v"))
	require.NoError(t, repo.Delete("k"))

	_, ok, err := repo.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is a no-op
	require.NoError(t, repo.Delete("k"))
}
