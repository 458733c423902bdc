package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

func newLocalStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)
	return store, dir
}

func TestLocalOpenAndStat(t *testing.T) {
	store, dir := newLocalStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "a.md"), []byte("hello"), 0o644))

	data, err := ReadAll(context.Background(), store, "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := store.Stat(context.Background(), "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "docs/a.md", info.Key)
}

func TestLocalNotFound(t *testing.T) {
	store, _ := newLocalStore(t)
	_, err := store.Open(context.Background(), "missing.md")
	assert.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = store.Stat(context.Background(), "missing.md")
	assert.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestLocalListWithPrefix(t *testing.T) {
	store, dir := newLocalStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "b.pdf"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("c"), 0o644))

	all, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := store.List(context.Background(), "docs/")
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	for _, obj := range scoped {
		assert.Contains(t, obj.Key, "docs/")
	}
}

func TestLocalRequiresDir(t *testing.T) {
	_, err := New("local", map[string]interface{}{})
	assert.Error(t, err)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New("tape-archive", nil)
	assert.Error(t, err)
}
