package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskmanager/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocalStore(root)
	assert.NoError(t, err)

	data := []byte("fake image bytes")
	path, err := store.Put(context.Background(), data, "photo.PNG")

	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "tasks/"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	written, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	assert.NoError(t, err)
	assert.Equal(t, data, written)

	err = store.Delete(context.Background(), path)
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(path)))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	err = store.Delete(context.Background(), "tasks/does-not-exist.png")
	assert.NoError(t, err)
}

func TestLocalStore_DeleteRejectsEscapingPath(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocalStore(root)
	assert.NoError(t, err)

	outside := filepath.Join(filepath.Dir(root), "victim.txt")
	assert.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))

	_ = store.Delete(context.Background(), "../victim.txt")

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestLocalStore_PutGeneratesUniqueNames(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	first, err := store.Put(context.Background(), []byte("a"), "same.jpg")
	assert.NoError(t, err)
	second, err := store.Put(context.Background(), []byte("b"), "same.jpg")
	assert.NoError(t, err)

	assert.NotEqual(t, first, second)
}
