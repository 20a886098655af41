package storage_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"frames/internal/storage"
	filestorage "frames/internal/storage/filestorage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileStorage(t *testing.T) (*filestorage.LocalFileStorage, string) {
	t.Helper()

	tempDir := t.TempDir()

	fs, err := filestorage.NewLocalFileStorage(tempDir, "http://test.local/uploads/")
	require.NoError(t, err)

	return fs, tempDir
}

func TestLocalFileStorage_Save(t *testing.T) {
	fs, tempDir := setupFileStorage(t)
	ctx := context.Background()

	t.Run("successful save", func(t *testing.T) {
		size, err := fs.Save(ctx, "albums/a1/photo.jpg", bytes.NewReader([]byte("test content")), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, int64(12), size)

		content, err := os.ReadFile(filepath.Join(tempDir, "albums", "a1", "photo.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "test content", string(content))
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(tempDir, "albums", "a1"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "photo.jpg", entries[0].Name())
	})

	t.Run("context canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := fs.Save(cctx, "albums/a1/canceled.jpg", bytes.NewReader([]byte("x")), "image/jpeg")
		assert.ErrorIs(t, err, context.Canceled)

		_, statErr := os.Stat(filepath.Join(tempDir, "albums", "a1", "canceled.jpg"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		_, err := fs.Save(ctx, "../escape.jpg", bytes.NewReader([]byte("x")), "image/jpeg")
		assert.ErrorIs(t, err, storage.ErrInvalidFileKey)

		_, err = fs.Save(ctx, "", bytes.NewReader([]byte("x")), "image/jpeg")
		assert.ErrorIs(t, err, storage.ErrInvalidFileKey)
	})
}

func TestLocalFileStorage_ConcurrentSaves(t *testing.T) {
	fs, tempDir := setupFileStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fs.Save(ctx, fmt.Sprintf("albums/a2/%02d.jpg", i), bytes.NewReader([]byte{byte(i)}), "image/jpeg")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(tempDir, "albums", "a2"))
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestLocalFileStorage_Delete(t *testing.T) {
	fs, tempDir := setupFileStorage(t)
	ctx := context.Background()

	_, err := fs.Save(ctx, "albums/a3/one.jpg", bytes.NewReader([]byte("1")), "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, fs.Delete(ctx, "albums/a3/one.jpg"))

	_, err = os.Stat(filepath.Join(tempDir, "albums", "a3"))
	assert.True(t, os.IsNotExist(err), "empty album dir should be removed")

	err = fs.Delete(ctx, "albums/a3/one.jpg")
	assert.ErrorIs(t, err, storage.ErrFileNotFound)
}

func TestLocalFileStorage_URL(t *testing.T) {
	fs, tempDir := setupFileStorage(t)

	assert.Equal(t, "http://test.local/uploads/albums/a1/x.jpg", fs.URL("albums/a1/x.jpg"))
	assert.Equal(t, "http://test.local/uploads/albums/a1/x.jpg", fs.URL("/albums/a1/x.jpg"))
	assert.Equal(t, tempDir, fs.GetBaseDir())
}
