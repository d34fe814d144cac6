package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetKey(t *testing.T) {
	key := AssetKey("game", 12, "cover", "great-game.JPG")

	assert.True(t, strings.HasPrefix(key, "games/12/cover/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, AssetKey("game", 12, "cover", "great-game.JPG"))
}

func TestLocalStorage_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir, "http://localhost:8080/uploads/")

	url, err := store.Put(context.Background(), "games/1/cover/a.jpg", "image/jpeg", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/games/1/cover/a.jpg", url)

	written, err := os.ReadFile(filepath.Join(dir, "games", "1", "cover", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(written))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	store := NewLocalStorage(t.TempDir(), "http://localhost/uploads")

	for _, key := range []string{"../escape.jpg", "games/../../x.jpg", ""} {
		_, err := store.Put(context.Background(), key, "image/jpeg", []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestValidateContentType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/png"}
	assert.NoError(t, ValidateContentType("image/png", allowed))
	assert.Error(t, ValidateContentType("text/html", allowed))
}

func TestValidateFileSize(t *testing.T) {
	assert.NoError(t, ValidateFileSize(10, 10))
	assert.Error(t, ValidateFileSize(11, 10))
}
