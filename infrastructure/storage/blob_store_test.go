package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestLocalBlobStore_StoreDetectsRealType(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	store, err := NewLocalBlobStore(log, t.TempDir(), "https://cdn.example/attachments")
	req.NoError(err)

	// Given a PNG uploaded with a lying content type
	attachment, err := store.Store(context.Background(), "cat.jpg", "image/jpeg", pngHeader)
	req.NoError(err)

	// Then the extension follows the sniffed bytes, not the declaration
	req.True(strings.HasSuffix(attachment.PublicID, ".png"))
	req.Equal("https://cdn.example/attachments/"+attachment.PublicID, attachment.URL)

	data, err := os.ReadFile(filepath.Join(store.Dir(), attachment.PublicID))
	req.NoError(err)
	req.Equal(pngHeader, data)
}

func TestLocalBlobStore_DeleteIsIdempotent(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	store, err := NewLocalBlobStore(log, t.TempDir(), "https://cdn.example/attachments")
	req.NoError(err)

	attachment, err := store.Store(context.Background(), "cat.png", "image/png", pngHeader)
	req.NoError(err)

	req.NoError(store.Delete(context.Background(), []string{attachment.PublicID}))
	req.NoFileExists(filepath.Join(store.Dir(), attachment.PublicID))

	// Deleting again is not an error
	req.NoError(store.Delete(context.Background(), []string{attachment.PublicID, "never-existed.png"}))
}

func TestLocalBlobStore_DeleteIgnoresTraversal(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "precious.txt")
	req.NoError(os.WriteFile(outside, []byte("keep me"), 0o644))

	store, err := NewLocalBlobStore(log, dir, "https://cdn.example/attachments")
	req.NoError(err)

	// A malicious stored id cannot reach outside the blob directory
	req.NoError(store.Delete(context.Background(), []string{"../" + filepath.Base(filepath.Dir(outside)) + "/precious.txt"}))
	req.FileExists(outside)
}
