// Package storage holds the disk-backed blob store for message attachments.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"chat-hive/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// LocalBlobStore writes attachment blobs to a directory and hands out URLs
// under baseURL. The public id doubles as the on-disk filename, so deletion
// needs no extra index.
type LocalBlobStore struct {
	log     *slog.Logger
	dir     string
	baseURL string
}

func NewLocalBlobStore(log *slog.Logger, dir, baseURL string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &LocalBlobStore{log: log, dir: dir, baseURL: baseURL}, nil
}

// Dir is the directory blobs live in, for mounting a file server on it.
func (s *LocalBlobStore) Dir() string { return s.dir }

// Store sniffs the real content type from the bytes, never trusting the
// declared one, and writes the blob under a fresh public id.
func (s *LocalBlobStore) Store(ctx context.Context, filename, contentType string, data []byte) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, err
	}

	detected := mimetype.Detect(data)
	publicID := uuid.NewString() + detected.Extension()

	path := filepath.Join(s.dir, publicID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.Attachment{}, fmt.Errorf("writing blob: %w", err)
	}

	s.log.Debug("Stored attachment",
		"public_id", publicID,
		"declared_type", contentType,
		"detected_type", detected.String(),
		"original_name", filename,
		"size", len(data))

	return domain.Attachment{
		PublicID: publicID,
		URL:      s.baseURL + "/" + publicID,
	}, nil
}

// Delete removes the named blobs. Missing files are not an error: the
// message is going away either way.
func (s *LocalBlobStore) Delete(ctx context.Context, publicIDs []string) error {
	for _, id := range publicIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Base strips any path traversal a stored id could carry.
		path := filepath.Join(s.dir, filepath.Base(id))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing blob %s: %w", id, err)
		}
	}
	return nil
}
