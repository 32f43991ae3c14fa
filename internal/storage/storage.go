// Package storage provides object storage for user-uploaded images.
// MinIO and Google Cloud Storage backends are selected by config.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shoplite/apiserver/config"
)

// Backend defines the object operations the app relies on, common to
// all storage backends.
type Backend interface {
	// EnsureBucket creates the configured bucket when it is missing.
	EnsureBucket(ctx context.Context) error

	// Upload stores an object under key.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Download opens a reader for the object stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes the object stored under key.
	Remove(ctx context.Context, key string) error

	// Bucket returns the configured bucket name.
	Bucket() string
}

// New selects and constructs the configured storage backend. An empty
// backend name returns a nil Backend: object storage stays disabled
// and the features that need it report themselves unavailable.
func New(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		return NewMinioBackend(cfg.Minio)
	case "gcs":
		return NewGCSBackend(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
