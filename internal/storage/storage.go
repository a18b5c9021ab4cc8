// Package storage uploads listing exports to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/listingdesk/listingdesk/config"
)

// ErrDisabled is returned by Open when no storage backend is configured.
var ErrDisabled = errors.New("object storage is not configured")

// Backend defines the object operations the exports need.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
	// URL names key in the backend's own scheme, for logs and command output.
	URL(key string) string
}

// Storage wraps a Backend with a stable API.
type Storage struct {
	backend Backend
}

// New constructs a Storage wrapper for backend.
func New(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, ErrDisabled
	case "gcs":
		backend, err := newGCSBackend(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return New(backend), nil
	case "minio":
		backend, err := newMinioBackend(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return New(backend), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object to the configured bucket.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

func (s *Storage) URL(key string) string {
	return s.backend.URL(key)
}
