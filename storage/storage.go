package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("object not found")

// Storage interface for object storage operations
type Storage interface {
	// Upload stores data under key and returns the storage path
	Upload(ctx context.Context, key string, data io.Reader) (string, error)

	// Download retrieves an object by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes an object by storage path
	Delete(ctx context.Context, storagePath string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	S3Endpoint   string // S3-compatible endpoint, e.g. MinIO
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(ctx context.Context, cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		localPath := cfg.LocalPath
		if localPath == "" {
			localPath = "./storage/files"
		}
		return NewLocalStorage(localPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3 bucket is required for S3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// PublishVersioned stores data under key after keeping an archived copy.
// It returns the archive path.
func PublishVersioned(ctx context.Context, s Storage, key string, data []byte) (string, error) {
	archived, err := s.Upload(ctx, archivePath(uuid.New(), time.Now().UTC(), key), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}
	if _, err := s.Upload(ctx, cleanKey(key), bytes.NewReader(data)); err != nil {
		err = fmt.Errorf("failed to publish %s: %w", key, err)
		if delErr := s.Delete(ctx, archived); delErr != nil {
			return archived, errors.Join(err, fmt.Errorf("failed to remove archive %s: %w", archived, delErr))
		}
		return "", err
	}
	return archived, nil
}

// ReadAll downloads an object fully
func ReadAll(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, err := s.Download(ctx, cleanKey(key))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// archivePath generates a unique archive path for a published object
func archivePath(id uuid.UUID, at time.Time, key string) string {
	key = cleanKey(key)
	base := path.Base(key)
	ext := path.Ext(base)
	name := fmt.Sprintf("%s_%s_%s%s", strings.TrimSuffix(base, ext), at.Format("20060102T150405Z"), id.String()[:8], ext)
	return path.Join("archive", path.Dir(key), name)
}

// cleanKey sanitizes a storage key into a relative slash-separated path
func cleanKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	key = path.Clean("/" + key)
	return strings.TrimPrefix(key, "/")
}

// getContentType determines content type from the key's extension
func getContentType(key string) string {
	switch path.Ext(key) {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	case ".html":
		return "text/html; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
