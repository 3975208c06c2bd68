package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage/errdefs"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage/minio"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage/s3"
)

type StorageType string

const (
	StorageTypeS3     StorageType = "s3"
	StorageTypeMinio  StorageType = "minio"
	StorageTypeMemory StorageType = "memory"
)

var ErrObjectNotFound = errdefs.ErrObjectNotFound

// Storage keeps media staged for async jobs.
type Storage interface {
	// Store writes r under key.
	Store(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes objects under prefix last modified before
	// threshold and returns how many were deleted.
	CleanupBefore(ctx context.Context, prefix string, threshold time.Time) (int, error)
}

// NewStorage builds the backend named by storageType.
func NewStorage(ctx context.Context, storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		client, err := s3.GetClient(ctx, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case StorageTypeMinio:
		client, err := minio.GetClient(ctx, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case StorageTypeMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
