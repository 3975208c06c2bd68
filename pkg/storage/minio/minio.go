package minio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage/errdefs"
)

// MinioStorage stages media in a self-hosted bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
	logger logger.Logger
}

func (m *MinioStorage) Store(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if _, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		m.logger.Error("Failed to stage object", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// Get opens key. GetObject is lazy, so the object is stat'ed first to
// report a missing key as errdefs.ErrObjectNotFound.
func (m *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err == nil {
		_, err = obj.Stat()
		if err != nil {
			obj.Close()
		}
	}
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("failed to get %s: %w", key, errdefs.ErrObjectNotFound)
		}
		m.logger.Error("Failed to read staged object", logger.String("key", key), logger.Error(err))
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return obj, nil
}

func (m *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		m.logger.Warn("Failed to delete staged object", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// CleanupBefore deletes objects under prefix last modified before threshold.
func (m *MinioStorage) CleanupBefore(ctx context.Context, prefix string, threshold time.Time) (int, error) {
	deleted := 0
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return deleted, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		if !strings.HasPrefix(obj.Key, prefix) || !obj.LastModified.Before(threshold) {
			continue
		}
		if m.Delete(ctx, obj.Key) == nil {
			deleted++
		}
	}
	if deleted > 0 {
		m.logger.Info("Purged expired staged objects",
			logger.String("prefix", prefix),
			logger.Int("deleted", deleted),
		)
	}
	return deleted, nil
}

func NewMinioStorage(ctx context.Context, log logger.Logger) (*MinioStorage, error) {
	c := cfg.GetMinioConfig()
	log = log.Named("minio")

	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", c.Bucket, err)
	}
	switch {
	case exists:
	case c.CreateBucket:
		if err := client.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{Region: c.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", c.Bucket, err)
		}
		log.Info("Created staging bucket", logger.String("bucket", c.Bucket))
	default:
		return nil, fmt.Errorf("staging bucket %s does not exist", c.Bucket)
	}

	log.Info("MinIO staging ready", logger.String("endpoint", c.Endpoint), logger.String("bucket", c.Bucket))
	return &MinioStorage{client: client, bucket: c.Bucket, logger: log}, nil
}

func GetClient(ctx context.Context, log logger.Logger) (*MinioStorage, error) {
	return NewMinioStorage(ctx, log)
}
