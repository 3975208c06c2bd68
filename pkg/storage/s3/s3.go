package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	cfg "github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage/errdefs"
)

// S3Storage stages media in one bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
	logger logger.Logger
}

func (s *S3Storage) Store(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("Failed to stage object", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// Get opens key. A missing key yields errdefs.ErrObjectNotFound.
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("failed to get %s: %w", key, errdefs.ErrObjectNotFound)
		}
		s.logger.Error("Failed to read staged object", logger.String("key", key), logger.Error(err))
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		s.logger.Warn("Failed to delete staged object", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// CleanupBefore pages through prefix and deletes objects last modified
// before threshold. Individual delete failures are skipped.
func (s *S3Storage) CleanupBefore(ctx context.Context, prefix string, threshold time.Time) (int, error) {
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(threshold) {
				continue
			}
			if s.Delete(ctx, aws.ToString(obj.Key)) == nil {
				deleted++
			}
		}
	}
	if deleted > 0 {
		s.logger.Info("Purged expired staged objects",
			logger.String("prefix", prefix),
			logger.Int("deleted", deleted),
		)
	}
	return deleted, nil
}

// NewS3Storage connects with static keys when configured, otherwise with
// the default AWS credential chain, and checks that the bucket exists.
func NewS3Storage(ctx context.Context, log logger.Logger) (*S3Storage, error) {
	c := cfg.GetS3Config()
	log = log.Named("s3")

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.Bucket)}); err != nil {
		return nil, fmt.Errorf("staging bucket %s is not reachable: %w", c.Bucket, err)
	}

	log.Info("S3 staging ready",
		logger.String("bucket", c.Bucket),
		logger.String("region", c.Region),
		logger.String("endpoint", c.Endpoint),
	)
	return &S3Storage{client: client, bucket: c.Bucket, logger: log}, nil
}

func GetClient(ctx context.Context, log logger.Logger) (*S3Storage, error) {
	return NewS3Storage(ctx, log)
}
