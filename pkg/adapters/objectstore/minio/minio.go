package minio

import (
	"context"
	"fmt"

	"github.com/aescanero/crossplot/pkg/ports"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config holds S3-compatible client configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Region    string
	Logger    *zap.Logger
}

// Storage implements ObjectStorage on top of a minio client
type Storage struct {
	client *minio.Client
	region string
	logger *zap.Logger
}

var _ ports.ObjectStorage = (*Storage)(nil)

// NewStorage creates a new S3-compatible storage client. No network call is
// made until the first operation.
func NewStorage(cfg *Config) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Storage{
		client: client,
		region: cfg.Region,
		logger: cfg.Logger,
	}, nil
}

// BucketExists reports whether bucket exists
func (s *Storage) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	return exists, nil
}

// MakeBucket creates bucket. Losing a creation race to ourselves is not an error.
func (s *Storage) MakeBucket(ctx context.Context, bucket string) error {
	err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region})
	if err == nil {
		s.logger.Info("bucket created", zap.String("bucket", bucket))
		return nil
	}

	if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
		s.logger.Debug("bucket already created", zap.String("bucket", bucket))
		return nil
	}

	return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
}

// PutFile uploads localPath under objectKey, replacing any previous object
func (s *Storage) PutFile(ctx context.Context, bucket, objectKey, localPath, contentType string) (int64, error) {
	info, err := s.client.FPutObject(ctx, bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s to %s/%s: %w", localPath, bucket, objectKey, err)
	}

	s.logger.Debug("object uploaded",
		zap.String("bucket", bucket),
		zap.String("object", objectKey),
		zap.Int64("size", info.Size),
		zap.String("etag", info.ETag))

	return info.Size, nil
}
