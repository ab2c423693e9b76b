package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/structiq/soqtender/config"
)

// AttachmentService issues opaque attachment references backed by MinIO.
// The engine stores only the reference id; upload and download happen
// directly against object storage via presigned URLs.
type AttachmentService struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

// NewAttachmentService creates a MinIO-backed attachment service
func NewAttachmentService(cfg *config.MinioConfig) (*AttachmentService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &AttachmentService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *AttachmentService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// NewUploadRef mints a fresh attachment reference and a presigned PUT URL
// the caller uploads against. The reference is the only thing the engine
// keeps.
func (s *AttachmentService) NewUploadRef(ctx context.Context, filename string) (ref string, uploadURL string, err error) {
	ref = uuid.New().String()
	objectName := ref
	if filename != "" {
		objectName = fmt.Sprintf("%s/%s", ref, filename)
	}

	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectName, s.expiry())
	if err != nil {
		return "", "", fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return objectName, u.String(), nil
}

// PresignedGet generates a presigned download URL for an attachment reference
func (s *AttachmentService) PresignedGet(ctx context.Context, ref string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref, s.expiry(), url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return u.String(), nil
}

// Remove deletes the object behind an attachment reference
func (s *AttachmentService) Remove(ctx context.Context, ref string) error {
	err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	return nil
}

func (s *AttachmentService) expiry() time.Duration {
	return time.Duration(s.config.ExpireDays) * 24 * time.Hour
}
