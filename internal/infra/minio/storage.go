package minio

import (
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage moves videos and converted WebPs between the worker and the two
// object-store buckets: sources are read from the upload bucket, results
// land in the webp bucket.
type Storage struct {
	client       *miniogo.Client
	uploadBucket string
	webpBucket   string
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UploadBucket string
	WebPBucket   string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:       client,
		uploadBucket: cfg.UploadBucket,
		webpBucket:   cfg.WebPBucket,
	}, nil
}

// EnsureBuckets creates both buckets when missing. Safe to run on every
// worker start.
func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.webpBucket} {
		if err := s.ensureBucket(ctx, bucket); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// DownloadVideo fetches a source video from the upload bucket to a local
// path for ffmpeg to read.
func (s *Storage) DownloadVideo(ctx context.Context, objectKey string, destPath string) error {
	if err := s.client.FGetObject(ctx, s.uploadBucket, objectKey, destPath, miniogo.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download video %s: %w", objectKey, err)
	}
	return nil
}

// UploadWebP stores a finished conversion in the webp bucket.
func (s *Storage) UploadWebP(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.webpBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: "image/webp",
	})
	if err != nil {
		return fmt.Errorf("upload webp %s: %w", objectKey, err)
	}
	return nil
}
