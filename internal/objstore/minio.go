// Package objstore stores generated documents and uploaded images in
// an S3-compatible bucket.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mseller-cloud/mseller-server/internal/config"
)

const presignExpiry = 7 * 24 * time.Hour

// ObjectStore writes and removes bucket objects
type ObjectStore struct {
	client *minio.Client
	cfg    *config.StorageConfig
}

// NewObjectStore connects to the configured S3-compatible endpoint
func NewObjectStore(cfg *config.StorageConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	return &ObjectStore{client: client, cfg: cfg}, nil
}

// Put uploads an object and returns a URL a recipient can open.
// Public buckets get a stable URL, private buckets a presigned one.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return s.URL(ctx, key)
}

// URL resolves the download URL for an existing object
func (s *ObjectStore) URL(ctx context.Context, key string) (string, error) {
	if s.cfg.PublicObjects {
		return fmt.Sprintf("%s/%s/%s", s.cfg.PublicBaseURL, s.cfg.Bucket, key), nil
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return presigned.String(), nil
}

// Remove deletes an object
func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}
