package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	miniocredentials "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
)

var (
	ErrUploadFailed = errors.New("failed to upload file")
	ErrDeleteFailed = errors.New("failed to delete file")
)

// ObjectStorage stores uploaded files under keys and serves them from public URLs.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	KeyFromURL(fileURL string) (string, bool)
}

// S3Storage talks to AWS S3 or any S3 compatible endpoint through minio-go.
type S3Storage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewS3Storage(cfg config.StorageConfig, awsCfg config.AWSConfig) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}

	region := cfg.Region
	if region == "" {
		region = awsCfg.Region
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	var creds *miniocredentials.Credentials
	if awsCfg.AccessKeyID != "" {
		creds = miniocredentials.NewStaticV4(awsCfg.AccessKeyID, awsCfg.SecretAccessKey, "")
	} else {
		creds = miniocredentials.NewIAM("")
	}

	opts := &minio.Options{Creds: creds, Secure: cfg.UseSSL, Region: region}
	if cfg.Endpoint != "" {
		opts.BucketLookup = minio.BucketLookupPath
	}
	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3Storage) Remove(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

// KeyFromURL recovers the object key from a URL returned by Put. URLs on
// another S3 host are accepted by their path after ".amazonaws.com/".
func (s *S3Storage) KeyFromURL(fileURL string) (string, bool) {
	if key, ok := strings.CutPrefix(fileURL, s.baseURL+"/"); ok && key != "" {
		return key, true
	}
	if _, key, ok := strings.Cut(fileURL, ".amazonaws.com/"); ok && key != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			return unescaped, true
		}
		return key, true
	}
	return "", false
}
