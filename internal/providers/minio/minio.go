package minio

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"backend/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioProvider wraps the object store holding board images. Objects live
// under prj3/board/{boardId}/{fileName} and are served publicly through the
// bucket policy, so the stored key plus the configured prefix is the URL.
type MinioProvider struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewMinioProvider(cfg *config.Config, logger *zap.Logger) (*MinioProvider, error) {
	minioURL := cfg.MinioURL
	if !strings.HasPrefix(minioURL, "http://") && !strings.HasPrefix(minioURL, "https://") {
		minioURL = "https://" + minioURL
	}

	u, err := url.Parse(minioURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse minio URL: %w", err)
	}
	secure := u.Scheme == "https"

	logger.Info("Initializing MinIO", zap.String("url", minioURL), zap.Bool("secure", secure))

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: false},
	}
	tr.MaxIdleConnsPerHost = 256

	client, err := minio.New(u.Host, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.MinioUser, cfg.MinioPassword, ""),
		Secure:    secure,
		Transport: tr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	provider := &MinioProvider{
		client: client,
		bucket: cfg.MinioBucket,
		logger: logger,
	}

	if err := provider.ensureBucket(); err != nil {
		return nil, err
	}

	return provider, nil
}

func (m *MinioProvider) ensureBucket() error {
	ctx := context.Background()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		m.logger.Info("Created MinIO bucket", zap.String("bucket", m.bucket))
	}

	if err := m.setBucketPolicy(ctx); err != nil {
		m.logger.Warn("Failed to set bucket policy", zap.Error(err))
	}

	return nil
}

// Board images must be readable anonymously at the public URL, so the
// policy grants GetObject once per bucket instead of an ACL per object.
func (m *MinioProvider) setBucketPolicy(ctx context.Context) error {
	policy := `{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Sid": "PublicReadGetObject",
				"Effect": "Allow",
				"Principal": "*",
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::` + m.bucket + `/*"]
			}
		]
	}`
	return m.client.SetBucketPolicy(ctx, m.bucket, policy)
}

func (m *MinioProvider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	m.logger.Info("Object uploaded",
		zap.String("key", key),
		zap.Int64("size", size),
	)
	return nil
}

// Remove deletes one object. Removing a missing key is not an error.
func (m *MinioProvider) Remove(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	m.logger.Info("Object deleted", zap.String("key", key))
	return nil
}

// RemovePrefix deletes every object under the given prefix. Used when a
// board is destroyed and for orphan sweeps.
func (m *MinioProvider) RemovePrefix(ctx context.Context, prefix string) error {
	objectsCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return object.Err
		}
		if err := m.Remove(ctx, object.Key); err != nil {
			m.logger.Warn("Failed to delete object under prefix",
				zap.String("prefix", prefix),
				zap.String("key", object.Key),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (m *MinioProvider) CheckBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}

func (m *MinioProvider) Bucket() string {
	return m.bucket
}

// ContentTypeFor maps an uploaded filename to the content type stored with
// the object. Unknown extensions fall back to octet-stream.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	contentTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".bmp":  "image/bmp",
		".svg":  "image/svg+xml",
	}

	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
