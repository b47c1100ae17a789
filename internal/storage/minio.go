package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds connection settings for a MinIO server.
type MinioConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Secure    bool
	// Prefix is prepended to every object path.
	Prefix string
}

// MinioStorage implements ObjectStorage for MinIO and other S3-compatible
// servers via minio-go.
type MinioStorage struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStorage connects to the server described by cfg.
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create minio client: %w", err)
	}
	return NewMinioStorageWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewMinioStorageWithClient wraps an existing client.
func NewMinioStorageWithClient(client *minio.Client, bucket, prefix string) *MinioStorage {
	return &MinioStorage{client: client, bucket: bucket, prefix: prefix}
}

// EnsureBucket creates the bucket when it does not exist.
func (m *MinioStorage) EnsureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("storage: failed to check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("storage: failed to create bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *MinioStorage) key(objectPath string) string {
	return path.Join(m.prefix, objectPath)
}

// Upload uploads a local file with FPutObject.
func (m *MinioStorage) Upload(ctx context.Context, localPath, objectPath string) error {
	_, err := m.client.FPutObject(ctx, m.bucket, m.key(objectPath), localPath, minio.PutObjectOptions{
		ContentType: contentType(objectPath),
	})
	if err != nil {
		return uploadError(objectPath, err)
	}
	return nil
}

// Exists checks if an object exists.
func (m *MinioStorage) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, m.key(objectPath), minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: failed to stat %s: %w", objectPath, err)
	}
	return true, nil
}

// Delete removes an object.
func (m *MinioStorage) Delete(ctx context.Context, objectPath string) error {
	err := m.client.RemoveObject(ctx, m.bucket, m.key(objectPath), minio.RemoveObjectOptions{})
	if err != nil && !isMinioNotFound(err) {
		return fmt.Errorf("storage: failed to delete %s: %w", objectPath, err)
	}
	return nil
}

// ListObjects returns all object paths under prefix, relative to the store
// prefix.
func (m *MinioStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var objects []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("storage: failed to list objects: %w", obj.Err)
		}
		name := strings.TrimPrefix(strings.TrimPrefix(obj.Key, m.prefix), "/")
		if name != "" {
			objects = append(objects, name)
		}
	}
	sort.Strings(objects)
	return objects, nil
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func contentType(objectPath string) string {
	switch path.Ext(objectPath) {
	case ".json":
		return "application/json"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
