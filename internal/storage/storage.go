// Package storage publishes generated table files to object storage.
package storage

import (
	"context"

	generrors "github.com/arkilian/vecgen/internal/errors"
)

// Sentinel errors for errors.Is matching; GenError.Is compares category and code.
var (
	ErrUploadFailed   = generrors.New(generrors.ErrCategoryStorage, generrors.CodeUploadFailed, "upload failed")
	ErrObjectNotFound = generrors.New(generrors.ErrCategoryStorage, generrors.CodeObjectNotFound, "object not found")
)

// ObjectStorage abstracts the object stores files are published to.
// Implementations: local filesystem, AWS S3 and MinIO.
type ObjectStorage interface {
	// Upload copies the local file to objectPath, replacing any existing object.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Exists reports whether objectPath exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// Delete removes objectPath. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectPath string) error

	// ListObjects returns all object paths under prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// uploadError wraps cause as a retryable STORAGE error naming the object.
func uploadError(objectPath string, cause error) error {
	return generrors.NewStorageError(generrors.CodeUploadFailed, "upload failed", cause).
		WithDetails(map[string]interface{}{"object": objectPath})
}

// MultipartUploadConfig holds configuration for multipart uploads.
type MultipartUploadConfig struct {
	// PartSize is the size of each part in bytes (default: 8MB).
	PartSize int64
	// Concurrency is the number of concurrent part uploads (default: 5).
	Concurrency int
}

// DefaultMultipartConfig returns the default multipart upload configuration.
func DefaultMultipartConfig() MultipartUploadConfig {
	return MultipartUploadConfig{
		PartSize:    8 * 1024 * 1024,
		Concurrency: 5,
	}
}
