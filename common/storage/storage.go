package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNoBucket = errors.New("storage bucket is not configured")

// StorageService defines the interface for storage operations
type StorageService interface {
	// Upload uploads content and returns the object name
	Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error)

	// StreamUpload uploads from a reader and returns the object name
	StreamUpload(ctx context.Context, bucket, objectName string, reader io.Reader, contentType string) (string, error)
}

// BucketStore binds a StorageService to one bucket. It stores the page
// captures taken when appointments are found.
type BucketStore struct {
	service StorageService
	bucket  string
}

func NewBucketStore(service StorageService, bucket string) (*BucketStore, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	return &BucketStore{service: service, bucket: bucket}, nil
}

func (b *BucketStore) Upload(ctx context.Context, objectName string, content []byte, contentType string) (string, error) {
	return b.service.Upload(ctx, b.bucket, objectName, content, contentType)
}
