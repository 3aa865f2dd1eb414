package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/expanova/cita-watcher/common/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// snapshotCacheControl keeps captures out of shared caches; they show
// personal appointment pages.
const snapshotCacheControl = "private, max-age=86400"

// GCSStorage writes page captures to Google Cloud Storage.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage creates a GCS client. Without a credentials file the
// application default credentials are used.
func NewGCSStorage(ctx context.Context, cfg config.GCSConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	log.Info().Str("bucket", cfg.Bucket).Msg("GCS client ready")
	return &GCSStorage{client: client}, nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}

func (g *GCSStorage) Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error) {
	return g.StreamUpload(ctx, bucket, objectName, bytes.NewReader(content), contentType)
}

// StreamUpload creates objectName from reader. Objects are never
// overwritten, so the write is retried on transient errors and an object
// that already exists counts as uploaded.
func (g *GCSStorage) StreamUpload(ctx context.Context, bucket, objectName string, reader io.Reader, contentType string) (string, error) {
	obj := g.client.Bucket(bucket).
		Object(objectName).
		If(storage.Conditions{DoesNotExist: true}).
		Retryer(storage.WithPolicy(storage.RetryAlways))

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = snapshotCacheControl

	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			log.Debug().Str("object", objectName).Msg("Snapshot already stored")
			return objectName, nil
		}
		return "", fmt.Errorf("failed to finalize %s: %w", objectName, err)
	}
	return objectName, nil
}
