package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryService struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryService) Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error) {
	return m.StreamUpload(ctx, bucket, objectName, bytes.NewReader(content), contentType)
}

func (m *memoryService) StreamUpload(_ context.Context, bucket, objectName string, reader io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.objects[bucket+"/"+objectName] = data
	m.types[bucket+"/"+objectName] = contentType
	return objectName, nil
}

func TestBucketStoreUpload(t *testing.T) {
	svc := &memoryService{objects: map[string][]byte{}, types: map[string]string{}}
	store, err := NewBucketStore(svc, "cita-snapshots")
	require.NoError(t, err)

	name, err := store.Upload(context.Background(), "snapshots/dgt/w-1/1.png", []byte{0x89, 'P'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "snapshots/dgt/w-1/1.png", name)
	assert.Equal(t, []byte{0x89, 'P'}, svc.objects["cita-snapshots/snapshots/dgt/w-1/1.png"])
	assert.Equal(t, "image/png", svc.types["cita-snapshots/snapshots/dgt/w-1/1.png"])
}

func TestBucketStoreRequiresBucket(t *testing.T) {
	_, err := NewBucketStore(&memoryService{}, "")
	assert.ErrorIs(t, err, ErrNoBucket)
}
