package storage

import (
	"context"
	"io"
	"testing"

	"github.com/inkpress/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryClient("bucket")
	s := NewStorage(backend)
	require.NoError(t, s.Ready(ctx))

	require.NoError(t, s.Save(ctx, Object{Key: "a/b.png", Data: []byte("img"), ContentType: "image/png"}))
	assert.Equal(t, "image/png", backend.objects["a/b.png"].ContentType)

	rc, err := backend.Get(ctx, "a/b.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "img", string(data))

	require.NoError(t, s.Remove(ctx, "a/b.png"))
	require.NoError(t, s.Remove(ctx, "a/b.png"), "remove must be idempotent")

	_, err = backend.Get(ctx, "a/b.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, "bucket", s.Bucket())
}

func TestStorageSaveRequiresKey(t *testing.T) {
	err := NewStorage(NewMemoryClient("bucket")).Save(context.Background(), Object{Data: []byte("x")})
	assert.Error(t, err)
}

type missingBackend struct{ *MemoryClient }

func (missingBackend) Delete(context.Context, string) error { return ErrObjectNotFound }

func TestStorageRemoveIgnoresMissingObject(t *testing.T) {
	s := NewStorage(missingBackend{NewMemoryClient("bucket")})
	assert.NoError(t, s.Remove(context.Background(), "gone.png"))
}

func TestMinioErrorMapsMissingKey(t *testing.T) {
	assert.NoError(t, minioError(nil))
	assert.ErrorIs(t, minioError(minio.ErrorResponse{Code: "NoSuchKey"}), ErrObjectNotFound)
	assert.NotErrorIs(t, minioError(minio.ErrorResponse{Code: "AccessDenied"}), ErrObjectNotFound)
}

func TestNewBackendValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewBackend(ctx, config.MediaConfig{Backend: "cloudinary"})
	assert.Error(t, err)

	_, err = NewBackend(ctx, config.MediaConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "localhost:9000"}})
	assert.ErrorContains(t, err, "access key")

	_, err = NewBackend(ctx, config.MediaConfig{Backend: "s3"})
	assert.ErrorContains(t, err, "s3 bucket is required")

	backend, err := NewBackend(ctx, config.MediaConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryClient{}, backend)
}
