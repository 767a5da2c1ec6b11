package storage

import (
	"context"
	"fmt"

	"github.com/inkpress/apiserver/config"
)

// NewBackend builds the object store selected by cfg.Backend.
func NewBackend(ctx context.Context, cfg config.MediaConfig) (ObjectStorage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "minio":
		var c *MinioClient
		c, err = NewMinioClient(cfg.Minio)
		backend = c
	case "gcs":
		var c *GCSClient
		c, err = NewGCSClient(ctx, cfg.GCS)
		backend = c
	case "s3":
		var c *S3Client
		c, err = NewS3Client(ctx, cfg.S3)
		backend = c
	case "memory":
		backend = NewMemoryClient("memory")
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s media backend: %w", cfg.Backend, err)
	}
	return backend, nil
}
