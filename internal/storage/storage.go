package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is implemented by every media backend.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Object is a fully buffered blob. Cover images are small enough to hold in
// memory, which lets every backend receive an exact size.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

// Storage adds bucket-qualified errors and idempotent removal on top of a
// backend.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Ready makes sure the bucket exists.
func (s *Storage) Ready(ctx context.Context) error {
	if err := s.backend.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.backend.Bucket(), err)
	}
	return nil
}

// Save writes obj, replacing any object already stored under its key.
func (s *Storage) Save(ctx context.Context, obj Object) error {
	if obj.Key == "" {
		return errors.New("object key is required")
	}
	err := s.backend.Put(ctx, obj.Key, bytes.NewReader(obj.Data), int64(len(obj.Data)), obj.ContentType)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.backend.Bucket(), obj.Key, err)
	}
	return nil
}

// Remove deletes key. An object that is already gone counts as removed.
func (s *Storage) Remove(ctx context.Context, key string) error {
	err := s.backend.Delete(ctx, key)
	if err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("delete %s/%s: %w", s.backend.Bucket(), key, err)
	}
	return nil
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
