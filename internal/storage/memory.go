package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryObject is an object held by MemoryClient.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryClient keeps objects in process memory. It backs MEDIA_BACKEND=memory
// for local development and tests.
type MemoryClient struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]MemoryObject
}

// NewMemoryClient constructs an empty in-memory bucket.
func NewMemoryClient(bucket string) *MemoryClient {
	return &MemoryClient{
		bucket:  bucket,
		objects: make(map[string]MemoryObject),
	}
}

func (m *MemoryClient) EnsureBucket(context.Context) error {
	return nil
}

func (m *MemoryClient) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = MemoryObject{Data: data, ContentType: contentType}
	return nil
}

func (m *MemoryClient) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

func (m *MemoryClient) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryClient) Bucket() string {
	return m.bucket
}

// Keys returns the stored keys.
func (m *MemoryClient) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
