package objectstore

import (
	"context"
	"sync"

	"screenscan/ports"
)

// Object is a stored image
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps images in process and serves them under baseURL; for local runs and tests
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

var _ ports.ObjectStorage = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store whose public URLs are baseURL/<key>
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object), baseURL: baseURL}
}

func (m *MemoryStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.objects[path] = Object{Data: cp, ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PublicURL(path string) string {
	return joinURL(m.baseURL, path)
}

// Get returns the object stored under path
func (m *MemoryStore) Get(path string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[path]
	return o, ok
}

// Len returns the number of stored objects
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
