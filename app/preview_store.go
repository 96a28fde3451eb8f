package app

import (
	"sync"

	"github.com/google/uuid"
)

// Preview is a locally held copy of a selected image, addressable by ID until released
type Preview struct {
	ID          string
	Filename    string
	ContentType string
	Data        []byte
}

// PreviewStore holds image previews for every connected browser
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]Preview
}

// NewPreviewStore creates an empty preview store
func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string]Preview)}
}

// Create registers a preview and returns its handle
func (s *PreviewStore) Create(filename, contentType string, data []byte) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.previews[id] = Preview{ID: id, Filename: filename, ContentType: contentType, Data: data}
	s.mu.Unlock()
	return id
}

// Get returns the preview behind id
func (s *PreviewStore) Get(id string) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.previews[id]
	return p, ok
}

// Release drops the preview; releasing an unknown or empty handle is a no-op
func (s *PreviewStore) Release(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.previews, id)
	s.mu.Unlock()
}

// Len returns the number of live previews
func (s *PreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}
