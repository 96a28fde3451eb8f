package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"screenscan/internal/errors"
	"screenscan/ports"
)

// Reader serves stored images back over HTTP for the backends without a public endpoint
type Reader interface {
	Get(path string) (Object, bool)
}

// LocalStore keeps images on local disk under basePath and serves them under baseURL; for
// single-node deployments that want uploads to survive a restart
type LocalStore struct {
	basePath string
	baseURL  string
}

var (
	_ ports.ObjectStorage = (*LocalStore)(nil)
	_ Reader              = (*LocalStore)(nil)
	_ Reader              = (*MemoryStore)(nil)
)

// NewLocalStore creates the base directory if needed
func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStore{basePath: basePath, baseURL: baseURL}, nil
}

// Upload writes the object atomically; only keys built by ObjectKey are accepted
func (s *LocalStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	filePath, ok := s.keyToPath(path)
	if !ok {
		return errors.PersistenceError("image upload failed", fmt.Errorf("invalid object key %q", path))
	}
	if err := ctx.Err(); err != nil {
		return errors.PersistenceError("image upload failed", err)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.PersistenceError("image upload failed", fmt.Errorf("create directory %s: %w", dir, err))
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return errors.PersistenceError("image upload failed", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.PersistenceError("image upload failed", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.PersistenceError("image upload failed", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return errors.PersistenceError("image upload failed", err)
	}
	return nil
}

func (s *LocalStore) PublicURL(path string) string {
	return joinURL(s.baseURL, path)
}

// Get reads the object under path; the content type is sniffed from the bytes
func (s *LocalStore) Get(path string) (Object, bool) {
	filePath, ok := s.keyToPath(path)
	if !ok {
		return Object{}, false
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Object{}, false
	}
	return Object{Data: data, ContentType: http.DetectContentType(data)}, true
}

// keyToPath maps <prefix>/<user>/<ulid><ext> below basePath and rejects anything else
func (s *LocalStore) keyToPath(key string) (string, bool) {
	userID, _, ok := ParseKey(key)
	if !ok || userID == "." || userID == ".." || strings.ContainsAny(userID, `\`) {
		return "", false
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), true
}
