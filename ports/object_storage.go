package ports

import "context"

// ObjectStorage stores submitted images
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}
