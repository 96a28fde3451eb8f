package objectstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"screenscan/internal"
	"screenscan/internal/errors"
	"screenscan/ports"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore stores images in a Google Cloud Storage bucket with create-only writes
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	logger        *internal.Logger
}

var _ ports.ObjectStorage = (*GCSStore)(nil)

// NewGCSStore creates a GCS store using application default credentials
func NewGCSStore(ctx context.Context, bucket, publicBaseURL string, logger *internal.Logger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GCS client")
	}
	return &GCSStore{client: client, bucket: bucket, publicBaseURL: publicBaseURL, logger: logger.With("gcs")}, nil
}

// Upload writes data under path unless an object with that name already exists
func (s *GCSStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return s.uploadError(path, err)
	}
	if err := w.Close(); err != nil {
		return s.uploadError(path, err)
	}
	return nil
}

func (s *GCSStore) uploadError(path string, err error) error {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		s.logger.Warn("object %s already exists, keeping the stored copy", path)
		return nil
	}
	return errors.PersistenceError(fmt.Sprintf("failed to upload gs://%s/%s", s.bucket, path), err)
}

// PublicURL returns the retrieval URL of path
func (s *GCSStore) PublicURL(path string) string {
	return gcsPublicURL(s.bucket, s.publicBaseURL, path)
}

func gcsPublicURL(bucket, publicBaseURL, path string) string {
	if publicBaseURL != "" {
		return joinURL(publicBaseURL, path)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, path)
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
