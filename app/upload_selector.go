package app

import (
	"net/http"
	"strings"
	"sync"

	"screenscan/domain/core"
	"screenscan/internal/errors"
)

// PendingSubmission is the image and device-name hint chosen for the next submission
type PendingSubmission struct {
	PreviewID   string `json:"preview_id,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
	DeviceName  string `json:"device_name"`
	Data        []byte `json:"-"`
}

// HasImage reports whether an image is selected
func (p PendingSubmission) HasImage() bool {
	return len(p.Data) > 0
}

// UploadSelector holds at most one pending image; it never touches the network
type UploadSelector struct {
	mu       sync.Mutex
	previews *PreviewStore
	pending  PendingSubmission
}

// NewUploadSelector creates a selector whose previews live in previews
func NewUploadSelector(previews *PreviewStore) *UploadSelector {
	if previews == nil {
		previews = NewPreviewStore()
	}
	return &UploadSelector{previews: previews}
}

// sniffImage returns the content type of data, or a VALIDATION_ERROR when it is not an image
func sniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.Invalid(core.ErrEmptyImage)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.Invalid(core.ErrNotImage)
	}
	return contentType, nil
}

// SelectFile replaces the pending image, releasing the previous preview.
// The device-name hint is kept.
func (u *UploadSelector) SelectFile(filename string, data []byte) (PendingSubmission, error) {
	contentType, err := sniffImage(data)
	if err != nil {
		return PendingSubmission{}, err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	u.mu.Lock()
	defer u.mu.Unlock()

	u.previews.Release(u.pending.PreviewID)
	u.pending = PendingSubmission{
		PreviewID:   u.previews.Create(filename, contentType, buf),
		Filename:    filename,
		ContentType: contentType,
		Size:        len(buf),
		DeviceName:  u.pending.DeviceName,
		Data:        buf,
	}
	return u.pending, nil
}

// SetDeviceName stores the free-text device hint
func (u *UploadSelector) SetDeviceName(name string) {
	u.mu.Lock()
	u.pending.DeviceName = name
	u.mu.Unlock()
}

// Clear releases the preview and drops the image and device-name hint
func (u *UploadSelector) Clear() {
	u.mu.Lock()
	u.previews.Release(u.pending.PreviewID)
	u.pending = PendingSubmission{}
	u.mu.Unlock()
}

// Pending returns the current selection
func (u *UploadSelector) Pending() PendingSubmission {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pending
}

// Preview returns the preview of the current selection
func (u *UploadSelector) Preview() (Preview, bool) {
	u.mu.Lock()
	id := u.pending.PreviewID
	u.mu.Unlock()
	if id == "" {
		return Preview{}, false
	}
	return u.previews.Get(id)
}
