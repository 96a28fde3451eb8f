package app

import (
	"testing"

	"screenscan/domain/core"
	"screenscan/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFileReplacesAndReleasesPreview(t *testing.T) {
	previews := NewPreviewStore()
	u := NewUploadSelector(previews)
	u.SetDeviceName("Galaxy S21")

	first, err := u.SelectFile("a.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", first.ContentType)
	assert.Equal(t, "Galaxy S21", first.DeviceName)
	assert.True(t, first.HasImage())

	second, err := u.SelectFile("b.png", pngBytes)
	require.NoError(t, err)
	assert.NotEqual(t, first.PreviewID, second.PreviewID)
	assert.Equal(t, 1, previews.Len())
	_, ok := previews.Get(first.PreviewID)
	assert.False(t, ok)

	p, ok := u.Preview()
	require.True(t, ok)
	assert.Equal(t, "b.png", p.Filename)
	assert.Equal(t, "Galaxy S21", u.Pending().DeviceName)
}

func TestSelectFileCopiesInput(t *testing.T) {
	u := NewUploadSelector(nil)
	data := append([]byte(nil), pngBytes...)

	_, err := u.SelectFile("a.png", data)
	require.NoError(t, err)
	data[0] = 0

	assert.Equal(t, pngBytes, u.Pending().Data)
}

func TestSelectFileRejectsEmptyAndNonImage(t *testing.T) {
	u := NewUploadSelector(nil)

	_, err := u.SelectFile("empty.png", nil)
	assert.ErrorIs(t, err, core.ErrEmptyImage)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	_, err = u.SelectFile("notes.txt", []byte("plain text, not an image"))
	assert.ErrorIs(t, err, core.ErrNotImage)
	assert.False(t, u.Pending().HasImage())
}

func TestClearReleasesEverything(t *testing.T) {
	previews := NewPreviewStore()
	u := NewUploadSelector(previews)
	u.SetDeviceName("Pixel 7")
	_, err := u.SelectFile("a.png", pngBytes)
	require.NoError(t, err)

	u.Clear()

	assert.Equal(t, 0, previews.Len())
	assert.Equal(t, PendingSubmission{}, u.Pending())
	_, ok := u.Preview()
	assert.False(t, ok)
}
