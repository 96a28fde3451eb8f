package core

import (
	"errors"
)

// Domain errors - centralized error definitions
var (
	// Submission validation errors
	ErrEmptyDeviceName = errors.New("device name is required")
	ErrNoImage         = errors.New("an image must be selected")
	ErrEmptyImage      = errors.New("selected image is empty")
	ErrNotImage        = errors.New("selected file is not an image")

	// Submission lifecycle errors
	ErrSuperseded       = errors.New("submission was superseded")
	ErrMalformedVerdict = errors.New("analysis response is not a valid verdict")

	// Session errors
	ErrNoSession = errors.New("no active session")

	// Query errors
	ErrUnknownCategory = errors.New("unknown category")
)
