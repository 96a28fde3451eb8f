package ports

import (
	"context"

	"screenscan/domain/inspection"
)

// AnalysisRequest is one image submitted for inspection
type AnalysisRequest struct {
	Image       []byte
	Filename    string
	ContentType string
	DeviceName  string
	UserID      string // empty for anonymous submissions
}

// AnalysisService classifies a device image
type AnalysisService interface {
	Analyze(ctx context.Context, req AnalysisRequest) (inspection.Verdict, error)
}
