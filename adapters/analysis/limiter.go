package analysis

import (
	"context"
	"fmt"

	"screenscan/domain/inspection"
	"screenscan/internal/errors"
	"screenscan/ports"

	"golang.org/x/sync/semaphore"
)

// Limited caps the number of analysis requests in flight across all workspaces
type Limited struct {
	next ports.AnalysisService
	sem  *semaphore.Weighted
}

var _ ports.AnalysisService = (*Limited)(nil)

// NewLimited wraps next; max <= 0 returns next unchanged
func NewLimited(next ports.AnalysisService, max int64) ports.AnalysisService {
	if max <= 0 {
		return next
	}
	return &Limited{next: next, sem: semaphore.NewWeighted(max)}
}

// Analyze waits for capacity, bounded by ctx, then forwards the request
func (l *Limited) Analyze(ctx context.Context, req ports.AnalysisRequest) (inspection.Verdict, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return inspection.Verdict{}, errors.NetworkError(serviceName, fmt.Errorf("waiting for capacity: %w", err))
	}
	defer l.sem.Release(1)
	return l.next.Analyze(ctx, req)
}
