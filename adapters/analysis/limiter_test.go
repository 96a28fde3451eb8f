package analysis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"screenscan/domain/inspection"
	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingService struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (b *blockingService) Analyze(ctx context.Context, _ ports.AnalysisRequest) (inspection.Verdict, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-b.release
	return inspection.Verdict{Status: "Clean"}, nil
}

func TestLimitedCapsInFlight(t *testing.T) {
	inner := &blockingService{release: make(chan struct{})}
	limited := NewLimited(inner, 2)

	done := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := limited.Analyze(context.Background(), ports.AnalysisRequest{})
			done <- err
		}()
	}

	require.Eventually(t, func() bool { return inner.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(inner.release)
	for i := 0; i < 3; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, int32(2), inner.peak.Load())
}

func TestLimitedGivesUpWithContext(t *testing.T) {
	inner := &blockingService{release: make(chan struct{})}
	limited := NewLimited(inner, 1)

	go func() { _, _ = limited.Analyze(context.Background(), ports.AnalysisRequest{}) }()
	require.Eventually(t, func() bool { return inner.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := limited.Analyze(ctx, ports.AnalysisRequest{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNetworkError))
	close(inner.release)
}

func TestNewLimitedUnbounded(t *testing.T) {
	inner := &blockingService{}
	assert.Same(t, inner, NewLimited(inner, 0))
}
