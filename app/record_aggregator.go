package app

import (
	"context"
	"sync"

	"screenscan/domain/inspection"
	"screenscan/internal"
	"screenscan/internal/errors"
	"screenscan/ports"

	"golang.org/x/sync/errgroup"
)

// DefaultRecentLimit is the number of recent records on the dashboard
const DefaultRecentLimit = 5

// RecordAggregator reads a user's records and derives the dashboard summary.
// It keeps the last good summary so a failed read leaves the view as it was.
type RecordAggregator struct {
	records     ports.RecordStore
	recentLimit int
	logger      *internal.Logger

	mu      sync.Mutex
	summary inspection.DashboardSummary
}

// NewRecordAggregator creates an aggregator; recentLimit <= 0 uses DefaultRecentLimit
func NewRecordAggregator(records ports.RecordStore, recentLimit int, logger *internal.Logger) *RecordAggregator {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &RecordAggregator{
		records:     records,
		recentLimit: recentLimit,
		logger:      logger.With("aggregator"),
		summary:     inspection.EmptySummary(),
	}
}

// LoadSummary reads the recent records and every verdict label concurrently and counts them.
// On a read error it returns the prior summary with a READ_ERROR.
func (a *RecordAggregator) LoadSummary(ctx context.Context, userID string) (inspection.DashboardSummary, error) {
	var (
		recent []inspection.Record
		labels []inspection.VerdictLabel
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = a.records.List(gctx, ports.RecordQuery{UserID: userID, Limit: a.recentLimit})
		return err
	})
	g.Go(func() error {
		var err error
		labels, err = a.records.ListLabels(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("dashboard read failed for user %s: %v", userID, err)
		return a.Summary(), errors.ReadError("dashboard", err)
	}

	summary := inspection.Summarize(labels, recent)
	a.mu.Lock()
	a.summary = summary
	a.mu.Unlock()
	return summary, nil
}

// LoadHistory returns every record of the user, newest first; empty with a READ_ERROR on failure
func (a *RecordAggregator) LoadHistory(ctx context.Context, userID string) ([]inspection.Record, error) {
	records, err := a.records.List(ctx, ports.RecordQuery{UserID: userID})
	if err != nil {
		a.logger.Error("history read failed for user %s: %v", userID, err)
		return []inspection.Record{}, errors.ReadError("history", err)
	}
	if records == nil {
		records = []inspection.Record{}
	}
	return records, nil
}

// Summary returns the last successfully loaded summary
func (a *RecordAggregator) Summary() inspection.DashboardSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.summary
	s.Recent = append([]inspection.Record(nil), a.summary.Recent...)
	if s.Recent == nil {
		s.Recent = []inspection.Record{}
	}
	return s
}

// Reset forgets the cached summary, used when the user signs out
func (a *RecordAggregator) Reset() {
	a.mu.Lock()
	a.summary = inspection.EmptySummary()
	a.mu.Unlock()
}
