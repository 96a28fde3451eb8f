package testkit_test

import (
	"context"
	"testing"
	"time"

	"screenscan/app"
	"screenscan/domain/inspection"
	"screenscan/internal/testkit"
	"screenscan/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRecordStoreOrdersNewestFirst(t *testing.T) {
	store := testkit.NewInMemoryRecordStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.Seed(
		inspection.Record{UserID: "u1", Prediction: "Clean", CreatedAt: base},
		inspection.Record{UserID: "u1", Prediction: "Defect", CreatedAt: base.Add(2 * time.Hour)},
		inspection.Record{UserID: "u2", Prediction: "Defect", CreatedAt: base.Add(time.Hour)},
	)

	recs, err := store.List(context.Background(), ports.RecordQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Defect", recs[0].Prediction)

	limited, err := store.List(context.Background(), ports.RecordQuery{UserID: "u1", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	rec, err := store.Create(context.Background(), inspection.Draft{UserID: "u2", Prediction: "Clean"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), rec.ID)
	assert.Equal(t, 4, store.Len())

	_, err = store.Create(context.Background(), inspection.Draft{Prediction: "Clean"})
	assert.Error(t, err)
}

func TestAggregatorOverInMemoryStore(t *testing.T) {
	store := testkit.NewInMemoryRecordStore()
	now := time.Now()
	store.Seed(
		inspection.Record{UserID: "u1", Prediction: "Defect", Confidence: testkit.Ptr(0.9), CreatedAt: now},
		inspection.Record{UserID: "u1", Prediction: "Clean", Confidence: testkit.Ptr(0.7), CreatedAt: now.Add(-time.Minute)},
		inspection.Record{UserID: "u1", Prediction: "Clean", CreatedAt: now.Add(-2 * time.Minute)},
	)

	agg := app.NewRecordAggregator(store, 2, nil)
	s, err := agg.LoadSummary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Defects)
	assert.Equal(t, 2, s.Clean)
	require.NotNil(t, s.AverageConfidence)
	assert.InDelta(t, 0.8, *s.AverageConfidence, 1e-9)
	assert.Len(t, s.Recent, 2)

	history, err := agg.LoadHistory(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, app.FilterHistory(history, inspection.CategoryClean, ""), 2)
}
