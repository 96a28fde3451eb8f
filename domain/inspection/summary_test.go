package inspection

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeScenario(t *testing.T) {
	labels := []VerdictLabel{
		{Prediction: "Clean", Confidence: ptr(0.9)},
		{Prediction: "Defect: Dead Pixel", Confidence: ptr(0.6)},
		{Prediction: "Damaged"},
	}
	recent := []Record{{ID: 3}, {ID: 2}, {ID: 1}}

	s := Summarize(labels, recent)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Defects)
	assert.Equal(t, 1, s.Clean)
	assert.Equal(t, s.Total, s.Defects+s.Clean)
	assert.InDelta(t, 1.0/3.0, s.PassRate, 1e-9)
	assert.Equal(t, "33.3%", s.PassRateText)
	require.NotNil(t, s.AverageConfidence)
	assert.InDelta(t, 0.75, *s.AverageConfidence, 1e-9)
	assert.Equal(t, recent, s.Recent)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.PassRate)
	assert.Equal(t, "0%", s.PassRateText)
	assert.Nil(t, s.AverageConfidence)
	assert.NotNil(t, s.Recent)
	assert.Equal(t, EmptySummary(), s)
}

func TestPassRate(t *testing.T) {
	assert.Equal(t, 0.0, PassRate(0, 0))
	assert.Equal(t, 1.0, PassRate(4, 4))
	assert.Equal(t, "66.7%", FormatPassRate(2, 3))
	assert.Equal(t, "100.0%", FormatPassRate(5, 5))
}

func TestSummarizeSkipsNaNConfidence(t *testing.T) {
	labels := []VerdictLabel{
		{Prediction: "Clean", Confidence: ptr(0.8)},
		{Prediction: "Clean", Confidence: ptr(math.NaN())},
	}
	s := Summarize(labels, nil)

	require.NotNil(t, s.AverageConfidence)
	assert.InDelta(t, 0.8, *s.AverageConfidence, 1e-9)
	_, err := json.Marshal(s)
	assert.NoError(t, err)
}
