package inspection

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// DashboardSummary is derived on every dashboard visit and never persisted.
type DashboardSummary struct {
	Total             int      `json:"total"`
	Defects           int      `json:"defects"`
	Clean             int      `json:"clean"`
	PassRate          float64  `json:"pass_rate"`
	PassRateText      string   `json:"pass_rate_text"`
	AverageConfidence *float64 `json:"average_confidence,omitempty"`
	Recent            []Record `json:"recent"`
}

// EmptySummary is the summary shown before any data has loaded.
func EmptySummary() DashboardSummary {
	return DashboardSummary{PassRateText: FormatPassRate(0, 0), Recent: []Record{}}
}

// Summarize counts the labels with IsDefect and attaches the recent records.
func Summarize(labels []VerdictLabel, recent []Record) DashboardSummary {
	s := DashboardSummary{Total: len(labels), Recent: recent}
	if s.Recent == nil {
		s.Recent = []Record{}
	}

	confidences := make(stats.Float64Data, 0, len(labels))
	for _, l := range labels {
		if IsDefect(l.Prediction) {
			s.Defects++
		}
		// rows written before confidence validation may hold NaN
		if l.Confidence != nil && !math.IsNaN(*l.Confidence) {
			confidences = append(confidences, *l.Confidence)
		}
	}
	s.Clean = s.Total - s.Defects
	s.PassRate = PassRate(s.Clean, s.Total)
	s.PassRateText = FormatPassRate(s.Clean, s.Total)

	if mean, err := stats.Mean(confidences); err == nil {
		s.AverageConfidence = &mean
	}
	return s
}

// PassRate is clean/total, and 0 for an empty record set.
func PassRate(clean, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(clean) / float64(total)
}

// FormatPassRate renders the pass rate with one decimal, "0%" when there are no records.
func FormatPassRate(clean, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", PassRate(clean, total)*100)
}
