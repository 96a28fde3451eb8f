package app

import (
	"fmt"

	"screenscan/domain/inspection"
)

const (
	ColorRed         = "red"
	ColorGreen       = "green"
	PlaceholderText  = "Ready for Inspection"
	NoConfidenceText = "N/A"
	recordDateLayout = "2006-01-02"
)

// DisplayResult is the presentation of the submitter's terminal state
type DisplayResult struct {
	Empty          bool                `json:"empty"`
	Placeholder    string              `json:"placeholder,omitempty"`
	StatusText     string              `json:"status_text,omitempty"`
	CategoryLabel  string              `json:"category_label,omitempty"`
	ConfidenceText string              `json:"confidence_text,omitempty"`
	Color          string              `json:"color,omitempty"`
	Category       inspection.Category `json:"category,omitempty"`
}

// Project maps a snapshot to its display result; only Succeeded carries a verdict
func Project(snap Snapshot) DisplayResult {
	if snap.State != StateSucceeded || snap.Verdict == nil {
		return DisplayResult{Empty: true, Placeholder: PlaceholderText}
	}
	return ProjectVerdict(*snap.Verdict)
}

// ProjectVerdict colours the verdict with the shared defect predicate applied to its status
func ProjectVerdict(v inspection.Verdict) DisplayResult {
	category := inspection.Classify(v.Status)
	color := ColorGreen
	if inspection.IsDefect(v.Status) {
		color = ColorRed
	}
	label := string(category)
	if v.Type != nil {
		label = *v.Type
	}
	return DisplayResult{
		StatusText:     v.Status,
		CategoryLabel:  label,
		ConfidenceText: FormatConfidence(v.Confidence, v.ConfidenceText),
		Color:          color,
		Category:       category,
	}
}

// FormatConfidence renders a [0,1] score as "98.5%", falling back to the raw text and then "N/A"
func FormatConfidence(c *float64, raw string) string {
	switch {
	case c != nil:
		return fmt.Sprintf("%.1f%%", *c*100)
	case raw != "":
		return raw
	default:
		return NoConfidenceText
	}
}

// RecordRow is one history row
type RecordRow struct {
	ID             int64               `json:"id"`
	Date           string              `json:"date"`
	Device         string              `json:"device"`
	Label          string              `json:"label"`
	Color          string              `json:"color"`
	Category       inspection.Category `json:"category"`
	ConfidenceText string              `json:"confidence_text"`
	ImageURL       string              `json:"image_url"`
}

// ProjectRecord maps a stored record to a history row; the badge shows the defect type when
// known but is coloured by the prediction
func ProjectRecord(r inspection.Record) RecordRow {
	device := ""
	if r.DeviceName != nil {
		device = *r.DeviceName
	}
	color := ColorGreen
	if r.IsDefect() {
		color = ColorRed
	}
	return RecordRow{
		ID:             r.ID,
		Date:           r.CreatedAt.Format(recordDateLayout),
		Device:         device,
		Label:          r.Label(),
		Color:          color,
		Category:       inspection.Classify(r.Prediction),
		ConfidenceText: FormatConfidence(r.Confidence, ""),
		ImageURL:       r.ImageURL,
	}
}

// ProjectRecords maps records in order
func ProjectRecords(records []inspection.Record) []RecordRow {
	rows := make([]RecordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, ProjectRecord(r))
	}
	return rows
}
