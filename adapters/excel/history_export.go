// Package excel writes inspection history reports as XLSX workbooks.
package excel

import (
	"fmt"
	"io"
	"time"

	"screenscan/domain/inspection"

	"github.com/xuri/excelize/v2"
)

const (
	historySheet = "History"
	summarySheet = "Summary"
	dateLayout   = "2006-01-02 15:04"
)

var historyHeader = []interface{}{"ID", "Date", "Device", "Result", "Category", "Confidence", "Image"}

// WriteHistory writes records (already filtered and ordered) as a two-sheet workbook
func WriteHistory(w io.Writer, records []inspection.Record, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHistorySheet(f, records); err != nil {
		return err
	}
	if err := writeSummarySheet(f, records, generatedAt); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHistorySheet(f *excelize.File, records []inspection.Record) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return fmt.Errorf("percent style: %w", err)
	}

	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(historySheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range records {
		row := i + 2
		device := ""
		if r.DeviceName != nil {
			device = *r.DeviceName
		}
		var confidence interface{}
		if r.Confidence != nil {
			confidence = *r.Confidence
		}
		values := []interface{}{
			r.ID,
			r.CreatedAt.UTC().Format(dateLayout),
			device,
			r.Label(),
			string(inspection.Classify(r.Prediction)),
			confidence,
			r.ImageURL,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(historySheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		confCell, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(historySheet, confCell, confCell, percent); err != nil {
			return fmt.Errorf("style row %d: %w", row, err)
		}
	}

	widths := map[string]float64{"A": 8, "B": 18, "C": 24, "D": 28, "E": 10, "F": 12, "G": 60}
	for col, width := range widths {
		if err := f.SetColWidth(historySheet, col, col, width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(historyHeader), len(records)+1)
	if err := f.AutoFilter(historySheet, "A1:"+last, nil); err != nil {
		return fmt.Errorf("autofilter: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, records []inspection.Record, generatedAt time.Time) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	labels := make([]inspection.VerdictLabel, 0, len(records))
	for _, r := range records {
		labels = append(labels, inspection.VerdictLabel{Prediction: r.Prediction, Confidence: r.Confidence})
	}
	s := inspection.Summarize(labels, nil)

	rows := [][]interface{}{
		{"Generated", generatedAt.UTC().Format(dateLayout)},
		{"Total", s.Total},
		{"Defects", s.Defects},
		{"Clean", s.Clean},
		{"Pass rate", s.PassRateText},
	}
	if s.AverageConfidence != nil {
		rows = append(rows, []interface{}{"Average confidence", fmt.Sprintf("%.1f%%", *s.AverageConfidence*100)})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 20)
}
