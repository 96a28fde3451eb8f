// Package inspection holds the inspection record model and the derived views computed from it.
package inspection

import (
	"fmt"
	"strings"
	"time"

	"screenscan/domain/core"
)

// Record is a persisted inspection verdict. Records are immutable once created.
type Record struct {
	ID         int64     `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	DeviceName *string   `json:"device_name,omitempty" db:"device_name"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	Prediction string    `json:"prediction" db:"prediction"`
	DefectType *string   `json:"defect_type,omitempty" db:"defect_type"`
	Confidence *float64  `json:"confidence,omitempty" db:"confidence"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// IsDefect classifies the record by its prediction label.
func (r Record) IsDefect() bool {
	return IsDefect(r.Prediction)
}

// Label is the display label of the record: the defect type when known, else the prediction.
// Classification never uses it.
func (r Record) Label() string {
	if r.DefectType != nil && strings.TrimSpace(*r.DefectType) != "" {
		return *r.DefectType
	}
	return r.Prediction
}

// Draft carries the fields of a record before the store assigns ID and CreatedAt.
type Draft struct {
	UserID     string   `db:"user_id"`
	DeviceName *string  `db:"device_name"`
	ImageURL   string   `db:"image_url"`
	Prediction string   `db:"prediction"`
	DefectType *string  `db:"defect_type"`
	Confidence *float64 `db:"confidence"`
}

// VerdictLabel is the projection read for dashboard statistics.
type VerdictLabel struct {
	Prediction string   `db:"prediction"`
	Confidence *float64 `db:"confidence"`
}

// Category selects records in the history view.
type Category string

const (
	CategoryAll    Category = "All"
	CategoryDefect Category = "Defect"
	CategoryClean  Category = "Clean"
)

// ParseCategory accepts All, Defect or Clean in any case; empty means All.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return CategoryAll, nil
	case "defect":
		return CategoryDefect, nil
	case "clean":
		return CategoryClean, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownCategory, s)
}

// Matches reports whether a verdict label belongs to the category.
func (c Category) Matches(label string) bool {
	switch c {
	case CategoryDefect:
		return IsDefect(label)
	case CategoryClean:
		return !IsDefect(label)
	default:
		return true
	}
}

// StringPtr returns nil for an empty (after trimming) string.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
