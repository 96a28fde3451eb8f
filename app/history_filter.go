package app

import (
	"strconv"
	"strings"

	"screenscan/domain/inspection"
)

// FilterHistory returns the records matching category and query, in input order.
// A non-empty query must be a case-insensitive substring of the record ID or device name;
// records without a device name only match on ID. The input slice is never modified.
func FilterHistory(records []inspection.Record, category inspection.Category, query string) []inspection.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]inspection.Record, 0, len(records))
	for _, r := range records {
		if !category.Matches(r.Prediction) {
			continue
		}
		if q != "" && !matchesQuery(r, q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesQuery(r inspection.Record, q string) bool {
	if strings.Contains(strconv.FormatInt(r.ID, 10), q) {
		return true
	}
	return r.DeviceName != nil && strings.Contains(strings.ToLower(*r.DeviceName), q)
}
