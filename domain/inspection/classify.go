package inspection

import "strings"

// IsDefect is the one classification rule for verdict labels: a label is a defect when,
// lower-cased, it contains "defect" or is exactly "damaged".
func IsDefect(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	return strings.Contains(l, "defect") || l == "damaged"
}

// Classify maps a verdict label to CategoryDefect or CategoryClean.
func Classify(label string) Category {
	if IsDefect(label) {
		return CategoryDefect
	}
	return CategoryClean
}
