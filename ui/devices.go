package ui

import "strings"

// knownDevices are the brand suggestions offered for the device-name hint
var knownDevices = []string{
	"Apple", "Samsung", "Google", "OnePlus", "Xiaomi", "Redmi", "iPad", "Motorola",
	"Nokia", "Sony", "LG", "HTC", "Realme", "Vivo", "Oppo", "Nothing",
}

// SuggestDevices returns the known brands containing q, case-insensitively, in list order
func SuggestDevices(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]string, 0, len(knownDevices))
	for _, d := range knownDevices {
		if strings.Contains(strings.ToLower(d), q) {
			out = append(out, d)
		}
	}
	return out
}
