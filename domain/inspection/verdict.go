package inspection

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"screenscan/domain/core"

	"github.com/tidwall/gjson"
)

// Verdict is the analysis service's answer for one image. Status is required;
// every other field is optional and nil when the service omitted it.
type Verdict struct {
	Status     string   `json:"status"`
	Type       *string  `json:"type,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"` // normalised to [0,1]
	// ConfidenceText keeps a confidence value the service sent in a form we could not read.
	ConfidenceText string  `json:"confidence_text,omitempty"`
	Color          *string `json:"color,omitempty"`
	Raw            string  `json:"-"`
}

// IsDefect classifies the verdict by its status field.
func (v Verdict) IsDefect() bool {
	return IsDefect(v.Status)
}

// ParseVerdict validates a service response body and lifts it into a Verdict.
func ParseVerdict(body []byte) (Verdict, error) {
	if !gjson.ValidBytes(body) {
		return Verdict{}, fmt.Errorf("%w: body is not JSON", core.ErrMalformedVerdict)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Verdict{}, fmt.Errorf("%w: body is not an object", core.ErrMalformedVerdict)
	}

	status := root.Get("status")
	if status.Type != gjson.String || strings.TrimSpace(status.Str) == "" {
		return Verdict{}, fmt.Errorf("%w: missing status", core.ErrMalformedVerdict)
	}

	v := Verdict{Status: status.Str, Raw: root.Raw}
	if t := root.Get("type"); t.Type == gjson.String {
		v.Type = StringPtr(t.Str)
	}
	if c := root.Get("color"); c.Type == gjson.String {
		v.Color = StringPtr(c.Str)
	}

	switch c := root.Get("confidence"); c.Type {
	case gjson.Number:
		v.Confidence = normalizeConfidence(c.Num, false)
	case gjson.String:
		if f, ok := parseConfidenceText(c.Str); ok {
			v.Confidence = f
		} else {
			v.ConfidenceText = strings.TrimSpace(c.Str)
		}
	}
	return v, nil
}

// parseConfidenceText reads "0.93", "93" or "93.1%".
func parseConfidenceText(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	c := normalizeConfidence(f, percent)
	return c, c != nil
}

// normalizeConfidence brings a score into [0,1]; values in (1,100] are read as percentages.
func normalizeConfidence(f float64, percent bool) *float64 {
	if percent || (f > 1 && f <= 100) {
		f = f / 100
	}
	if math.IsNaN(f) || f < 0 || f > 1 {
		return nil
	}
	return &f
}
