package inspection

import (
	"testing"

	"screenscan/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdictFull(t *testing.T) {
	v, err := ParseVerdict([]byte(`{"status":"Defect: Dead Pixel","type":"Dead Pixel","confidence":0.93,"color":"red"}`))
	require.NoError(t, err)

	assert.Equal(t, "Defect: Dead Pixel", v.Status)
	require.NotNil(t, v.Type)
	assert.Equal(t, "Dead Pixel", *v.Type)
	require.NotNil(t, v.Confidence)
	assert.InDelta(t, 0.93, *v.Confidence, 1e-9)
	require.NotNil(t, v.Color)
	assert.Equal(t, "red", *v.Color)
	assert.True(t, v.IsDefect())
}

func TestParseVerdictOptionalFields(t *testing.T) {
	v, err := ParseVerdict([]byte(`{"status":"Clean"}`))
	require.NoError(t, err)

	assert.Nil(t, v.Type)
	assert.Nil(t, v.Confidence)
	assert.Nil(t, v.Color)
	assert.Empty(t, v.ConfidenceText)
	assert.False(t, v.IsDefect())
}

func TestParseVerdictConfidenceForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *float64
		text string
	}{
		{"fraction", `{"status":"Clean","confidence":0.5}`, ptr(0.5), ""},
		{"percent number", `{"status":"Clean","confidence":98.5}`, ptr(0.985), ""},
		{"percent string", `{"status":"Clean","confidence":"98.5%"}`, ptr(0.985), ""},
		{"numeric string", `{"status":"Clean","confidence":"0.25"}`, ptr(0.25), ""},
		{"text", `{"status":"Clean","confidence":"high"}`, nil, "high"},
		{"out of range", `{"status":"Clean","confidence":250}`, nil, ""},
		{"negative", `{"status":"Clean","confidence":-0.1}`, nil, ""},
		{"nan string", `{"status":"Clean","confidence":"NaN"}`, nil, "NaN"},
		{"infinite string", `{"status":"Clean","confidence":"Inf"}`, nil, "Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVerdict([]byte(tt.body))
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, v.Confidence)
			} else {
				require.NotNil(t, v.Confidence)
				assert.InDelta(t, *tt.want, *v.Confidence, 1e-9)
			}
			assert.Equal(t, tt.text, v.ConfidenceText)
		})
	}
}

func TestParseVerdictRejectsMalformed(t *testing.T) {
	bodies := []string{
		`not json`,
		`[1,2]`,
		`{}`,
		`{"status":""}`,
		`{"status":"   "}`,
		`{"status":42}`,
	}
	for _, b := range bodies {
		_, err := ParseVerdict([]byte(b))
		assert.ErrorIs(t, err, core.ErrMalformedVerdict, b)
	}
}

func ptr(f float64) *float64 { return &f }

func TestParseVerdictKeepsStatusVerbatim(t *testing.T) {
	v, err := ParseVerdict([]byte(`{"status":" Damaged "}`))
	require.NoError(t, err)
	assert.Equal(t, " Damaged ", v.Status)
	assert.True(t, v.IsDefect())
}
