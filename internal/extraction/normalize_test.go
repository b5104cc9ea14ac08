package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Hours(t *testing.T) {
	out := Normalize(map[string]any{
		"hours": []any{"Monday: 7:00 AM – 3:00 PM", "Tuesday: Closed", "Holiday hours vary"},
	})
	assert.Equal(t, map[string]any{"monday": "7:00 AM – 3:00 PM", "tuesday": "Closed"}, out["hours"])

	out = Normalize(map[string]any{"hours": map[string]any{"Monday ": "9-5", "Sunday": nil}})
	assert.Equal(t, map[string]any{"monday": "9-5"}, out["hours"])
}

func TestNormalize_DataQuality(t *testing.T) {
	out := Normalize(map[string]any{
		"data_quality": map[string]any{"score": "140", "confidence": "VERY HIGH", "missing_critical": "phone"},
	})
	dq := out["data_quality"].(map[string]any)
	assert.Equal(t, float64(100), dq["score"])
	assert.NotContains(t, dq, "confidence")
	assert.Equal(t, []any{"phone"}, dq["missing_critical"])
}

func TestNormalize_DropsUnusableValues(t *testing.T) {
	in := map[string]any{
		"business_name": " Acme ",
		"tagline":       map[string]any{"text": "nested"},
		"services":      []any{map[string]any{"description": "no name"}, 42.0},
		"testimonials":  []any{map[string]any{"author": "no quote"}},
		"social_media":  map[string]any{"facebook": "https://facebook.com/acme", "x": nil},
		"rating":        "n/a",
	}
	out := Normalize(in)

	assert.Equal(t, "Acme", out["business_name"])
	assert.NotContains(t, out, "tagline")
	assert.NotContains(t, out, "services")
	assert.NotContains(t, out, "testimonials")
	assert.NotContains(t, out, "rating")
	assert.Equal(t, map[string]any{"facebook": "https://facebook.com/acme"}, out["social_media"])
	assert.Equal(t, " Acme ", in["business_name"], "input not modified")
}
