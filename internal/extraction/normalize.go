package extraction

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/site-generator/internal/types"
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Normalize coerces a decoded extraction response into the record contract.
// It accepts the looser shapes models commonly return (string services,
// "text" for quotes, numeric prices, a flat rating with review_count, flat
// data_quality_score/missing_fields) and drops values it cannot coerce.
// The input map is not modified.
func Normalize(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	if s, ok := out["business_name"].(string); ok {
		out["business_name"] = strings.TrimSpace(s)
	}
	if _, ok := out["category"]; !ok {
		if bt, ok := out["business_type"].(string); ok {
			out["category"] = bt
		}
	}
	delete(out, "business_type")

	for _, key := range []string{"tagline", "description_short", "description_long", "category", "year_established"} {
		if v, ok := out[key]; ok {
			if s := scalarString(v); s != "" {
				out[key] = s
			} else {
				delete(out, key)
			}
		}
	}

	normalizeList(out, "services", normalizeOffering)
	normalizeList(out, "testimonials", normalizeTestimonial)
	normalizeStrings(out, "unique_selling_points")
	normalizeStringMap(out, "contact")
	normalizeStringMap(out, "social_media")
	normalizeHours(out)
	normalizeRating(out)
	normalizeDataQuality(out)
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func normalizeList(m map[string]any, key string, item func(any) map[string]any) {
	raw, ok := m[key]
	if !ok {
		return
	}
	list, ok := raw.([]any)
	if !ok {
		delete(m, key)
		return
	}
	out := make([]any, 0, len(list))
	for _, v := range list {
		if obj := item(v); obj != nil {
			out = append(out, obj)
		}
	}
	if len(out) == 0 {
		delete(m, key)
		return
	}
	m[key] = out
}

func normalizeOffering(v any) map[string]any {
	switch t := v.(type) {
	case string:
		if name := strings.TrimSpace(t); name != "" {
			return map[string]any{"name": name}
		}
	case map[string]any:
		name := scalarString(t["name"])
		if name == "" {
			name = scalarString(t["title"])
		}
		if name == "" {
			return nil
		}
		out := map[string]any{"name": name}
		for _, k := range []string{"description", "price", "icon"} {
			if s := scalarString(t[k]); s != "" {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

func normalizeTestimonial(v any) map[string]any {
	t, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	quote := ""
	for _, k := range []string{"quote", "text", "review"} {
		if quote = scalarString(t[k]); quote != "" {
			break
		}
	}
	if quote == "" {
		return nil
	}
	out := map[string]any{"quote": quote}
	for _, k := range []string{"author", "author_name"} {
		if s := scalarString(t[k]); s != "" {
			out["author"] = s
			break
		}
	}
	for _, k := range []string{"source", "date"} {
		if s := scalarString(t[k]); s != "" {
			out[k] = s
		}
	}
	if r, ok := toFloat(t["rating"]); ok {
		out["rating"] = clamp(r, 0, 5)
	}
	return out
}

func normalizeStrings(m map[string]any, key string) {
	raw, ok := m[key]
	if !ok {
		return
	}
	var out []any
	switch t := raw.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, v := range t {
			if s := scalarString(v); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		delete(m, key)
		return
	}
	m[key] = out
}

func normalizeStringMap(m map[string]any, key string) {
	raw, ok := m[key]
	if !ok {
		return
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		delete(m, key)
		return
	}
	out := map[string]any{}
	for k, v := range obj {
		if s := scalarString(v); s != "" {
			out[k] = s
		}
	}
	m[key] = out
}

// normalizeHours accepts a day map or a list of "Monday: 9 AM - 5 PM" lines.
func normalizeHours(m map[string]any) {
	raw, ok := m["hours"]
	if !ok {
		return
	}
	out := map[string]any{}
	switch t := raw.(type) {
	case map[string]any:
		for k, v := range t {
			if s := scalarString(v); s != "" {
				out[strings.ToLower(strings.TrimSpace(k))] = s
			}
		}
	case []any:
		for _, v := range t {
			line := scalarString(v)
			day, text, found := strings.Cut(line, ":")
			if !found {
				continue
			}
			day = strings.ToLower(strings.TrimSpace(day))
			if isWeekday(day) {
				out[day] = strings.TrimSpace(text)
			}
		}
	}
	if len(out) == 0 {
		delete(m, "hours")
		return
	}
	m["hours"] = out
}

func isWeekday(s string) bool {
	for _, d := range weekdays {
		if d == s {
			return true
		}
	}
	return false
}

func normalizeRating(m map[string]any) {
	raw, ok := m["rating"]
	count, hasCount := toFloat(m["review_count"])
	delete(m, "review_count")
	if !ok {
		return
	}
	out := map[string]any{}
	switch t := raw.(type) {
	case map[string]any:
		avg, ok := toFloat(t["average"])
		if !ok {
			delete(m, "rating")
			return
		}
		out["average"] = clamp(avg, 0, 5)
		if c, ok := toFloat(t["count"]); ok {
			out["count"] = int(math.Max(0, c))
		} else if hasCount {
			out["count"] = int(math.Max(0, count))
		}
	default:
		avg, ok := toFloat(raw)
		if !ok {
			delete(m, "rating")
			return
		}
		out["average"] = clamp(avg, 0, 5)
		if hasCount {
			out["count"] = int(math.Max(0, count))
		}
	}
	m["rating"] = out
}

// normalizeDataQuality folds the flat legacy fields into data_quality and
// clamps the score. A response with no score at all is left without one so
// validation rejects it.
func normalizeDataQuality(m map[string]any) {
	dq, _ := m["data_quality"].(map[string]any)
	if dq == nil {
		dq = map[string]any{}
	} else {
		copied := make(map[string]any, len(dq))
		for k, v := range dq {
			copied[k] = v
		}
		dq = copied
	}

	if _, ok := dq["score"]; !ok {
		if legacy, ok := m["data_quality_score"]; ok {
			dq["score"] = legacy
		}
	}
	if _, ok := dq["missing_critical"]; !ok {
		if legacy, ok := m["missing_fields"]; ok {
			dq["missing_critical"] = legacy
		}
	}
	if _, ok := dq["sources_used"]; !ok {
		if legacy, ok := m["sources_used"]; ok {
			dq["sources_used"] = legacy
		}
	}
	delete(m, "data_quality_score")
	delete(m, "missing_fields")
	delete(m, "sources_used")

	if raw, ok := dq["score"]; ok {
		if score, ok := toFloat(raw); ok {
			dq["score"] = math.Round(clamp(score, 0, 100))
		} else {
			delete(dq, "score")
		}
	}
	for _, key := range []string{"missing_critical", "missing_optional", "sources_used"} {
		normalizeStrings(dq, key)
	}
	if c, ok := dq["confidence"].(string); ok {
		c = strings.ToLower(strings.TrimSpace(c))
		switch c {
		case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
			dq["confidence"] = c
		default:
			delete(dq, "confidence")
		}
	} else {
		delete(dq, "confidence")
	}

	if len(dq) == 0 {
		delete(m, "data_quality")
		return
	}
	m["data_quality"] = dq
}
