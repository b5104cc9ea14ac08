package extraction

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/jonathan/site-generator/internal/types"
)

// FillableFields are the record keys the gap-filler may write. Contact,
// hours, social links, testimonials, rating and data quality are never
// taken from generated filler.
var FillableFields = []string{
	"tagline",
	"description_short",
	"description_long",
	"category",
	"services",
	"unique_selling_points",
}

// MergeMaps merges fill into base without modifying either and returns the
// result. Rules, applied per key and recursively for nested objects:
//   - a key missing or empty in base takes fill's value;
//   - a non-empty scalar in base is never overwritten;
//   - an array in base is replaced only when fill's array is strictly longer.
func MergeMaps(base, fill map[string]any) map[string]any {
	out := deepCopyMap(base)
	if out == nil {
		out = map[string]any{}
	}
	for k, fv := range fill {
		if isEmpty(fv) {
			continue
		}
		bv, exists := out[k]
		if !exists || isEmpty(bv) {
			out[k] = deepCopy(fv)
			continue
		}
		switch b := bv.(type) {
		case map[string]any:
			if f, ok := fv.(map[string]any); ok {
				out[k] = MergeMaps(b, f)
			}
		case []any:
			if f, ok := fv.([]any); ok && len(f) > len(b) {
				out[k] = deepCopy(f)
			}
		}
	}
	return out
}

// MergeRecord merges the fillable keys of fill into a copy of rec. It returns
// the merged record and the sorted keys whose value changed.
func MergeRecord(rec *types.BusinessRecord, fill map[string]any) (*types.BusinessRecord, []string, error) {
	base, err := recordToMap(rec)
	if err != nil {
		return nil, nil, err
	}

	allowed := map[string]any{}
	for _, key := range FillableFields {
		if v, ok := fill[key]; ok {
			allowed[key] = v
		}
	}
	allowed = Normalize(allowed)
	delete(allowed, "data_quality")

	merged := MergeMaps(base, allowed)
	var changed []string
	for _, key := range FillableFields {
		if !reflect.DeepEqual(base[key], merged[key]) {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, nil, err
	}
	var out types.BusinessRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, err
	}
	return &out, changed, nil
}

func recordToMap(rec *types.BusinessRecord) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}
