package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Logical field names shared by every category.
const (
	FieldName     = "name"
	FieldOwner    = "owner"
	FieldType     = "type"
	FieldStatus   = "status"
	FieldVoltage  = "voltage_kv"
	FieldCapacity = "capacity_mw"
	FieldSource   = "primary_source"
	FieldLines    = "line_count"
	FieldState    = "state"
	FieldLat      = "lat"
	FieldLon      = "lon"
)

// FieldTable maps a logical field to the ordered source attribute names that
// may carry it. The first present, non-null attribute wins.
type FieldTable map[string][]string

// String returns a logical field coerced to a trimmed string.
func (ft FieldTable) String(attrs map[string]any, field string) (string, bool) {
	for _, name := range ft[field] {
		if s, ok := asString(attrs[name]); ok {
			return s, true
		}
	}
	return "", false
}

// Number returns a logical field coerced to a float, stripping units such as
// "kV" or "MW" and thousands separators.
func (ft FieldTable) Number(attrs map[string]any, field string) (float64, bool) {
	for _, name := range ft[field] {
		if f, ok := asNumber(attrs[name]); ok {
			return f, true
		}
	}
	return 0, false
}

// Merge returns a copy of ft with the entries of other prepended to ft's own
// fallbacks, so overrides are tried first.
func (ft FieldTable) Merge(other FieldTable) FieldTable {
	out := make(FieldTable, len(ft)+len(other))
	for k, v := range ft {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range other {
		out[k] = append(append([]string(nil), v...), out[k]...)
	}
	return out
}

// HIFLD marks missing values with placeholders instead of nulls.
var placeholders = map[string]struct{}{
	"":              {},
	"not available": {},
	"unknown":       {},
	"n/a":           {},
	"null":          {},
}

// sentinelFloor: HIFLD uses -999999 and similar for missing numbers.
const sentinelFloor = -999

func isAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		_, ok := placeholders[strings.ToLower(strings.TrimSpace(t))]
		return ok
	}
	return false
}

func asString(v any) (string, bool) {
	if isAbsent(v) {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

func asNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		m := leadingNumber.FindString(s)
		if m == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= sentinelFloor {
		return 0, false
	}
	return f, true
}
