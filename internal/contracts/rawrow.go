package contracts

import (
	"encoding/json"
	"strconv"
)

// RawRow is one scraped game row as decoded from a pruned run file.
// Scrape vintages differ in field names and types, so values stay
// untyped until the EDR stage coalesces them through the accessors
// below.
type RawRow map[string]interface{}

// UniverseID resolves the game id, preferring universeId over
// universe_id over id. ok is false when no id field is present.
func (r RawRow) UniverseID() (int64, bool) {
	for _, key := range []string{"universeId", "universe_id", "id"} {
		if v, ok := r.Int64(key); ok {
			return v, true
		}
	}
	return 0, false
}

// Float returns the named field coerced to float64. Strings holding
// numbers are accepted; null and non-numeric values are not.
func (r RawRow) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	return coerceFloat(v)
}

// FirstFloat returns the first of the named fields that coerces to a
// float64.
func (r RawRow) FirstFloat(keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := r.Float(key); ok {
			return v, true
		}
	}
	return 0, false
}

// Int64 returns the named field coerced to int64.
func (r RawRow) Int64(key string) (int64, bool) {
	v, ok := r.Float(key)
	if !ok {
		return 0, false
	}
	return int64(v), true
}

// String returns the named field as a string, or "" when absent.
func (r RawRow) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// List returns the named field as a slice, or nil when the field is
// absent or not a list.
func (r RawRow) List(key string) []interface{} {
	if v, ok := r[key].([]interface{}); ok {
		return v
	}
	return nil
}

// Prices collects every coercible "price" value from the named list
// field. Entries without a numeric price are skipped.
func (r RawRow) Prices(key string) []float64 {
	var out []float64
	for _, item := range r.List(key) {
		m, ok := item.(map[string]interface{})
		if !ok || m["price"] == nil {
			continue
		}
		if p, ok := coerceFloat(m["price"]); ok {
			out = append(out, p)
		}
	}
	return out
}

func coerceFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
