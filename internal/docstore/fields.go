package docstore

import (
	"math"
	"time"
)

// Precision is the timestamp resolution every driver preserves.
const Precision = time.Microsecond

// Now returns the current time in UTC at the store's precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}

// StringField returns data[key] as a string, or "" when absent or of another type.
func StringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

// BoolField returns data[key] as a bool, or fallback when absent or of
// another type.
func BoolField(data map[string]interface{}, key string, fallback bool) bool {
	if b, ok := data[key].(bool); ok {
		return b
	}
	return fallback
}

// IntField reads an integer stored by any driver. Whole float64 values are
// accepted since JSON-backed drivers may decode numbers that way.
func IntField(data map[string]interface{}, key string) (int64, bool) {
	switch n := data[key].(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

// TimeField returns data[key] in UTC at the store's precision. Missing values
// yield the zero time.
func TimeField(data map[string]interface{}, key string) time.Time {
	switch t := data[key].(type) {
	case time.Time:
		return t.UTC().Truncate(Precision)
	case *time.Time:
		if t != nil {
			return t.UTC().Truncate(Precision)
		}
	}
	return time.Time{}
}
