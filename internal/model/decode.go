package model

import "time"

// Helpers for pulling typed values out of schema-free document maps.
// The store hands back map[string]any with whatever the web UI or the
// import scripts happened to write, so every accessor tolerates absent
// fields and the usual numeric type drift. Unrecognized fields are
// simply never read.

func asString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func asInt(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// asBool returns the boolean field, or def when the field is absent or
// not a boolean.
func asBool(data map[string]any, key string, def bool) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return def
}

func asTime(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
