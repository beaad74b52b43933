package utils

import (
	"encoding/json"
	"strconv"
	"time"
)

// ParseInstant normalizes the polymorphic timestamp representations seen at the
// data-access boundary (RFC3339 strings, "2006-01-02" dates, unix seconds, unix
// millis) into a single UTC time.Time. Nothing deeper in the system branches on
// representation.
func ParseInstant(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC(), true
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t.UTC(), true
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fromUnix(n), true
		}
	case float64:
		return fromUnix(int64(v)), true
	case int64:
		return fromUnix(v), true
	case int:
		return fromUnix(int64(v)), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return fromUnix(n), true
		}
	}
	return time.Time{}, false
}

// Values above ~year 2286 in seconds are assumed to be milliseconds.
func fromUnix(n int64) time.Time {
	if n > 1e10 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
