package models

import (
	"strconv"
	"strings"
	"time"
)

// timestampLayouts is the fixed ordered list of accepted input layouts.
// First match wins. Go's parser accepts fractional seconds even when the
// layout omits them, so each entry also covers its ".%f" variant.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// ParseTimestamp parses a raw timestamp string against the accepted layouts.
// Bare 10-digit (seconds) and 13-digit (milliseconds) unix epochs are also
// accepted since several upstream APIs deliver those.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if isDigits(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			switch len(s) {
			case 10:
				return time.Unix(n, 0).UTC(), true
			case 13:
				return time.UnixMilli(n).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a parsed time as canonical ISO-8601 in UTC.
// Naive inputs are treated as UTC; zoned inputs are converted.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z07:00")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
