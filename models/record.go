package models

import (
	"strconv"
	"strings"
)

// Record is the canonical unit every loader produces and every exporter
// consumes. Timestamp is an ISO-8601 string after normalization; loaders may
// fill it with whatever the source carried and rely on the processor to
// canonicalize or drop the record.
type Record struct {
	SeriesID     string         `json:"series_id"`
	Timestamp    string         `json:"timestamp"`
	Measurements map[string]any `json:"measurements"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Format       string         `json:"format,omitempty"`
}

// FinancialRecord is the looser shape accepted at the boundary: identifier as
// either ticker or series_id, OHLCV fields top level or nested in
// measurements. The processor normalizes it into a Record.
type FinancialRecord struct {
	Ticker       string         `json:"ticker,omitempty"`
	SeriesID     string         `json:"series_id,omitempty"`
	Timestamp    string         `json:"timestamp,omitempty"`
	Date         string         `json:"date,omitempty"`
	Open         *float64       `json:"open,omitempty"`
	High         *float64       `json:"high,omitempty"`
	Low          *float64       `json:"low,omitempty"`
	Close        *float64       `json:"close,omitempty"`
	Vol          *float64       `json:"vol,omitempty"`
	OpenInt      *float64       `json:"openint,omitempty"`
	Measurements map[string]any `json:"measurements,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Identifier resolves the series identifier, preferring series_id.
func (f *FinancialRecord) Identifier() string {
	if f.SeriesID != "" {
		return f.SeriesID
	}
	return f.Ticker
}

// When resolves the record timestamp, preferring the timestamp field over the
// bare date column.
func (f *FinancialRecord) When() string {
	if f.Timestamp != "" {
		return f.Timestamp
	}
	return f.Date
}

// Clone returns a deep copy of the record so downstream mutation cannot leak
// back into a caller-held batch.
func (r Record) Clone() Record {
	out := r
	out.Measurements = make(map[string]any, len(r.Measurements))
	for k, v := range r.Measurements {
		out.Measurements[k] = v
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Coerce converts a raw text token into a typed scalar using a fixed ordered
// attempt: int, then float, then the string unchanged. The ordering is load
// bearing: "42" must come back as an integer, "42.5" as a float, and
// "42abc" untouched.
func Coerce(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return raw
}

// AsFloat reports a measurement value as float64 when it is any numeric type.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// IsNumeric reports whether a measurement value is numeric.
func IsNumeric(v any) bool {
	_, ok := AsFloat(v)
	return ok
}
