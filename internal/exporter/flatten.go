package exporter

import (
	"sort"
	"strconv"

	"seriesflow/models"
	"seriesflow/processor"
)

// MeasurementPrefix is the column prefix measurements receive when a record
// is flattened for a tabular target.
const MeasurementPrefix = "measurement_"

// Flatten converts records into flat rows for tabular targets: measurements
// become measurement_<name> columns, series_id and timestamp stay top level,
// the format tag is kept when any record carries one, and metadata is dropped
// (flat targets have no sidecar for it). The returned column list is the
// union of all keys: series_id and timestamp pinned first, the remainder
// sorted for determinism.
func Flatten(records []models.Record) ([]map[string]any, []string) {
	rows := make([]map[string]any, 0, len(records))
	seen := make(map[string]bool)
	for _, rec := range records {
		row := map[string]any{
			"series_id": rec.SeriesID,
			"timestamp": rec.Timestamp,
		}
		if rec.Format != "" {
			row["format"] = rec.Format
		}
		for k, v := range rec.Measurements {
			row[MeasurementPrefix+k] = v
		}
		for k := range row {
			seen[k] = true
		}
		rows = append(rows, row)
	}

	extra := make([]string, 0, len(seen))
	for k := range seen {
		if k == "series_id" || k == "timestamp" {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)

	columns := append([]string{"series_id", "timestamp"}, extra...)
	return rows, columns
}

// formatScalar renders a flattened value for text targets. Floats use the
// shortest representation that round-trips; integers stay integral.
func formatScalar(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// measurementOrder returns a record's measurement names with the canonical
// OHLCV fields first (in their canonical order) and everything else sorted.
// Wire formats that emit fields inline rely on this for stable output.
func measurementOrder(m map[string]any) []string {
	out := make([]string, 0, len(m))
	used := make(map[string]bool, len(m))
	for _, f := range processor.CanonicalFieldOrder() {
		if _, ok := m[f]; ok {
			out = append(out, f)
			used[f] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// columnKind classifies a column across all rows: "double" when every present
// value is numeric, "boolean" when every present value is a bool, else
// "string". Missing values do not influence the choice.
func columnKind(rows []map[string]any, col string) string {
	kind := ""
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		var k string
		switch v.(type) {
		case bool:
			k = "boolean"
		default:
			if models.IsNumeric(v) {
				k = "double"
			} else {
				k = "string"
			}
		}
		if kind == "" {
			kind = k
		} else if kind != k {
			return "string"
		}
	}
	if kind == "" {
		return "string"
	}
	return kind
}
