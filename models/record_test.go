package models

import "testing"

func TestCoerceOrdering(t *testing.T) {
	if v, ok := Coerce("42").(int64); !ok || v != 42 {
		t.Fatalf("expected int64 42, got %T %v", Coerce("42"), Coerce("42"))
	}
	if v, ok := Coerce("42.5").(float64); !ok || v != 42.5 {
		t.Fatalf("expected float64 42.5, got %T %v", Coerce("42.5"), Coerce("42.5"))
	}
	if v, ok := Coerce("42abc").(string); !ok || v != "42abc" {
		t.Fatalf("expected string passthrough, got %T %v", Coerce("42abc"), Coerce("42abc"))
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []string{
		"2024-01-15T09:30:00Z",
		"2024-01-15T09:30:00",
		"2024-01-15 09:30:00",
		"2024-01-15",
		"20240115",
	}
	for _, raw := range cases {
		if _, ok := ParseTimestamp(raw); !ok {
			t.Fatalf("expected %q to parse", raw)
		}
	}
	if _, ok := ParseTimestamp("not a time"); ok {
		t.Fatal("expected unparseable input to fail")
	}
}

func TestParseTimestampEpochs(t *testing.T) {
	sec, ok := ParseTimestamp("1705311000")
	if !ok {
		t.Fatal("expected second epoch to parse")
	}
	ms, ok := ParseTimestamp("1705311000000")
	if !ok {
		t.Fatal("expected millisecond epoch to parse")
	}
	if !sec.Equal(ms) {
		t.Fatalf("epoch precisions disagree: %v vs %v", sec, ms)
	}
	if got := FormatTimestamp(sec); got != "2024-01-15T09:30:00Z" {
		t.Fatalf("unexpected canonical form %q", got)
	}
}

func TestCloneIsolatesMaps(t *testing.T) {
	rec := Record{
		SeriesID:     "AAPL",
		Timestamp:    "2024-01-15T09:30:00Z",
		Measurements: map[string]any{"close": 151.5},
		Metadata:     map[string]any{"source": "test"},
	}
	clone := rec.Clone()
	clone.Measurements["close"] = 0.0
	clone.Metadata["source"] = "mutated"
	if rec.Measurements["close"] != 151.5 {
		t.Fatal("clone shares measurements with original")
	}
	if rec.Metadata["source"] != "test" {
		t.Fatal("clone shares metadata with original")
	}
}
