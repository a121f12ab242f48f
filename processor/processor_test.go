package processor

import (
	"testing"

	"seriesflow/models"
)

func TestValidateRecordMissingSeriesID(t *testing.T) {
	p := New(nil)
	ok, err := p.ValidateRecord(models.Record{}, TimeSeries)
	if ok || err == nil {
		t.Fatal("expected empty record to fail validation")
	}
	if err.Error() != "Missing required field: series_id" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestValidateRecordEmptyMeasurements(t *testing.T) {
	p := New(nil)
	rec := models.Record{
		SeriesID:     "AAPL",
		Timestamp:    "2024-01-15T09:30:00Z",
		Measurements: map[string]any{},
	}
	ok, err := p.ValidateRecord(rec, TimeSeries)
	if ok || err == nil {
		t.Fatal("expected empty measurements to fail validation")
	}
	if err.Error() != "measurements must contain at least one key-value pair" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestValidateFinancialNegativePrice(t *testing.T) {
	p := New(nil)
	rec := models.Record{
		SeriesID:     "AAPL",
		Timestamp:    "2024-01-15T09:30:00Z",
		Measurements: map[string]any{"close": -1.5},
	}
	ok, err := p.ValidateRecord(rec, Financial)
	if ok || err == nil {
		t.Fatal("expected negative close to fail financial validation")
	}
	if err.Error() != "close must be non-negative" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestValidateFinancialNegativeOpenInterestAllowed(t *testing.T) {
	p := New(nil)
	rec := models.Record{
		SeriesID:     "AAPL",
		Timestamp:    "2024-01-15T09:30:00Z",
		Measurements: map[string]any{"close": 151.5, "openint": -10.0},
	}
	if ok, err := p.ValidateRecord(rec, Financial); !ok {
		t.Fatalf("expected negative openint to pass: %v", err)
	}
}

func TestConvertFinancialAliasResolution(t *testing.T) {
	p := New(nil)
	f := &models.FinancialRecord{
		Ticker:    "AAPL",
		Timestamp: "2024-01-15T09:30:00Z",
		Measurements: map[string]any{
			"adj_close": 151.5,
			"volume":    1000000.0,
			"sentiment": 0.8,
		},
	}
	rec, err := p.ConvertFinancialToTimeSeries(f)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if rec.SeriesID != "AAPL" {
		t.Fatalf("expected ticker to become series_id, got %q", rec.SeriesID)
	}
	if rec.Measurements["close"] != 151.5 {
		t.Fatalf("adj_close alias not resolved: %v", rec.Measurements)
	}
	if rec.Measurements["vol"] != 1000000.0 {
		t.Fatalf("volume alias not resolved: %v", rec.Measurements)
	}
	if rec.Measurements["sentiment"] != 0.8 {
		t.Fatal("non-financial measurement should ride along")
	}
	if _, claimed := rec.Measurements["adj_close"]; claimed {
		t.Fatal("claimed alias should not be duplicated")
	}
}

func TestConvertFinancialTopLevelWins(t *testing.T) {
	p := New(nil)
	close := 200.0
	f := &models.FinancialRecord{
		SeriesID:     "AAPL",
		Timestamp:    "2024-01-15T09:30:00Z",
		Close:        &close,
		Measurements: map[string]any{"c": 100.0},
	}
	rec, err := p.ConvertFinancialToTimeSeries(f)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if rec.Measurements["close"] != 200.0 {
		t.Fatalf("top-level close should win over alias, got %v", rec.Measurements["close"])
	}
}

func TestProcessBatchPartialFailure(t *testing.T) {
	p := New(nil)
	records := []models.Record{
		{SeriesID: "AAPL", Timestamp: "2024-01-15T09:30:00Z", Measurements: map[string]any{"close": 151.5}},
		{SeriesID: "", Timestamp: "2024-01-15T09:31:00Z", Measurements: map[string]any{"close": 151.6}},
		{SeriesID: "MSFT", Timestamp: "2024-01-15 09:32:00", Measurements: map[string]any{"close": 390.1}},
	}
	out := p.ProcessBatch(records, TimeSeries)
	if len(out) != 2 {
		t.Fatalf("expected exactly 2 of 3 records to survive, got %d", len(out))
	}
	if out[1].Timestamp != "2024-01-15T09:32:00Z" {
		t.Fatalf("timestamp not canonicalized: %q", out[1].Timestamp)
	}
}

func TestProcessBatchDropsUnparseableTimestamp(t *testing.T) {
	p := New(nil)
	records := []models.Record{
		{SeriesID: "AAPL", Timestamp: "last tuesday", Measurements: map[string]any{"close": 1.0}},
	}
	if out := p.ProcessBatch(records, TimeSeries); len(out) != 0 {
		t.Fatalf("expected unparseable timestamp to drop the record, got %d", len(out))
	}
}

func TestProcessBatchIdempotent(t *testing.T) {
	p := New(nil)
	records := []models.Record{
		{SeriesID: "AAPL", Timestamp: "2024-01-15", Measurements: map[string]any{"close": 151.5}},
	}
	once := p.ProcessBatch(records, TimeSeries)
	twice := p.ProcessBatch(once, TimeSeries)
	if len(once) != 1 || len(twice) != 1 {
		t.Fatalf("expected stable batch, got %d then %d", len(once), len(twice))
	}
	if once[0].Timestamp != twice[0].Timestamp {
		t.Fatalf("normalization not idempotent: %q vs %q", once[0].Timestamp, twice[0].Timestamp)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	p := New(nil)
	got, ok := p.NormalizeTimestamp("20240115")
	if !ok || got != "2024-01-15T00:00:00Z" {
		t.Fatalf("unexpected normalization %q %v", got, ok)
	}
	if _, ok := p.NormalizeTimestamp(""); ok {
		t.Fatal("expected empty timestamp to fail")
	}
}
