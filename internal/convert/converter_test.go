package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"seriesflow/internal/exporter"
	"seriesflow/internal/format"
	"seriesflow/models"
)

func seedJSON(t *testing.T, dir string) string {
	t.Helper()
	records := []models.Record{
		{
			SeriesID:  "AAPL",
			Timestamp: "2024-01-15T09:30:00Z",
			Measurements: map[string]any{
				"open":  150.25,
				"close": 151.5,
			},
		},
		{
			SeriesID:  "MSFT",
			Timestamp: "2024-01-15T09:30:00Z",
			Measurements: map[string]any{
				"close": 390.1,
			},
		},
	}
	raw, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "in.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertJSONToCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)

	input := seedJSON(t, dir)
	csvPath := filepath.Join(dir, "mid.csv")
	if !c.Convert(input, csvPath, Options{}) {
		t.Fatal("json to csv conversion failed")
	}
	jsonPath := filepath.Join(dir, "out.json")
	if !c.Convert(csvPath, jsonPath, Options{}) {
		t.Fatal("csv back to json conversion failed")
	}

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var out []models.Record
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].SeriesID != "AAPL" || out[0].Timestamp != "2024-01-15T09:30:00Z" {
		t.Fatalf("identity fields lost: %+v", out[0])
	}
	// Flattening prefixes measurement keys on the way through the csv.
	if out[0].Measurements["measurement_close"] != 151.5 {
		t.Fatalf("close value lost: %v", out[0].Measurements)
	}
	if out[1].Measurements["measurement_close"] != 390.1 {
		t.Fatalf("second record lost: %v", out[1].Measurements)
	}
}

func TestConvertJSONLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)

	input := seedJSON(t, dir)
	jsonlPath := filepath.Join(dir, "mid.jsonl")
	if !c.Convert(input, jsonlPath, Options{}) {
		t.Fatal("json to jsonl conversion failed")
	}
	outPath := filepath.Join(dir, "out.json")
	if !c.Convert(jsonlPath, outPath, Options{}) {
		t.Fatal("jsonl back to json conversion failed")
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var out []models.Record
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	// jsonl keeps the nested shape, so keys survive unprefixed.
	if out[0].Measurements["close"] != 151.5 {
		t.Fatalf("nested measurements lost: %v", out[0].Measurements)
	}
}

func TestConvertColumnarRoundTrips(t *testing.T) {
	// Each intermediate goes through the flattened frame, so measurement keys
	// come back with the measurement_ prefix.
	for _, mid := range []string{"mid.parquet", "mid.feather", "mid.arrow", "mid.orc", "mid.db", "mid.duckdb", "mid.xlsx"} {
		t.Run(mid, func(t *testing.T) {
			dir := t.TempDir()
			c := New(nil)

			input := seedJSON(t, dir)
			midPath := filepath.Join(dir, mid)
			if !c.Convert(input, midPath, Options{}) {
				t.Fatalf("json to %s conversion failed", mid)
			}
			outPath := filepath.Join(dir, "out.json")
			if !c.Convert(midPath, outPath, Options{}) {
				t.Fatalf("%s back to json conversion failed", mid)
			}

			raw, err := os.ReadFile(outPath)
			if err != nil {
				t.Fatal(err)
			}
			var out []models.Record
			if err := json.Unmarshal(raw, &out); err != nil {
				t.Fatal(err)
			}
			if len(out) != 2 {
				t.Fatalf("expected 2 records, got %d", len(out))
			}
			if out[0].SeriesID != "AAPL" || out[0].Timestamp != "2024-01-15T09:30:00Z" {
				t.Fatalf("identity fields lost: %+v", out[0])
			}
			if got, _ := models.AsFloat(out[0].Measurements["measurement_close"]); got != 151.5 {
				t.Fatalf("close value lost: %v", out[0].Measurements)
			}
			if got, _ := models.AsFloat(out[1].Measurements["measurement_close"]); got != 390.1 {
				t.Fatalf("second record lost: %v", out[1].Measurements)
			}
		})
	}
}

func TestConvertGzipInputUnwrapsOneLayer(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)

	input := seedJSON(t, dir)
	gzPath := filepath.Join(dir, "mid.csv.gz")
	if !c.Convert(input, gzPath, Options{}) {
		t.Fatal("json to gzipped csv conversion failed")
	}

	outPath := filepath.Join(dir, "out.json")
	if !c.Convert(gzPath, outPath, Options{}) {
		t.Fatal("gzipped csv input should unwrap and load")
	}
	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var out []models.Record
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records through the gzip round trip, got %d", len(out))
	}
}

func TestConvertUnknownOutputFormatFails(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)
	input := seedJSON(t, dir)
	if c.Convert(input, filepath.Join(dir, "out.mystery"), Options{}) {
		t.Fatal("unknown output extension must fail without an explicit format")
	}
}

func TestConvertEmptyInputFails(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)
	input := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(input, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if c.Convert(input, filepath.Join(dir, "out.csv"), Options{}) {
		t.Fatal("zero loaded records must fail the conversion")
	}
}

func TestConvertValidateDropsBadRecords(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)

	records := []models.Record{
		{SeriesID: "AAPL", Timestamp: "2024-01-15", Measurements: map[string]any{"close": 151.5}},
		{SeriesID: "", Timestamp: "2024-01-15", Measurements: map[string]any{"close": 1.0}},
	}
	raw, _ := json.Marshal(records)
	input := filepath.Join(dir, "in.json")
	if err := os.WriteFile(input, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "out.jsonl")
	if !c.Convert(input, outPath, Options{Validate: true}) {
		t.Fatal("conversion with one valid record should succeed")
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var rec models.Record
	if err := json.Unmarshal(out[:len(out)-1], &rec); err != nil {
		t.Fatalf("expected exactly one jsonl line: %v", err)
	}
	if rec.SeriesID != "AAPL" || rec.Timestamp != "2024-01-15T00:00:00Z" {
		t.Fatalf("surviving record not normalized: %+v", rec)
	}
}

func TestIsConversionSupported(t *testing.T) {
	c := New(nil)
	if !c.IsConversionSupported(format.CSV, format.Parquet) {
		t.Fatal("csv to parquet should be supported")
	}
	if !c.IsConversionSupported(format.ORC, format.CSV) {
		t.Fatal("orc loads through the columnar engine")
	}
	if c.IsConversionSupported(format.NetCDF, format.CSV) {
		t.Fatal("netcdf is export-only; loading it is unsupported")
	}
}

func TestConvertRecordsExportsInMemoryBatch(t *testing.T) {
	dir := t.TempDir()
	c := New(nil)
	records := []models.Record{
		{SeriesID: "AAPL", Timestamp: "2024-01-15T09:30:00Z", Measurements: map[string]any{"close": 151.5}},
	}
	outPath := filepath.Join(dir, "out.csv")
	if !c.ConvertRecords(records, outPath, Options{Export: exporter.Options{}}) {
		t.Fatal("in-memory export failed")
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}
