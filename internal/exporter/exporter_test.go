package exporter

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seriesflow/internal/format"
	"seriesflow/models"
)

func sampleRecords() []models.Record {
	return []models.Record{
		{
			SeriesID:  "AAPL",
			Timestamp: "2024-01-15T09:30:00Z",
			Measurements: map[string]any{
				"open":  150.25,
				"close": 151.5,
				"vol":   1000000.0,
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
}

func TestFlattenColumns(t *testing.T) {
	rows, columns := Flatten(sampleRecords())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if columns[0] != "series_id" || columns[1] != "timestamp" {
		t.Fatalf("series_id and timestamp must lead, got %v", columns)
	}
	want := []string{"series_id", "timestamp", "measurement_close", "measurement_open", "measurement_vol"}
	if strings.Join(columns, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected columns %v", columns)
	}
	if _, ok := rows[1]["measurement_open"]; ok {
		t.Fatal("sparse measurement should be absent, not zero")
	}
}

func TestFlattenDropsMetadata(t *testing.T) {
	records := sampleRecords()
	records[0].Metadata = map[string]any{"source": "test"}
	_, columns := Flatten(records)
	for _, col := range columns {
		if strings.Contains(col, "metadata") || col == "source" {
			t.Fatalf("metadata leaked into columns: %v", columns)
		}
	}
}

func TestInfluxLineProtocolFixture(t *testing.T) {
	e := NewFileExporter(nil)
	path := filepath.Join(t.TempDir(), "out.lp")

	records := []models.Record{{
		SeriesID:  "AAPL",
		Timestamp: "2024-01-15T09:30:00Z",
		Measurements: map[string]any{
			"open":  150.25,
			"close": 151.5,
			"vol":   1000000.0,
		},
	}}
	if !e.Export(records, path, format.InfluxDB, nil) {
		t.Fatal("export failed")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "AAPL open=150.25,close=151.5,vol=1000000 1705311000000000000\n"
	if string(raw) != want {
		t.Fatalf("line protocol mismatch:\n got %q\nwant %q", raw, want)
	}
}

func TestInfluxLineProtocolMissingTimestamp(t *testing.T) {
	records := []models.Record{{
		SeriesID:     "AAPL",
		Measurements: map[string]any{"close": 151.5},
	}}
	line, ok := lpLine(records[0], "ns")
	if !ok {
		t.Fatal("expected a line without timestamp")
	}
	if line != "AAPL close=151.5" {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestStooqExport(t *testing.T) {
	e := NewFileExporter(nil)
	path := filepath.Join(t.TempDir(), "out.txt")

	records := []models.Record{{
		SeriesID:  "AAPL",
		Timestamp: "2024-01-15T09:30:00Z",
		Measurements: map[string]any{
			"open": 150.25, "high": 152.0, "low": 149.9, "close": 151.5,
			"vol": 1000000.0, "openint": 0.0,
		},
	}}
	if !e.Export(records, path, format.Stooq, nil) {
		t.Fatal("export failed")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "TICKER,PER,DATE,TIME,OPEN,HIGH,LOW,CLOSE,VOL,OPENINT" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "AAPL,D,20240115,093000,150.25,152.00,149.90,151.50,1000000,0" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestExportEmptyBatchFails(t *testing.T) {
	e := NewFileExporter(nil)
	if e.Export(nil, filepath.Join(t.TempDir(), "out.csv"), format.CSV, nil) {
		t.Fatal("empty batch must not export")
	}
}

func TestExportCompressedRequiresBase(t *testing.T) {
	e := NewFileExporter(nil)
	if e.Export(sampleRecords(), filepath.Join(t.TempDir(), "out.gz"), format.Gzip, nil) {
		t.Fatal("compressed export without base format must fail")
	}
	ok := e.Export(sampleRecords(), filepath.Join(t.TempDir(), "out.csv.gz"), format.Gzip,
		&Options{BaseFormat: format.CSV})
	if !ok {
		t.Fatal("compressed export with base format should succeed")
	}
}

func TestExportCSVIdempotent(t *testing.T) {
	e := NewFileExporter(nil)
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.csv")
	p2 := filepath.Join(dir, "b.csv")
	records := sampleRecords()
	if !e.Export(records, p1, format.CSV, nil) || !e.Export(records, p2, format.CSV, nil) {
		t.Fatal("export failed")
	}
	a, _ := os.ReadFile(p1)
	b, _ := os.ReadFile(p2)
	if string(a) != string(b) {
		t.Fatal("identical input must produce identical csv output")
	}
}

func TestProtobufJSONShape(t *testing.T) {
	e := NewFileExporter(nil)
	path := filepath.Join(t.TempDir(), "out.pb")
	if !e.Export(sampleRecords(), path, format.Protobuf, nil) {
		t.Fatal("export failed")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Records []map[string]any `json:"records"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if len(doc.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(doc.Records))
	}
	if _, ok := doc.Records[0]["seriesId"]; !ok {
		t.Fatal("expected camelCase proto3 field names")
	}
}

func TestMeasurementOrderCanonicalFirst(t *testing.T) {
	m := map[string]any{"zeta": 1.0, "close": 2.0, "open": 3.0, "alpha": 4.0}
	got := measurementOrder(m)
	want := []string{"open", "close", "alpha", "zeta"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestBuildAvroSchema(t *testing.T) {
	schema, err := buildAvroSchema(
		[]string{"series_id", "measurement_close"},
		map[string]string{"series_id": "string", "measurement_close": "double"},
	)
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(schema), &parsed); err != nil {
		t.Fatalf("schema is not valid json: %v", err)
	}
	if parsed["type"] != "record" {
		t.Fatalf("unexpected schema %v", parsed)
	}
}

func TestColumnKindMixedFallsBackToString(t *testing.T) {
	rows := []map[string]any{
		{"col": 1.5},
		{"col": "text"},
	}
	if k := columnKind(rows, "col"); k != "string" {
		t.Fatalf("mixed column should be string, got %q", k)
	}
	if k := columnKind(rows, "absent"); k != "string" {
		t.Fatalf("absent column defaults to string, got %q", k)
	}
}

func TestArchiveEntryName(t *testing.T) {
	if got := archiveEntryName("/tmp/out.zip", format.CSV); got != "out.csv" {
		t.Fatalf("unexpected entry name %q", got)
	}
	if got := archiveEntryName("/tmp/out.csv.tar", format.CSV); got != "out.csv" {
		t.Fatalf("unexpected entry name %q", got)
	}
}

func countTableRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM "records"`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestExportTableIfExistsPolicies(t *testing.T) {
	e := NewFileExporter(nil)
	path := filepath.Join(t.TempDir(), "out.db")
	records := sampleRecords()

	if !e.Export(records, path, format.SQLite, nil) {
		t.Fatal("initial sqlite export failed")
	}
	if n := countTableRows(t, path); n != 2 {
		t.Fatalf("expected 2 rows after create, got %d", n)
	}

	if !e.Export(records, path, format.SQLite, &Options{IfExists: "append"}) {
		t.Fatal("append export failed")
	}
	if n := countTableRows(t, path); n != 4 {
		t.Fatalf("append must keep existing rows, got %d", n)
	}

	if !e.Export(records[:1], path, format.SQLite, &Options{IfExists: "replace"}) {
		t.Fatal("replace export failed")
	}
	if n := countTableRows(t, path); n != 1 {
		t.Fatalf("replace must drop the previous table, got %d rows", n)
	}

	if e.Export(records, path, format.SQLite, &Options{IfExists: "fail"}) {
		t.Fatal("fail policy must refuse an existing table")
	}
}
