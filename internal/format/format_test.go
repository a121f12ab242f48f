package format

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectByExtension(t *testing.T) {
	cases := []struct {
		path string
		want ID
	}{
		{"data.csv", CSV},
		{"data.json", JSON},
		{"data.jsonl", JSONL},
		{"data.parquet", Parquet},
		{"data.feather", Feather},
		{"readings.lp", InfluxDB},
		{"market.db", SQLite},
		{"market.duckdb", DuckDB},
		{"archive.tar.gz", Gzip},
		{"archive.tar", Tar},
		{"report.xlsx", Excel},
	}
	for _, c := range cases {
		got, ok := Detect(c.path)
		if !ok || got != c.want {
			t.Fatalf("Detect(%q) = %q, %v; want %q", c.path, got, ok, c.want)
		}
	}
}

func TestDetectUnknown(t *testing.T) {
	if _, ok := Detect("mystery.xyz"); ok {
		t.Fatal("expected unknown extension to fail detection")
	}
	if _, ok := Detect("noextension"); ok {
		t.Fatal("expected extensionless path to fail detection")
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	if _, err := Parse("csv"); err != nil {
		t.Fatalf("expected csv to parse: %v", err)
	}
	if _, err := Parse("not-a-format"); err == nil {
		t.Fatal("expected unknown format to be rejected")
	}
}

func TestSniffTextStooqHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aapl.txt")
	content := "<TICKER>,<PER>,<DATE>,<TIME>,<OPEN>,<HIGH>,<LOW>,<CLOSE>,<VOL>,<OPENINT>\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	id, delim := SniffText(path)
	if id != Stooq || delim != ',' {
		t.Fatalf("expected stooq with comma delimiter, got %q %q", id, delim)
	}
}

func TestSniffTextDelimiterPriority(t *testing.T) {
	cases := []struct {
		line string
		want rune
	}{
		{"a,b;c", ','},
		{"a\tb|c", '\t'},
		{"a;b|c", ';'},
		{"a|b|c", '|'},
		{"single", '\t'},
	}
	for _, c := range cases {
		path := filepath.Join(t.TempDir(), "data.txt")
		if err := os.WriteFile(path, []byte(c.line+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		id, delim := SniffText(path)
		if id != TXT || delim != c.want {
			t.Fatalf("SniffText(%q) = %q %q; want txt %q", c.line, id, delim, c.want)
		}
	}
}

func TestRegistryCapabilities(t *testing.T) {
	d, ok := Lookup(Gzip)
	if !ok || !d.RequiresBase || d.Loadable {
		t.Fatalf("unexpected gzip descriptor: %+v", d)
	}
	if !IsCompressed(Zip) || IsCompressed(CSV) {
		t.Fatal("IsCompressed misclassifies formats")
	}
	if len(All()) != len(registry) {
		t.Fatal("All() dropped descriptors")
	}
}
