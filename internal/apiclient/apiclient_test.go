package apiclient

import "testing"

func TestExtractDataPath(t *testing.T) {
	response := map[string]any{
		"data": map[string]any{
			"items": []any{
				map[string]any{"ticker": "AAPL", "c": 151.5},
				map[string]any{"ticker": "MSFT", "c": 390.1},
			},
		},
	}
	rows, err := ExtractData(response, "data.items")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0]["ticker"] != "AAPL" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestExtractDataListIndex(t *testing.T) {
	response := map[string]any{
		"results": []any{
			map[string]any{"rows": []any{map[string]any{"v": 1.0}}},
		},
	}
	rows, err := ExtractData(response, "results.0.rows")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["v"] != 1.0 {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestExtractDataWrapsSingleObject(t *testing.T) {
	rows, err := ExtractData(map[string]any{"ticker": "AAPL"}, "")
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected single object wrapped, got %v %v", rows, err)
	}
}

func TestExtractDataMissingSegment(t *testing.T) {
	if _, err := ExtractData(map[string]any{"a": 1.0}, "b"); err == nil {
		t.Fatal("expected missing segment to error")
	}
}

func TestMapColumns(t *testing.T) {
	record := map[string]any{"t": "AAPL", "c": 151.5, "noise": true}
	mapping := map[string]string{"t": "series_id", "c": "close", "noise": ""}
	out := MapColumns(record, mapping)
	if out["series_id"] != "AAPL" || out["close"] != 151.5 {
		t.Fatalf("unexpected mapping result %v", out)
	}
	if _, ok := out["noise"]; ok {
		t.Fatal("empty target should drop the column")
	}
	if len(out) != 2 {
		t.Fatalf("unexpected keys in %v", out)
	}
}
