package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"seriesflow/models"
)

func (l *FileLoader) loadJSON(path string, opts Options) ([]models.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	var objects []map[string]any
	if err := json.Unmarshal(raw, &objects); err != nil {
		// Accept a single object as a one-record document.
		var single map[string]any
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		objects = []map[string]any{single}
	}

	records := make([]models.Record, 0, len(objects))
	for _, obj := range objects {
		records = append(records, mapToRecord(obj))
	}
	return records, nil
}

func (l *FileLoader) loadJSONL(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	log := l.log.WithComponent("loader").WithField("input_path", path)

	var records []models.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			log.WithField("line", lineNo).WithError(err).Warn("skipping malformed jsonl line")
			continue
		}
		records = append(records, mapToRecord(obj))
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan input: %w", err)
	}
	return records, nil
}

// mapToRecord handles both shapes json-like sources produce: the canonical
// nested form (a measurements sub-object) and the flat form, which goes
// through the same column folding the tabular loaders use.
func mapToRecord(obj map[string]any) models.Record {
	if nested, ok := obj["measurements"].(map[string]any); ok {
		rec := models.Record{
			SeriesID:     scalarString(obj["series_id"]),
			Timestamp:    scalarString(obj["timestamp"]),
			Measurements: nested,
		}
		if meta, ok := obj["metadata"].(map[string]any); ok {
			rec.Metadata = meta
		}
		if f, ok := obj["format"].(string); ok {
			rec.Format = f
		}
		return rec
	}
	return rowToRecord(obj)
}
