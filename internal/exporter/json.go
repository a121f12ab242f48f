package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"seriesflow/models"
)

func (e *FileExporter) exportJSON(records []models.Record, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if opts.Indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", opts.Indent))
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// exportJSONL writes one object per line with no array wrapper, the
// streaming/append-friendly shape.
func (e *FileExporter) exportJSONL(records []models.Record, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}

// protoRecord mirrors the proto3 JSON naming of the wire schema. A real
// protobuf encoder is a drop-in replacement at this boundary; the JSON
// surrogate keeps the field layout identical.
type protoRecord struct {
	SeriesId     string            `json:"seriesId"`
	Timestamp    string            `json:"timestamp"`
	Measurements map[string]any    `json:"measurements"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Format       string            `json:"format,omitempty"`
}

func (e *FileExporter) exportProtobufJSON(records []models.Record, path string, opts Options) error {
	out := struct {
		Records []protoRecord `json:"records"`
	}{Records: make([]protoRecord, 0, len(records))}

	for _, rec := range records {
		pr := protoRecord{
			SeriesId:     rec.SeriesID,
			Timestamp:    rec.Timestamp,
			Measurements: rec.Measurements,
			Format:       rec.Format,
		}
		if len(rec.Metadata) > 0 {
			pr.Metadata = make(map[string]string, len(rec.Metadata))
			for k, v := range rec.Metadata {
				pr.Metadata[k] = formatScalar(v)
			}
		}
		out.Records = append(out.Records, pr)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(out); err != nil {
		return fmt.Errorf("encode protobuf surrogate: %w", err)
	}
	return nil
}
