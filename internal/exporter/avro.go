package exporter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/linkedin/goavro/v2"

	"seriesflow/models"
)

// exportAvro writes an Object Container File. The schema is inferred from the
// flattened frame unless an explicit schema is supplied through Options; every
// field is a ["null", T] union so sparse columns encode cleanly.
func (e *FileExporter) exportAvro(records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)

	schema := opts.Schema
	kinds := make(map[string]string, len(columns))
	for _, col := range columns {
		kinds[col] = columnKind(rows, col)
	}
	if schema == "" {
		s, err := buildAvroSchema(columns, kinds)
		if err != nil {
			return fmt.Errorf("build avro schema: %w", err)
		}
		schema = s
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               f,
		Schema:          schema,
		CompressionName: goavro.CompressionSnappyLabel,
	})
	if err != nil {
		return fmt.Errorf("create ocf writer: %w", err)
	}

	native := make([]any, 0, len(rows))
	for _, row := range rows {
		datum := make(map[string]any, len(columns))
		for _, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				datum[col] = nil
				continue
			}
			switch kinds[col] {
			case "double":
				n, _ := models.AsFloat(v)
				datum[col] = goavro.Union("double", n)
			case "boolean":
				datum[col] = goavro.Union("boolean", v)
			default:
				datum[col] = goavro.Union("string", formatScalar(v))
			}
		}
		native = append(native, datum)
	}

	if err := w.Append(native); err != nil {
		return fmt.Errorf("append avro records: %w", err)
	}
	return nil
}

func buildAvroSchema(columns []string, kinds map[string]string) (string, error) {
	type avroField struct {
		Name    string `json:"name"`
		Type    []any  `json:"type"`
		Default any    `json:"default"`
	}
	fields := make([]avroField, len(columns))
	for i, col := range columns {
		var t string
		switch kinds[col] {
		case "double":
			t = "double"
		case "boolean":
			t = "boolean"
		default:
			t = "string"
		}
		fields[i] = avroField{Name: col, Type: []any{"null", t}, Default: nil}
	}
	raw, err := json.Marshal(map[string]any{
		"type":   "record",
		"name":   "SeriesRecord",
		"fields": fields,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
