package exporter

import (
	"fmt"
	"os"
	"strings"

	"github.com/scritchley/orc"

	"seriesflow/models"
)

func (e *FileExporter) exportORC(records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)

	kinds := make([]string, len(columns))
	parts := make([]string, len(columns))
	for i, col := range columns {
		kinds[i] = columnKind(rows, col)
		switch kinds[i] {
		case "double":
			parts[i] = col + ":double"
		case "boolean":
			parts[i] = col + ":boolean"
		default:
			parts[i] = col + ":string"
		}
	}

	schema, err := orc.ParseSchema(fmt.Sprintf("struct<%s>", strings.Join(parts, ",")))
	if err != nil {
		return fmt.Errorf("build orc schema: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w, err := orc.NewWriter(f, orc.SetSchema(schema))
	if err != nil {
		return fmt.Errorf("create orc writer: %w", err)
	}

	vals := make([]interface{}, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				vals[i] = nil
				continue
			}
			switch kinds[i] {
			case "double":
				n, _ := models.AsFloat(v)
				vals[i] = n
			case "boolean":
				vals[i] = v
			default:
				vals[i] = formatScalar(v)
			}
		}
		if err := w.Write(vals...); err != nil {
			w.Close()
			return fmt.Errorf("write orc row: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize orc file: %w", err)
	}
	return nil
}
