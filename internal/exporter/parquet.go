package exporter

import (
	"fmt"
	"os"
	"sort"

	"github.com/parquet-go/parquet-go"

	"seriesflow/models"
)

// exportParquet writes a flat schema built from the flattened frame. Note
// that parquet-go orders group fields by name, so every column ends up in
// sorted position regardless of the pinned logical ordering used by the text
// exporters.
func (e *FileExporter) exportParquet(records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)

	sorted := make([]string, len(columns))
	copy(sorted, columns)
	sort.Strings(sorted)

	kinds := make(map[string]string, len(sorted))
	group := parquet.Group{}
	for _, col := range sorted {
		kind := columnKind(rows, col)
		kinds[col] = kind
		switch kind {
		case "double":
			group[col] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		case "boolean":
			group[col] = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		default:
			group[col] = parquet.Optional(parquet.String())
		}
	}
	schema := parquet.NewSchema("records", group)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	wopts := []parquet.WriterOption{schema}
	switch opts.Compression {
	case "gzip":
		wopts = append(wopts, parquet.Compression(&parquet.Gzip))
	case "zstd":
		wopts = append(wopts, parquet.Compression(&parquet.Zstd))
	case "uncompressed", "none":
		wopts = append(wopts, parquet.Compression(&parquet.Uncompressed))
	default:
		wopts = append(wopts, parquet.Compression(&parquet.Snappy))
	}
	w := parquet.NewWriter(f, wopts...)

	prow := make(parquet.Row, 0, len(sorted))
	for _, row := range rows {
		prow = prow[:0]
		for i, col := range sorted {
			v, ok := row[col]
			if !ok || v == nil {
				prow = append(prow, parquet.ValueOf(nil).Level(0, 0, i))
				continue
			}
			switch kinds[col] {
			case "double":
				n, _ := models.AsFloat(v)
				prow = append(prow, parquet.ValueOf(n).Level(0, 1, i))
			case "boolean":
				prow = append(prow, parquet.ValueOf(v).Level(0, 1, i))
			default:
				prow = append(prow, parquet.ValueOf(formatScalar(v)).Level(0, 1, i))
			}
		}
		if _, err := w.WriteRows([]parquet.Row{prow}); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}
