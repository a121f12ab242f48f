package exporter

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"

	"seriesflow/models"
)

// exportFeather writes the Arrow IPC file format (Feather v2).
func (e *FileExporter) exportFeather(records []models.Record, path string, opts Options) error {
	return e.writeArrow(records, path, true)
}

// exportArrowStream writes the Arrow IPC streaming format.
func (e *FileExporter) exportArrowStream(records []models.Record, path string, opts Options) error {
	return e.writeArrow(records, path, false)
}

func (e *FileExporter) writeArrow(records []models.Record, path string, file bool) error {
	rows, columns := Flatten(records)

	mem := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(columns))
	kinds := make([]string, len(columns))
	for i, col := range columns {
		kinds[i] = columnKind(rows, col)
		switch kinds[i] {
		case "double":
			fields[i] = arrow.Field{Name: col, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
		case "boolean":
			fields[i] = arrow.Field{Name: col, Type: arrow.FixedWidthTypes.Boolean, Nullable: true}
		default:
			fields[i] = arrow.Field{Name: col, Type: arrow.BinaryTypes.String, Nullable: true}
		}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for _, row := range rows {
		for i, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				b.Field(i).AppendNull()
				continue
			}
			switch kinds[i] {
			case "double":
				n, _ := models.AsFloat(v)
				b.Field(i).(*array.Float64Builder).Append(n)
			case "boolean":
				b.Field(i).(*array.BooleanBuilder).Append(v.(bool))
			default:
				b.Field(i).(*array.StringBuilder).Append(formatScalar(v))
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if file {
		w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
		if err != nil {
			return fmt.Errorf("create ipc file writer: %w", err)
		}
		if err := w.Write(rec); err != nil {
			w.Close()
			return fmt.Errorf("write arrow record: %w", err)
		}
		return w.Close()
	}

	w := ipc.NewWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	return w.Close()
}
