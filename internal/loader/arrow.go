package loader

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"

	"seriesflow/models"
)

func (l *FileLoader) loadFeather(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open arrow file: %w", err)
	}
	defer r.Close()

	var records []models.Record
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return records, fmt.Errorf("read arrow record batch: %w", err)
		}
		records = append(records, arrowBatch(rec)...)
	}
	return records, nil
}

func (l *FileLoader) loadArrowStream(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open arrow stream: %w", err)
	}
	defer r.Release()

	var records []models.Record
	for r.Next() {
		records = append(records, arrowBatch(r.Record())...)
	}
	if err := r.Err(); err != nil {
		return records, fmt.Errorf("read arrow stream: %w", err)
	}
	return records, nil
}

func arrowBatch(batch arrow.Record) []models.Record {
	schema := batch.Schema()
	out := make([]models.Record, 0, batch.NumRows())
	for row := 0; row < int(batch.NumRows()); row++ {
		obj := make(map[string]any, batch.NumCols())
		for col := 0; col < int(batch.NumCols()); col++ {
			v, ok := arrowCell(batch.Column(col), row)
			if ok {
				obj[schema.Field(col).Name] = v
			}
		}
		out = append(out, rowToRecord(obj))
	}
	return out
}

func arrowCell(col arrow.Array, row int) (any, bool) {
	if col.IsNull(row) {
		return nil, false
	}
	switch c := col.(type) {
	case *array.Float64:
		return c.Value(row), true
	case *array.Float32:
		return float64(c.Value(row)), true
	case *array.Int64:
		return c.Value(row), true
	case *array.Int32:
		return int64(c.Value(row)), true
	case *array.Boolean:
		return c.Value(row), true
	case *array.String:
		return c.Value(row), true
	}
	return col.ValueStr(row), true
}
