package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"seriesflow/models"
)

func (l *FileLoader) loadParquet(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	fields := pf.Schema().Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name()
	}

	var records []models.Record
	buf := make([]parquet.Row, 64)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, prow := range buf[:n] {
				obj := make(map[string]any, len(columns))
				for _, v := range prow {
					col := int(v.Column())
					if col < 0 || col >= len(columns) || v.IsNull() {
						continue
					}
					obj[columns[col]] = parquetValue(v)
				}
				records = append(records, rowToRecord(obj))
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return records, fmt.Errorf("read parquet rows: %w", err)
			}
		}
		rows.Close()
	}
	return records, nil
}

func parquetValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return v.String()
	}
	return v.String()
}
