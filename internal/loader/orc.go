package loader

import (
	"fmt"

	"github.com/scritchley/orc"

	"seriesflow/models"
)

// loadORC walks every stripe of the file, selecting all columns the schema
// declares. Column names map straight onto record fields the same way the
// other columnar loaders do.
func (l *FileLoader) loadORC(path string, opts Options) ([]models.Record, error) {
	r, err := orc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open orc file: %w", err)
	}
	defer r.Close()

	columns := r.Schema().Columns()
	c := r.Select(columns...)

	var records []models.Record
	for c.Stripes() {
		for c.Next() {
			row := c.Row()
			obj := make(map[string]any, len(columns))
			for i, col := range columns {
				if i >= len(row) || row[i] == nil {
					continue
				}
				obj[col] = orcCell(row[i])
			}
			records = append(records, rowToRecord(obj))
		}
	}
	if err := c.Err(); err != nil {
		return records, fmt.Errorf("read orc rows: %w", err)
	}
	return records, nil
}

// orcCell widens the reader's narrow numeric types to the canonical scalar
// set; everything else passes through.
func orcCell(v interface{}) any {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case int:
		return int64(n)
	case int32:
		return int64(n)
	}
	return v
}
