package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"seriesflow/models"
)

func (l *FileLoader) loadExcel(path string, opts Options) ([]models.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		obj := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(row) || row[i] == "" {
				continue
			}
			obj[col] = models.Coerce(row[i])
		}
		if len(obj) == 0 {
			continue
		}
		records = append(records, rowToRecord(obj))
	}
	return records, nil
}
