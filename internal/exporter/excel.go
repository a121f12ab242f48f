package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"seriesflow/models"
)

func (e *FileExporter) exportExcel(records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)

	f := excelize.NewFile()
	defer f.Close()

	sheet := opts.Sheet
	if sheet != "Sheet1" {
		f.SetSheetName("Sheet1", sheet)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("write header cell: %w", err)
		}
	}

	for r, row := range rows {
		for c, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			// excelize handles numeric and bool natively; everything else
			// goes through the text rendering used by the csv exporter.
			switch v.(type) {
			case bool:
				err = f.SetCellValue(sheet, cell, v)
			default:
				if n, numeric := models.AsFloat(v); numeric {
					err = f.SetCellValue(sheet, cell, n)
				} else {
					err = f.SetCellValue(sheet, cell, formatScalar(v))
				}
			}
			if err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
