package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"seriesflow/models"
)

func (e *FileExporter) exportCSV(records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			line[i] = formatScalar(row[col])
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// exportTXT mirrors the CSV layout with a configurable delimiter (default
// tab) and no quoting.
func (e *FileExporter) exportTXT(records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)

	delim := string(opts.Delimiter)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Join(columns, delim))
	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			cells[i] = formatScalar(row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, delim))
	}
	return w.Flush()
}

// exportStooq writes the fixed Stooq layout. Prices are always rendered with
// exactly two decimals regardless of source precision (documented lossy
// rounding); volume and open interest are integral.
func (e *FileExporter) exportStooq(records []models.Record, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "TICKER,PER,DATE,TIME,OPEN,HIGH,LOW,CLOSE,VOL,OPENINT")
	for _, rec := range records {
		date, clock := stooqDateTime(rec.Timestamp)
		fmt.Fprintf(w, "%s,D,%s,%s,%s,%s,%s,%s,%s,%s\n",
			rec.SeriesID,
			date,
			clock,
			stooqPrice(rec.Measurements, "open"),
			stooqPrice(rec.Measurements, "high"),
			stooqPrice(rec.Measurements, "low"),
			stooqPrice(rec.Measurements, "close"),
			stooqInt(rec.Measurements, "vol"),
			stooqInt(rec.Measurements, "openint"),
		)
	}
	return w.Flush()
}

func stooqDateTime(timestamp string) (string, string) {
	t, ok := models.ParseTimestamp(timestamp)
	if !ok {
		return "", "000000"
	}
	return t.Format("20060102"), t.Format("150405")
}

func stooqPrice(m map[string]any, field string) string {
	if v, ok := m[field]; ok {
		if n, numeric := models.AsFloat(v); numeric {
			return fmt.Sprintf("%.2f", n)
		}
	}
	return "0.00"
}

func stooqInt(m map[string]any, field string) string {
	if v, ok := m[field]; ok {
		if n, numeric := models.AsFloat(v); numeric {
			return fmt.Sprintf("%.0f", n)
		}
	}
	return "0"
}
