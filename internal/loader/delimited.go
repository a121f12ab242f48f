package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"seriesflow/internal/format"
	"seriesflow/models"
)

func parseStooqStamp(s string) (time.Time, bool) {
	if t, err := time.Parse("20060102 150405", s); err == nil {
		return t, true
	}
	return models.ParseTimestamp(s)
}

func (l *FileLoader) loadCSV(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var table [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tableToRecords(table), fmt.Errorf("parse csv: %w", err)
		}
		table = append(table, row)
	}
	return tableToRecords(table), nil
}

// loadTXT sniffs the first line before parsing: a Stooq header reroutes to the
// Stooq loader, otherwise the sniffed delimiter applies unless the caller
// pinned one.
func (l *FileLoader) loadTXT(path string, opts Options) ([]models.Record, error) {
	id, delim := format.SniffText(path)
	if id == format.Stooq {
		return l.loadStooq(path, opts)
	}
	if opts.Delimiter != 0 {
		delim = opts.Delimiter
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	var table [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		table = append(table, strings.Split(line, string(delim)))
	}
	if err := scanner.Err(); err != nil {
		return tableToRecords(table), fmt.Errorf("scan input: %w", err)
	}
	return tableToRecords(table), nil
}

// tableToRecords folds a header-plus-rows table into records. The first row
// is a header only when its first token contains alphabetic characters; a
// leading number or bare date means the table is headerless and gets
// synthetic col_N names.
func tableToRecords(table [][]string) []models.Record {
	if len(table) == 0 {
		return nil
	}

	header := table[0]
	body := table[1:]
	if !strings.ContainsFunc(header[0], unicode.IsLetter) {
		header = make([]string, len(table[0]))
		for i := range header {
			header[i] = fmt.Sprintf("col_%d", i)
		}
		body = table
	}

	records := make([]models.Record, 0, len(body))
	for _, row := range body {
		obj := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			obj[col] = models.Coerce(row[i])
		}
		records = append(records, rowToRecord(obj))
	}
	return records
}

// loadStooq parses the fixed TICKER,PER,DATE,TIME,... layout. DATE and TIME
// combine into the canonical timestamp; rows whose date does not parse are
// skipped. PER survives as metadata since the canonical model has no period
// slot.
func (l *FileLoader) loadStooq(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	log := l.log.WithComponent("loader").WithField("input_path", path)

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read stooq header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.Trim(strings.TrimSpace(header[i]), "<>"))
	}

	var records []models.Record
	lineNo := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			log.WithField("line", lineNo).WithError(err).Warn("skipping malformed stooq row")
			continue
		}

		cells := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				cells[col] = strings.TrimSpace(row[i])
			}
		}

		stamp := cells["date"]
		if clock := cells["time"]; clock != "" && clock != "000000" {
			stamp = stamp + " " + clock
		}
		t, ok := parseStooqStamp(stamp)
		if !ok {
			log.WithField("line", lineNo).Warn("skipping stooq row with unparseable date")
			continue
		}

		rec := models.Record{
			SeriesID:     cells["ticker"],
			Timestamp:    models.FormatTimestamp(t),
			Measurements: make(map[string]any),
		}
		for _, field := range []string{"open", "high", "low", "close", "vol", "openint"} {
			if raw, ok := cells[field]; ok && raw != "" {
				rec.Measurements[field] = models.Coerce(raw)
			}
		}
		if per := cells["per"]; per != "" {
			rec.Metadata = map[string]any{"per": per}
		}
		records = append(records, rec)
	}
	return records, nil
}
