package loader

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"

	"seriesflow/models"
)

func (l *FileLoader) loadSQLite(path string, opts Options) ([]models.Record, error) {
	return l.loadTable("sqlite3", path, opts)
}

func (l *FileLoader) loadDuckDB(path string, opts Options) ([]models.Record, error) {
	return l.loadTable("duckdb", path, opts)
}

func (l *FileLoader) loadTable(driver, path string, opts Options) ([]models.Record, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	defer db.Close()

	quoted := `"` + strings.ReplaceAll(opts.Table, `"`, `""`) + `"`
	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s", quoted))
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", opts.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var records []models.Record
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return records, fmt.Errorf("scan row: %w", err)
		}
		obj := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if v == nil {
				continue
			}
			if raw, ok := v.([]byte); ok {
				obj[col] = models.Coerce(string(raw))
			} else {
				obj[col] = v
			}
		}
		records = append(records, rowToRecord(obj))
	}
	if err := rows.Err(); err != nil {
		return records, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}
