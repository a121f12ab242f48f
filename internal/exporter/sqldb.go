package exporter

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"

	"seriesflow/models"
)

func (e *FileExporter) exportSQLite(records []models.Record, path string, opts Options) error {
	return e.exportTable("sqlite3", records, path, opts)
}

func (e *FileExporter) exportDuckDB(records []models.Record, path string, opts Options) error {
	return e.exportTable("duckdb", records, path, opts)
}

// exportTable writes the flattened frame into a named table honoring the
// if_exists policy: replace drops and recreates, append creates when absent,
// fail refuses to touch an existing table.
func (e *FileExporter) exportTable(driver string, records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)
	table := opts.Table

	db, err := sql.Open(driver, path)
	if err != nil {
		return fmt.Errorf("open %s database: %w", driver, err)
	}
	defer db.Close()

	exists, err := tableExists(db, driver, table)
	if err != nil {
		return fmt.Errorf("check table existence: %w", err)
	}

	switch opts.IfExists {
	case "fail":
		if exists {
			return fmt.Errorf("table %q already exists and if_exists=fail", table)
		}
	case "replace":
		if exists {
			if _, err := db.Exec(fmt.Sprintf("DROP TABLE %s", quoteIdent(table))); err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
			exists = false
		}
	case "append":
		// Existing rows are kept.
	default:
		return fmt.Errorf("unknown if_exists policy %q", opts.IfExists)
	}

	kinds := make([]string, len(columns))
	if !exists {
		defs := make([]string, len(columns))
		for i, col := range columns {
			kinds[i] = columnKind(rows, col)
			switch kinds[i] {
			case "double":
				defs[i] = fmt.Sprintf("%s DOUBLE", quoteIdent(col))
			case "boolean":
				defs[i] = fmt.Sprintf("%s BOOLEAN", quoteIdent(col))
			default:
				defs[i] = fmt.Sprintf("%s TEXT", quoteIdent(col))
			}
		}
		create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
		if _, err := db.Exec(create); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	} else {
		for i := range columns {
			kinds[i] = columnKind(rows, columns[i])
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	quoted := make([]string, len(columns))
	holders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		holders[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(holders, ", "))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				args[i] = nil
				continue
			}
			switch kinds[i] {
			case "double":
				n, _ := models.AsFloat(v)
				args[i] = n
			case "boolean":
				args[i] = v
			default:
				args[i] = formatScalar(v)
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func tableExists(db *sql.DB, driver, table string) (bool, error) {
	var query string
	switch driver {
	case "sqlite3":
		query = "SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?"
	default:
		query = "SELECT count(*) FROM information_schema.tables WHERE table_name=?"
	}
	var n int
	if err := db.QueryRow(query, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// quoteIdent wraps an identifier in double quotes; embedded quotes are
// doubled per the SQL standard.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
