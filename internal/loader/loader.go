package loader

import (
	"fmt"
	"strings"

	"seriesflow/internal/format"
	"seriesflow/logger"
	"seriesflow/models"
)

// Options carries per-call load settings. Zero values fall back to the
// defaults baked into the loader at construction.
type Options struct {
	// Delimiter for txt input; 0 means sniff from the first line.
	Delimiter rune
	// Table name for database sources.
	Table string
	// Sheet name for spreadsheet sources; empty means the first sheet.
	Sheet string
}

type loadFunc func(path string, opts Options) ([]models.Record, error)

// FileLoader reads any loadable format into canonical records. Loaders never
// raise: failures are logged and an empty or partial slice comes back, so a
// bad input file degrades a conversion instead of aborting a batch of them.
type FileLoader struct {
	log      *logger.Log
	handlers map[format.ID]loadFunc
	defaults Options
}

func NewFileLoader(log *logger.Log) *FileLoader {
	if log == nil {
		log = logger.GetLogger()
	}
	l := &FileLoader{
		log: log,
		defaults: Options{
			Table: "records",
		},
	}
	l.handlers = map[format.ID]loadFunc{
		format.JSON:        l.loadJSON,
		format.JSONL:       l.loadJSONL,
		format.CSV:         l.loadCSV,
		format.TXT:         l.loadTXT,
		format.Stooq:       l.loadStooq,
		format.Parquet:     l.loadParquet,
		format.Feather:     l.loadFeather,
		format.Arrow:       l.loadArrowStream,
		format.ORC:         l.loadORC,
		format.DuckDB:      l.loadDuckDB,
		format.SQLite:      l.loadSQLite,
		format.Excel:       l.loadExcel,
		format.Avro:        l.loadAvro,
		format.MessagePack: l.loadMessagePack,
		format.InfluxDB:    l.loadInfluxLP,
		format.OpenTSDB:    l.loadOpenTSDB,
	}
	return l
}

// SetDefaults overrides construction-time option defaults.
func (l *FileLoader) SetDefaults(opts Options) {
	if opts.Delimiter != 0 {
		l.defaults.Delimiter = opts.Delimiter
	}
	if opts.Table != "" {
		l.defaults.Table = opts.Table
	}
	if opts.Sheet != "" {
		l.defaults.Sheet = opts.Sheet
	}
}

// Load reads path as the given format. An empty id falls back to extension
// detection and then to json. The returned slice is empty on any failure;
// partially decodable inputs yield the rows that did decode.
func (l *FileLoader) Load(path string, id format.ID, opts *Options) []models.Record {
	if id == "" {
		if detected, ok := format.Detect(path); ok {
			id = detected
		} else {
			id = format.JSON
		}
	}

	log := l.log.WithComponent("loader").WithFields(logger.Fields{
		"format":     string(id),
		"input_path": path,
	})

	desc, ok := format.Lookup(id)
	if !ok || !desc.Loadable {
		log.Error(fmt.Sprintf("format %q is not loadable", id))
		return nil
	}
	handler, ok := l.handlers[id]
	if !ok {
		log.Error(fmt.Sprintf("no load handler registered for %q", id))
		return nil
	}

	records, err := handler(path, l.resolve(opts))
	if err != nil {
		log.WithError(err).Error("load failed")
		return records
	}
	for i := range records {
		records[i].Format = string(id)
	}

	logger.IncrementLoaded(len(records))
	logger.LogDataFlowEntry(log, string(id), "records", len(records), "records")
	return records
}

// SupportedFormats lists every loadable format id.
func (l *FileLoader) SupportedFormats() []format.ID {
	out := make([]format.ID, 0, len(l.handlers))
	for _, d := range format.All() {
		if d.Loadable {
			if _, ok := l.handlers[d.ID]; ok {
				out = append(out, d.ID)
			}
		}
	}
	return out
}

func (l *FileLoader) resolve(opts *Options) Options {
	out := l.defaults
	if opts == nil {
		return out
	}
	if opts.Delimiter != 0 {
		out.Delimiter = opts.Delimiter
	}
	if opts.Table != "" {
		out.Table = opts.Table
	}
	if opts.Sheet != "" {
		out.Sheet = opts.Sheet
	}
	return out
}

// rowToRecord folds a flat row into the canonical shape. series_id, timestamp
// and format stay top level, with ticker and date as lower-priority fallbacks
// consumed only when the primary column is absent or empty; every other column
// becomes a measurement under its column name as-is, so a flattened
// measurement_close column round-trips as the measurement key
// "measurement_close". A row with no identifier at all gets series id
// "UNKNOWN" and an empty timestamp.
func rowToRecord(row map[string]any) models.Record {
	rec := models.Record{Measurements: make(map[string]any)}
	var ticker, date any
	var hasTicker, hasDate bool
	for k, v := range row {
		switch strings.ToLower(k) {
		case "series_id":
			rec.SeriesID = scalarString(v)
		case "ticker":
			ticker, hasTicker = v, true
		case "timestamp":
			rec.Timestamp = scalarString(v)
		case "date":
			date, hasDate = v, true
		case "format":
			rec.Format = scalarString(v)
		default:
			rec.Measurements[k] = v
		}
	}
	if rec.SeriesID == "" && hasTicker {
		rec.SeriesID = scalarString(ticker)
		hasTicker = false
	}
	if rec.Timestamp == "" && hasDate {
		rec.Timestamp = scalarString(date)
		hasDate = false
	}
	if hasTicker {
		rec.Measurements["ticker"] = ticker
	}
	if hasDate {
		rec.Measurements["date"] = date
	}
	if rec.SeriesID == "" {
		rec.SeriesID = "UNKNOWN"
	}
	return rec
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}
