package exporter

import (
	"fmt"

	"seriesflow/internal/format"
	"seriesflow/logger"
	"seriesflow/models"
)

// Options carries per-call export settings. Zero values fall back to the
// defaults baked into the exporter at construction.
type Options struct {
	// Delimiter for txt output (default tab).
	Delimiter rune
	// Indent for json output; 0 means compact.
	Indent int
	// BaseFormat names the wrapped format for compression targets. Required
	// for gzip/bzip2/zstandard/lz4/zip/tar; never inferred.
	BaseFormat format.ID
	// IfExists policy for database targets: replace, append or fail.
	IfExists string
	// Table name for database targets.
	Table string
	// Compression codec for parquet (snappy, gzip, zstd, uncompressed).
	Compression string
	// Sheet name for spreadsheet targets.
	Sheet string
	// Schema overrides Avro schema inference when supplied.
	Schema string
}

type exportFunc func(records []models.Record, path string, opts Options) error

// FileExporter serializes canonical records into any exportable format. One
// instance is safe for sequential reuse; each Export call owns its output
// path exclusively.
type FileExporter struct {
	log      *logger.Log
	handlers map[format.ID]exportFunc
	defaults Options
}

// NewFileExporter builds the exporter with its format handler registry. The
// registry is the single dispatch point; an id missing here is unsupported
// regardless of what the format table claims.
func NewFileExporter(log *logger.Log) *FileExporter {
	if log == nil {
		log = logger.GetLogger()
	}
	e := &FileExporter{
		log: log,
		defaults: Options{
			Delimiter: '\t',
			IfExists:  "replace",
			Table:     "records",
			Sheet:     "Sheet1",
		},
	}
	e.handlers = map[format.ID]exportFunc{
		format.JSON:            e.exportJSON,
		format.JSONL:           e.exportJSONL,
		format.CSV:             e.exportCSV,
		format.TXT:             e.exportTXT,
		format.Stooq:           e.exportStooq,
		format.Parquet:         e.exportParquet,
		format.Feather:         e.exportFeather,
		format.Arrow:           e.exportArrowStream,
		format.ORC:             e.exportORC,
		format.DuckDB:          e.exportDuckDB,
		format.SQLite:          e.exportSQLite,
		format.Excel:           e.exportExcel,
		format.Avro:            e.exportAvro,
		format.MessagePack:     e.exportMessagePack,
		format.Protobuf:        e.exportProtobufJSON,
		format.InfluxDB:        e.exportInfluxLP,
		format.OpenTSDB:        e.exportOpenTSDB,
		format.Prometheus:      e.exportPrometheus,
		format.VictoriaMetrics: e.exportVictoriaMetrics,
		format.TDengine:        e.exportTDengine,
		format.QuestDB:         e.exportQuestDB,
		format.TimescaleDB:     e.exportTimescaleDB,
		format.TsFile:          e.exportTsFile,
		format.NetCDF:          e.exportNetCDF,
		format.Zarr:            e.exportZarr,
		format.FITS:            e.exportFITS,
	}
	for _, id := range []format.ID{format.Gzip, format.Bzip2, format.Zstandard, format.LZ4} {
		id := id
		e.handlers[id] = func(records []models.Record, path string, opts Options) error {
			return e.exportCompressed(id, records, path, opts)
		}
	}
	for _, id := range []format.ID{format.Zip, format.Tar} {
		id := id
		e.handlers[id] = func(records []models.Record, path string, opts Options) error {
			return e.exportArchive(id, records, path, opts)
		}
	}
	return e
}

// SetDefaults overrides the construction-time option defaults, typically from
// the exporter block of the configuration file.
func (e *FileExporter) SetDefaults(opts Options) {
	if opts.Delimiter != 0 {
		e.defaults.Delimiter = opts.Delimiter
	}
	if opts.IfExists != "" {
		e.defaults.IfExists = opts.IfExists
	}
	if opts.Table != "" {
		e.defaults.Table = opts.Table
	}
	if opts.Compression != "" {
		e.defaults.Compression = opts.Compression
	}
	if opts.Sheet != "" {
		e.defaults.Sheet = opts.Sheet
	}
	if opts.Indent != 0 {
		e.defaults.Indent = opts.Indent
	}
}

// Export serializes records to path in the given format. It returns false on
// empty input, unsupported format, or any serialization/I/O failure; the
// reason is logged, never raised.
func (e *FileExporter) Export(records []models.Record, path string, id format.ID, opts *Options) bool {
	log := e.log.WithComponent("exporter").WithFields(logger.Fields{
		"format":       string(id),
		"output_path":  path,
		"record_count": len(records),
	})

	if len(records) == 0 {
		log.Warn("no records to export")
		return false
	}

	desc, ok := format.Lookup(id)
	if !ok || !desc.Exportable {
		log.Error(fmt.Sprintf("format %q is not exportable", id))
		return false
	}
	handler, ok := e.handlers[id]
	if !ok {
		log.Error(fmt.Sprintf("no export handler registered for %q", id))
		return false
	}

	resolved := e.resolve(opts)
	if desc.RequiresBase && resolved.BaseFormat == "" {
		log.Error("compressed export requires a base_format option")
		return false
	}

	if err := handler(records, path, resolved); err != nil {
		log.WithError(err).Error("export failed")
		return false
	}

	logger.IncrementExported(len(records))
	logger.LogDataFlowEntry(log, "records", string(id), len(records), "records")
	return true
}

// SupportedFormats lists every exportable format id.
func (e *FileExporter) SupportedFormats() []format.ID {
	out := make([]format.ID, 0, len(e.handlers))
	for _, d := range format.All() {
		if d.Exportable {
			if _, ok := e.handlers[d.ID]; ok {
				out = append(out, d.ID)
			}
		}
	}
	return out
}

// FormatInfo returns the primary extension and MIME type for a format.
func (e *FileExporter) FormatInfo(id format.ID) (ext string, mime string, ok bool) {
	d, found := format.Lookup(id)
	if !found {
		return "", "", false
	}
	if len(d.Extensions) > 0 {
		ext = d.Extensions[0]
	}
	return ext, d.MIME, true
}

func (e *FileExporter) resolve(opts *Options) Options {
	out := e.defaults
	if opts == nil {
		return out
	}
	if opts.Delimiter != 0 {
		out.Delimiter = opts.Delimiter
	}
	if opts.Indent != 0 {
		out.Indent = opts.Indent
	}
	if opts.BaseFormat != "" {
		out.BaseFormat = opts.BaseFormat
	}
	if opts.IfExists != "" {
		out.IfExists = opts.IfExists
	}
	if opts.Table != "" {
		out.Table = opts.Table
	}
	if opts.Compression != "" {
		out.Compression = opts.Compression
	}
	if opts.Sheet != "" {
		out.Sheet = opts.Sheet
	}
	if opts.Schema != "" {
		out.Schema = opts.Schema
	}
	return out
}
