package format

import (
	"fmt"
	"sort"
	"strings"
)

// ID identifies a supported file format. Construct values through Parse so an
// unknown format is an error at the call boundary rather than a runtime
// fallthrough inside a loader or exporter.
type ID string

const (
	JSON            ID = "json"
	JSONL           ID = "jsonl"
	CSV             ID = "csv"
	TXT             ID = "txt"
	Stooq           ID = "stooq"
	Parquet         ID = "parquet"
	Feather         ID = "feather"
	Arrow           ID = "arrow"
	ORC             ID = "orc"
	DuckDB          ID = "duckdb"
	SQLite          ID = "sqlite"
	Excel           ID = "excel"
	Avro            ID = "avro"
	MessagePack     ID = "messagepack"
	Protobuf        ID = "protobuf"
	InfluxDB        ID = "influxdb"
	OpenTSDB        ID = "opentsdb"
	Prometheus      ID = "prometheus"
	VictoriaMetrics ID = "victoriametrics"
	TDengine        ID = "tdengine"
	QuestDB         ID = "questdb"
	TimescaleDB     ID = "timescaledb"
	TsFile          ID = "tsfile"
	NetCDF          ID = "netcdf"
	Zarr            ID = "zarr"
	FITS            ID = "fits"
	Gzip            ID = "gzip"
	Bzip2           ID = "bzip2"
	Zstandard       ID = "zstandard"
	LZ4             ID = "lz4"
	Zip             ID = "zip"
	Tar             ID = "tar"
)

// Descriptor is a registry entry for one format. The registry is populated
// once at package init and never mutated afterwards.
type Descriptor struct {
	ID           ID
	Category     string
	Extensions   []string
	MIME         string
	Loadable     bool
	Exportable   bool
	RequiresBase bool
}

var registry = []Descriptor{
	{ID: JSON, Category: "text", Extensions: []string{".json"}, MIME: "application/json", Loadable: true, Exportable: true},
	{ID: JSONL, Category: "text", Extensions: []string{".jsonl", ".ndjson"}, MIME: "application/x-ndjson", Loadable: true, Exportable: true},
	{ID: CSV, Category: "text", Extensions: []string{".csv"}, MIME: "text/csv", Loadable: true, Exportable: true},
	{ID: TXT, Category: "text", Extensions: []string{".txt", ".tsv"}, MIME: "text/plain", Loadable: true, Exportable: true},
	{ID: Stooq, Category: "text", Extensions: []string{}, MIME: "text/plain", Loadable: true, Exportable: true},
	{ID: Parquet, Category: "columnar", Extensions: []string{".parquet", ".pq"}, MIME: "application/vnd.apache.parquet", Loadable: true, Exportable: true},
	{ID: Feather, Category: "columnar", Extensions: []string{".feather"}, MIME: "application/vnd.apache.arrow.file", Loadable: true, Exportable: true},
	{ID: Arrow, Category: "columnar", Extensions: []string{".arrow", ".ipc"}, MIME: "application/vnd.apache.arrow.stream", Loadable: true, Exportable: true},
	{ID: ORC, Category: "columnar", Extensions: []string{".orc"}, MIME: "application/x-orc", Loadable: true, Exportable: true},
	{ID: DuckDB, Category: "database", Extensions: []string{".duckdb", ".ddb"}, MIME: "application/octet-stream", Loadable: true, Exportable: true},
	{ID: SQLite, Category: "database", Extensions: []string{".db", ".sqlite", ".sqlite3"}, MIME: "application/vnd.sqlite3", Loadable: true, Exportable: true},
	{ID: Excel, Category: "spreadsheet", Extensions: []string{".xlsx"}, MIME: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Loadable: true, Exportable: true},
	{ID: Avro, Category: "binary", Extensions: []string{".avro"}, MIME: "application/avro", Loadable: true, Exportable: true},
	{ID: MessagePack, Category: "binary", Extensions: []string{".msgpack", ".mp"}, MIME: "application/msgpack", Loadable: true, Exportable: true},
	{ID: Protobuf, Category: "binary", Extensions: []string{".pb"}, MIME: "application/json", Exportable: true},
	{ID: InfluxDB, Category: "tsdb", Extensions: []string{".lp", ".influx"}, MIME: "text/plain", Loadable: true, Exportable: true},
	{ID: OpenTSDB, Category: "tsdb", Extensions: []string{".opentsdb", ".otsdb"}, MIME: "text/plain", Loadable: true, Exportable: true},
	{ID: Prometheus, Category: "tsdb", Extensions: []string{".prom"}, MIME: "application/json", Exportable: true},
	{ID: VictoriaMetrics, Category: "tsdb", Extensions: []string{".vm"}, MIME: "application/x-ndjson", Exportable: true},
	{ID: TDengine, Category: "tsdb", Extensions: []string{".td"}, MIME: "text/plain", Exportable: true},
	{ID: QuestDB, Category: "tsdb", Extensions: []string{".ilp"}, MIME: "text/plain", Exportable: true},
	{ID: TimescaleDB, Category: "tsdb", Extensions: []string{".sql"}, MIME: "application/sql", Exportable: true},
	{ID: TsFile, Category: "tsdb", Extensions: []string{".tsfile"}, MIME: "text/csv", Exportable: true},
	{ID: NetCDF, Category: "scientific", Extensions: []string{".nc", ".netcdf"}, MIME: "application/x-netcdf", Exportable: true},
	{ID: Zarr, Category: "scientific", Extensions: []string{".zarr"}, MIME: "application/octet-stream", Exportable: true},
	{ID: FITS, Category: "scientific", Extensions: []string{".fits", ".fit"}, MIME: "application/fits", Exportable: true},
	{ID: Gzip, Category: "compressed", Extensions: []string{".gz"}, MIME: "application/gzip", Exportable: true, RequiresBase: true},
	{ID: Bzip2, Category: "compressed", Extensions: []string{".bz2"}, MIME: "application/x-bzip2", Exportable: true, RequiresBase: true},
	{ID: Zstandard, Category: "compressed", Extensions: []string{".zst", ".zstd"}, MIME: "application/zstd", Exportable: true, RequiresBase: true},
	{ID: LZ4, Category: "compressed", Extensions: []string{".lz4"}, MIME: "application/x-lz4", Exportable: true, RequiresBase: true},
	{ID: Zip, Category: "compressed", Extensions: []string{".zip"}, MIME: "application/zip", Exportable: true, RequiresBase: true},
	{ID: Tar, Category: "compressed", Extensions: []string{".tar"}, MIME: "application/x-tar", Exportable: true, RequiresBase: true},
}

var (
	byID  = make(map[ID]Descriptor, len(registry))
	byExt = make(map[string]ID)
)

func init() {
	for _, d := range registry {
		byID[d.ID] = d
		for _, ext := range d.Extensions {
			byExt[ext] = d.ID
		}
	}
}

// Parse validates a free-form format string against the registry.
func Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := byID[id]; !ok {
		return "", fmt.Errorf("unknown format %q", s)
	}
	return id, nil
}

// Lookup returns the descriptor for a format id.
func Lookup(id ID) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// All returns every registered descriptor, ordered by id.
func All() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByCategory groups format ids by category, each group sorted.
func ByCategory() map[string][]ID {
	out := make(map[string][]ID)
	for _, d := range registry {
		out[d.Category] = append(out[d.Category], d.ID)
	}
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}

// IsCompressed reports whether the format is a compression wrapper around a
// base format rather than a structure of its own.
func IsCompressed(id ID) bool {
	d, ok := byID[id]
	return ok && d.RequiresBase
}
