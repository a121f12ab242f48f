package exporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"seriesflow/models"
)

// exportInfluxLP writes InfluxDB line protocol with nanosecond timestamps.
// Measurement is the series id, metadata entries become tags, and fields keep
// the canonical OHLCV order ahead of any extra measurements. Records whose
// timestamp cannot be parsed are written without one and the server assigns
// ingest time.
func (e *FileExporter) exportInfluxLP(records []models.Record, path string, opts Options) error {
	return e.writeLineProtocol(records, path, "ns")
}

// exportQuestDB writes QuestDB's ingestion line protocol, which is wire
// compatible with the Influx nanosecond form.
func (e *FileExporter) exportQuestDB(records []models.Record, path string, opts Options) error {
	return e.writeLineProtocol(records, path, "ns")
}

// exportTDengine writes schemaless influx-style lines at the millisecond
// precision TDengine defaults to.
func (e *FileExporter) exportTDengine(records []models.Record, path string, opts Options) error {
	return e.writeLineProtocol(records, path, "ms")
}

func (e *FileExporter) writeLineProtocol(records []models.Record, path string, precision string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		line, ok := lpLine(rec, precision)
		if !ok {
			continue
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func lpLine(rec models.Record, precision string) (string, bool) {
	if rec.SeriesID == "" || len(rec.Measurements) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString(lpEscapeName(rec.SeriesID))

	tags := make([]string, 0, len(rec.Metadata))
	for k := range rec.Metadata {
		tags = append(tags, k)
	}
	sort.Strings(tags)
	for _, k := range tags {
		b.WriteByte(',')
		b.WriteString(lpEscapeName(k))
		b.WriteByte('=')
		b.WriteString(lpEscapeName(formatScalar(rec.Metadata[k])))
	}

	b.WriteByte(' ')
	first := true
	for _, k := range measurementOrder(rec.Measurements) {
		v := rec.Measurements[k]
		if v == nil {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(lpEscapeName(k))
		b.WriteByte('=')
		switch x := v.(type) {
		case bool:
			b.WriteString(strconv.FormatBool(x))
		case string:
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(x, `"`, `\"`))
			b.WriteByte('"')
		default:
			n, _ := models.AsFloat(v)
			b.WriteString(strconv.FormatFloat(n, 'f', -1, 64))
		}
	}
	if first {
		return "", false
	}

	if t, ok := models.ParseTimestamp(rec.Timestamp); ok {
		b.WriteByte(' ')
		switch precision {
		case "ms":
			b.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
		default:
			b.WriteString(strconv.FormatInt(t.UnixNano(), 10))
		}
	}
	return b.String(), true
}

func lpEscapeName(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, " ", `\ `)
	s = strings.ReplaceAll(s, "=", `\=`)
	return s
}

// exportOpenTSDB writes one telnet-style put line per numeric measurement,
// second-precision timestamps, metadata as tags.
func (e *FileExporter) exportOpenTSDB(records []models.Record, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		t, ok := models.ParseTimestamp(rec.Timestamp)
		if !ok {
			continue
		}
		tags := make([]string, 0, len(rec.Metadata))
		for k := range rec.Metadata {
			tags = append(tags, k)
		}
		sort.Strings(tags)
		suffix := ""
		for _, k := range tags {
			suffix += fmt.Sprintf(" %s=%s", k, formatScalar(rec.Metadata[k]))
		}
		for _, m := range measurementOrder(rec.Measurements) {
			n, numeric := models.AsFloat(rec.Measurements[m])
			if !numeric {
				continue
			}
			fmt.Fprintf(w, "put %s.%s %d %s%s\n",
				rec.SeriesID, m, t.Unix(), strconv.FormatFloat(n, 'f', -1, 64), suffix)
		}
	}
	return w.Flush()
}

type promLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type promSample struct {
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

type promSeries struct {
	Labels  []promLabel  `json:"labels"`
	Samples []promSample `json:"samples"`
}

// exportPrometheus writes a remote-write shaped JSON document: one timeseries
// per (series, measurement) pair with millisecond sample timestamps. Metric
// names are sanitized to the prometheus charset.
func (e *FileExporter) exportPrometheus(records []models.Record, path string, opts Options) error {
	order := make([]string, 0)
	grouped := make(map[string]*promSeries)

	for _, rec := range records {
		t, ok := models.ParseTimestamp(rec.Timestamp)
		if !ok {
			continue
		}
		for _, m := range measurementOrder(rec.Measurements) {
			n, numeric := models.AsFloat(rec.Measurements[m])
			if !numeric {
				continue
			}
			name := promName(rec.SeriesID + "_" + m)
			key := name
			series, seen := grouped[key]
			if !seen {
				labels := []promLabel{{Name: "__name__", Value: name}}
				tags := make([]string, 0, len(rec.Metadata))
				for k := range rec.Metadata {
					tags = append(tags, k)
				}
				sort.Strings(tags)
				for _, k := range tags {
					labels = append(labels, promLabel{Name: promName(k), Value: formatScalar(rec.Metadata[k])})
				}
				series = &promSeries{Labels: labels}
				grouped[key] = series
				order = append(order, key)
			}
			series.Samples = append(series.Samples, promSample{Value: n, Timestamp: t.UnixMilli()})
		}
	}

	doc := struct {
		Timeseries []promSeries `json:"timeseries"`
	}{Timeseries: make([]promSeries, 0, len(order))}
	for _, key := range order {
		doc.Timeseries = append(doc.Timeseries, *grouped[key])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func promName(s string) string {
	out := make([]rune, 0, len(s))
	for i, r := range s {
		valid := r == '_' || r == ':' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if valid {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

// exportVictoriaMetrics writes the /api/v1/import JSON line format: one
// object per (series, measurement) sample with parallel value and timestamp
// arrays.
func (e *FileExporter) exportVictoriaMetrics(records []models.Record, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		t, ok := models.ParseTimestamp(rec.Timestamp)
		if !ok {
			continue
		}
		for _, m := range measurementOrder(rec.Measurements) {
			n, numeric := models.AsFloat(rec.Measurements[m])
			if !numeric {
				continue
			}
			metric := map[string]string{"__name__": promName(rec.SeriesID + "_" + m)}
			for k, v := range rec.Metadata {
				metric[promName(k)] = formatScalar(v)
			}
			line := map[string]any{
				"metric":     metric,
				"values":     []float64{n},
				"timestamps": []int64{t.UnixMilli()},
			}
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("encode import line: %w", err)
			}
		}
	}
	return w.Flush()
}

// exportTimescaleDB writes a psql-ready script: a hypertable-shaped CREATE
// TABLE followed by one INSERT per record against the flattened frame.
func (e *FileExporter) exportTimescaleDB(records []models.Record, path string, opts Options) error {
	rows, columns := Flatten(records)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	table := quoteIdent(opts.Table)

	kinds := make(map[string]string, len(columns))
	defs := make([]string, len(columns))
	for i, col := range columns {
		kinds[col] = columnKind(rows, col)
		switch {
		case col == "timestamp":
			defs[i] = quoteIdent(col) + " TIMESTAMPTZ NOT NULL"
		case kinds[col] == "double":
			defs[i] = quoteIdent(col) + " DOUBLE PRECISION"
		case kinds[col] == "boolean":
			defs[i] = quoteIdent(col) + " BOOLEAN"
		default:
			defs[i] = quoteIdent(col) + " TEXT"
		}
	}
	fmt.Fprintf(w, "CREATE TABLE IF NOT EXISTS %s (%s);\n", table, strings.Join(defs, ", "))
	fmt.Fprintf(w, "SELECT create_hypertable(%s, 'timestamp', if_not_exists => TRUE);\n", sqlString(opts.Table))

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	colList := strings.Join(quoted, ", ")
	vals := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			v, ok := row[col]
			switch {
			case !ok || v == nil:
				vals[i] = "NULL"
			case col == "timestamp":
				vals[i] = sqlString(formatScalar(v))
			case kinds[col] == "double":
				n, _ := models.AsFloat(v)
				vals[i] = strconv.FormatFloat(n, 'f', -1, 64)
			case kinds[col] == "boolean":
				vals[i] = strings.ToUpper(strconv.FormatBool(v.(bool)))
			default:
				vals[i] = sqlString(formatScalar(v))
			}
		}
		fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s);\n", table, colList, strings.Join(vals, ", "))
	}
	return w.Flush()
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// exportTsFile writes the IoTDB csv import layout: a Time column in epoch
// milliseconds and one root.<series>.<measurement> column per timeseries.
func (e *FileExporter) exportTsFile(records []models.Record, path string, opts Options) error {
	seen := make(map[string]bool)
	order := make([]string, 0)
	for _, rec := range records {
		for _, m := range measurementOrder(rec.Measurements) {
			col := "root." + rec.SeriesID + "." + m
			if !seen[col] {
				seen[col] = true
				order = append(order, col)
			}
		}
	}
	sort.Strings(order)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "Time,"+strings.Join(order, ","))
	cells := make([]string, len(order)+1)
	for _, rec := range records {
		t, ok := models.ParseTimestamp(rec.Timestamp)
		if !ok {
			continue
		}
		cells[0] = strconv.FormatInt(t.UnixMilli(), 10)
		for i, col := range order {
			cells[i+1] = ""
			prefix := "root." + rec.SeriesID + "."
			if strings.HasPrefix(col, prefix) {
				if v, has := rec.Measurements[strings.TrimPrefix(col, prefix)]; has {
					cells[i+1] = formatScalar(v)
				}
			}
		}
		fmt.Fprintln(w, strings.Join(cells, ","))
	}
	return w.Flush()
}
