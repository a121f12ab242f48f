package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"seriesflow/models"
)

// loadInfluxLP parses line protocol on a best-effort basis: the measurement
// becomes the series id, tags become metadata, fields become measurements and
// a trailing integer is read as a nanosecond timestamp. Lines that do not
// split into measurement and fields are skipped with a warning.
func (l *FileLoader) loadInfluxLP(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	log := l.log.WithComponent("loader").WithField("input_path", path)

	var records []models.Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, ok := parseLPLine(line)
		if !ok {
			log.WithField("line", lineNo).Warn("skipping unparseable line protocol entry")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan input: %w", err)
	}
	return records, nil
}

func parseLPLine(line string) (models.Record, bool) {
	sections := splitLP(line, ' ')
	if len(sections) < 2 {
		return models.Record{}, false
	}

	keyParts := splitLP(sections[0], ',')
	rec := models.Record{
		SeriesID:     lpUnescape(keyParts[0]),
		Measurements: make(map[string]any),
	}
	for _, tag := range keyParts[1:] {
		k, v, ok := strings.Cut(tag, "=")
		if !ok {
			continue
		}
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any)
		}
		rec.Metadata[lpUnescape(k)] = lpUnescape(v)
	}

	for _, field := range splitLP(sections[1], ',') {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		rec.Measurements[lpUnescape(k)] = lpFieldValue(v)
	}
	if len(rec.Measurements) == 0 {
		return models.Record{}, false
	}

	if len(sections) >= 3 {
		if ns, err := strconv.ParseInt(sections[2], 10, 64); err == nil {
			rec.Timestamp = models.FormatTimestamp(time.Unix(0, ns))
		}
	}
	return rec, true
}

// splitLP splits on an unescaped, unquoted separator.
func splitLP(s string, sep rune) []string {
	var out []string
	var cur strings.Builder
	escaped := false
	quoted := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == sep && !quoted:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	out = append(out, cur.String())
	return out
}

func lpUnescape(s string) string {
	s = strings.ReplaceAll(s, `\,`, ",")
	s = strings.ReplaceAll(s, `\ `, " ")
	s = strings.ReplaceAll(s, `\=`, "=")
	return s
}

func lpFieldValue(v string) any {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return strings.ReplaceAll(v[1:len(v)-1], `\"`, `"`)
	}
	switch v {
	case "true", "True", "t", "T":
		return true
	case "false", "False", "f", "F":
		return false
	}
	if strings.HasSuffix(v, "i") || strings.HasSuffix(v, "u") {
		if n, err := strconv.ParseInt(v[:len(v)-1], 10, 64); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// loadOpenTSDB parses telnet-style put lines, one record per line with a
// single measurement. The metric's last dotted segment is the measurement
// name; the prefix is the series id.
func (l *FileLoader) loadOpenTSDB(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	log := l.log.WithComponent("loader").WithField("input_path", path)

	var records []models.Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] != "put" || len(fields) < 4 {
			log.WithField("line", lineNo).Warn("skipping unparseable opentsdb entry")
			continue
		}

		metric := fields[1]
		series, measurement := metric, "value"
		if idx := strings.LastIndex(metric, "."); idx > 0 {
			series, measurement = metric[:idx], metric[idx+1:]
		}

		secs, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			log.WithField("line", lineNo).Warn("skipping opentsdb entry with bad timestamp")
			continue
		}
		value, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			log.WithField("line", lineNo).Warn("skipping opentsdb entry with bad value")
			continue
		}

		rec := models.Record{
			SeriesID:     series,
			Timestamp:    models.FormatTimestamp(time.Unix(secs, 0)),
			Measurements: map[string]any{measurement: value},
		}
		for _, tag := range fields[4:] {
			k, v, ok := strings.Cut(tag, "=")
			if !ok {
				continue
			}
			if rec.Metadata == nil {
				rec.Metadata = make(map[string]any)
			}
			rec.Metadata[k] = v
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan input: %w", err)
	}
	return records, nil
}
