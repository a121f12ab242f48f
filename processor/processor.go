package processor

import (
	"fmt"
	"strconv"
	"strings"

	"seriesflow/logger"
	"seriesflow/models"
)

// Kind selects the validation rule set applied to a record.
type Kind string

const (
	TimeSeries Kind = "time_series"
	Financial  Kind = "financial"
)

// aliasTable maps canonical financial field names to the source aliases a
// record may carry instead.
var aliasTable = map[string][]string{
	"open":    {"open", "o"},
	"high":    {"high", "h", "max"},
	"low":     {"low", "l", "min"},
	"close":   {"close", "c", "adj_close", "price", "last"},
	"vol":     {"vol", "volume", "v"},
	"openint": {"openint", "open_interest", "oi"},
}

// canonicalFields is the order canonical financial measurements are emitted
// in; it also drives field ordering for wire formats that care.
var canonicalFields = []string{"open", "high", "low", "close", "vol", "openint"}

// Processor validates and normalizes records between load and export.
type Processor struct {
	log *logger.Log
}

// New constructs a Processor with an injected logger handle. A nil logger
// falls back to the process-wide one.
func New(log *logger.Log) *Processor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Processor{log: log}
}

// ValidateRecord checks a record against the rule set for kind. It returns
// the failure reason rather than an aggregate error so batch processing can
// log per-record skips.
func (p *Processor) ValidateRecord(rec models.Record, kind Kind) (bool, error) {
	switch kind {
	case Financial:
		return p.validateFinancialShape(rec)
	default:
		return p.validateTimeSeries(rec)
	}
}

func (p *Processor) validateTimeSeries(rec models.Record) (bool, error) {
	if rec.SeriesID == "" {
		return false, fmt.Errorf("Missing required field: series_id")
	}
	if rec.Timestamp == "" {
		return false, fmt.Errorf("Missing required field: timestamp")
	}
	if len(rec.Measurements) == 0 {
		return false, fmt.Errorf("measurements must contain at least one key-value pair")
	}
	for k, v := range rec.Measurements {
		switch v.(type) {
		case string, bool, float64, float32, int, int32, int64:
		default:
			return false, fmt.Errorf("measurement %q has unsupported type %T", k, v)
		}
	}
	return true, nil
}

func (p *Processor) validateFinancialShape(rec models.Record) (bool, error) {
	f := models.FinancialRecord{
		SeriesID:     rec.SeriesID,
		Timestamp:    rec.Timestamp,
		Measurements: rec.Measurements,
		Metadata:     rec.Metadata,
	}
	return p.ValidateFinancial(&f)
}

// ValidateFinancial applies the financial rule set to the loose boundary
// shape: identifier via ticker or series_id, price resolvable through the
// close alias set, and no negative prices or volumes.
func (p *Processor) ValidateFinancial(f *models.FinancialRecord) (bool, error) {
	if f.Identifier() == "" {
		return false, fmt.Errorf("Missing required field: series_id")
	}
	if _, ok := resolveAlias(f, "close"); !ok {
		return false, fmt.Errorf("Missing required field: close (no price alias resolved)")
	}
	for _, field := range canonicalFields {
		if field == "openint" {
			// Open interest may legitimately be reported negative by some
			// venues; only prices and volume are bounded below.
			continue
		}
		if v, ok := resolveAlias(f, field); ok && v < 0 {
			return false, fmt.Errorf("%s must be non-negative", field)
		}
	}
	return true, nil
}

// NormalizeTimestamp canonicalizes a raw timestamp to ISO-8601. The second
// return is false when no accepted layout matches; the caller drops the
// record rather than fabricating a time.
func (p *Processor) NormalizeTimestamp(raw string) (string, bool) {
	t, ok := models.ParseTimestamp(raw)
	if !ok {
		return "", false
	}
	return models.FormatTimestamp(t), true
}

// ConvertFinancialToTimeSeries normalizes a loose financial record into the
// canonical shape: identifier becomes series_id and resolved OHLCV aliases
// land in measurements under their canonical names.
func (p *Processor) ConvertFinancialToTimeSeries(f *models.FinancialRecord) (models.Record, error) {
	if ok, err := p.ValidateFinancial(f); !ok {
		return models.Record{}, fmt.Errorf("financial validation failed: %w", err)
	}

	measurements := make(map[string]any)
	claimed := make(map[string]bool)
	for _, field := range canonicalFields {
		if v, ok := resolveAlias(f, field); ok {
			measurements[field] = v
			for _, alias := range aliasTable[field] {
				claimed[alias] = true
			}
		}
	}
	// Non-financial measurements ride along untouched.
	for k, v := range f.Measurements {
		if !claimed[strings.ToLower(k)] {
			measurements[k] = v
		}
	}

	return models.Record{
		SeriesID:     f.Identifier(),
		Timestamp:    f.When(),
		Measurements: measurements,
		Metadata:     f.Metadata,
	}, nil
}

// ProcessBatch validates and normalizes each record, dropping failures
// individually. One malformed row never aborts the batch; every skip is
// logged with its reason.
func (p *Processor) ProcessBatch(records []models.Record, kind Kind) []models.Record {
	log := p.log.WithComponent("processor")

	out := make([]models.Record, 0, len(records))
	skipped := 0
	for i, rec := range records {
		ts, ok := p.NormalizeTimestamp(rec.Timestamp)
		if !ok {
			skipped++
			log.WithFields(logger.Fields{"index": i, "series_id": rec.SeriesID, "timestamp": rec.Timestamp}).
				Warn("skipping record with unparseable timestamp")
			continue
		}
		rec = rec.Clone()
		rec.Timestamp = ts

		if kind == Financial {
			f := models.FinancialRecord{
				SeriesID:     rec.SeriesID,
				Timestamp:    rec.Timestamp,
				Measurements: rec.Measurements,
				Metadata:     rec.Metadata,
			}
			converted, err := p.ConvertFinancialToTimeSeries(&f)
			if err != nil {
				skipped++
				log.WithError(err).WithFields(logger.Fields{"index": i, "series_id": rec.SeriesID}).
					Warn("skipping invalid financial record")
				continue
			}
			converted.Format = rec.Format
			rec = converted
		}

		if ok, err := p.validateTimeSeries(rec); !ok {
			skipped++
			log.WithError(err).WithFields(logger.Fields{"index": i, "series_id": rec.SeriesID}).
				Warn("skipping invalid record")
			continue
		}
		out = append(out, rec)
	}

	if skipped > 0 {
		log.WithFields(logger.Fields{"input": len(records), "processed": len(out), "skipped": skipped}).
			Info("batch processed with skips")
	}
	return out
}

func resolveAlias(f *models.FinancialRecord, canonical string) (float64, bool) {
	// Top-level typed fields win over measurement aliases.
	switch canonical {
	case "open":
		if f.Open != nil {
			return *f.Open, true
		}
	case "high":
		if f.High != nil {
			return *f.High, true
		}
	case "low":
		if f.Low != nil {
			return *f.Low, true
		}
	case "close":
		if f.Close != nil {
			return *f.Close, true
		}
	case "vol":
		if f.Vol != nil {
			return *f.Vol, true
		}
	case "openint":
		if f.OpenInt != nil {
			return *f.OpenInt, true
		}
	}
	for _, alias := range aliasTable[canonical] {
		for k, v := range f.Measurements {
			if strings.ToLower(k) != alias {
				continue
			}
			if n, ok := models.AsFloat(v); ok {
				return n, true
			}
			if s, ok := v.(string); ok {
				if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}

// CanonicalFieldOrder exposes the OHLCV emission order for exporters that
// need deterministic field sequencing.
func CanonicalFieldOrder() []string {
	out := make([]string, len(canonicalFields))
	copy(out, canonicalFields)
	return out
}
