package exporter

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"seriesflow/models"
)

// exportMessagePack streams one map per record, preserving the nested
// measurements and metadata shape rather than the flattened frame.
func (e *FileExporter) exportMessagePack(records []models.Record, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := msgpack.NewEncoder(f)
	for _, rec := range records {
		obj := map[string]any{
			"series_id":    rec.SeriesID,
			"timestamp":    rec.Timestamp,
			"measurements": rec.Measurements,
		}
		if len(rec.Metadata) > 0 {
			obj["metadata"] = rec.Metadata
		}
		if rec.Format != "" {
			obj["format"] = rec.Format
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}
