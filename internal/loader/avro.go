package loader

import (
	"fmt"
	"os"

	"github.com/linkedin/goavro/v2"

	"seriesflow/models"
)

func (l *FileLoader) loadAvro(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	r, err := goavro.NewOCFReader(f)
	if err != nil {
		return nil, fmt.Errorf("open ocf reader: %w", err)
	}

	var records []models.Record
	for r.Scan() {
		datum, err := r.Read()
		if err != nil {
			return records, fmt.Errorf("read avro datum: %w", err)
		}
		obj, ok := datum.(map[string]any)
		if !ok {
			continue
		}
		flat := make(map[string]any, len(obj))
		for k, v := range obj {
			if v == nil {
				continue
			}
			flat[k] = unwrapUnion(v)
		}
		records = append(records, rowToRecord(flat))
	}
	if err := r.Err(); err != nil {
		return records, fmt.Errorf("iterate avro records: %w", err)
	}
	return records, nil
}

// unwrapUnion strips goavro's single-key union envelope ({"double": 1.5}).
func unwrapUnion(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	for _, inner := range m {
		return inner
	}
	return v
}
