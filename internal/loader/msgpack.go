package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"seriesflow/models"
)

func (l *FileLoader) loadMessagePack(path string, opts Options) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	var records []models.Record
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return records, fmt.Errorf("decode msgpack object: %w", err)
		}
		records = append(records, mapToRecord(normalizeKeys(obj)))
	}
	return records, nil
}

// normalizeKeys rewrites nested map[any]any values (legacy msgpack map
// encoding) into string-keyed maps so mapToRecord can see the measurements
// envelope.
func normalizeKeys(obj map[string]any) map[string]any {
	for k, v := range obj {
		if m, ok := v.(map[any]any); ok {
			out := make(map[string]any, len(m))
			for mk, mv := range m {
				out[fmt.Sprintf("%v", mk)] = mv
			}
			obj[k] = out
		}
	}
	return obj
}
