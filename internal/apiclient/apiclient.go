// Package apiclient holds the pure transforms applied to already-decoded API
// response bodies before they enter the loader path. Network concerns live
// with the caller.
package apiclient

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractData walks a dot-separated path into a decoded JSON document and
// returns the object list found there. Path segments index maps by key and
// lists by integer. An empty path applies to the document root. A single
// object is wrapped as a one-element list so callers always iterate.
func ExtractData(response any, path string) ([]map[string]any, error) {
	node := response
	if path != "" {
		for _, seg := range strings.Split(path, ".") {
			switch v := node.(type) {
			case map[string]any:
				child, ok := v[seg]
				if !ok {
					return nil, fmt.Errorf("path segment %q not found", seg)
				}
				node = child
			case []any:
				idx, err := strconv.Atoi(seg)
				if err != nil || idx < 0 || idx >= len(v) {
					return nil, fmt.Errorf("path segment %q is not a valid list index", seg)
				}
				node = v[idx]
			default:
				return nil, fmt.Errorf("path segment %q applied to scalar %T", seg, node)
			}
		}
	}

	switch v := node.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, expected object", i, item)
			}
			out = append(out, obj)
		}
		return out, nil
	case map[string]any:
		return []map[string]any{v}, nil
	}
	return nil, fmt.Errorf("path resolves to %T, expected object or list", node)
}

// MapColumns renames record keys per the mapping (source name to target
// name). Keys without a mapping entry pass through unchanged; a mapping to
// the empty string drops the column.
func MapColumns(record map[string]any, mapping map[string]string) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		target, ok := mapping[k]
		if !ok {
			out[k] = v
			continue
		}
		if target == "" {
			continue
		}
		out[target] = v
	}
	return out
}
