package rawstore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// canonicalJSON serializes a page deterministically: encoding/json already
// emits map keys in sorted order with no incidental whitespace, so equal
// content always produces equal bytes. Values json cannot represent (NaN and
// friends) are coerced to strings rather than failing the whole page.
func canonicalJSON(records []map[string]any) ([]byte, error) {
	b, err := json.Marshal(records)
	if err == nil {
		return b, nil
	}
	sanitized := make([]map[string]any, len(records))
	for i, rec := range records {
		clean := make(map[string]any, len(rec))
		for k, v := range rec {
			clean[k] = sanitize(v)
		}
		sanitized[i] = clean
	}
	b, err = json.Marshal(sanitized)
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return b, nil
}

func sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		clean := make(map[string]any, len(t))
		for k, inner := range t {
			clean[k] = sanitize(inner)
		}
		return clean
	case []any:
		clean := make([]any, len(t))
		for i, inner := range t {
			clean[i] = sanitize(inner)
		}
		return clean
	default:
		if _, err := json.Marshal(v); err != nil {
			return fmt.Sprint(v)
		}
		return v
	}
}

// contentHash digests canonical page bytes. xxhash is change detection, not a
// security boundary.
func contentHash(canonical []byte) string {
	return strconv.FormatUint(xxhash.Sum64(canonical), 16)
}
