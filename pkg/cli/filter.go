package cli

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// ApplyFilter runs a jq expression over a result before rendering. The
// value round-trips through JSON so struct tags decide the field names
// the expression sees.
func ApplyFilter(result any, expr string) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result for filtering: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode result for filtering: %w", err)
	}

	var out []any
	iter := query.Run(v)
	for {
		item, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := item.(error); ok {
			return nil, fmt.Errorf("filter failed: %w", err)
		}
		out = append(out, item)
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}
