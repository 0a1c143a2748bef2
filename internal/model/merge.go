package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Merge combines a base snapshot and a partial diff into a full value:
// every key from old, then every key from changed overwriting it. One
// level of key overwrite suffices; that matches the diff granularity
// the capture trigger produces. Merge never mutates its inputs, and
// folding it left-to-right over a chronological diff sequence yields
// the snapshot at the last transaction regardless of chunking.
func Merge(old, changed map[string]any) map[string]any {
	out := make(map[string]any, len(old)+len(changed))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range changed {
		out[k] = v
	}
	return out
}

// Stringify renders a payload value the way Postgres' ->> operator
// renders it, so identity values compare equal whether they came from a
// live struct or a decoded JSON payload. JSON numbers decode to float64
// in Go; integral floats must render without an exponent or fraction.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", t)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", t)
	}
}
