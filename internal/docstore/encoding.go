package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestampKey wraps time values in JSON documents. The layout is fixed width
// so that JSONB comparison of two wrapped values orders them chronologically.
const (
	timestampKey    = "$ts"
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

func encodeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case time.Time:
		return map[string]interface{}{timestampKey: t.UTC().Format(timestampLayout)}
	case *time.Time:
		if t == nil {
			return nil
		}
		return encodeValue(*t)
	}
	return v
}

func encodeDocument(data map[string]interface{}) ([]byte, error) {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = encodeValue(v)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return raw, nil
}

func encodeJSONValue(v interface{}) (string, error) {
	raw, err := json.Marshal(encodeValue(v))
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(raw), nil
}

// decodeDocument reverses encodeDocument. Whole numbers come back as int64,
// everything else numeric as float64.
func decodeDocument(raw []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	for k, v := range data {
		decoded, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		data[k] = decoded
	}
	return data, nil
}

func decodeValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	case map[string]interface{}:
		s, ok := t[timestampKey].(string)
		if !ok || len(t) != 1 {
			return nil, fmt.Errorf("unsupported nested object")
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return ts.UTC(), nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported array element %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return v, nil
}
