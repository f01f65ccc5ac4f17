package facade

import (
	"encoding/json"
	"fmt"
)

// EncodeValue serializes a scalar value. nil encodes as "null".
func EncodeValue(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}
	return string(raw), nil
}

// DecodeValue parses a serialized scalar. JSON numbers decode as float64.
func DecodeValue(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return v, nil
}

func encodeIDs(ids []any) (string, error) {
	if ids == nil {
		ids = []any{}
	}
	return EncodeValue(ids)
}

func decodeIDs(raw string) ([]any, error) {
	var ids []any
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	return ids, nil
}

// indexOf returns the position of id in ids, comparing key renderings so
// 1 and 1.0 match.
func indexOf(ids []any, id any) int {
	want := KeyString(id)
	for i, v := range ids {
		if KeyString(v) == want {
			return i
		}
	}
	return -1
}
