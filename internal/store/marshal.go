package store

import (
	"fmt"

	"github.com/roach88/scenecore/internal/field"
)

// marshalValue converts a field value to its tag name and canonical JSON
// TEXT for storage.
func marshalValue(v field.Value) (string, string, error) {
	if v == nil {
		return "", "", fmt.Errorf("marshal value: nil field value")
	}
	data, err := field.MarshalCanonical(v)
	if err != nil {
		return "", "", fmt.Errorf("marshal value: %w", err)
	}
	return v.Type().String(), string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back into a value of the named
// tag.
func unmarshalValue(typeName, data string) (field.Value, error) {
	t, err := field.ParseType(typeName)
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	v, err := field.UnmarshalCanonical(t, []byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}
