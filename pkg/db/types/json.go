package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON stores an arbitrary Go value in a jsonb (Postgres) or text (SQLite) column.
type JSON[T any] struct {
	Data T
}

// NewJSON wraps value for persistence.
func NewJSON[T any](value T) JSON[T] {
	return JSON[T]{Data: value}
}

func (j JSON[T]) Value() (driver.Value, error) {
	raw, err := json.Marshal(j.Data)
	if err != nil {
		return nil, fmt.Errorf("JSON: marshal: %w", err)
	}
	return string(raw), nil
}

func (j *JSON[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.Data = zero
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("JSON: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		var zero T
		j.Data = zero
		return nil
	}
	return json.Unmarshal(raw, &j.Data)
}

func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Data)
}

func (j *JSON[T]) UnmarshalJSON(raw []byte) error {
	return json.Unmarshal(raw, &j.Data)
}
