package common

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	bytes, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = JSONB{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, j)
}

// Merge copies every key of other into j, overwriting existing keys.
func (j JSONB) Merge(other JSONB) JSONB {
	if j == nil {
		j = JSONB{}
	}
	for k, v := range other {
		j[k] = v
	}
	return j
}

// UUIDList is an unordered bag of ids stored as a JSONB array.
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	bytes, err := json.Marshal([]uuid.UUID(l))
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (l *UUIDList) Scan(value interface{}) error {
	if value == nil {
		*l = UUIDList{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into UUIDList: %w", value, err)
	}

	return json.Unmarshal(bytes, l)
}

// JSONList stores a typed slice as a JSONB array.
type JSONList[T any] []T

func (l JSONList[T]) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	bytes, err := json.Marshal([]T(l))
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (l *JSONList[T]) Scan(value interface{}) error {
	if value == nil {
		*l = JSONList[T]{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into JSONList: %w", value, err)
	}

	return json.Unmarshal(bytes, l)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion to []byte failed")
	}
}
