package stages

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Position is either Stage(n) or Concluded. The zero value is Concluded.
type Position struct {
	number int
}

// Concluded is the terminal position.
var Concluded = Position{}

// At returns the position of stage n. n < 1 yields Concluded.
func At(n int) Position {
	if n < 1 {
		return Concluded
	}
	return Position{number: n}
}

// Stage returns the stage number, false when concluded.
func (p Position) Stage() (int, bool) {
	return p.number, p.number > 0
}

func (p Position) IsConcluded() bool { return p.number == 0 }

func (p Position) String() string {
	if p.IsConcluded() {
		return "concluded"
	}
	return fmt.Sprintf("stage %d", p.number)
}

// Value stores Concluded as NULL.
func (p Position) Value() (driver.Value, error) {
	if p.IsConcluded() {
		return nil, nil
	}
	return int64(p.number), nil
}

func (p *Position) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = Concluded
	case int64:
		*p = At(int(v))
	case int32:
		*p = At(int(v))
	case int:
		*p = At(v)
	case []byte:
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return fmt.Errorf("cannot scan %q into Position: %w", v, err)
		}
		*p = At(n)
	default:
		return fmt.Errorf("cannot scan %T into Position", value)
	}
	return nil
}

func (p Position) MarshalJSON() ([]byte, error) {
	if p.IsConcluded() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(p.number)), nil
}

func (p *Position) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = Concluded
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = At(n)
	return nil
}
