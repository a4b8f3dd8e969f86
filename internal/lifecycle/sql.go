package lifecycle

import (
	"database/sql/driver"
	"fmt"
)

// Value stores the state by its code.
func (s State) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, ErrUnknownState
	}
	return s.String(), nil
}

// Scan reads a state code written by Value.
func (s *State) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		return fmt.Errorf("scan state: %w", ErrUnknownState)
	}
	return fmt.Errorf("scan state: unsupported type %T", src)
}
