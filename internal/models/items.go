package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSelectedItems    = errors.New("at least one item must be selected")
	ErrMalformedSelection = errors.New("selected items must be a JSON array")
)

// SelectedItem is a catalog entry the customer included in a booking
type SelectedItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    Money  `json:"price"`
	Category string `json:"category"`
	Quantity int    `json:"quantity,omitempty"`
}

// SelectedItems is stored as a JSON text column
type SelectedItems []SelectedItem

// ParseSelectedItems decodes the client's JSON-encoded item list. Empty and
// malformed lists are rejected.
func ParseSelectedItems(raw string) (SelectedItems, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoSelectedItems
	}

	var items SelectedItems
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSelection, err)
	}
	if err := items.Validate(); err != nil {
		return nil, err
	}
	return items, nil
}

// Validate checks the list is non-empty and every item is named.
func (s SelectedItems) Validate() error {
	if len(s) == 0 {
		return ErrNoSelectedItems
	}
	for i, item := range s {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrMalformedSelection, i)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: item %d has a negative quantity", ErrMalformedSelection, i)
		}
	}
	return nil
}

// Names returns the item names joined for short notifications.
func (s SelectedItems) Names() string {
	names := make([]string, 0, len(s))
	for _, item := range s {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}

func (s SelectedItems) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *SelectedItems) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*s = nil
		return nil
	default:
		return fmt.Errorf("unsupported selected items type %T", src)
	}
	return json.Unmarshal(data, s)
}
