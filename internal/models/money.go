package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const rupee = "₹"

// ₹25-30/kg, ₹50/piece, ₹50-80/sq ft, 120
var priceDisplayPattern = regexp.MustCompile(`^(₹)?\s*(\d+(?:\.\d+)?)(?:\s*-\s*(\d+(?:\.\d+)?))?(?:\s*/\s*(\S.*))?$`)

// Money is a catalog price. Display is the text the client sent and is what
// goes back out on the wire; Currency, Min, Max and Unit are read from it when
// it looks like an amount or amount range per unit. Displays with no amount
// ("Quote on Request") leave them zero.
type Money struct {
	Currency string  `json:"currency,omitempty"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Unit     string  `json:"unit,omitempty"`
	Display  string  `json:"display"`
}

// ParseMoney reads the amounts out of a display price. It never fails and
// always keeps display verbatim.
func ParseMoney(display string) Money {
	m := priceDisplayPattern.FindStringSubmatch(strings.TrimSpace(display))
	if m == nil {
		return Money{Display: display}
	}

	min, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Money{Display: display}
	}
	max := min
	if m[3] != "" {
		if max, err = strconv.ParseFloat(m[3], 64); err != nil || max < min {
			return Money{Display: display}
		}
	}

	return Money{
		Currency: m[1],
		Min:      min,
		Max:      max,
		Unit:     strings.TrimSpace(m[4]),
		Display:  display,
	}
}

// Priced reports whether the money carries a numeric amount.
func (m Money) Priced() bool {
	return m.Max > 0
}

// String returns the display form used by the mobile client.
func (m Money) String() string {
	if m.Display != "" || !m.Priced() {
		return m.Display
	}
	return m.format()
}

func (m Money) format() string {
	var b strings.Builder
	b.WriteString(m.Currency)
	b.WriteString(formatAmount(m.Min))
	if m.Max != m.Min {
		b.WriteString("-")
		b.WriteString(formatAmount(m.Max))
	}
	if m.Unit != "" {
		b.WriteString("/")
		b.WriteString(m.Unit)
	}
	return b.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MarshalJSON encodes the display string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a display string or a bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var display string
	if err := json.Unmarshal(data, &display); err == nil {
		*m = ParseMoney(display)
		return nil
	}

	var amount float64
	if err := json.Unmarshal(data, &amount); err != nil {
		return fmt.Errorf("price must be a string or number: %w", err)
	}
	*m = Money{Min: amount, Max: amount, Display: strings.TrimSpace(string(data))}
	return nil
}

// Rupees builds an INR money range for a unit.
func Rupees(min, max float64, unit string) Money {
	m := Money{Currency: rupee, Min: min, Max: max, Unit: unit}
	m.Display = m.format()
	return m
}
