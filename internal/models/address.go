package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

var ErrInvalidAddress = errors.New("invalid address")

// FieldError names the address field that failed validation
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return ErrInvalidAddress }

// Address is a user's saved pickup address. The most recently created row
// per user is authoritative.
type Address struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Street    string    `gorm:"size:255;not null" json:"street"`
	Area      string    `gorm:"size:100;not null" json:"area"`
	City      string    `gorm:"size:100;not null" json:"city"`
	Pincode   string    `gorm:"size:6;not null" json:"pincode"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Address) TableName() string { return "user_addresses" }

// AddressInput holds the four user-editable address fields
type AddressInput struct {
	Street  string `json:"street" form:"street"`
	Area    string `json:"area" form:"area"`
	City    string `json:"city" form:"city"`
	Pincode string `json:"pincode" form:"pincode"`
}

// Normalize trims surrounding whitespace from every field.
func (in AddressInput) Normalize() AddressInput {
	return AddressInput{
		Street:  strings.TrimSpace(in.Street),
		Area:    strings.TrimSpace(in.Area),
		City:    strings.TrimSpace(in.City),
		Pincode: strings.TrimSpace(in.Pincode),
	}
}

// IsEmpty reports whether no field was supplied at all.
func (in AddressInput) IsEmpty() bool {
	n := in.Normalize()
	return n.Street == "" && n.Area == "" && n.City == "" && n.Pincode == ""
}

// Validate returns the first failing field as a *FieldError.
func (in AddressInput) Validate() error {
	n := in.Normalize()
	checks := []struct {
		field, value string
		max          int
	}{
		{"street", n.Street, 255},
		{"area", n.Area, 100},
		{"city", n.City, 100},
	}
	for _, c := range checks {
		if c.value == "" {
			return &FieldError{Field: c.field, Message: c.field + " is required"}
		}
		if len([]rune(c.value)) > c.max {
			return &FieldError{Field: c.field, Message: fmt.Sprintf("%s must be at most %d characters", c.field, c.max)}
		}
	}
	if !pincodePattern.MatchString(n.Pincode) {
		return &FieldError{Field: "pincode", Message: "pincode must be exactly 6 digits"}
	}
	return nil
}

// Apply copies the normalized input onto the address.
func (a *Address) Apply(in AddressInput) {
	n := in.Normalize()
	a.Street = n.Street
	a.Area = n.Area
	a.City = n.City
	a.Pincode = n.Pincode
}

// Input returns the editable fields of the address.
func (a *Address) Input() AddressInput {
	return AddressInput{Street: a.Street, Area: a.Area, City: a.City, Pincode: a.Pincode}
}

// String renders the address on one line for emails.
func (a *Address) String() string {
	return fmt.Sprintf("%s, %s, %s - %s", a.Street, a.Area, a.City, a.Pincode)
}

// ParseLegacyAddress splits a combined "street, area, city, pincode" string.
// Extra commas are kept in the street.
func ParseLegacyAddress(combined string) (AddressInput, error) {
	parts := strings.Split(combined, ",")
	if len(parts) < 4 {
		return AddressInput{}, fmt.Errorf("%w: expected 4 comma-separated parts, got %d", ErrInvalidAddress, len(parts))
	}
	n := len(parts)
	in := AddressInput{
		Street:  strings.Join(parts[:n-3], ","),
		Area:    parts[n-3],
		City:    parts[n-2],
		Pincode: parts[n-1],
	}.Normalize()
	if err := in.Validate(); err != nil {
		return AddressInput{}, err
	}
	return in, nil
}
