package models

import (
	"database/sql/driver"
	"fmt"
)

// BookingStatus represents where a booking is in its lifecycle.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// StatusFilterAll selects bookings in every status.
const StatusFilterAll = "all"

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted},
	BookingStatusCompleted:  {},
	BookingStatusCancelled:  {},
}

// IsValid reports whether s is a recognized status.
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from s.
func (s BookingStatus) IsTerminal() bool {
	next, ok := bookingTransitions[s]
	return !ok || len(next) == 0
}

func (s BookingStatus) String() string {
	return string(s)
}

// Value stores the status as plain text.
func (s BookingStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan reads a status column, rejecting unknown values.
func (s *BookingStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported booking status type %T", src)
	}
	parsed, err := ParseBookingStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseBookingStatus converts a string into a BookingStatus.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %q", raw)
	}
	return status, nil
}

// ParseStatusFilter parses the "status" query of the orders listing. Empty
// and "all" return nil, meaning no filter.
func ParseStatusFilter(raw string) (*BookingStatus, error) {
	if raw == "" || raw == StatusFilterAll {
		return nil, nil
	}
	status, err := ParseBookingStatus(raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
