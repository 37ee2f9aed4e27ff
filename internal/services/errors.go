package services

import (
	"errors"
	"fmt"
)

var (
	// ErrBookingNotFound indicates the referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrAlreadyProcessed indicates accept/reject on a decided booking.
	ErrAlreadyProcessed = errors.New("booking already processed")
	// ErrImmutable indicates accept/reject on a completed booking.
	ErrImmutable = errors.New("booking can no longer be modified")

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrExpiredOTP         = errors.New("OTP has expired")
	ErrFileNotFound       = errors.New("file not found")
)

// ValidationError reports malformed client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransitionError carries the client-facing reason a status change was refused.
type TransitionError struct {
	Kind    error // ErrAlreadyProcessed or ErrImmutable
	Message string
}

func (e *TransitionError) Error() string { return e.Message }

func (e *TransitionError) Unwrap() error { return e.Kind }
