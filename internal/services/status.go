package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

// DefaultRejectReason is used when the operator gives no reason.
const DefaultRejectReason = "Order rejected by admin"

// StatusMachineDeps enumerates the collaborators of StatusMachine
type StatusMachineDeps struct {
	Store      storage.Store
	Kicker     TaskKicker
	SMSEnabled bool
	Logger     *zap.Logger
	Clock      func() time.Time
}

// StatusMachine performs operator decisions on pending bookings
type StatusMachine struct {
	store      storage.Store
	kicker     TaskKicker
	smsEnabled bool
	log        *zap.Logger
	now        func() time.Time
}

func NewStatusMachine(deps StatusMachineDeps) *StatusMachine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &StatusMachine{
		store:      deps.Store,
		kicker:     deps.Kicker,
		smsEnabled: deps.SMSEnabled,
		log:        log,
		now:        clock,
	}
}

// Accept confirms a pending booking and queues the customer notification.
func (m *StatusMachine) Accept(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return m.decide(ctx, bookingID, models.BookingStatusConfirmed, models.TaskEmailBookingAccepted, "")
}

// Reject cancels a pending booking and queues the customer notification
// carrying reason.
func (m *StatusMachine) Reject(ctx context.Context, bookingID uint, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectReason
	}
	return m.decide(ctx, bookingID, models.BookingStatusCancelled, models.TaskEmailBookingRejected, reason)
}

func (m *StatusMachine) decide(ctx context.Context, bookingID uint, to models.BookingStatus, emailKind, reason string) (*models.Booking, error) {
	if !models.BookingStatusPending.CanTransitionTo(to) {
		return nil, fmt.Errorf("no transition from pending to %s", to)
	}

	tasks, err := m.decisionTasks(bookingID, emailKind, to, reason)
	if err != nil {
		return nil, err
	}

	// A single conditional update: a concurrent decision makes this one
	// match no row instead of overwriting it.
	booking, err := m.store.TransitionBookingStatus(ctx, bookingID, models.BookingStatusPending, to, tasks)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrBookingNotFound
	case errors.Is(err, storage.ErrStatusConflict):
		if booking == nil {
			return nil, fmt.Errorf("update booking status: %w", err)
		}
		m.log.Info("booking decision refused",
			zap.Uint("booking_id", bookingID),
			zap.String("requested", to.String()),
			zap.String("current", booking.Status.String()))
		return booking, refusal(booking.Status)
	case err != nil:
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	m.log.Info("booking status changed",
		zap.Uint("booking_id", bookingID),
		zap.String("status", to.String()),
		zap.String("reason", reason))
	if m.kicker != nil {
		m.kicker.Kick()
	}
	return booking, nil
}

func (m *StatusMachine) decisionTasks(bookingID uint, emailKind string, to models.BookingStatus, reason string) ([]*models.OutboxTask, error) {
	now := m.now()
	payload := models.TaskPayload{BookingID: bookingID, Reason: reason, Status: to.String()}

	email, err := models.NewOutboxTask(emailKind, payload, now)
	if err != nil {
		return nil, err
	}
	tasks := []*models.OutboxTask{email}

	if m.smsEnabled {
		sms, err := models.NewOutboxTask(models.TaskSMSBookingDecision, payload, now)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, sms)
	}
	return tasks, nil
}

// refusal explains why a booking in current cannot be decided again.
func refusal(current models.BookingStatus) error {
	switch current {
	case models.BookingStatusConfirmed, models.BookingStatusInProgress:
		return &TransitionError{Kind: ErrAlreadyProcessed, Message: "This booking has already been accepted"}
	case models.BookingStatusCancelled:
		return &TransitionError{Kind: ErrAlreadyProcessed, Message: "This booking has already been rejected"}
	case models.BookingStatusCompleted:
		return &TransitionError{Kind: ErrImmutable, Message: "This booking has been completed and can no longer be modified"}
	default:
		return &TransitionError{Kind: ErrAlreadyProcessed, Message: fmt.Sprintf("This booking is %s and cannot be changed", current)}
	}
}
