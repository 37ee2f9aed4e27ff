package storage

import (
	"context"
	"errors"
	"time"

	"github.com/scrapify/scrapify-backend/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrStatusConflict means a conditional status update matched no row
	// because the booking was no longer in the expected state.
	ErrStatusConflict = errors.New("booking status changed concurrently")
)

// Store defines the interface for storage operations
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	GetUsersWithLegacyAddress(ctx context.Context) ([]*models.User, error)

	// Address operations
	GetLatestAddress(ctx context.Context, userID uint) (*models.Address, error)
	SaveAddress(ctx context.Context, address *models.Address) error

	// Booking operations
	CreateBooking(ctx context.Context, booking *models.Booking, tasks []*models.OutboxTask) error
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	GetBookingsByUser(ctx context.Context, userID uint, status *models.BookingStatus) ([]*models.Booking, error)
	// TransitionBookingStatus moves a booking from one status to another in a
	// single conditional write and enqueues tasks alongside it. It returns
	// ErrNotFound for unknown ids and ErrStatusConflict (with the current
	// booking) when the booking is not in the from state.
	TransitionBookingStatus(ctx context.Context, id uint, from, to models.BookingStatus, tasks []*models.OutboxTask) (*models.Booking, error)
	AttachImages(ctx context.Context, bookingID uint, files []models.StoredFile) error

	// OTP operations
	CreateOTP(ctx context.Context, otp *models.OTP) error
	GetLatestOTP(ctx context.Context, email, purpose string) (*models.OTP, error)

	// Outbox operations
	EnqueueTasks(ctx context.Context, tasks []*models.OutboxTask) error
	ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]*models.OutboxTask, error)
	CompleteTask(ctx context.Context, id uint, now time.Time) error
	RescheduleTask(ctx context.Context, id uint, lastErr string, next time.Time) error
	FailTask(ctx context.Context, id uint, lastErr string) error
	GetTasksByStatus(ctx context.Context, status string, limit int) ([]*models.OutboxTask, error)
	RetryTask(ctx context.Context, id uint, now time.Time) error

	Ping(ctx context.Context) error
}
