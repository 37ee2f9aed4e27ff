package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

// TaskKicker wakes the outbox worker after new tasks are committed
type TaskKicker interface {
	Kick()
}

// CreateBookingInput is a booking submission as received from the client
type CreateBookingInput struct {
	UserID        uint
	ServiceID     string
	ServiceTitle  string
	SelectedItems string // JSON-encoded list
	Description   string
	Address       models.AddressInput
	Images        []*multipart.FileHeader
}

// BookingServiceDeps enumerates the collaborators of BookingService
type BookingServiceDeps struct {
	Store     storage.Store
	Addresses *AddressService
	Media     *MediaIntake
	Kicker    TaskKicker
	Logger    *zap.Logger
	Clock     func() time.Time
}

// BookingService creates and lists bookings
type BookingService struct {
	store     storage.Store
	addresses *AddressService
	media     *MediaIntake
	kicker    TaskKicker
	log       *zap.Logger
	now       func() time.Time
}

func NewBookingService(deps BookingServiceDeps) *BookingService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		store:     deps.Store,
		addresses: deps.Addresses,
		media:     deps.Media,
		kicker:    deps.Kicker,
		log:       log,
		now:       clock,
	}
}

// Create validates a submission, stores its images, resolves the pickup
// address and inserts the booking together with its follow-up tasks (image
// rows, operations and customer emails) in one transaction.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	serviceID, items, err := validateSubmission(in)
	if err != nil {
		return nil, err
	}
	if s.media != nil && s.media.MaxImages() > 0 && len(in.Images) > s.media.MaxImages() {
		return nil, invalid("images", "a maximum of %d images is allowed", s.media.MaxImages())
	}

	if _, err := s.store.GetUser(ctx, in.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	var files []models.StoredFile
	if len(in.Images) > 0 {
		if files, err = s.media.StoreImages(ctx, in.Images); err != nil {
			return nil, err
		}
	}

	// The address must be resolved before the booking row references it
	addressID, err := s.resolveAddress(ctx, in.UserID, in.Address)
	if err != nil {
		return nil, err
	}

	now := s.now()
	booking := &models.Booking{
		UserID:        in.UserID,
		ServiceID:     serviceID,
		ServiceTitle:  strings.TrimSpace(in.ServiceTitle),
		SelectedItems: items,
		Description:   strings.TrimSpace(in.Description),
		AddressID:     addressID,
		Status:        models.BookingStatusPending,
		BookedAt:      now,
	}

	tasks, err := bookingCreatedTasks(files, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateBooking(ctx, booking, tasks); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.Uint("user_id", booking.UserID),
		zap.Int("items", len(items)),
		zap.Int("images", len(files)),
	)
	if s.kicker != nil {
		s.kicker.Kick()
	}
	return booking, nil
}

func validateSubmission(in CreateBookingInput) (int, models.SelectedItems, error) {
	rawID := strings.TrimSpace(in.ServiceID)
	if rawID == "" {
		return 0, nil, invalid("serviceId", "serviceId is required")
	}
	serviceID, err := strconv.Atoi(rawID)
	if err != nil || serviceID <= 0 {
		return 0, nil, invalid("serviceId", "serviceId must be a positive number")
	}
	if strings.TrimSpace(in.ServiceTitle) == "" {
		return 0, nil, invalid("serviceTitle", "serviceTitle is required")
	}

	items, err := models.ParseSelectedItems(in.SelectedItems)
	if err != nil {
		if errors.Is(err, models.ErrNoSelectedItems) {
			return 0, nil, invalid("selectedItems", "Please select at least one item")
		}
		return 0, nil, invalid("selectedItems", "Invalid selected items format")
	}

	if !in.Address.IsEmpty() {
		if err := validateAddress(in.Address); err != nil {
			return 0, nil, err
		}
	}
	return serviceID, items, nil
}

// resolveAddress saves a submitted address, or falls back to the user's
// latest saved one. Users without any address book with a nil reference.
func (s *BookingService) resolveAddress(ctx context.Context, userID uint, in models.AddressInput) (*uint, error) {
	var (
		address *models.Address
		err     error
	)
	if in.IsEmpty() {
		address, err = s.addresses.Get(ctx, userID)
	} else {
		address, err = s.addresses.Upsert(ctx, userID, in)
	}
	if err != nil || address == nil {
		return nil, err
	}
	id := address.ID
	return &id, nil
}

func bookingCreatedTasks(files []models.StoredFile, now time.Time) ([]*models.OutboxTask, error) {
	var tasks []*models.OutboxTask
	add := func(kind string, payload models.TaskPayload) error {
		t, err := models.NewOutboxTask(kind, payload, now)
		if err != nil {
			return fmt.Errorf("build %s task: %w", kind, err)
		}
		tasks = append(tasks, t)
		return nil
	}

	// Image rows go first so the operations email can embed them
	if len(files) > 0 {
		if err := add(models.TaskAttachImages, models.TaskPayload{Files: files}); err != nil {
			return nil, err
		}
	}
	if err := add(models.TaskEmailOpsBookingCreated, models.TaskPayload{Files: files}); err != nil {
		return nil, err
	}
	if err := add(models.TaskEmailCustomerBookingCreated, models.TaskPayload{}); err != nil {
		return nil, err
	}
	return tasks, nil
}

// List returns the user's bookings, most recent first. statusFilter may be
// empty or "all" for every status.
func (s *BookingService) List(ctx context.Context, userID uint, statusFilter string) ([]*models.Booking, error) {
	status, err := models.ParseStatusFilter(strings.TrimSpace(statusFilter))
	if err != nil {
		return nil, invalid("status", "Invalid status filter")
	}
	bookings, err := s.store.GetBookingsByUser(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// AttachImages records image rows for a booking. Repeated calls with the
// same files are no-ops.
func (s *BookingService) AttachImages(ctx context.Context, bookingID uint, files []models.StoredFile) error {
	err := s.store.AttachImages(ctx, bookingID, files)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrBookingNotFound
	}
	return err
}
