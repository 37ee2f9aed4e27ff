package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scrapify/scrapify-backend/internal/models"
)

// DatabaseStore implements Store on top of gorm
type DatabaseStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewDatabaseStore creates a store backed by the given connection
func NewDatabaseStore(db *gorm.DB, log *zap.Logger) *DatabaseStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DatabaseStore{db: db, log: log}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// User operations
func (s *DatabaseStore) CreateUser(ctx context.Context, user *models.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateEmail
	}
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *DatabaseStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *DatabaseStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *DatabaseStore) UpdateUser(ctx context.Context, user *models.User) error {
	result := s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"name":            user.Name,
		"phone":           user.Phone,
		"password":        user.Password,
		"profile_picture": user.ProfilePicture,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DatabaseStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Update("password", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DatabaseStore) GetUsersWithLegacyAddress(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.db.WithContext(ctx).
		Where("address IS NOT NULL AND TRIM(address) <> ''").
		Order("id").
		Find(&users).Error
	return users, err
}

// Address operations
func (s *DatabaseStore) GetLatestAddress(ctx context.Context, userID uint) (*models.Address, error) {
	var address models.Address
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&address).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &address, nil
}

func (s *DatabaseStore) SaveAddress(ctx context.Context, address *models.Address) error {
	if address.ID == 0 {
		return s.db.WithContext(ctx).Create(address).Error
	}
	result := s.db.WithContext(ctx).Model(address).Updates(map[string]any{
		"street":  address.Street,
		"area":    address.Area,
		"city":    address.City,
		"pincode": address.Pincode,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Booking operations
func (s *DatabaseStore) CreateBooking(ctx context.Context, booking *models.Booking, tasks []*models.OutboxTask) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if booking.Status == "" {
			booking.Status = models.BookingStatusPending
		}
		if booking.BookedAt.IsZero() {
			booking.BookedAt = time.Now()
		}
		if err := tx.Omit(clause.Associations).Create(booking).Error; err != nil {
			return err
		}
		for _, t := range tasks {
			if err := stampBookingID(t, booking.ID); err != nil {
				return err
			}
		}
		return enqueue(tx, tasks)
	})
}

func (s *DatabaseStore) bookingQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Address").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (s *DatabaseStore) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.bookingQuery(ctx).First(&booking, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (s *DatabaseStore) GetBookingsByUser(ctx context.Context, userID uint, status *models.BookingStatus) ([]*models.Booking, error) {
	query := s.bookingQuery(ctx).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var bookings []*models.Booking
	err := query.Order("created_at DESC, id DESC").Find(&bookings).Error
	return bookings, err
}

func (s *DatabaseStore) TransitionBookingStatus(ctx context.Context, id uint, from, to models.BookingStatus, tasks []*models.OutboxTask) (*models.Booking, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{"status": to, "updated_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStatusConflict
		}
		return enqueue(tx, tasks)
	})

	if err != nil && !errors.Is(err, ErrStatusConflict) {
		return nil, err
	}

	booking, getErr := s.GetBooking(ctx, id)
	if err != nil {
		// Conflict: the reload tells a missing booking from a decided one
		if getErr != nil {
			return nil, getErr
		}
		return booking, ErrStatusConflict
	}
	if getErr != nil {
		// The transition is committed; a failed reload must not report it as failed
		s.log.Warn("reload after status transition failed",
			zap.Uint("booking_id", id), zap.String("status", to.String()), zap.Error(getErr))
		return &models.Booking{ID: id, Status: to}, nil
	}
	return booking, nil
}

func (s *DatabaseStore) AttachImages(ctx context.Context, bookingID uint, files []models.StoredFile) error {
	if len(files) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.BookingImage, 0, len(files))
	for _, f := range files {
		rows = append(rows, models.BookingImage{
			BookingID:  bookingID,
			Filename:   f.Filename,
			FilePath:   f.Path,
			UploadedAt: now,
		})
	}

	// Retried attachments hit the (booking_id, filename) unique index
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrNotFound
	}
	return err
}

// OTP operations
func (s *DatabaseStore) CreateOTP(ctx context.Context, otp *models.OTP) error {
	return s.db.WithContext(ctx).Create(otp).Error
}

func (s *DatabaseStore) GetLatestOTP(ctx context.Context, email, purpose string) (*models.OTP, error) {
	var otp models.OTP
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND purpose = ?", email, purpose).
		Order("created_at DESC, id DESC").
		First(&otp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &otp, nil
}

// Outbox operations
func (s *DatabaseStore) EnqueueTasks(ctx context.Context, tasks []*models.OutboxTask) error {
	return enqueue(s.db.WithContext(ctx), tasks)
}

func enqueue(tx *gorm.DB, tasks []*models.OutboxTask) error {
	if len(tasks) == 0 {
		return nil
	}
	now := time.Now()
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		if t.NextAttemptAt.IsZero() {
			t.NextAttemptAt = now
		}
	}
	return tx.Create(&tasks).Error
}

func (s *DatabaseStore) ClaimDueTasks(ctx context.Context, now time.Time, limit int) ([]*models.OutboxTask, error) {
	var tasks []*models.OutboxTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", models.TaskStatusPending, now).
			Order("id").
			Limit(limit).
			Find(&tasks).Error
		if err != nil || len(tasks) == 0 {
			return err
		}

		ids := make([]uint, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
			t.Attempts++
			t.NextAttemptAt = now.Add(claimLease)
		}
		return tx.Model(&models.OutboxTask{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"attempts":        gorm.Expr("attempts + 1"),
				"next_attempt_at": now.Add(claimLease),
			}).Error
	})
	return tasks, err
}

func (s *DatabaseStore) CompleteTask(ctx context.Context, id uint, now time.Time) error {
	return s.updateTask(ctx, id, map[string]any{
		"status":       models.TaskStatusDone,
		"last_error":   "",
		"completed_at": now,
	})
}

func (s *DatabaseStore) RescheduleTask(ctx context.Context, id uint, lastErr string, next time.Time) error {
	return s.updateTask(ctx, id, map[string]any{
		"last_error":      lastErr,
		"next_attempt_at": next,
	})
}

func (s *DatabaseStore) FailTask(ctx context.Context, id uint, lastErr string) error {
	return s.updateTask(ctx, id, map[string]any{
		"status":     models.TaskStatusFailed,
		"last_error": lastErr,
	})
}

func (s *DatabaseStore) RetryTask(ctx context.Context, id uint, now time.Time) error {
	return s.updateTask(ctx, id, map[string]any{
		"status":          models.TaskStatusPending,
		"attempts":        0,
		"next_attempt_at": now,
	})
}

func (s *DatabaseStore) updateTask(ctx context.Context, id uint, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.OutboxTask{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DatabaseStore) GetTasksByStatus(ctx context.Context, status string, limit int) ([]*models.OutboxTask, error) {
	query := s.db.WithContext(ctx).Order("id")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var tasks []*models.OutboxTask
	err := query.Find(&tasks).Error
	return tasks, err
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// stampBookingID fills in the booking id of a payload built before the
// booking row existed.
func stampBookingID(t *models.OutboxTask, bookingID uint) error {
	p, err := t.DecodePayload()
	if err != nil {
		return fmt.Errorf("decode %s task payload: %w", t.Kind, err)
	}
	if p.BookingID != 0 {
		return nil
	}
	p.BookingID = bookingID
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s task payload: %w", t.Kind, err)
	}
	t.Payload = string(data)
	return nil
}
