package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/scrapify/scrapify-backend/internal/models"
)

// claimLease is how long a claimed task stays invisible to other claimers.
const claimLease = 5 * time.Minute

// MemoryStore holds all data in memory for local runs and tests
type MemoryStore struct {
	mu sync.RWMutex

	users     map[uint]*models.User
	addresses map[uint]*models.Address
	bookings  map[uint]*models.Booking
	images    map[uint][]models.BookingImage
	otps      []*models.OTP
	tasks     map[uint]*models.OutboxTask

	// Counters for ID generation
	userCounter    uint
	addressCounter uint
	bookingCounter uint
	imageCounter   uint
	otpCounter     uint
	taskCounter    uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uint]*models.User),
		addresses: make(map[uint]*models.Address),
		bookings:  make(map[uint]*models.Booking),
		images:    make(map[uint][]models.BookingImage),
		tasks:     make(map[uint]*models.OutboxTask),
	}
}

// User operations
func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}

	m.userCounter++
	now := time.Now()
	user.ID = m.userCounter
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := *user
	return &out, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; !exists {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u.Password = passwordHash
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetUsersWithLegacyAddress(_ context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*models.User
	for _, u := range m.users {
		if strings.TrimSpace(u.LegacyAddress) != "" {
			out := *u
			users = append(users, &out)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Address operations
func (m *MemoryStore) GetLatestAddress(_ context.Context, userID uint) (*models.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := m.latestAddressLocked(userID)
	if latest == nil {
		return nil, ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (m *MemoryStore) latestAddressLocked(userID uint) *models.Address {
	var latest *models.Address
	for _, a := range m.addresses {
		if a.UserID != userID {
			continue
		}
		if latest == nil || a.ID > latest.ID {
			latest = a
		}
	}
	return latest
}

func (m *MemoryStore) SaveAddress(_ context.Context, address *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if address.ID == 0 {
		m.addressCounter++
		address.ID = m.addressCounter
		address.CreatedAt = now
	} else if _, exists := m.addresses[address.ID]; !exists {
		return ErrNotFound
	}
	address.UpdatedAt = now

	stored := *address
	m.addresses[address.ID] = &stored
	return nil
}

// Booking operations
func (m *MemoryStore) CreateBooking(_ context.Context, booking *models.Booking, tasks []*models.OutboxTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if booking.AddressID != nil {
		if _, exists := m.addresses[*booking.AddressID]; !exists {
			return ErrNotFound
		}
	}

	id := m.bookingCounter + 1
	for _, t := range tasks {
		if err := stampBookingID(t, id); err != nil {
			return err
		}
	}

	m.bookingCounter = id
	now := time.Now()
	booking.ID = id
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	if booking.BookedAt.IsZero() {
		booking.BookedAt = now
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now

	stored := *booking
	stored.Address = nil
	stored.Images = nil
	stored.SelectedItems = append(models.SelectedItems(nil), booking.SelectedItems...)
	m.bookings[booking.ID] = &stored

	m.enqueueLocked(tasks)
	return nil
}

func (m *MemoryStore) GetBooking(_ context.Context, id uint) (*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	booking, exists := m.bookings[id]
	if !exists {
		return nil, ErrNotFound
	}
	return m.hydrateLocked(booking), nil
}

func (m *MemoryStore) GetBookingsByUser(_ context.Context, userID uint, status *models.BookingStatus) ([]*models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bookings []*models.Booking
	for _, b := range m.bookings {
		if b.UserID != userID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		bookings = append(bookings, m.hydrateLocked(b))
	}

	// Most recent first
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

// hydrateLocked returns a copy of the booking with images and address attached.
func (m *MemoryStore) hydrateLocked(b *models.Booking) *models.Booking {
	out := *b
	out.SelectedItems = append(models.SelectedItems(nil), b.SelectedItems...)
	out.Images = append([]models.BookingImage(nil), m.images[b.ID]...)
	if b.AddressID != nil {
		if addr, ok := m.addresses[*b.AddressID]; ok {
			a := *addr
			out.Address = &a
		}
	}
	return &out
}

func (m *MemoryStore) TransitionBookingStatus(_ context.Context, id uint, from, to models.BookingStatus, tasks []*models.OutboxTask) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, exists := m.bookings[id]
	if !exists {
		return nil, ErrNotFound
	}
	if booking.Status != from {
		return m.hydrateLocked(booking), ErrStatusConflict
	}

	booking.Status = to
	booking.UpdatedAt = time.Now()
	m.enqueueLocked(tasks)
	return m.hydrateLocked(booking), nil
}

func (m *MemoryStore) AttachImages(_ context.Context, bookingID uint, files []models.StoredFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bookings[bookingID]; !exists {
		return ErrNotFound
	}

	existing := make(map[string]bool, len(m.images[bookingID]))
	for _, img := range m.images[bookingID] {
		existing[img.Filename] = true
	}

	now := time.Now()
	for _, f := range files {
		if existing[f.Filename] {
			continue
		}
		m.imageCounter++
		m.images[bookingID] = append(m.images[bookingID], models.BookingImage{
			ID:         m.imageCounter,
			BookingID:  bookingID,
			Filename:   f.Filename,
			FilePath:   f.Path,
			UploadedAt: now,
		})
		existing[f.Filename] = true
	}
	return nil
}

// OTP operations
func (m *MemoryStore) CreateOTP(_ context.Context, otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.otpCounter++
	now := time.Now()
	otp.ID = m.otpCounter
	otp.CreatedAt = now
	otp.UpdatedAt = now

	stored := *otp
	m.otps = append(m.otps, &stored)
	return nil
}

func (m *MemoryStore) GetLatestOTP(_ context.Context, email, purpose string) (*models.OTP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.otps) - 1; i >= 0; i-- {
		otp := m.otps[i]
		if strings.EqualFold(otp.Email, email) && otp.Purpose == purpose {
			out := *otp
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Outbox operations
func (m *MemoryStore) EnqueueTasks(_ context.Context, tasks []*models.OutboxTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enqueueLocked(tasks)
	return nil
}

func (m *MemoryStore) enqueueLocked(tasks []*models.OutboxTask) {
	now := time.Now()
	for _, t := range tasks {
		m.taskCounter++
		t.ID = m.taskCounter
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		if t.NextAttemptAt.IsZero() {
			t.NextAttemptAt = now
		}
		t.CreatedAt = now
		t.UpdatedAt = now

		stored := *t
		m.tasks[t.ID] = &stored
	}
}

func (m *MemoryStore) ClaimDueTasks(_ context.Context, now time.Time, limit int) ([]*models.OutboxTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*models.OutboxTask
	for _, t := range m.tasks {
		if t.Status == models.TaskStatusPending && !t.NextAttemptAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*models.OutboxTask, 0, len(due))
	for _, t := range due {
		t.Attempts++
		t.NextAttemptAt = now.Add(claimLease)
		t.UpdatedAt = now
		out := *t
		claimed = append(claimed, &out)
	}
	return claimed, nil
}

func (m *MemoryStore) CompleteTask(_ context.Context, id uint, now time.Time) error {
	return m.updateTask(id, func(t *models.OutboxTask) {
		t.Status = models.TaskStatusDone
		t.LastError = ""
		t.CompletedAt = &now
	})
}

func (m *MemoryStore) RescheduleTask(_ context.Context, id uint, lastErr string, next time.Time) error {
	return m.updateTask(id, func(t *models.OutboxTask) {
		t.LastError = lastErr
		t.NextAttemptAt = next
	})
}

func (m *MemoryStore) FailTask(_ context.Context, id uint, lastErr string) error {
	return m.updateTask(id, func(t *models.OutboxTask) {
		t.Status = models.TaskStatusFailed
		t.LastError = lastErr
	})
}

func (m *MemoryStore) RetryTask(_ context.Context, id uint, now time.Time) error {
	return m.updateTask(id, func(t *models.OutboxTask) {
		t.Status = models.TaskStatusPending
		t.Attempts = 0
		t.NextAttemptAt = now
	})
}

func (m *MemoryStore) updateTask(id uint, fn func(t *models.OutboxTask)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.tasks[id]
	if !exists {
		return ErrNotFound
	}
	fn(t)
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) GetTasksByStatus(_ context.Context, status string, limit int) ([]*models.OutboxTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tasks []*models.OutboxTask
	for _, t := range m.tasks {
		if status == "" || t.Status == status {
			out := *t
			tasks = append(tasks, &out)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
