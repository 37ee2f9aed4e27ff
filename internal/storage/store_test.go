package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrapify/scrapify-backend/internal/models"
)

// testStore runs the behaviour every Store implementation must share.
func testStore(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("addresses", func(t *testing.T) { testAddresses(t, newStore(t)) })
	t.Run("bookings", func(t *testing.T) { testBookings(t, newStore(t)) })
	t.Run("unreadable task payload", func(t *testing.T) { testBadTaskPayload(t, newStore(t)) })
	t.Run("status transition", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("images", func(t *testing.T) { testImages(t, newStore(t)) })
	t.Run("otps", func(t *testing.T) { testOTPs(t, newStore(t)) })
	t.Run("outbox", func(t *testing.T) { testOutbox(t, newStore(t)) })
}

func mustCreateUser(t *testing.T, s Store, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Asha", Email: email, Phone: "+919876543210", Password: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func mustCreateBooking(t *testing.T, s Store, userID uint, addressID *uint) *models.Booking {
	t.Helper()
	b := &models.Booking{
		UserID:       userID,
		ServiceID:    2,
		ServiceTitle: "Paper & Cardboard",
		SelectedItems: models.SelectedItems{
			{ID: 1, Name: "Newspaper", Price: models.Rupees(12, 15, "kg"), Category: "paper"},
		},
		AddressID: addressID,
	}
	require.NoError(t, s.CreateBooking(context.Background(), b, nil))
	require.NotZero(t, b.ID)
	return b
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "asha@example.com")

	err := s.CreateUser(ctx, &models.User{Name: "Other", Email: "ASHA@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	byEmail, err := s.GetUserByEmail(ctx, "Asha@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUser(ctx, u.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	u.Name = "Asha K"
	u.ProfilePicture = "uploads/me.jpg"
	require.NoError(t, s.UpdateUser(ctx, u))
	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.Name)
	assert.Equal(t, "uploads/me.jpg", got.ProfilePicture)

	require.NoError(t, s.UpdatePassword(ctx, "asha@example.com", "new-hash"))
	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.Password)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "nobody@example.com", "x"), ErrNotFound)
}

func testAddresses(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "addr@example.com")

	_, err := s.GetLatestAddress(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	a := &models.Address{UserID: u.ID, Street: "12 MG Road", Area: "Indiranagar", City: "Bengaluru", Pincode: "560038"}
	require.NoError(t, s.SaveAddress(ctx, a))
	require.NotZero(t, a.ID)

	a.City = "Bangalore"
	require.NoError(t, s.SaveAddress(ctx, a))

	latest, err := s.GetLatestAddress(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, latest.ID)
	assert.Equal(t, "Bangalore", latest.City)

	missing := &models.Address{ID: a.ID + 100, UserID: u.ID, Street: "x", Area: "y", City: "z", Pincode: "111111"}
	assert.ErrorIs(t, s.SaveAddress(ctx, missing), ErrNotFound)
}

func testBookings(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "book@example.com")
	other := mustCreateUser(t, s, "other@example.com")

	a := &models.Address{UserID: u.ID, Street: "12 MG Road", Area: "Indiranagar", City: "Bengaluru", Pincode: "560038"}
	require.NoError(t, s.SaveAddress(ctx, a))

	first := mustCreateBooking(t, s, u.ID, &a.ID)
	assert.Equal(t, models.BookingStatusPending, first.Status)
	assert.False(t, first.BookedAt.IsZero())

	time.Sleep(10 * time.Millisecond)
	second := mustCreateBooking(t, s, u.ID, nil)
	mustCreateBooking(t, s, other.ID, nil)

	got, err := s.GetBooking(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Address)
	assert.Equal(t, "Indiranagar", got.Address.Area)
	require.Len(t, got.SelectedItems, 1)
	assert.Equal(t, "Newspaper", got.SelectedItems[0].Name)

	list, err := s.GetBookingsByUser(ctx, u.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "most recent first")
	assert.Nil(t, list[0].Address)

	_, err = s.TransitionBookingStatus(ctx, second.ID, models.BookingStatusPending, models.BookingStatusCancelled, nil)
	require.NoError(t, err)

	cancelled := models.BookingStatusCancelled
	list, err = s.GetBookingsByUser(ctx, u.ID, &cancelled)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = s.GetBooking(ctx, second.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testBadTaskPayload(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "payload@example.com")

	good, err := models.NewOutboxTask(models.TaskEmailCustomerBookingCreated, models.TaskPayload{}, time.Now())
	require.NoError(t, err)
	bad := &models.OutboxTask{Kind: models.TaskEmailOpsBookingCreated, Payload: "{not json"}

	b := &models.Booking{
		UserID:        u.ID,
		ServiceID:     2,
		ServiceTitle:  "Paper & Cardboard",
		SelectedItems: models.SelectedItems{{ID: 1, Name: "Newspaper", Price: models.Rupees(12, 15, "kg")}},
	}
	err = s.CreateBooking(ctx, b, []*models.OutboxTask{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.TaskEmailOpsBookingCreated)

	// nothing of the booking is kept
	list, err := s.GetBookingsByUser(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	tasks, err := s.GetTasksByStatus(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func testTransition(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "transition@example.com")
	b := mustCreateBooking(t, s, u.ID, nil)

	task, err := models.NewOutboxTask(models.TaskEmailBookingAccepted, models.TaskPayload{BookingID: b.ID}, time.Now())
	require.NoError(t, err)

	updated, err := s.TransitionBookingStatus(ctx, b.ID, models.BookingStatusPending, models.BookingStatusConfirmed, []*models.OutboxTask{task})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)

	again, err := models.NewOutboxTask(models.TaskEmailBookingRejected, models.TaskPayload{BookingID: b.ID}, time.Now())
	require.NoError(t, err)
	current, err := s.TransitionBookingStatus(ctx, b.ID, models.BookingStatusPending, models.BookingStatusCancelled, []*models.OutboxTask{again})
	assert.ErrorIs(t, err, ErrStatusConflict)
	require.NotNil(t, current)
	assert.Equal(t, models.BookingStatusConfirmed, current.Status)

	// Only the winning transition enqueued its task
	tasks, err := s.GetTasksByStatus(ctx, models.TaskStatusPending, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskEmailBookingAccepted, tasks[0].Kind)

	_, err = s.TransitionBookingStatus(ctx, b.ID+100, models.BookingStatusPending, models.BookingStatusConfirmed, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testImages(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "images@example.com")
	b := mustCreateBooking(t, s, u.ID, nil)

	files := []models.StoredFile{
		{Filename: "1-a.jpg", Path: "uploads/1-a.jpg"},
		{Filename: "2-b.jpg", Path: "uploads/2-b.jpg"},
	}
	require.NoError(t, s.AttachImages(ctx, b.ID, files))
	require.NoError(t, s.AttachImages(ctx, b.ID, files), "repeated attach is a no-op")

	got, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/1-a.jpg", "uploads/2-b.jpg"}, got.ImagePaths())

	assert.ErrorIs(t, s.AttachImages(ctx, b.ID+100, files), ErrNotFound)
}

func testOTPs(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.GetLatestOTP(ctx, "otp@example.com", models.OTPPurposeSignup)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateOTP(ctx, &models.OTP{Email: "otp@example.com", Code: "1111", Purpose: models.OTPPurposeSignup}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.CreateOTP(ctx, &models.OTP{Email: "otp@example.com", Code: "2222", Purpose: models.OTPPurposeSignup}))
	require.NoError(t, s.CreateOTP(ctx, &models.OTP{Email: "otp@example.com", Code: "3333", Purpose: models.OTPPurposeForgotPassword}))

	latest, err := s.GetLatestOTP(ctx, "otp@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, "2222", latest.Code)
	assert.False(t, latest.CreatedAt.IsZero())
}

func testOutbox(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now()

	var tasks []*models.OutboxTask
	for i := 0; i < 3; i++ {
		task, err := models.NewOutboxTask(models.TaskEmailCustomerBookingCreated, models.TaskPayload{BookingID: uint(i + 1)}, now)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	later, err := models.NewOutboxTask(models.TaskEmailCustomerBookingCreated, models.TaskPayload{BookingID: 9}, now.Add(time.Hour))
	require.NoError(t, err)
	tasks = append(tasks, later)
	require.NoError(t, s.EnqueueTasks(ctx, tasks))

	claimed, err := s.ClaimDueTasks(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, tasks[0].ID, claimed[0].ID)
	assert.Equal(t, 1, claimed[0].Attempts)

	// Claimed tasks are leased, so only the third one is still due
	rest, err := s.ClaimDueTasks(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, tasks[2].ID, rest[0].ID)

	require.NoError(t, s.CompleteTask(ctx, claimed[0].ID, now))
	require.NoError(t, s.FailTask(ctx, claimed[1].ID, "smtp down"))
	require.NoError(t, s.RescheduleTask(ctx, rest[0].ID, "timeout", now.Add(time.Minute)))

	done, err := s.GetTasksByStatus(ctx, models.TaskStatusDone, 0)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.NotNil(t, done[0].CompletedAt)

	failed, err := s.GetTasksByStatus(ctx, models.TaskStatusFailed, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "smtp down", failed[0].LastError)

	none, err := s.ClaimDueTasks(ctx, now.Add(30*time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.RetryTask(ctx, failed[0].ID, now))
	retried, err := s.ClaimDueTasks(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, retried, 1)
	assert.Equal(t, failed[0].ID, retried[0].ID)
	assert.Equal(t, 1, retried[0].Attempts)

	assert.ErrorIs(t, s.CompleteTask(ctx, 9999, now), ErrNotFound)

	all, err := s.GetTasksByStatus(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
