package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
	"github.com/scrapify/scrapify-backend/internal/utils"
)

const testLinkSecret = "link-secret"

type notifierFixture struct {
	store    *storage.MemoryStore
	media    *MediaIntake
	mailer   *fakeMailer
	sms      *fakeSMS
	notifier *Notifier
	user     *models.User
	booking  *models.Booking
}

func newNotifierFixture(t *testing.T, secret string, withSMS bool) *notifierFixture {
	t.Helper()
	f := &notifierFixture{
		store:  storage.NewMemoryStore(),
		media:  newTestMedia(t, 5),
		mailer: &fakeMailer{},
	}
	deps := NotifierDeps{
		Store:       f.store,
		Media:       f.media,
		Mailer:      f.mailer,
		OpsEmail:    "ops@scrapify.in",
		LinkBaseURL: "https://api.scrapify.in/api/scrapify/",
		LinkSecret:  secret,
		Logger:      zap.NewNop(),
	}
	if withSMS {
		f.sms = &fakeSMS{}
		deps.SMS = f.sms
	}
	f.notifier = NewNotifier(deps)

	f.user = createUser(t, f.store, "asha@example.com")
	_, err := NewAddressService(f.store, zap.NewNop()).Upsert(context.Background(), f.user.ID, testAddressInput())
	require.NoError(t, err)
	address, err := f.store.GetLatestAddress(context.Background(), f.user.ID)
	require.NoError(t, err)

	items, err := models.ParseSelectedItems(testItems)
	require.NoError(t, err)
	f.booking = &models.Booking{
		UserID:        f.user.ID,
		ServiceID:     2,
		ServiceTitle:  "Paper & Cardboard",
		SelectedItems: items,
		Description:   "Two bags <fragile>",
		AddressID:     &address.ID,
	}
	require.NoError(t, f.store.CreateBooking(context.Background(), f.booking, nil))
	return f
}

func TestActionURL(t *testing.T) {
	unsigned := newNotifierFixture(t, "", false).notifier
	assert.Equal(t, "https://api.scrapify.in/api/scrapify/admin/accept-booking/12", unsigned.ActionURL(ActionAccept, 12))

	signed := newNotifierFixture(t, testLinkSecret, false).notifier
	link, err := url.Parse(signed.ActionURL(ActionReject, 12))
	require.NoError(t, err)
	assert.Equal(t, "/api/scrapify/admin/reject-booking/12", link.Path)

	sig := link.Query().Get("sig")
	assert.True(t, utils.VerifyAction(testLinkSecret, ActionReject, 12, sig))
	assert.False(t, utils.VerifyAction(testLinkSecret, ActionAccept, 12, sig), "signature is bound to the action")
	assert.False(t, utils.VerifyAction(testLinkSecret, ActionReject, 13, sig), "signature is bound to the booking")
}

func TestNotifyOpsBookingCreated(t *testing.T) {
	f := newNotifierFixture(t, testLinkSecret, false)
	ctx := context.Background()

	stored, err := f.media.StoreImages(ctx, multipartFiles(t, map[string]string{"sofa.jpg": "jpeg-bytes"}))
	require.NoError(t, err)
	missing := models.StoredFile{Filename: "gone.jpg", Path: "uploads/gone.jpg"}

	require.NoError(t, f.notifier.NotifyOpsBookingCreated(ctx, f.booking.ID, append(stored, missing)))

	email := f.mailer.last(t)
	assert.Equal(t, []string{"ops@scrapify.in"}, email.To)
	assert.Equal(t, fmt.Sprintf("New booking #%d: Paper & Cardboard", f.booking.ID), email.Subject)
	assert.Contains(t, email.HTML, "Newspaper")
	assert.Contains(t, email.HTML, "₹12-15/kg")
	assert.Contains(t, email.HTML, "12 MG Road, Indiranagar, Bengaluru - 560038")
	assert.Contains(t, email.HTML, "Two bags &lt;fragile&gt;")
	assert.Contains(t, email.HTML, "cid:"+stored[0].Filename)
	assert.Contains(t, email.HTML, f.notifier.ActionURL(ActionAccept, f.booking.ID))
	assert.Contains(t, email.Text, "Newspaper, Cardboard")

	require.Len(t, email.Inline, 1, "missing files are left out")
	assert.Equal(t, stored[0].Filename, email.Inline[0].Name)
	assert.Equal(t, "jpeg-bytes", inlineContent(t, email.Inline[0]))
}

func TestNotifyOpsUsesAttachedImages(t *testing.T) {
	f := newNotifierFixture(t, "", false)
	ctx := context.Background()

	stored, err := f.media.StoreImages(ctx, multipartFiles(t, map[string]string{"tv.png": "png"}))
	require.NoError(t, err)
	require.NoError(t, f.store.AttachImages(ctx, f.booking.ID, stored))

	require.NoError(t, f.notifier.NotifyOpsBookingCreated(ctx, f.booking.ID, nil))
	email := f.mailer.last(t)
	require.Len(t, email.Inline, 1)
	assert.Equal(t, "png", inlineContent(t, email.Inline[0]))
}

func TestNotifyCustomer(t *testing.T) {
	f := newNotifierFixture(t, "", false)
	ctx := context.Background()

	require.NoError(t, f.notifier.NotifyCustomerBookingCreated(ctx, f.booking.ID))
	email := f.mailer.last(t)
	assert.Equal(t, []string{"asha@example.com"}, email.To)
	assert.Contains(t, email.Subject, "received")

	require.NoError(t, f.notifier.NotifyBookingAccepted(ctx, f.booking.ID))
	assert.Contains(t, f.mailer.last(t).Subject, "confirmed")

	require.NoError(t, f.notifier.NotifyBookingRejected(ctx, f.booking.ID, ""))
	email = f.mailer.last(t)
	assert.Contains(t, email.HTML, DefaultRejectReason)
	assert.Contains(t, email.Text, DefaultRejectReason)

	require.NoError(t, f.notifier.NotifyBookingRejected(ctx, f.booking.ID, "No pickup slots"))
	assert.Contains(t, f.mailer.last(t).HTML, "No pickup slots")
}

func TestNotifyReturnsDeliveryErrors(t *testing.T) {
	f := newNotifierFixture(t, "", false)
	f.mailer.err = errMailDown

	err := f.notifier.NotifyBookingAccepted(context.Background(), f.booking.ID)
	assert.ErrorIs(t, err, errMailDown)
}

func TestNotifyUnknownBooking(t *testing.T) {
	f := newNotifierFixture(t, "", true)
	ctx := context.Background()

	assert.ErrorIs(t, f.notifier.NotifyCustomerBookingCreated(ctx, 999), ErrBookingNotFound)
	assert.ErrorIs(t, f.notifier.NotifyDecisionSMS(ctx, 999, models.BookingStatusConfirmed, ""), ErrBookingNotFound)
}

func TestNotifyDecisionSMS(t *testing.T) {
	f := newNotifierFixture(t, "", true)
	ctx := context.Background()
	assert.True(t, f.notifier.SMSEnabled())

	require.NoError(t, f.notifier.NotifyDecisionSMS(ctx, f.booking.ID, models.BookingStatusConfirmed, ""))
	require.NoError(t, f.notifier.NotifyDecisionSMS(ctx, f.booking.ID, models.BookingStatusCancelled, ""))
	require.Len(t, f.sms.sent, 2)
	assert.Equal(t, "+919876543210", f.sms.sent[0].To)
	assert.Contains(t, f.sms.sent[0].Body, "is confirmed")
	assert.Contains(t, f.sms.sent[1].Body, DefaultRejectReason)

	assert.Error(t, f.notifier.NotifyDecisionSMS(ctx, f.booking.ID, models.BookingStatusInProgress, ""))
}

func TestNotifyDecisionSMSSkips(t *testing.T) {
	ctx := context.Background()

	disabled := newNotifierFixture(t, "", false)
	assert.False(t, disabled.notifier.SMSEnabled())
	assert.NoError(t, disabled.notifier.NotifyDecisionSMS(ctx, disabled.booking.ID, models.BookingStatusConfirmed, ""))

	f := newNotifierFixture(t, "", true)
	f.user.Phone = ""
	require.NoError(t, f.store.UpdateUser(ctx, f.user))
	require.NoError(t, f.notifier.NotifyDecisionSMS(ctx, f.booking.ID, models.BookingStatusConfirmed, ""))
	assert.Empty(t, f.sms.sent)
}

func TestRenderEmailTemplates(t *testing.T) {
	booking := &models.Booking{ID: 5, ServiceTitle: "E-waste", SelectedItems: models.SelectedItems{{Name: "Laptop", Quantity: 2}}}
	data := emailData{Title: "Title", Booking: booking, User: &models.User{Name: "Asha"}, Reason: "Because"}

	for name := range emailTemplates {
		html, err := renderEmail(name, data)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"), name)
		assert.Contains(t, html, "Laptop", name)
	}

	_, err := renderEmail("missing", data)
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	err := NewLogMailer(zap.NewNop()).Send(context.Background(), Email{
		To:      []string{"a@example.com"},
		Subject: "hello",
		Inline:  []InlineImage{{Name: "x.jpg", Reader: bytes.NewReader(nil)}},
	})
	assert.NoError(t, err)
}
