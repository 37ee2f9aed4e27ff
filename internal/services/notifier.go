package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
	"github.com/scrapify/scrapify-backend/internal/utils"
)

// Admin link actions. They are part of the signed payload.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// NotifierDeps enumerates the collaborators of Notifier
type NotifierDeps struct {
	Store    storage.Store
	Media    *MediaIntake
	Mailer   Mailer
	SMS      SMSSender // nil disables text messages
	OpsEmail string
	// LinkBaseURL is the public origin plus API prefix that admin action
	// links are built on.
	LinkBaseURL string
	LinkSecret  string
	Logger      *zap.Logger
}

// Notifier renders and delivers booking notifications. Every method returns
// the delivery error so the outbox can retry it.
type Notifier struct {
	store       storage.Store
	media       *MediaIntake
	mailer      Mailer
	sms         SMSSender
	opsEmail    string
	linkBaseURL string
	linkSecret  string
	log         *zap.Logger
}

func NewNotifier(deps NotifierDeps) *Notifier {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		store:       deps.Store,
		media:       deps.Media,
		mailer:      deps.Mailer,
		sms:         deps.SMS,
		opsEmail:    deps.OpsEmail,
		linkBaseURL: strings.TrimRight(deps.LinkBaseURL, "/"),
		linkSecret:  deps.LinkSecret,
		log:         log,
	}
}

// SMSEnabled reports whether decision text messages can be sent.
func (n *Notifier) SMSEnabled() bool {
	return n.sms != nil
}

type emailData struct {
	Title     string
	Booking   *models.Booking
	User      *models.User
	Address   *models.Address
	Images    []string
	AcceptURL string
	RejectURL string
	Reason    string
}

// ActionURL builds the admin link for action on bookingID, signed when a
// link secret is configured.
func (n *Notifier) ActionURL(action string, bookingID uint) string {
	link := fmt.Sprintf("%s/admin/%s-booking/%d", n.linkBaseURL, action, bookingID)
	if n.linkSecret == "" {
		return link
	}
	return link + "?" + url.Values{"sig": {utils.SignAction(n.linkSecret, action, bookingID)}}.Encode()
}

func (n *Notifier) load(ctx context.Context, bookingID uint) (*models.Booking, *models.User, error) {
	booking, err := n.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrBookingNotFound
		}
		return nil, nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	user, err := n.store.GetUser(ctx, booking.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("load user %d: %w", booking.UserID, err)
	}
	return booking, user, nil
}

// NotifyOpsBookingCreated emails the operations inbox with the booking,
// its photos inline and the accept/reject links.
func (n *Notifier) NotifyOpsBookingCreated(ctx context.Context, bookingID uint, files []models.StoredFile) error {
	booking, user, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		for _, img := range booking.Images {
			files = append(files, models.StoredFile{Filename: img.Filename, Path: img.FilePath})
		}
	}

	inline, closeAll := n.openInline(ctx, files)
	defer closeAll()

	data := emailData{
		Title:     fmt.Sprintf("New booking #%d: %s", booking.ID, booking.ServiceTitle),
		Booking:   booking,
		User:      user,
		Address:   booking.Address,
		AcceptURL: n.ActionURL(ActionAccept, booking.ID),
		RejectURL: n.ActionURL(ActionReject, booking.ID),
	}
	for _, img := range inline {
		data.Images = append(data.Images, img.Name)
	}

	html, err := renderEmail("ops_booking_created", data)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("New booking #%d from %s (%s)\nService: %s\nItems: %s\nAccept: %s\nReject: %s\n",
		booking.ID, user.Name, user.Email, booking.ServiceTitle, booking.SelectedItems.Names(),
		data.AcceptURL, data.RejectURL)

	return n.send(ctx, Email{
		To:      []string{n.opsEmail},
		Subject: data.Title,
		HTML:    html,
		Text:    text,
		Inline:  inline,
	})
}

// openInline opens every stored file that still exists. Missing files are
// logged and left out of the email.
func (n *Notifier) openInline(ctx context.Context, files []models.StoredFile) ([]InlineImage, func()) {
	var (
		inline  []InlineImage
		closers []io.Closer
	)
	if n.media != nil {
		for _, f := range files {
			rc, err := n.media.Open(ctx, f.Filename)
			if err != nil {
				n.log.Warn("skipping inline image", zap.String("filename", f.Filename), zap.Error(err))
				continue
			}
			inline = append(inline, InlineImage{Name: f.Filename, Reader: rc})
			closers = append(closers, rc)
		}
	}
	return inline, func() {
		for _, c := range closers {
			c.Close()
		}
	}
}

// NotifyCustomerBookingCreated sends the booking confirmation to its owner.
func (n *Notifier) NotifyCustomerBookingCreated(ctx context.Context, bookingID uint) error {
	booking, user, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}
	data := emailData{
		Title:   "We received your booking",
		Booking: booking,
		User:    user,
		Address: booking.Address,
	}
	html, err := renderEmail("customer_booking_created", data)
	if err != nil {
		return err
	}
	return n.send(ctx, Email{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Booking #%d received - Scrapify", booking.ID),
		HTML:    html,
		Text: fmt.Sprintf("Hello %s, we received your booking #%d for %s. We will confirm it shortly.",
			user.Name, booking.ID, booking.ServiceTitle),
	})
}

// NotifyBookingAccepted tells the customer the booking was confirmed.
func (n *Notifier) NotifyBookingAccepted(ctx context.Context, bookingID uint) error {
	booking, user, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}
	data := emailData{
		Title:   "Your booking is confirmed",
		Booking: booking,
		User:    user,
		Address: booking.Address,
	}
	html, err := renderEmail("booking_accepted", data)
	if err != nil {
		return err
	}
	return n.send(ctx, Email{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Booking #%d confirmed - Scrapify", booking.ID),
		HTML:    html,
		Text:    fmt.Sprintf("Hello %s, your booking #%d has been confirmed.", user.Name, booking.ID),
	})
}

// NotifyBookingRejected tells the customer the booking was rejected and why.
func (n *Notifier) NotifyBookingRejected(ctx context.Context, bookingID uint, reason string) error {
	booking, user, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = DefaultRejectReason
	}
	data := emailData{
		Title:   "Your booking could not be accepted",
		Booking: booking,
		User:    user,
		Address: booking.Address,
		Reason:  reason,
	}
	html, err := renderEmail("booking_rejected", data)
	if err != nil {
		return err
	}
	return n.send(ctx, Email{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Booking #%d update - Scrapify", booking.ID),
		HTML:    html,
		Text: fmt.Sprintf("Hello %s, your booking #%d could not be accepted. Reason: %s",
			user.Name, booking.ID, reason),
	})
}

// NotifyDecisionSMS texts the customer the outcome of an operator decision.
// Customers without a phone number are skipped.
func (n *Notifier) NotifyDecisionSMS(ctx context.Context, bookingID uint, status models.BookingStatus, reason string) error {
	if n.sms == nil {
		return nil
	}
	booking, user, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(user.Phone) == "" {
		n.log.Info("decision sms skipped: no phone", zap.Uint("booking_id", bookingID))
		return nil
	}

	var body string
	switch status {
	case models.BookingStatusConfirmed:
		body = fmt.Sprintf("Scrapify: your booking #%d (%s) is confirmed. Our pickup team will contact you soon.",
			booking.ID, booking.ServiceTitle)
	case models.BookingStatusCancelled:
		if reason == "" {
			reason = DefaultRejectReason
		}
		body = fmt.Sprintf("Scrapify: your booking #%d could not be accepted. Reason: %s", booking.ID, reason)
	default:
		return fmt.Errorf("no sms for status %q", status)
	}
	return n.sms.SendSMS(user.Phone, body)
}

func (n *Notifier) send(ctx context.Context, email Email) error {
	if err := n.mailer.Send(ctx, email); err != nil {
		return err
	}
	n.log.Info("email sent", zap.Strings("to", email.To), zap.String("subject", email.Subject))
	return nil
}
