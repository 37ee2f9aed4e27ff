package jobs

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/services"
)

// RegisterBookingHandlers binds every booking side-effect kind to the
// service that performs it.
func RegisterBookingHandlers(w *OutboxWorker, bookings *services.BookingService, notifier *services.Notifier) {
	w.Handle(models.TaskAttachImages, func(ctx context.Context, p models.TaskPayload) error {
		return permanentIfGone(bookings.AttachImages(ctx, p.BookingID, p.Files))
	})
	w.Handle(models.TaskEmailOpsBookingCreated, func(ctx context.Context, p models.TaskPayload) error {
		return permanentIfGone(notifier.NotifyOpsBookingCreated(ctx, p.BookingID, p.Files))
	})
	w.Handle(models.TaskEmailCustomerBookingCreated, func(ctx context.Context, p models.TaskPayload) error {
		return permanentIfGone(notifier.NotifyCustomerBookingCreated(ctx, p.BookingID))
	})
	w.Handle(models.TaskEmailBookingAccepted, func(ctx context.Context, p models.TaskPayload) error {
		return permanentIfGone(notifier.NotifyBookingAccepted(ctx, p.BookingID))
	})
	w.Handle(models.TaskEmailBookingRejected, func(ctx context.Context, p models.TaskPayload) error {
		return permanentIfGone(notifier.NotifyBookingRejected(ctx, p.BookingID, p.Reason))
	})
	w.Handle(models.TaskSMSBookingDecision, func(ctx context.Context, p models.TaskPayload) error {
		return permanentIfGone(notifier.NotifyDecisionSMS(ctx, p.BookingID, models.BookingStatus(p.Status), p.Reason))
	})
}

// permanentIfGone stops retries for tasks whose booking or user no longer
// exists.
func permanentIfGone(err error) error {
	if errors.Is(err, services.ErrBookingNotFound) || errors.Is(err, services.ErrUserNotFound) {
		return backoff.Permanent(err)
	}
	return err
}
