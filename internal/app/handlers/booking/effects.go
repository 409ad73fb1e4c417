package booking

import (
	"context"
	"log/slog"
	"time"

	"staydesk/internal/app/policies"
	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/shared/daterange"
)

const defaultEffectsTimeout = 5 * time.Second

// Effects runs the post-transition side effects. It is always called after the
// room lock is released, and its failures are logged, never returned: the
// booking write has already committed.
type Effects struct {
	Cache    policies.CacheInvalidator
	Notifier policies.Notifier
	Logger   *slog.Logger
	Timeout  time.Duration
}

func (e Effects) BookingChanged(ctx context.Context, b *domainbooking.Booking, previous domainbooking.Status) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultEffectsTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if e.Cache != nil {
		if err := e.Cache.InvalidateRoom(ctx, b.RoomID, b.Range); err != nil {
			e.log(ctx, "cache invalidation failed", b, err)
		}
	}
	if e.Notifier != nil {
		n := policies.BookingNotification{
			BookingID:  string(b.ID),
			RoomID:     string(b.RoomID),
			Status:     string(b.Status),
			Previous:   string(previous),
			CheckIn:    b.Range.CheckIn.Format(daterange.DateLayout),
			CheckOut:   b.Range.CheckOut.Format(daterange.DateLayout),
			GuestName:  b.Guest.Name,
			GuestEmail: b.Guest.Email,
			Gross:      b.Totals.Gross,
			At:         b.UpdatedAt,
		}
		if err := e.Notifier.NotifyBooking(ctx, n); err != nil {
			e.log(ctx, "booking notification failed", b, err)
		}
	}
}

func (e Effects) log(ctx context.Context, msg string, b *domainbooking.Booking, err error) {
	if e.Logger != nil {
		e.Logger.WarnContext(ctx, msg, "booking_id", b.ID, "room_id", b.RoomID, "status", b.Status, "error", err)
	}
}
