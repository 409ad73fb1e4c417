// Package notify holds the default booking notifier used when no broker is configured.
package notify

import (
	"context"
	"log/slog"

	"staydesk/internal/app/policies"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyBooking(ctx context.Context, note policies.BookingNotification) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "booking notification",
		"booking_id", note.BookingID,
		"room_id", note.RoomID,
		"status", note.Status,
		"previous_status", note.Previous,
		"check_in", note.CheckIn,
		"check_out", note.CheckOut,
		"gross", note.Gross.StringFixed(2),
		"currency", note.Gross.Currency,
	)
	return nil
}

var _ policies.Notifier = LogNotifier{}
