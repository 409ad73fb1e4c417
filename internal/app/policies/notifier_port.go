package policies

import (
	"context"
	"time"

	"staydesk/internal/domain/shared/money"
)

// BookingNotification is what downstream consumers (email, webhooks) receive
// after a booking is created or changes status.
type BookingNotification struct {
	BookingID  string      `json:"booking_id"`
	RoomID     string      `json:"room_id"`
	Status     string      `json:"status"`
	Previous   string      `json:"previous_status,omitempty"`
	CheckIn    string      `json:"check_in"`
	CheckOut   string      `json:"check_out"`
	GuestName  string      `json:"guest_name"`
	GuestEmail string      `json:"guest_email"`
	Gross      money.Money `json:"gross"`
	At         time.Time   `json:"at"`
}

type Notifier interface {
	NotifyBooking(ctx context.Context, n BookingNotification) error
}
