package booking

import (
	"time"

	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID           `json:"booking_id"`
	RoomID    inventory.RoomID    `json:"room_id"`
	Range     daterange.DateRange `json:"range"`
	Adults    int                 `json:"adults"`
	Children  int                 `json:"children"`
	Gross     money.Money         `json:"gross"`
	At        time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID           `json:"booking_id"`
	RoomID    inventory.RoomID    `json:"room_id"`
	Range     daterange.DateRange `json:"range"`
	From      Status              `json:"from"`
	Gross     money.Money         `json:"gross"`
	At        time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID           `json:"booking_id"`
	RoomID    inventory.RoomID    `json:"room_id"`
	Range     daterange.DateRange `json:"range"`
	From      Status              `json:"from"`
	Reason    string              `json:"reason,omitempty"`
	At        time.Time           `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
