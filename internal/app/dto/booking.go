package dto

import (
	"time"

	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/shared/daterange"
)

type BookingGuest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type BookingTotals struct {
	Net   MoneyDTO `json:"net"`
	Tax   MoneyDTO `json:"tax"`
	Gross MoneyDTO `json:"gross"`
}

type BookingPayment struct {
	Method    string `json:"method,omitempty"`
	Status    string `json:"status,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// BookingRecord is the stable booking shape consumed by admin and email tooling.
type BookingRecord struct {
	ID            string         `json:"id"`
	RoomID        string         `json:"room_id"`
	CheckIn       string         `json:"check_in"`
	CheckOut      string         `json:"check_out"`
	Nights        int            `json:"nights"`
	Adults        int            `json:"adults"`
	ChildrenCount int            `json:"children_count"`
	ChildrenAges  []int          `json:"children_ages"`
	Guest         BookingGuest   `json:"guest"`
	Extras        []ExtraLine    `json:"extras"`
	Subtotals     Subtotals      `json:"subtotals"`
	Tax           TaxBreakdown   `json:"tax"`
	Totals        BookingTotals  `json:"totals"`
	Status        string         `json:"status"`
	Payment       BookingPayment `json:"payment"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) BookingRecord {
	p := b.Tax.Precision
	return BookingRecord{
		ID:            string(b.ID),
		RoomID:        string(b.RoomID),
		CheckIn:       b.Range.CheckIn.Format(daterange.DateLayout),
		CheckOut:      b.Range.CheckOut.Format(daterange.DateLayout),
		Nights:        b.Range.Nights(),
		Adults:        b.Adults,
		ChildrenCount: b.ChildrenCount(),
		ChildrenAges:  append([]int{}, b.ChildrenAges...),
		Guest:         BookingGuest{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
		Extras:        MapExtras(b.Extras, p),
		Subtotals: Subtotals{
			Room:     MapMoney(b.Price.RoomSubtotal, p),
			Children: MapMoney(b.Price.ChildrenSubtotal, p),
			Extras:   MapMoney(b.Price.ExtrasSubtotal, p),
			Net:      MapMoney(b.Price.NetSubtotal, p),
		},
		Tax: MapTax(b.Tax),
		Totals: BookingTotals{
			Net:   MapMoney(b.Totals.Net, p),
			Tax:   MapMoney(b.Totals.Tax, p),
			Gross: MapMoney(b.Totals.Gross, p),
		},
		Status:    string(b.Status),
		Payment:   BookingPayment{Method: b.Payment.Method, Status: b.Payment.Status, Reference: b.Payment.Reference},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
