package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/events"
	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/shared/money"
	"staydesk/internal/domain/tax"
)

var (
	ErrBookingNotFound = errors.New("booking: not found")
	ErrMissingID       = errors.New("booking: id required")
	ErrMissingToken    = errors.New("booking: token required")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return s, nil
	default:
		return "", fault.Validation(fault.CodeInvalidTransition, "status", fmt.Sprintf("unknown status %q", raw))
	}
}

type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func (g Guest) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fault.Validation(fault.CodeInvalidGuest, "guest.name", "guest name is required")
	}
	if _, err := mail.ParseAddress(g.Email); err != nil {
		return fault.Validation(fault.CodeInvalidGuest, "guest.email", "guest email is invalid")
	}
	return nil
}

type Totals struct {
	Net   money.Money `json:"net"`
	Tax   money.Money `json:"tax"`
	Gross money.Money `json:"gross"`
}

// Payment fields are filled by the payment collaborator; the engine only stores them.
type Payment struct {
	Method    string `json:"method,omitempty"`
	Status    string `json:"status,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type Booking struct {
	ID           BookingID
	RoomID       inventory.RoomID
	Range        daterange.DateRange
	Adults       int
	ChildrenAges []int
	Guest        Guest
	Extras       []pricing.SelectedExtra
	Price        pricing.Breakdown
	Tax          tax.Breakdown
	Totals       Totals
	Status       Status
	Token        string
	Payment      Payment
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByToken(ctx context.Context, token string) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// ListByRoom returns every booking of the room whose stay overlaps or
	// touches dr, regardless of status.
	ListByRoom(ctx context.Context, roomID inventory.RoomID, dr daterange.DateRange) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	Token     string
	RoomID    inventory.RoomID
	Range     daterange.DateRange
	Adults    int
	Guest     Guest
	Price     pricing.Breakdown
	Tax       tax.Breakdown
	Payment   Payment
	CreatedAt time.Time
}

// NewBooking creates a pending booking from an already computed quote.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.ID == "" {
		return nil, ErrMissingID
	}
	if params.Token == "" {
		return nil, ErrMissingToken
	}
	if err := params.Range.Validate(); err != nil {
		return nil, fault.Validation(fault.CodeInvalidRoomOrDates, "check_out", err.Error())
	}
	if params.Adults < 1 {
		return nil, fault.Validation(fault.CodeInvalidGuests, "adults", "at least one adult is required")
	}
	if err := params.Guest.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:           params.ID,
		RoomID:       params.RoomID,
		Range:        params.Range,
		Adults:       params.Adults,
		ChildrenAges: append([]int(nil), params.Price.ChildrenAges...),
		Guest:        params.Guest,
		Extras:       append([]pricing.SelectedExtra(nil), params.Price.Extras...),
		Price:        params.Price,
		Tax:          params.Tax,
		Totals:       Totals{Net: params.Tax.TotalNet, Tax: params.Tax.TotalTax, Gross: params.Tax.TotalGross},
		Status:       StatusPending,
		Token:        params.Token,
		Payment:      params.Payment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID,
		RoomID:    b.RoomID,
		Range:     b.Range,
		Adults:    b.Adults,
		Children:  len(b.ChildrenAges),
		Gross:     b.Totals.Gross,
		At:        now,
	})
	return b, nil
}

func (b *Booking) ChildrenCount() int {
	return len(b.ChildrenAges)
}

// Occupies reports whether the booking blocks its room at now. Cancelled
// bookings never do; pending ones stop once they are older than pendingExpiry.
func (b *Booking) Occupies(now time.Time, pendingExpiry time.Duration) bool {
	switch b.Status {
	case StatusCancelled:
		return false
	case StatusPending:
		return pendingExpiry <= 0 || now.Sub(b.CreatedAt) <= pendingExpiry
	default:
		return true
	}
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	default:
		return false
	}
}

// ChangeStatus moves the booking to target. It returns false without
// recording anything when the booking already has that status.
func (b *Booking) ChangeStatus(target Status, reason string, now time.Time) (bool, error) {
	if b.Status == target {
		return false, nil
	}
	switch target {
	case StatusConfirmed:
		return true, b.Confirm(now)
	case StatusCancelled:
		return true, b.Cancel(reason, now)
	default:
		return false, invalidTransition(b.Status, target)
	}
}

func (b *Booking) Confirm(now time.Time) error {
	if !CanTransition(b.Status, StatusConfirmed) {
		return invalidTransition(b.Status, StatusConfirmed)
	}
	from := b.Status
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, RoomID: b.RoomID, Range: b.Range, From: from, Gross: b.Totals.Gross, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if !CanTransition(b.Status, StatusCancelled) {
		return invalidTransition(b.Status, StatusCancelled)
	}
	from := b.Status
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, RoomID: b.RoomID, Range: b.Range, From: from, Reason: reason, At: b.UpdatedAt})
	return nil
}

func invalidTransition(from, to Status) error {
	return fault.Validation(fault.CodeInvalidTransition, "status", fmt.Sprintf("cannot move booking from %s to %s", from, to))
}

// ValidateCheckIn rejects stays that start before today (UTC).
func ValidateCheckIn(dr daterange.DateRange, now time.Time) error {
	if daterange.Day(dr.CheckIn).Before(daterange.Day(now)) {
		return fault.Validation(fault.CodeCheckInInPast, "check_in", "check-in date is in the past")
	}
	return nil
}
