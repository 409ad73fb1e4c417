package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staydesk/internal/app/commands"
	"staydesk/internal/app/dto"
	"staydesk/internal/app/handlers/support"
	"staydesk/internal/app/middleware"
	"staydesk/internal/app/outbox"
	"staydesk/internal/app/policies"
	"staydesk/internal/app/uow"
	"staydesk/internal/domain/availability"
	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	domainpricing "staydesk/internal/domain/pricing"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/shared/money"
)

const (
	CreateBookingKey   = "booking.create"
	DefaultLockTimeout = 10 * time.Second
)

type CreateBookingCommand struct {
	RoomID        string
	CheckIn       string
	CheckOut      string
	Adults        int
	Children      int
	ChildrenAges  []int
	Extras        []domainpricing.Selection
	Guest         domainbooking.Guest
	PaymentMethod string
	// ClientTotal is the gross the client displayed. It is never charged;
	// a mismatch with the server total is only logged.
	ClientTotal     string
	IdempotencyKeyV string
}

func (CreateBookingCommand) Key() string { return CreateBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

func (c CreateBookingCommand) Validate() error {
	if c.RoomID == "" {
		return fault.Validation(fault.CodeInvalidRoomOrDates, "room_id", "room is required")
	}
	if _, err := support.ParseStay(c.CheckIn, c.CheckOut); err != nil {
		return err
	}
	return c.Guest.Validate()
}

type CreateBookingResult struct {
	Booking dto.BookingRecord `json:"booking"`
	Token   string            `json:"token"`
}

// CreateBookingHandler is the single write path for new bookings.
type CreateBookingHandler struct {
	UoWFactory  uow.UoWFactory
	Catalog     inventory.Repository
	Pricing     policies.PricingPort
	Checker     availability.Checker
	Locker      policies.Locker
	LockTimeout time.Duration
	Encoder     outbox.EventEncoder
	Effects     Effects
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
	NewToken    func() (string, error)
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	dr, err := support.ParseStay(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	now := h.now()
	if err := domainbooking.ValidateCheckIn(dr, now); err != nil {
		return nil, err
	}
	room, err := h.Catalog.Room(ctx, inventory.RoomID(cmd.RoomID))
	if err != nil {
		if errors.Is(err, inventory.ErrRoomNotFound) {
			return nil, fault.Validation(fault.CodeInvalidRoomOrDates, "room_id", fmt.Sprintf("room %s does not exist", cmd.RoomID))
		}
		return nil, err
	}

	if err := h.precheck(ctx, room, dr); err != nil {
		return nil, err
	}

	release, err := h.Locker.Acquire(ctx, policies.RoomLockKey(string(room.ID)), h.lockTimeout())
	if err != nil {
		return nil, err
	}
	created, err := h.reserve(ctx, release, cmd, room, dr, now)
	if err != nil {
		return nil, err
	}

	h.Effects.BookingChanged(ctx, created, "")
	return &CreateBookingResult{Booking: dto.MapBooking(created), Token: created.Token}, nil
}

// precheck rejects dates that are already taken without queueing on the room
// lock. It is advisory; reserve decides under the lock.
func (h *CreateBookingHandler) precheck(ctx context.Context, room inventory.Room, dr daterange.DateRange) error {
	unit, execCtx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return err
	}
	defer done()
	existing, err := unit.Bookings().ListByRoom(execCtx, room.ID, dr)
	if err != nil {
		return err
	}
	if res := h.Checker.IsAvailable(room, dr, existing, ""); !res.Available {
		return res.Err()
	}
	return nil
}

// reserve is the critical section: re-check availability, recompute the
// price, insert. Nothing else runs while the room lock is held.
func (h *CreateBookingHandler) reserve(ctx context.Context, release policies.Release, cmd CreateBookingCommand, room inventory.Room, dr daterange.DateRange, now time.Time) (*domainbooking.Booking, error) {
	defer release()

	unit, execCtx, commit, done, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := unit.Bookings().ListByRoom(execCtx, room.ID, dr)
	if err != nil {
		return nil, err
	}
	if res := h.Checker.IsAvailable(room, dr, existing, ""); !res.Available {
		return nil, res.Err()
	}

	quote, err := h.Pricing.Quote(execCtx, domainpricing.QuoteInput{
		RoomID:        room.ID,
		Range:         dr,
		Adults:        cmd.Adults,
		ChildrenCount: cmd.Children,
		ChildrenAges:  cmd.ChildrenAges,
		Extras:        cmd.Extras,
	})
	if err != nil {
		return nil, err
	}
	h.compareClientTotal(ctx, cmd, quote.Tax.TotalGross)

	token, err := h.newToken()
	if err != nil {
		return nil, fmt.Errorf("booking: token: %w", err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(h.newID()),
		Token:     token,
		RoomID:    room.ID,
		Range:     dr,
		Adults:    cmd.Adults,
		Guest:     cmd.Guest,
		Price:     quote.Price,
		Tax:       quote.Tax,
		Payment:   domainbooking.Payment{Method: cmd.PaymentMethod, Status: "unpaid"},
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(execCtx, unit.Outbox(), h.Encoder, b.Drain()); err != nil {
		return nil, err
	}
	if err := commit(); err != nil {
		return nil, err
	}
	return b, nil
}

func (h *CreateBookingHandler) compareClientTotal(ctx context.Context, cmd CreateBookingCommand, server money.Money) {
	if cmd.ClientTotal == "" || h.Logger == nil {
		return
	}
	claimed, err := money.Parse(cmd.ClientTotal, server.Currency)
	if err != nil || !claimed.Equal(server) {
		h.Logger.WarnContext(ctx, "client total differs from server total", "room_id", cmd.RoomID, "client_total", cmd.ClientTotal, "server_total", server.StringFixed(2))
	}
}

func (h *CreateBookingHandler) lockTimeout() time.Duration {
	if h.LockTimeout <= 0 {
		return DefaultLockTimeout
	}
	return h.LockTimeout
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *CreateBookingHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return NewBookingID()
}

func (h *CreateBookingHandler) newToken() (string, error) {
	if h.NewToken != nil {
		return h.NewToken()
	}
	return NewBookingToken()
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
