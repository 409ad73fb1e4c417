package booking

import (
	"context"
	"errors"

	"staydesk/internal/app/dto"
	"staydesk/internal/app/handlers/support"
	"staydesk/internal/app/queries"
	"staydesk/internal/app/uow"
	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/shared/fault"
)

const (
	GetBookingKey    = "booking.get"
	LookupBookingKey = "booking.lookup"
)

type GetBookingQuery struct {
	ID string
}

func (GetBookingQuery) Key() string { return GetBookingKey }

// LookupBookingQuery finds a booking by its opaque token, for guest-facing links.
type LookupBookingQuery struct {
	Token string
}

func (LookupBookingQuery) Key() string { return LookupBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingRecord, error) {
	return h.find(ctx, q.ID, func(ctx context.Context, repo domainbooking.Repository) (*domainbooking.Booking, error) {
		return repo.ByID(ctx, domainbooking.BookingID(q.ID))
	})
}

func (h *GetBookingHandler) Lookup(ctx context.Context, q LookupBookingQuery) (dto.BookingRecord, error) {
	if q.Token == "" {
		return dto.BookingRecord{}, &fault.NotFoundError{Resource: "booking", ID: "token"}
	}
	return h.find(ctx, "token", func(ctx context.Context, repo domainbooking.Repository) (*domainbooking.Booking, error) {
		return repo.ByToken(ctx, q.Token)
	})
}

func (h *GetBookingHandler) find(ctx context.Context, label string, get func(context.Context, domainbooking.Repository) (*domainbooking.Booking, error)) (dto.BookingRecord, error) {
	unit, execCtx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingRecord{}, err
	}
	defer done()
	b, err := get(execCtx, unit.Bookings())
	if err != nil {
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			return dto.BookingRecord{}, &fault.NotFoundError{Resource: "booking", ID: label}
		}
		return dto.BookingRecord{}, err
	}
	return dto.MapBooking(b), nil
}

var _ queries.Handler[GetBookingQuery, dto.BookingRecord] = (*GetBookingHandler)(nil)
