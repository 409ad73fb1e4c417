package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"staydesk/internal/app/dto"
	"staydesk/internal/app/handlers/support"
	"staydesk/internal/app/policies"
	"staydesk/internal/app/queries"
	"staydesk/internal/app/uow"
	domainavailability "staydesk/internal/domain/availability"
	"staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/fault"
)

const CheckAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	RoomID           string
	CheckIn          string
	CheckOut         string
	ExcludeBookingID string
}

func (CheckAvailabilityQuery) Key() string { return CheckAvailabilityKey }

// CheckAvailabilityHandler is the lock-free read path. Its answer is advisory;
// booking creation re-checks under the room lock.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Catalog    inventory.Repository
	Checker    domainavailability.Checker
	Cache      policies.AvailabilityCache
	Logger     *slog.Logger
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	dr, err := support.ParseStay(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Availability{}, err
	}
	room, err := h.Catalog.Room(ctx, inventory.RoomID(q.RoomID))
	if err != nil {
		if errors.Is(err, inventory.ErrRoomNotFound) {
			return dto.Availability{}, fault.Validation(fault.CodeInvalidRoomOrDates, "room_id", fmt.Sprintf("room %s does not exist", q.RoomID))
		}
		return dto.Availability{}, err
	}

	// Edit-in-place checks depend on the excluded booking and bypass the cache.
	cacheable := h.Cache != nil && q.ExcludeBookingID == ""
	if cacheable {
		if res, ok, err := h.Cache.Get(ctx, room.ID, dr); err != nil {
			h.warn(ctx, "availability cache read failed", err)
		} else if ok {
			return dto.MapAvailability(res, true), nil
		}
	}

	unit, execCtx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	defer done()

	existing, err := unit.Bookings().ListByRoom(execCtx, room.ID, dr)
	if err != nil {
		return dto.Availability{}, err
	}
	res := h.Checker.IsAvailable(room, dr, existing, booking.BookingID(q.ExcludeBookingID))
	if cacheable {
		if err := h.Cache.Put(ctx, res); err != nil {
			h.warn(ctx, "availability cache write failed", err)
		}
	}
	return dto.MapAvailability(res, false), nil
}

func (h *CheckAvailabilityHandler) warn(ctx context.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.WarnContext(ctx, msg, "error", err)
	}
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
