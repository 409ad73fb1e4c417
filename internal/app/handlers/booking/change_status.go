package booking

import (
	"context"
	"errors"
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
	"staydesk/internal/domain/shared/fault"
)

const ChangeStatusKey = "booking.change_status"

type ChangeStatusCommand struct {
	BookingID string
	Status    string
	Reason    string
}

func (ChangeStatusCommand) Key() string { return ChangeStatusKey }

func (ChangeStatusCommand) RequiresOperator() bool { return true }

func (c ChangeStatusCommand) Validate() error {
	if c.BookingID == "" {
		return fault.Validation(fault.CodeInvalidTransition, "booking_id", "booking id is required")
	}
	_, err := domainbooking.ParseStatus(c.Status)
	return err
}

type ChangeStatusResult struct {
	Booking dto.BookingRecord `json:"booking"`
	Changed bool              `json:"changed"`
}

// LifecycleHandler applies status transitions. Transitions to the current
// status are no-ops and trigger no side effects.
type LifecycleHandler struct {
	UoWFactory  uow.UoWFactory
	Catalog     inventory.Repository
	Checker     availability.Checker
	Locker      policies.Locker
	LockTimeout time.Duration
	Encoder     outbox.EventEncoder
	Effects     Effects
	Now         func() time.Time
}

func (h *LifecycleHandler) Handle(ctx context.Context, cmd ChangeStatusCommand) (*ChangeStatusResult, error) {
	target, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	current, err := h.load(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if current.Status == target {
		return &ChangeStatusResult{Booking: dto.MapBooking(current), Changed: false}, nil
	}
	if !domainbooking.CanTransition(current.Status, target) {
		_, err := current.ChangeStatus(target, cmd.Reason, h.now())
		return nil, err
	}

	timeout := h.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	release, err := h.Locker.Acquire(ctx, policies.RoomLockKey(string(current.RoomID)), timeout)
	if err != nil {
		return nil, err
	}
	updated, previous, changed, err := h.transition(ctx, release, current.ID, target, cmd.Reason)
	if err != nil {
		return nil, err
	}
	if changed {
		h.Effects.BookingChanged(ctx, updated, previous)
	}
	return &ChangeStatusResult{Booking: dto.MapBooking(updated), Changed: changed}, nil
}

func (h *LifecycleHandler) transition(ctx context.Context, release policies.Release, id domainbooking.BookingID, target domainbooking.Status, reason string) (*domainbooking.Booking, domainbooking.Status, bool, error) {
	defer release()

	unit, execCtx, commit, done, err := support.BeginUnit(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, "", false, err
	}
	defer done()

	b, err := unit.Bookings().ByID(execCtx, id)
	if err != nil {
		return nil, "", false, notFound(id, err)
	}
	previous := b.Status
	if target == domainbooking.StatusConfirmed && b.Status != target {
		if err := h.recheck(execCtx, unit, b); err != nil {
			return nil, "", false, err
		}
	}
	changed, err := b.ChangeStatus(target, reason, h.now())
	if err != nil || !changed {
		return b, previous, false, err
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, "", false, err
	}
	if err := outbox.RecordDomainEvents(execCtx, unit.Outbox(), h.Encoder, b.Drain()); err != nil {
		return nil, "", false, err
	}
	if err := commit(); err != nil {
		return nil, "", false, err
	}
	return b, previous, true, nil
}

// recheck makes sure no other booking took the dates while this one was
// pending, e.g. after it expired and was treated as abandoned.
func (h *LifecycleHandler) recheck(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	room, err := h.Catalog.Room(ctx, b.RoomID)
	if err != nil {
		if errors.Is(err, inventory.ErrRoomNotFound) {
			return fault.Computation("load room", err)
		}
		return err
	}
	existing, err := unit.Bookings().ListByRoom(ctx, b.RoomID, b.Range)
	if err != nil {
		return err
	}
	return h.Checker.IsAvailable(room, b.Range, existing, b.ID).Err()
}

func (h *LifecycleHandler) load(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	unit, execCtx, done, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer done()
	b, err := unit.Bookings().ByID(execCtx, id)
	if err != nil {
		return nil, notFound(id, err)
	}
	return b, nil
}

func (h *LifecycleHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func notFound(id domainbooking.BookingID, err error) error {
	if errors.Is(err, domainbooking.ErrBookingNotFound) {
		return &fault.NotFoundError{Resource: "booking", ID: string(id)}
	}
	return err
}

var _ commands.Handler[ChangeStatusCommand, *ChangeStatusResult] = (*LifecycleHandler)(nil)
var _ middleware.OperatorCommand = ChangeStatusCommand{}
