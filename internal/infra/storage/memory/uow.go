package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	appoutbox "staydesk/internal/app/outbox"
	"staydesk/internal/app/uow"
	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrReadOnlyUnit         = errors.New("memory: write in read-only unit of work")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Factory wires the in-memory stores into a unit-of-work boundary. Writes are
// staged in the unit and only reach the stores on Commit.
type Factory struct {
	Bookings *BookingStore
	Outbox   *Outbox
}

func (f Factory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Bookings == nil || f.Outbox == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:    f.Bookings,
		box:      f.Outbox,
		readOnly: opts.ReadOnly,
		staged:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		expected: make(map[domainbooking.BookingID]int64),
	}, nil
}

type Unit struct {
	mu       sync.Mutex
	store    *BookingStore
	box      *Outbox
	readOnly bool
	finished bool
	staged   map[domainbooking.BookingID]*domainbooking.Booking
	expected map[domainbooking.BookingID]int64
	records  []appoutbox.EventRecord
}

func (u *Unit) Bookings() domainbooking.Repository { return unitBookings{u} }

func (u *Unit) Outbox() appoutbox.Outbox { return unitOutbox{u} }

func (u *Unit) Commit(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finished {
		return ErrUnitClosed
	}
	u.finished = true
	staged := make([]*domainbooking.Booking, 0, len(u.staged))
	for _, b := range u.staged {
		staged = append(staged, b)
	}
	records := u.records
	return u.store.apply(staged, u.expected, func() error {
		return u.box.addAll(records)
	})
}

func (u *Unit) Rollback(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.finished = true
	u.staged = nil
	u.records = nil
	return nil
}

type unitBookings struct{ u *Unit }

func (r unitBookings) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.u.mu.Lock()
	if b, ok := r.u.staged[id]; ok {
		r.u.mu.Unlock()
		return clone(b), nil
	}
	r.u.mu.Unlock()
	return r.u.store.ByID(ctx, id)
}

func (r unitBookings) ByToken(ctx context.Context, token string) (*domainbooking.Booking, error) {
	r.u.mu.Lock()
	for _, b := range r.u.staged {
		if token != "" && b.Token == token {
			r.u.mu.Unlock()
			return clone(b), nil
		}
	}
	r.u.mu.Unlock()
	return r.u.store.ByToken(ctx, token)
}

func (r unitBookings) ListByRoom(ctx context.Context, roomID inventory.RoomID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	committed, err := r.u.store.ListByRoom(ctx, roomID, dr)
	if err != nil {
		return nil, err
	}
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	byID := make(map[domainbooking.BookingID]*domainbooking.Booking, len(committed))
	for _, b := range committed {
		byID[b.ID] = b
	}
	for id, b := range r.u.staged {
		if b.RoomID == roomID && b.Range.Touches(dr) {
			byID[id] = clone(b)
		} else {
			delete(byID, id)
		}
	}
	out := make([]*domainbooking.Booking, 0, len(byID))
	for _, b := range byID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r unitBookings) Save(_ context.Context, b *domainbooking.Booking) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.finished {
		return ErrUnitClosed
	}
	if r.u.readOnly {
		return ErrReadOnlyUnit
	}
	if _, ok := r.u.expected[b.ID]; !ok {
		r.u.expected[b.ID] = b.Version
	}
	b.Version++
	r.u.staged[b.ID] = clone(b)
	return nil
}

type unitOutbox struct{ u *Unit }

func (o unitOutbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	o.u.mu.Lock()
	defer o.u.mu.Unlock()
	if o.u.readOnly {
		return ErrReadOnlyUnit
	}
	o.u.records = append(o.u.records, record)
	return nil
}

var (
	_ uow.UoWFactory           = Factory{}
	_ uow.UnitOfWork           = (*Unit)(nil)
	_ domainbooking.Repository = unitBookings{}
)
