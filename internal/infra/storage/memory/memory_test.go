package memory

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appoutbox "staydesk/internal/app/outbox"
	"staydesk/internal/app/uow"
	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
)

func newBooking(t *testing.T, id, room, in, out string) *domainbooking.Booking {
	t.Helper()
	dr, err := daterange.Parse(in, out)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		Token:     "tok-" + id,
		RoomID:    inventory.RoomID(room),
		Range:     dr,
		Adults:    1,
		Guest:     domainbooking.Guest{Name: "Guest", Email: "guest@example.com"},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	return b
}

func TestUnitCommitAppliesBookingAndOutboxTogether(t *testing.T) {
	store, box := NewBookingStore(), NewOutbox()
	factory := Factory{Bookings: store, Outbox: box}
	ctx := context.Background()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	b := newBooking(t, "b-1", "101", "2026-03-10", "2026-03-12")
	if err := unit.Bookings().Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.requested"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if store.Len() != 0 || box.Pending() != 0 {
		t.Fatalf("writes must stay staged until commit")
	}
	staged, err := unit.Bookings().ByID(ctx, "b-1")
	if err != nil || staged.ID != "b-1" {
		t.Fatalf("unit must read its own writes: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if store.Len() != 1 || box.Pending() != 1 {
		t.Fatalf("after commit: bookings=%d outbox=%d", store.Len(), box.Pending())
	}
	if err := unit.Commit(ctx); !errors.Is(err, ErrUnitClosed) {
		t.Fatalf("second commit: %v", err)
	}
}

func TestUnitCommitIsAllOrNothing(t *testing.T) {
	store, box := NewBookingStore(), NewOutbox()
	factory := Factory{Bookings: store, Outbox: box}
	ctx := context.Background()

	unit, _ := factory.Begin(ctx, uow.TxOptions{})
	_ = unit.Bookings().Save(ctx, newBooking(t, "b-1", "101", "2026-03-10", "2026-03-12"))
	_ = unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.requested"})
	_ = unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.requested"})
	if err := unit.Commit(ctx); !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("commit with broken outbox batch: %v", err)
	}
	if store.Len() != 0 || box.Pending() != 0 {
		t.Fatalf("partial commit: bookings=%d outbox=%d", store.Len(), box.Pending())
	}

	if err := store.Save(ctx, newBooking(t, "b-2", "101", "2026-04-10", "2026-04-12")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stale, _ := factory.Begin(ctx, uow.TxOptions{})
	_ = stale.Bookings().Save(ctx, newBooking(t, "b-2", "101", "2026-04-10", "2026-04-12"))
	_ = stale.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-2", Name: "booking.requested"})
	if err := stale.Commit(ctx); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("stale commit: %v", err)
	}
	if box.Pending() != 0 {
		t.Fatalf("events published for a rejected booking: %d", box.Pending())
	}
}

func TestUnitRollbackDiscardsEverything(t *testing.T) {
	store, box := NewBookingStore(), NewOutbox()
	factory := Factory{Bookings: store, Outbox: box}
	ctx := context.Background()

	unit, _ := factory.Begin(ctx, uow.TxOptions{})
	_ = unit.Bookings().Save(ctx, newBooking(t, "b-1", "101", "2026-03-10", "2026-03-12"))
	_ = unit.Outbox().Add(ctx, appoutbox.EventRecord{ID: "evt-1"})
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if store.Len() != 0 || len(box.Records()) != 0 {
		t.Fatalf("rollback leaked writes")
	}
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	factory := Factory{Bookings: NewBookingStore(), Outbox: NewOutbox()}
	unit, _ := factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	err := unit.Bookings().Save(context.Background(), newBooking(t, "b-1", "101", "2026-03-10", "2026-03-12"))
	if !errors.Is(err, ErrReadOnlyUnit) {
		t.Fatalf("expected ErrReadOnlyUnit, got %v", err)
	}
}

func TestConcurrentUpdateIsRejected(t *testing.T) {
	store := NewBookingStore()
	factory := Factory{Bookings: store, Outbox: NewOutbox()}
	ctx := context.Background()
	if err := store.Save(ctx, newBooking(t, "b-1", "101", "2026-03-10", "2026-03-12")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, _ := factory.Begin(ctx, uow.TxOptions{})
	second, _ := factory.Begin(ctx, uow.TxOptions{})
	a, _ := first.Bookings().ByID(ctx, "b-1")
	b, _ := second.Bookings().ByID(ctx, "b-1")
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_ = a.Confirm(now)
	_ = b.Cancel("duplicate", now)
	_ = first.Bookings().Save(ctx, a)
	_ = second.Bookings().Save(ctx, b)

	if err := first.Commit(ctx); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := second.Commit(ctx); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
	got, _ := store.ByID(ctx, "b-1")
	if got.Status != domainbooking.StatusConfirmed {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestListByRoomIncludesTouchingStays(t *testing.T) {
	store := NewBookingStore()
	ctx := context.Background()
	for _, b := range []*domainbooking.Booking{
		newBooking(t, "before", "101", "2026-03-05", "2026-03-10"),
		newBooking(t, "inside", "101", "2026-03-11", "2026-03-12"),
		newBooking(t, "far", "101", "2026-04-01", "2026-04-03"),
		newBooking(t, "other-room", "102", "2026-03-10", "2026-03-12"),
	} {
		if err := store.Save(ctx, b); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	dr, _ := daterange.Parse("2026-03-10", "2026-03-13")
	got, err := store.ListByRoom(ctx, "101", dr)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bookings, want the touching and overlapping ones", len(got))
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewBookingStore()
	ctx := context.Background()
	_ = store.Save(ctx, newBooking(t, "b-1", "101", "2026-03-10", "2026-03-12"))
	b, _ := store.ByID(ctx, "b-1")
	b.Status = domainbooking.StatusCancelled
	again, _ := store.ByID(ctx, "b-1")
	if again.Status != domainbooking.StatusPending {
		t.Fatalf("mutating a read booking changed the store")
	}
	if _, err := store.ByToken(ctx, "tok-b-1"); err != nil {
		t.Fatalf("by token: %v", err)
	}
	if _, err := store.ByID(ctx, "missing"); !errors.Is(err, domainbooking.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestLoadCatalogFixture(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join("..", "..", "..", "..", "data", "catalog.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctx := context.Background()
	room, err := catalog.Room(ctx, "202")
	if err != nil || room.PriceOverride == nil || room.PriceOverride.StringFixed(2) != "119.00" {
		t.Fatalf("room 202: %+v, %v", room, err)
	}
	maint, _ := catalog.Room(ctx, "302")
	if maint.Bookable() {
		t.Fatalf("room 302 must be under maintenance")
	}
	familyRules, _ := catalog.Rules(ctx, "family")
	standardRules, _ := catalog.Rules(ctx, "standard")
	if len(familyRules) != len(standardRules)+1 {
		t.Fatalf("scoped rule must only apply to its room type: family=%d standard=%d", len(familyRules), len(standardRules))
	}
	extras, _ := catalog.Extras(ctx)
	if len(extras) != 5 {
		t.Fatalf("extras = %d", len(extras))
	}
	if _, err := catalog.RoomType(ctx, "penthouse"); !errors.Is(err, inventory.ErrRoomTypeNotFound) {
		t.Fatalf("expected ErrRoomTypeNotFound, got %v", err)
	}
}

func TestDecodeCatalogRejectsRoomTypeWithoutAdults(t *testing.T) {
	cases := []string{
		`{"room_types": [{"id": "dorm", "name": "Dorm", "base_price": "20.00", "max_children": 1}]}`,
		`{"room_types": [{"id": "dorm", "name": "Dorm", "base_price": "20.00", "max_adults": 2, "max_children": -1}]}`,
	}
	for _, doc := range cases {
		if _, err := DecodeCatalog(strings.NewReader(doc)); err == nil {
			t.Fatalf("expected capacity error for %s", doc)
		}
	}
}

func TestOutboxClaimHonoursRetrySchedule(t *testing.T) {
	box := NewOutbox()
	ctx := context.Background()
	_ = box.Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.requested"})

	rec, _ := box.Claim(ctx, "w")
	if rec == nil || rec.ID != "evt-1" {
		t.Fatalf("claim: %+v", rec)
	}
	if again, _ := box.Claim(ctx, "w"); again != nil {
		t.Fatalf("claimed record must not be handed out twice")
	}
	_ = box.MarkFailed(ctx, "evt-1", time.Now().Add(time.Hour), "broker down")
	if later, _ := box.Claim(ctx, "w"); later != nil {
		t.Fatalf("record must wait for its retry time")
	}
	_ = box.MarkFailed(ctx, "evt-1", time.Now().Add(-time.Second), "broker down")
	retry, _ := box.Claim(ctx, "w")
	if retry == nil || retry.Attempts != 2 {
		t.Fatalf("retry: %+v", retry)
	}
	_ = box.MarkSent(ctx, "evt-1")
	if box.Pending() != 0 {
		t.Fatalf("pending = %d", box.Pending())
	}
}
