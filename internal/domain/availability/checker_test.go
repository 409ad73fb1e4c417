package availability

import (
	"testing"
	"time"

	"staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/fault"
)

var (
	clock = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	room  = inventory.Room{ID: "101", TypeID: "std", Status: inventory.RoomAvailable}
)

func checker() Checker {
	return NewChecker(time.Hour, false, func() time.Time { return clock })
}

func mustRange(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(in, out)
	if err != nil {
		t.Fatalf("range %s-%s: %v", in, out, err)
	}
	return dr
}

func existing(id string, dr daterange.DateRange, status booking.Status, created time.Time) *booking.Booking {
	return &booking.Booking{ID: booking.BookingID(id), RoomID: room.ID, Range: dr, Status: status, CreatedAt: created}
}

func TestSameDayTurnoverIsAllowed(t *testing.T) {
	held := existing("a", mustRange(t, "2024-05-07", "2024-05-10"), booking.StatusConfirmed, clock)
	res := checker().IsAvailable(room, mustRange(t, "2024-05-10", "2024-05-12"), []*booking.Booking{held}, "")
	if !res.Available {
		t.Fatalf("expected available, got %+v", res)
	}
}

func TestSameDayTurnoverCanBeForbidden(t *testing.T) {
	c := checker()
	c.ForbidSameDayTurnover = true
	held := existing("a", mustRange(t, "2024-05-07", "2024-05-10"), booking.StatusConfirmed, clock)
	res := c.IsAvailable(room, mustRange(t, "2024-05-10", "2024-05-12"), []*booking.Booking{held}, "")
	if res.Available {
		t.Fatalf("expected conflict when turnover is forbidden")
	}
}

// Every pair of ranges drawn from a small window is checked against the
// interval rule: disjoint or touching ranges never conflict, ranges sharing a
// night always do.
func TestOverlapRuleExhaustive(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ranges []daterange.DateRange
	for in := 0; in < 8; in++ {
		for out := in + 1; out <= 8; out++ {
			ranges = append(ranges, daterange.DateRange{CheckIn: base.AddDate(0, 0, in), CheckOut: base.AddDate(0, 0, out)})
		}
	}
	c := checker()
	for _, a := range ranges {
		for _, b := range ranges {
			held := existing("held", b, booking.StatusConfirmed, clock)
			res := c.IsAvailable(room, a, []*booking.Booking{held}, "")
			shareNight := false
			for _, na := range a.EachNight() {
				for _, nb := range b.EachNight() {
					if na.Equal(nb) {
						shareNight = true
					}
				}
			}
			if res.Available == shareNight {
				t.Fatalf("%s vs %s: available=%v shareNight=%v", a, b, res.Available, shareNight)
			}
		}
	}
}

func TestCancelledAndAbandonedDoNotBlock(t *testing.T) {
	dr := mustRange(t, "2024-05-07", "2024-05-10")
	bookings := []*booking.Booking{
		existing("cancelled", dr, booking.StatusCancelled, clock),
		existing("abandoned", dr, booking.StatusPending, clock.Add(-61*time.Minute)),
	}
	if res := checker().IsAvailable(room, dr, bookings, ""); !res.Available {
		t.Fatalf("expected available, got %+v", res)
	}

	fresh := existing("fresh", dr, booking.StatusPending, clock.Add(-59*time.Minute))
	res := checker().IsAvailable(room, dr, append(bookings, fresh), "")
	if res.Available || res.Reason != fault.ReasonDatesUnavailable {
		t.Fatalf("fresh pending booking must block, got %+v", res)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0] != "fresh" {
		t.Fatalf("conflicts = %v", res.Conflicts)
	}
}

func TestExcludeBooking(t *testing.T) {
	dr := mustRange(t, "2024-05-07", "2024-05-10")
	held := existing("self", dr, booking.StatusConfirmed, clock)
	if res := checker().IsAvailable(room, dr, []*booking.Booking{held}, "self"); !res.Available {
		t.Fatalf("excluded booking must be ignored")
	}
}

func TestMaintenanceRoom(t *testing.T) {
	broken := room
	broken.Status = inventory.RoomMaintenance
	res := checker().IsAvailable(broken, mustRange(t, "2024-05-07", "2024-05-10"), nil, "")
	if res.Available || res.Reason != fault.ReasonRoomMaintenance {
		t.Fatalf("expected maintenance verdict, got %+v", res)
	}
	if fault.KindOf(res.Err()) != fault.KindConflict {
		t.Fatalf("expected conflict error")
	}
}

func TestOtherRoomsIgnored(t *testing.T) {
	dr := mustRange(t, "2024-05-07", "2024-05-10")
	other := existing("other", dr, booking.StatusConfirmed, clock)
	other.RoomID = "102"
	if res := checker().IsAvailable(room, dr, []*booking.Booking{other}, ""); !res.Available {
		t.Fatalf("booking of another room must not block")
	}
}
