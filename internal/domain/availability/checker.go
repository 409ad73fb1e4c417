// Package availability decides whether a room is free for a stay.
package availability

import (
	"sort"
	"time"

	"staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/fault"
)

const DefaultPendingExpiry = 60 * time.Minute

// Result is the availability verdict. Reason is empty when Available.
type Result struct {
	RoomID    inventory.RoomID     `json:"room_id"`
	Range     daterange.DateRange  `json:"range"`
	Available bool                 `json:"available"`
	Reason    fault.ConflictReason `json:"reason,omitempty"`
	Conflicts []string             `json:"conflicts,omitempty"`
}

// Err converts a negative verdict into a ConflictError.
func (r Result) Err() error {
	if r.Available {
		return nil
	}
	return &fault.ConflictError{Reason: r.Reason, RoomID: string(r.RoomID), Conflicts: r.Conflicts}
}

type Checker struct {
	PendingExpiry time.Duration
	// ForbidSameDayTurnover makes a checkout day unavailable for a new check-in.
	ForbidSameDayTurnover bool
	Now                   func() time.Time
}

func NewChecker(pendingExpiry time.Duration, forbidSameDayTurnover bool, now func() time.Time) Checker {
	if pendingExpiry <= 0 {
		pendingExpiry = DefaultPendingExpiry
	}
	if now == nil {
		now = time.Now
	}
	return Checker{PendingExpiry: pendingExpiry, ForbidSameDayTurnover: forbidSameDayTurnover, Now: now}
}

// IsAvailable checks dr against the room's existing bookings. exclude names a
// booking to ignore, e.g. the one being edited or confirmed.
func (c Checker) IsAvailable(room inventory.Room, dr daterange.DateRange, bookings []*booking.Booking, exclude booking.BookingID) Result {
	res := Result{RoomID: room.ID, Range: dr, Available: true}
	if !room.Bookable() {
		res.Available = false
		res.Reason = fault.ReasonRoomMaintenance
		return res
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	expiry := c.PendingExpiry
	if expiry <= 0 {
		expiry = DefaultPendingExpiry
	}
	for _, b := range bookings {
		if b == nil || b.RoomID != room.ID {
			continue
		}
		if exclude != "" && b.ID == exclude {
			continue
		}
		if !b.Occupies(now, expiry) {
			continue
		}
		if c.conflicts(dr, b.Range) {
			res.Conflicts = append(res.Conflicts, string(b.ID))
		}
	}
	if len(res.Conflicts) > 0 {
		sort.Strings(res.Conflicts)
		res.Available = false
		res.Reason = fault.ReasonDatesUnavailable
	}
	return res
}

func (c Checker) conflicts(a, b daterange.DateRange) bool {
	if a.Overlaps(b) {
		return true
	}
	return c.ForbidSameDayTurnover && a.Adjacent(b)
}
