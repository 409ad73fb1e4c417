package policies

import (
	"context"

	"staydesk/internal/domain/availability"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
)

// AvailabilityCache holds point-in-time availability verdicts for the read path.
type AvailabilityCache interface {
	Get(ctx context.Context, roomID inventory.RoomID, dr daterange.DateRange) (availability.Result, bool, error)
	Put(ctx context.Context, res availability.Result) error
	CacheInvalidator
}

// CacheInvalidator drops cached data for a room. A zero range drops everything
// cached for the room.
type CacheInvalidator interface {
	InvalidateRoom(ctx context.Context, roomID inventory.RoomID, dr daterange.DateRange) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, inventory.RoomID, daterange.DateRange) (availability.Result, bool, error) {
	return availability.Result{}, false, nil
}

func (NopCache) Put(context.Context, availability.Result) error { return nil }

func (NopCache) InvalidateRoom(context.Context, inventory.RoomID, daterange.DateRange) error {
	return nil
}
