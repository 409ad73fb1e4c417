// Package cache stores point-in-time availability verdicts for the read path.
// Entries are advisory: the booking write path never reads them.
package cache

import (
	"context"
	"sync"
	"time"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/availability"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
)

const DefaultTTL = 30 * time.Second

type entry struct {
	res     availability.Result
	expires time.Time
}

// Memory is a per-process availability cache.
type Memory struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[inventory.RoomID]map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, items: make(map[inventory.RoomID]map[string]entry)}
}

func (m *Memory) Get(_ context.Context, roomID inventory.RoomID, dr daterange.DateRange) (availability.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[roomID][dr.String()]
	if !ok {
		return availability.Result{}, false, nil
	}
	if m.now().After(e.expires) {
		delete(m.items[roomID], dr.String())
		return availability.Result{}, false, nil
	}
	return e.res, true, nil
}

func (m *Memory) Put(_ context.Context, res availability.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.items[res.RoomID]
	if !ok {
		room = make(map[string]entry)
		m.items[res.RoomID] = room
	}
	room[res.Range.String()] = entry{res: res, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) InvalidateRoom(_ context.Context, roomID inventory.RoomID, dr daterange.DateRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.items[roomID]
	if !ok {
		return nil
	}
	if dr.CheckIn.IsZero() {
		delete(m.items, roomID)
		return nil
	}
	for key, e := range room {
		if e.res.Range.Touches(dr) {
			delete(room, key)
		}
	}
	return nil
}

var _ policies.AvailabilityCache = (*Memory)(nil)
