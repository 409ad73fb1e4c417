package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	domainbooking "staydesk/internal/domain/booking"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
	"staydesk/internal/domain/shared/events"
)

var ErrConcurrentUpdate = errors.New("memory: concurrent update detected")

// BookingStore keeps committed bookings. Callers always receive copies.
type BookingStore struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (s *BookingStore) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return clone(b), nil
}

func (s *BookingStore) ByToken(_ context.Context, token string) (*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.items {
		if token != "" && b.Token == token {
			return clone(b), nil
		}
	}
	return nil, domainbooking.ErrBookingNotFound
}

func (s *BookingStore) ListByRoom(_ context.Context, roomID inventory.RoomID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range s.items {
		if b.RoomID == roomID && b.Range.Touches(dr) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save writes b directly, outside any unit of work.
func (s *BookingStore) Save(_ context.Context, b *domainbooking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersion(b.ID, b.Version); err != nil {
		return err
	}
	b.Version++
	s.items[b.ID] = clone(b)
	return nil
}

// apply commits staged bookings all-or-nothing. expected holds the version
// each booking was loaded at. publish runs after the version checks and before
// any booking is written; its error aborts the commit.
func (s *BookingStore) apply(staged []*domainbooking.Booking, expected map[domainbooking.BookingID]int64, publish func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range staged {
		if err := s.checkVersion(b.ID, expected[b.ID]); err != nil {
			return err
		}
	}
	if publish != nil {
		if err := publish(); err != nil {
			return err
		}
	}
	for _, b := range staged {
		s.items[b.ID] = clone(b)
	}
	return nil
}

func (s *BookingStore) checkVersion(id domainbooking.BookingID, version int64) error {
	current, ok := s.items[id]
	if !ok {
		if version != 0 {
			return ErrConcurrentUpdate
		}
		return nil
	}
	if current.Version != version {
		return ErrConcurrentUpdate
	}
	return nil
}

func (s *BookingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func clone(b *domainbooking.Booking) *domainbooking.Booking {
	cp := *b
	cp.EventRecorder = events.EventRecorder{}
	cp.ChildrenAges = append([]int(nil), b.ChildrenAges...)
	return &cp
}

var _ domainbooking.Repository = (*BookingStore)(nil)
