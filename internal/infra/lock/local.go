// Package lock implements the per-room mutual exclusion used by the booking
// write path.
package lock

import (
	"context"
	"sync"
	"time"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/shared/fault"
)

// Local serializes holders of the same key inside one process. Each key is a
// one-slot channel semaphore; idle keys are dropped.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Acquire(ctx context.Context, key string, timeout time.Duration) (policies.Release, error) {
	s := l.ref(key)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
	case <-timer.C:
		l.unref(key)
		return nil, &fault.LockTimeoutError{Key: key, Timeout: timeout}
	case <-ctx.Done():
		l.unref(key)
		return nil, &fault.LockTimeoutError{Key: key, Timeout: timeout, Err: ctx.Err()}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key)
		})
	}, nil
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

var _ policies.Locker = (*Local)(nil)
