package policies

import (
	"context"
	"time"
)

// Release gives the lock back. Calling it more than once is safe.
type Release func()

// Locker is a named mutual-exclusion service. Acquire fails with
// *fault.LockTimeoutError once timeout elapses without getting the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (Release, error)
}

func RoomLockKey(roomID string) string {
	return "room:" + roomID
}
