package outbox

import (
	"context"
	"time"
)

// Pending is an outbox record claimed for delivery.
type Pending struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Source is a durable outbox the worker drains. Claim returns nil, nil when
// nothing is due.
type Source interface {
	Claim(ctx context.Context, workerID string) (*Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
