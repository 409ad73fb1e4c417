package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	appoutbox "staydesk/internal/app/outbox"
	infraoutbox "staydesk/internal/infra/outbox"
)

var (
	ErrRecordWithoutID = errors.New("memory: outbox record has no id")
	ErrDuplicateRecord = errors.New("memory: outbox record already exists")
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	sent      bool
	claimed   bool
	attempts  int
	nextRetry time.Time
	lastError string
}

// Outbox keeps event records in process until the relay worker claims them.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	return o.addAll([]appoutbox.EventRecord{record})
}

// addAll appends every record or none of them.
func (o *Outbox) addAll(records []appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return ErrRecordWithoutID
		}
		if _, dup := batch[rec.ID]; dup || o.find(rec.ID) != nil {
			return ErrDuplicateRecord
		}
		batch[rec.ID] = struct{}{}
	}
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{record: rec})
	}
	return nil
}

func (o *Outbox) Claim(_ context.Context, _ string) (*infraoutbox.Pending, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, e := range o.entries {
		if e.sent || e.claimed || now.Before(e.nextRetry) {
			continue
		}
		e.claimed = true
		return &infraoutbox.Pending{
			ID:         e.record.ID,
			Name:       e.record.Name,
			Payload:    e.record.Payload,
			OccurredAt: e.record.OccurredAt,
			Aggregate:  e.record.Aggregate,
			Headers:    e.record.Headers,
			Attempts:   e.attempts,
		}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.sent, e.claimed = true, false
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.claimed = false
		e.attempts++
		e.nextRetry = next
		e.lastError = errMsg
	}
	return nil
}

// Records returns every record ever added, in insertion order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

// Pending counts records not yet sent.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if !e.sent {
			n++
		}
	}
	return n
}

func (o *Outbox) find(id string) *outboxEntry {
	for _, e := range o.entries {
		if e.record.ID == id {
			return e
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox   = (*Outbox)(nil)
	_ infraoutbox.Source = (*Outbox)(nil)
)
