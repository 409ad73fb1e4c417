package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"staydesk/internal/domain/shared/events"
)

type sampleEvent struct {
	ID string `json:"id"`
	At time.Time
}

func (e sampleEvent) EventName() string     { return "booking.sample" }
func (e sampleEvent) AggregateID() string   { return e.ID }
func (e sampleEvent) OccurredAt() time.Time { return e.At }

type sliceOutbox struct{ records []EventRecord }

func (s *sliceOutbox) Add(_ context.Context, rec EventRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func TestRecordDomainEventsCopiesHeaders(t *testing.T) {
	box := &sliceOutbox{}
	ctx := ContextWithHeaders(context.Background(), map[string]string{"x-request-id": "req-1"})
	enc := JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := RecordDomainEvents(ctx, box, enc, []events.DomainEvent{sampleEvent{ID: "bk-1", At: at}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(box.records) != 1 {
		t.Fatalf("records = %d", len(box.records))
	}
	rec := box.records[0]
	if rec.ID != "evt-1" || rec.Name != "booking.sample" || rec.Aggregate != "bk-1" || !rec.OccurredAt.Equal(at) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Headers["x-request-id"] != "req-1" {
		t.Fatalf("headers = %v", rec.Headers)
	}
	var decoded map[string]any
	if err := json.Unmarshal(rec.Payload, &decoded); err != nil || decoded["id"] != "bk-1" {
		t.Fatalf("payload = %s (%v)", rec.Payload, err)
	}
}

func TestRecordDomainEventsNilOutbox(t *testing.T) {
	if err := RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{sampleEvent{}}); err != nil {
		t.Fatalf("nil outbox must be a no-op: %v", err)
	}
}
