package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	appoutbox "staydesk/internal/app/outbox"
	"staydesk/internal/infra/outbox"
	"staydesk/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	fail bool
	sent []published
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func seed(t *testing.T, box *memory.Outbox, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := box.Add(context.Background(), appoutbox.EventRecord{
			ID:         id,
			Name:       "booking.requested",
			Payload:    []byte(`{"booking_id":"b-1"}`),
			OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Aggregate:  "b-1",
			Headers:    map[string]string{"x-request-id": "req-9", "traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	seed(t, box, "evt-1", "evt-2")
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, TopicPrefix: "dev."}

	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(producer.sent) != 2 || box.Pending() != 0 {
		t.Fatalf("sent = %d, pending = %d", len(producer.sent), box.Pending())
	}
	msg := producer.sent[0]
	if msg.topic != "dev.booking.events.v1" || msg.key != "b-1" {
		t.Fatalf("topic = %s, key = %s", msg.topic, msg.key)
	}
	if msg.headers["ce-id"] != "evt-1" || msg.headers["ce-type"] != "booking.requested.v1" || msg.headers["x-request-id"] != "req-9" {
		t.Fatalf("headers = %v", msg.headers)
	}
	var evt map[string]any
	if err := json.Unmarshal(msg.payload, &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt["id"] != "evt-1" || evt["source"] != "app://staydesk" || evt["subject"] != "b-1" || evt["traceparent"] == nil {
		t.Fatalf("cloud event = %v", evt)
	}
	data, _ := evt["data"].(map[string]any)
	if data["booking_id"] != "b-1" {
		t.Fatalf("data = %v", evt["data"])
	}
}

func TestDrainBacksOffOnPublishFailure(t *testing.T) {
	box := memory.NewOutbox()
	seed(t, box, "evt-1")
	producer := &fakeProducer{fail: true}
	w := &outbox.Worker{Store: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if box.Pending() != 1 {
		t.Fatalf("failed record must stay pending")
	}

	producer.fail = false
	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(producer.sent) != 0 {
		t.Fatalf("record was retried before its backoff elapsed")
	}
}

func TestRunRequiresDependencies(t *testing.T) {
	w := &outbox.Worker{}
	if err := w.Run(context.Background()); !errors.Is(err, outbox.ErrWorkerNotConfigured) {
		t.Fatalf("expected ErrWorkerNotConfigured, got %v", err)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	box := memory.NewOutbox()
	seed(t, box, "evt-1")
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run: %v", err)
	}
	if box.Pending() != 0 {
		t.Fatalf("record not relayed while running")
	}
}
