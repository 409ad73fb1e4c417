package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
)

// Inbox deduplicates redelivered events per consumer. An event is marked only
// after it has been applied, so a failed delivery is applied again.
type Inbox interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// BookingEventsHandler drops cached availability on every instance when a
// booking event arrives, covering instances that did not perform the write.
type BookingEventsHandler struct {
	Inbox  Inbox
	Cache  policies.CacheInvalidator
	Logger *slog.Logger
}

type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type bookingEventData struct {
	BookingID string              `json:"booking_id"`
	RoomID    string              `json:"room_id"`
	Range     daterange.DateRange `json:"range"`
}

func (h *BookingEventsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil || evt.ID == "" {
		h.log(ctx, "dropping malformed booking event", "offset", msg.Offset, "error", err)
		return nil
	}
	if !strings.HasPrefix(evt.Type, "booking.") {
		return nil
	}
	var data bookingEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil || data.RoomID == "" {
		h.log(ctx, "dropping booking event without room", "event_id", evt.ID, "error", err)
		return nil
	}
	if h.Inbox != nil {
		done, err := h.Inbox.Processed(ctx, evt.ID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	if h.Cache != nil {
		if err := h.Cache.InvalidateRoom(ctx, inventory.RoomID(data.RoomID), data.Range); err != nil {
			return err
		}
	}
	if h.Inbox == nil {
		return nil
	}
	return h.Inbox.MarkProcessed(ctx, evt.ID)
}

func (h *BookingEventsHandler) log(ctx context.Context, msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.WarnContext(ctx, msg, args...)
	}
}

var _ MessageHandler = (*BookingEventsHandler)(nil)
