package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

var defaultBackoff = []time.Duration{100 * time.Millisecond, time.Second, 5 * time.Second}

// Consumer runs a group session per topic set. A message whose handler keeps
// failing after Backoff is exhausted is left unmarked and the claim ends, so
// the group redelivers it from the last committed offset.
type Consumer struct {
	Backoff []time.Duration

	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = NewConfig("staydesk")
	}
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{Backoff: defaultBackoff, group: g, handler: handler, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger, backoff: c.Backoff}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
	backoff []time.Duration
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handle(sess.Context(), message); err != nil {
			return err
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

func (h consumerGroupHandler) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	err := h.handler.Handle(ctx, message)
	for attempt := 0; err != nil && attempt < len(h.backoff); attempt++ {
		if h.logger != nil {
			h.logger.WarnContext(ctx, "kafka message not handled, retrying", "topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "attempt", attempt+1, "error", err)
		}
		timer := time.NewTimer(h.backoff[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = h.handler.Handle(ctx, message)
	}
	if err != nil && h.logger != nil {
		h.logger.ErrorContext(ctx, "kafka message left for redelivery", "topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "error", err)
	}
	return err
}
