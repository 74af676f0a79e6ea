package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nftclaim/internal/domain/distribution"
	"nftclaim/internal/kafka"
)

// Handler reacts to decoded distribution events.
type Handler interface {
	HandleEvent(ctx context.Context, event distribution.Event) error
}

// HandlerFunc makes ordinary functions usable as event handlers.
type HandlerFunc func(ctx context.Context, event distribution.Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event distribution.Event) error {
	return f(ctx, event)
}

// Decode wraps handler so it receives raw Kafka records. Records whose header
// names another event type are ignored. Payloads that cannot be decoded or
// recorded are dropped as permanent failures; other handler errors are
// retried.
func Decode(handler Handler, logger *zap.Logger) kafka.MessageHandler {
	return kafka.HandlerFunc(func(ctx context.Context, msg kafka.Message) error {
		if msg.EventType != "" && !knownEvent(msg.EventType) {
			logger.Debug("ignoring event", zap.String("event_type", msg.EventType))
			return nil
		}
		var event distribution.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return kafka.Permanent(fmt.Errorf("decoding event at offset %d: %w", msg.Offset, err))
		}
		if !knownEvent(event.Type) {
			return kafka.Permanent(fmt.Errorf("%w: type %q at offset %d", distribution.ErrUnsupportedEvent, event.Type, msg.Offset))
		}
		if err := handler.HandleEvent(ctx, event); err != nil {
			if errors.Is(err, distribution.ErrUnsupportedEvent) {
				return kafka.Permanent(err)
			}
			return err
		}
		return nil
	})
}

func knownEvent(eventType string) bool {
	return eventType == distribution.EventDistributorCreated || eventType == distribution.EventTokensClaimed
}

// Consumer wraps a low-level Kafka consumer and decodes distribution events.
type Consumer struct {
	consumer *kafka.Consumer
}

// NewConsumer wires the handler through the low-level consumer.
func NewConsumer(brokers []string, groupID, topic string, handler Handler, logger *zap.Logger, opts ...kafka.ConsumerOption) (*Consumer, error) {
	cons, err := kafka.NewConsumer(brokers, groupID, topic, Decode(handler, logger), logger, opts...)
	if err != nil {
		return nil, err
	}
	return &Consumer{consumer: cons}, nil
}

// Start begins consuming events.
func (c *Consumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close cleans up resources.
func (c *Consumer) Close() error {
	return c.consumer.Close()
}
