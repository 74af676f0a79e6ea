package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"nftclaim/internal/observability/metrics"
)

// MessageHandler reacts to consumed records. Errors wrapped with Permanent
// are logged and committed; any other error is retried.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

// HandlerFunc allows using functions as MessageHandler.
type HandlerFunc func(ctx context.Context, msg Message) error

// HandleMessage satisfies MessageHandler.
func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithRetry sets how often a failing record is retried within one session
// and the pause between attempts.
func WithRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.backoff = backoff
	}
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	group    sarama.ConsumerGroup
	topic    string
	handler  MessageHandler
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
}

// NewConsumer joins groupID on topic. New groups start from the oldest
// offset so no event published before the first deploy is lost.
func NewConsumer(brokers []string, groupID, topic string, handler MessageHandler, logger *zap.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_5_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	group, err := sarama.NewConsumerGroup(cleanBrokers(brokers), groupID, cfg)
	if err != nil {
		return nil, err
	}
	return newConsumer(group, topic, handler, logger, opts...), nil
}

func newConsumer(group sarama.ConsumerGroup, topic string, handler MessageHandler, logger *zap.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		group:    group,
		topic:    topic,
		handler:  handler,
		logger:   logger,
		attempts: 3,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes until ctx is canceled. A record that keeps failing ends the
// session uncommitted, so it is delivered again after the rejoin.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{consumer: c, ctx: ctx}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

// handle runs the handler with retries and reports whether the record may be
// committed.
func (c *Consumer) handle(ctx context.Context, msg Message) bool {
	start := time.Now()
	defer func() { metrics.ObserveKafkaOperation("consumer_message", time.Since(start)) }()

	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = c.handler.HandleMessage(ctx, msg); err == nil {
			return true
		}
		fields := []zap.Field{
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if IsPermanent(err) {
			c.logger.Warn("dropping message", fields...)
			return true
		}
		c.logger.Error("handler error", fields...)
		if attempt < c.attempts && !sleep(ctx, c.backoff) {
			return false
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type groupHandler struct {
	consumer *Consumer
	ctx      context.Context
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (*groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case raw, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			msg := fromConsumerMessage(raw)
			if !h.consumer.handle(h.ctx, msg) {
				return errRetryLater
			}
			session.MarkMessage(raw, "")
		}
	}
}
