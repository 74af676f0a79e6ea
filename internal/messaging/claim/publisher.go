package claim

import (
	"context"
	"encoding/json"

	"nftclaim/internal/domain/distribution"
	"nftclaim/internal/kafka"
)

// Sender delivers one record; *kafka.Producer satisfies it.
type Sender interface {
	Send(ctx context.Context, msg kafka.Message) error
}

// Publisher converts distribution events into Kafka messages.
type Publisher struct {
	producer Sender
}

// NewPublisher constructs a Publisher.
func NewPublisher(producer Sender) *Publisher {
	return &Publisher{producer: producer}
}

// Publish pushes an event onto Kafka keyed by its distributor.
func (p *Publisher) Publish(ctx context.Context, event distribution.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.producer.Send(ctx, kafka.Message{
		Key:       event.Distributor.String(),
		EventType: event.Type,
		Value:     payload,
	})
}
