package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"nftclaim/internal/observability/metrics"
)

// Producer publishes records to one topic and waits for every in-sync replica.
type Producer struct {
	client sarama.SyncProducer
	topic  string
}

// NewProducer connects a synchronous producer. Records are partitioned by key
// so one distributor's events stay ordered.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_5_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	producer, err := sarama.NewSyncProducer(cleanBrokers(brokers), cfg)
	if err != nil {
		return nil, err
	}
	return NewProducerFromClient(producer, topic), nil
}

// NewProducerFromClient wraps an existing sarama producer.
func NewProducerFromClient(client sarama.SyncProducer, topic string) *Producer {
	return &Producer{client: client, topic: topic}
}

// Close shuts down the producer.
func (p *Producer) Close() error {
	return p.client.Close()
}

// Send publishes msg to the producer's topic; msg.Topic is ignored.
func (p *Producer) Send(_ context.Context, msg Message) error {
	start := time.Now()
	defer func() { metrics.ObserveKafkaOperation("producer_send", time.Since(start)) }()
	_, _, err := p.client.SendMessage(msg.toProducerMessage(p.topic))
	return err
}

func cleanBrokers(brokers []string) []string {
	cleaned := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
