package kafka

import (
	"errors"

	"github.com/IBM/sarama"
)

// HeaderEventType names the record header carrying the event type.
const HeaderEventType = "event_type"

// Message is one record as seen by producers and handlers.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       string
	EventType string
	Value     []byte
}

func fromConsumerMessage(msg *sarama.ConsumerMessage) Message {
	m := Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       string(msg.Key),
		Value:     msg.Value,
	}
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == HeaderEventType {
			m.EventType = string(h.Value)
		}
	}
	return m
}

func (m Message) toProducerMessage(topic string) *sarama.ProducerMessage {
	out := &sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(m.Value)}
	if m.Key != "" {
		out.Key = sarama.StringEncoder(m.Key)
	}
	if m.EventType != "" {
		out.Headers = []sarama.RecordHeader{{Key: []byte(HeaderEventType), Value: []byte(m.EventType)}}
	}
	return out
}

var errRetryLater = errors.New("kafka: message left for redelivery")

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The message is committed and
// consumption moves on.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
