// Package kafka implements events.Publisher on top of a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"partnerledger/internal/events"
)

var _ events.Publisher = (*Publisher)(nil)

// Publisher writes JSON-encoded events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a Publisher targeting the given brokers.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    events.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish serializes the event and writes it to the topic. The topic
// argument keys the message so consumers can partition by event type.
func (p *Publisher) Publish(topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(
		context.Background(),
		kafka.Message{
			Key:   []byte(topic),
			Value: data,
		},
	)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
