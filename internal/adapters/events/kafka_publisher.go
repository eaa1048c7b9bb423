package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher delivers outbox events to the broker. Tip and profile
// events for the same profile share a partition key (the slug), and the
// hash balancer keeps them on one partition so consumers observe a
// profile's history in order.
type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if len(topicByEvent) == 0 {
		return nil, fmt.Errorf("kafka publisher requires an event-to-topic routing table")
	}
	for eventType, topic := range topicByEvent {
		if topic == "" {
			return nil, fmt.Errorf("kafka publisher: event type %q routes to an empty topic", eventType)
		}
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 10 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
		topicByEvent: topicByEvent,
	}, nil
}

// Publish refuses unmapped event types instead of inventing a topic: an
// unrouted event is a wiring bug, and the outbox row should dead-letter
// where an operator will see it.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic, ok := p.topicByEvent[eventType]
	if !ok {
		return fmt.Errorf("no topic mapped for event type %q", eventType)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
