package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is the envelope written transactionally alongside the state
// change it describes. The worker publishes it later.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// EventPublisher is the outbound domain-event publish port.
// The application uses this abstraction to keep broker/client concerns in adapters.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
