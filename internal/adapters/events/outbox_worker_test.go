package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestProcessOncePublishesClaimedBatch(t *testing.T) {
	t.Parallel()
	outbox := newMemoryOutbox(
		ports.OutboxRecord{OutboxID: uuid.New(), EventType: "tip.confirmed", PartitionKey: "marios-pizza", Payload: []byte(`{}`)},
		ports.OutboxRecord{OutboxID: uuid.New(), EventType: "profile.created", PartitionKey: "ana-paints", Payload: []byte(`{}`)},
	)
	publisher := &recordingPublisher{}
	worker := NewOutboxWorker(discardLogger(), outbox, publisher, WorkerConfig{BatchSize: 10, MaxRetries: 3})

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once failed: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected both records published, got %d", len(publisher.published))
	}
	if publisher.published[0].partitionKey != "marios-pizza" {
		t.Fatalf("partition key must ride along, got %q", publisher.published[0].partitionKey)
	}
	if outbox.publishedCount() != 2 {
		t.Fatalf("published records must be marked, got %d", outbox.publishedCount())
	}

	// A second pass must find nothing left to claim.
	publisher.published = nil
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("published records must not be re-delivered")
	}
}

func TestProcessOnceRetriesThenDeadLetters(t *testing.T) {
	t.Parallel()
	record := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "tip.confirmed", Payload: []byte(`{}`)}
	outbox := newMemoryOutbox(record)
	publisher := &recordingPublisher{err: errors.New("broker down")}
	worker := NewOutboxWorker(discardLogger(), outbox, publisher, WorkerConfig{BatchSize: 10, MaxRetries: 3})

	for i := 0; i < 2; i++ {
		if err := worker.processOnce(context.Background()); err != nil {
			t.Fatalf("process once failed: %v", err)
		}
	}
	if outbox.retryCount(record.OutboxID) != 2 {
		t.Fatalf("expected two recorded failures, got %d", outbox.retryCount(record.OutboxID))
	}
	if outbox.deadLetteredCount() != 0 {
		t.Fatalf("record must not dead-letter before the threshold")
	}

	// Third failure reaches maxRetries and moves the record to the dlq.
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once failed: %v", err)
	}
	if outbox.deadLetteredCount() != 1 {
		t.Fatalf("expected the record dead-lettered, got %d", outbox.deadLetteredCount())
	}

	// Dead-lettered records leave the claimable set for good.
	publisher.err = nil
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once failed: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("dead-lettered records must never be published")
	}
}

type publishedEvent struct {
	eventType    string
	partitionKey string
}

type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	published []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedEvent{eventType: eventType, partitionKey: partitionKey})
	return nil
}

// memoryOutbox mimics the claim/ack lifecycle of the postgres repository.
type memoryOutbox struct {
	mu      sync.Mutex
	records []*ports.OutboxRecord
}

func newMemoryOutbox(records ...ports.OutboxRecord) *memoryOutbox {
	m := &memoryOutbox{}
	for i := range records {
		rec := records[i]
		m.records = append(m.records, &rec)
	}
	return m
}

func (m *memoryOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, &ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      event.Payload,
		CreatedAt:    event.OccurredAt,
	})
	return nil
}

func (m *memoryOutbox) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.OutboxRecord, 0)
	for _, rec := range m.records {
		if len(out) >= limit {
			break
		}
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		rec.ClaimToken = claimToken
		until := claimUntil
		rec.ClaimUntil = &until
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memoryOutbox) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.OutboxID == outboxID && rec.ClaimToken == claimToken {
			published := at
			rec.PublishedAt = &published
			return nil
		}
	}
	return errors.New("claim not held")
}

func (m *memoryOutbox) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken string, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.OutboxID == outboxID && rec.ClaimToken == claimToken {
			rec.RetryCount++
			rec.LastError = reason
			failedAt := at
			rec.LastErrorAt = &failedAt
			rec.ClaimUntil = nil
			return nil
		}
	}
	return errors.New("claim not held")
}

func (m *memoryOutbox) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken string, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.OutboxID == outboxID && rec.ClaimToken == claimToken {
			rec.LastError = reason
			deadAt := at
			rec.DeadLetteredAt = &deadAt
			return nil
		}
	}
	return errors.New("claim not held")
}

func (m *memoryOutbox) publishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.PublishedAt != nil {
			n++
		}
	}
	return n
}

func (m *memoryOutbox) deadLetteredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.DeadLetteredAt != nil {
			n++
		}
	}
	return n
}

func (m *memoryOutbox) retryCount(outboxID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.OutboxID == outboxID {
			return rec.RetryCount
		}
	}
	return -1
}
