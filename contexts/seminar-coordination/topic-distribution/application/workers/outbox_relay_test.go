package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/adapters/memory"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) AfterFunc(time.Duration, func()) ports.TimerHandle { return noopTimer{} }

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

type recordingPublisher struct {
	published []ports.EventEnvelope
	failType  string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failType != "" && topic == p.failType {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func appendEvent(t *testing.T, store *memory.Store, id, eventType string, occurredAt time.Time) {
	t.Helper()
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:    id,
		EventType:  eventType,
		OccurredAt: occurredAt,
	})
	if err != nil {
		t.Fatalf("append outbox: %v", err)
	}
}

func TestRunOncePublishesAndAcksInOrder(t *testing.T) {
	now := time.Date(2026, time.May, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: fixedClock{now: now}}

	appendEvent(t, store, "ev-1", "seminar.distribution.claim_confirmed", now)
	appendEvent(t, store, "ev-2", "seminar.distribution.topics_snapshot_updated", now)

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.published))
	}
	if publisher.published[0].EventID != "ev-1" || publisher.published[1].EventID != "ev-2" {
		t.Fatalf("expected append order preserved, got %+v", publisher.published)
	}

	// Acked rows do not come back on the next cycle.
	publisher.published = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run once: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected empty cycle, got %d events", len(publisher.published))
	}
}

func TestRunOnceStopsOnPublishFailureAndRetries(t *testing.T) {
	now := time.Date(2026, time.May, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	publisher := &recordingPublisher{failType: "seminar.distribution.topics_snapshot_updated"}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: fixedClock{now: now}}

	appendEvent(t, store, "ev-1", "seminar.distribution.claim_confirmed", now)
	appendEvent(t, store, "ev-2", "seminar.distribution.topics_snapshot_updated", now)
	appendEvent(t, store, "ev-3", "seminar.distribution.reminder_due", now)

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatal("expected publish failure to surface")
	}
	if len(publisher.published) != 1 || publisher.published[0].EventID != "ev-1" {
		t.Fatalf("expected only the row before the failure published, got %+v", publisher.published)
	}

	// Once the broker recovers, the failed row and everything after it are
	// reprocessed; the acked row is not.
	publisher.failType = ""
	publisher.published = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry run once: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 retried events, got %d", len(publisher.published))
	}
	if publisher.published[0].EventID != "ev-2" || publisher.published[1].EventID != "ev-3" {
		t.Fatalf("expected ev-2 then ev-3, got %+v", publisher.published)
	}
}
