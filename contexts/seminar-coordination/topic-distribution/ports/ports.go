package ports

import (
	"context"
	"encoding/json"
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
)

// SubjectRegistry owns subject existence, topic sets, and start-time gating.
type SubjectRegistry interface {
	CreateSubject(ctx context.Context, name string, now time.Time) (entities.Subject, error)
	// ReplaceTopics swaps the whole topic map. It fails with
	// ErrTopicSetFinalized once any registration exists for the subject.
	ReplaceTopics(ctx context.Context, name string, topics map[int]string) (entities.Subject, error)
	SetStartTime(ctx context.Context, name string, startAt time.Time) (entities.Subject, error)
	GetSubject(ctx context.Context, name string) (entities.Subject, error)
	GetSnapshot(ctx context.Context, name string, now time.Time) (entities.SubjectSnapshot, error)
	ListSubjects(ctx context.Context) ([]entities.SubjectSummary, error)
	ListOpenSubjects(ctx context.Context, now time.Time) ([]string, error)
}

// RegistrationLedger arbitrates claims. Claim is a single atomic
// check-and-insert: under concurrent attempts on one (subject, topic number)
// exactly one caller wins and the rest get ErrTopicAlreadyClaimed.
type RegistrationLedger interface {
	// Claim checks, in order: subject exists, topic exists, distribution is
	// open at now, topic unclaimed; then inserts the registration stamped
	// with now.
	Claim(ctx context.Context, subject string, topicNumber int, claimantID, displayName string, now time.Time) (entities.Registration, error)
	RemoveRegistration(ctx context.Context, subject string, topicNumber int) (entities.Registration, error)
	ListRegistrations(ctx context.Context, subject string) ([]entities.Registration, error)
}

// PendingClaim parks a claim that could not be auto-resolved to a single open
// subject. The collaborator replays the token together with the chosen
// subject on the next input.
type PendingClaim struct {
	Token       string
	TopicNumber int
	ClaimantID  string
	DisplayName string
	ExpiresAt   time.Time
}

type PendingClaimStore interface {
	PutPending(ctx context.Context, claim PendingClaim) error
	// TakePending removes and returns the pending claim, treating an expired
	// record as absent.
	TakePending(ctx context.Context, token string, now time.Time) (PendingClaim, bool, error)
}

// Clock abstracts wall time so scheduled delays are testable without
// sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) TimerHandle
}

// TimerHandle is the cancellation handle of an armed one-shot timer.
type TimerHandle interface {
	// Stop reports whether it prevented the callback from running.
	Stop() bool
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope is the canonical event shape this context emits. Data carries
// enough structured payload for the collaborator to render a message without
// re-querying the engine.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	OutboxWriter
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher hands a published envelope to the delivery layer (the
// in-process bus in the default wiring).
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
