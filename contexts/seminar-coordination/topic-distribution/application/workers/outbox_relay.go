package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "topicdesk/contexts/seminar-coordination/topic-distribution/application"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

// OutboxRelay delivers appended engine events to the collaborator-facing
// publisher. It marks a row published only after publish succeeds and stops
// on the first failure so the next cycle reprocesses the remainder; the
// engine itself never retries.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list failed",
			"event", "distribution_outbox_list_failed",
			"module", "seminar-coordination/topic-distribution",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := r.Clock.Now()
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("outbox decode failed",
				"event", "distribution_outbox_decode_failed",
				"module", "seminar-coordination/topic-distribution",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("outbox publish failed",
				"event", "distribution_outbox_publish_failed",
				"module", "seminar-coordination/topic-distribution",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("outbox mark published failed",
				"event", "distribution_outbox_mark_published_failed",
				"module", "seminar-coordination/topic-distribution",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Debug("outbox relay cycle completed",
		"event", "distribution_outbox_relay_completed",
		"module", "seminar-coordination/topic-distribution",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}
