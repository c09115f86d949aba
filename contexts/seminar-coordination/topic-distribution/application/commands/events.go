package commands

import (
	"encoding/json"
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

// Event types emitted by the distribution engine. Each payload carries enough
// structured data for the collaborator to render a message without
// re-querying the engine.
const (
	EventTypeSubjectCreated        = "seminar.distribution.subject_created"
	EventTypeTopicsLoaded          = "seminar.distribution.topics_loaded"
	EventTypeStartTimeSet          = "seminar.distribution.start_time_set"
	EventTypeDistributionStarted   = "seminar.distribution.started"
	EventTypeReminderDue           = "seminar.distribution.reminder_due"
	EventTypeClaimConfirmed        = "seminar.distribution.claim_confirmed"
	EventTypeClaimRejected         = "seminar.distribution.claim_rejected"
	EventTypeClaimAmbiguous        = "seminar.distribution.claim_ambiguous"
	EventTypeRegistrationCancelled = "seminar.distribution.registration_cancelled"
	EventTypeParticipantRemoved    = "seminar.distribution.participant_removed"
	EventTypeTopicsSnapshot        = "seminar.distribution.topics_snapshot_updated"
)

func newDistributionEnvelope(
	eventID string,
	eventType string,
	subject string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Engine events are partitioned by subject so subject-scoped consumers
	// observe them in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "topic-distribution",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "subject",
		PartitionKey:     subject,
		Data:             payload,
	}, nil
}

func snapshotData(snapshot entities.SubjectSnapshot) map[string]any {
	topics := make([]map[string]any, 0, len(snapshot.Topics))
	for _, status := range snapshot.Topics {
		row := map[string]any{
			"number":  status.Number,
			"title":   status.Title,
			"claimed": status.Claimed,
		}
		if status.Claimed {
			row["claimant_id"] = status.ClaimantID
			row["display_name"] = status.DisplayName
			row["claimed_at"] = status.ClaimedAt.UTC()
		}
		topics = append(topics, row)
	}
	data := map[string]any{
		"subject": snapshot.Name,
		"topics":  topics,
		"open":    snapshot.Open,
	}
	if snapshot.StartTime != nil {
		data["start_time"] = snapshot.StartTime.UTC()
	}
	if countdown := snapshot.Countdown(); countdown != "" {
		data["opens_in"] = countdown
	}
	return data
}

func registrationData(reg entities.Registration, title string) map[string]any {
	return map[string]any{
		"subject":      reg.SubjectName,
		"topic_number": reg.TopicNumber,
		"topic_title":  title,
		"claimant_id":  reg.ClaimantID,
		"display_name": reg.DisplayName,
		"claimed_at":   reg.ClaimedAt.UTC(),
	}
}
