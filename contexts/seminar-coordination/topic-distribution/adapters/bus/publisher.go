package busadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
	"topicdesk/internal/platform/bus"
)

// Publisher delivers engine events onto the in-process bus the collaborator
// subscribes to.
type Publisher struct {
	Bus    *bus.Bus
	Logger *slog.Logger
}

func NewPublisher(b *bus.Bus, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return Publisher{Bus: b, Logger: logger}
}

func (p Publisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	delivered := p.Bus.Publish(bus.Message{Topic: topic, Payload: payload})
	p.Logger.Debug("event published",
		"event", "distribution_event_published",
		"module", "seminar-coordination/topic-distribution",
		"layer", "adapter",
		"event_type", topic,
		"subscribers", delivered,
	)
	return nil
}
