package timers

import (
	"log/slog"
	"sync"
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

// Key identifies the single live timer a subject may hold per kind.
type Key struct {
	Subject string
	Kind    entities.TimerKind
}

type armed struct {
	handle ports.TimerHandle
	gen    uint64
	fireAt time.Time
}

// Service owns the one-shot timers of the distribution engine. Schedule on an
// already-armed key cancels and replaces the previous timer; a superseded
// callback that fires anyway recognizes the stale generation and becomes a
// no-op. A callback panic is contained and the timer counts as fired.
type Service struct {
	Clock  ports.Clock
	Logger *slog.Logger

	mu     sync.Mutex
	gen    uint64
	timers map[Key]armed
}

func NewService(clock ports.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Clock:  clock,
		Logger: logger,
		timers: make(map[Key]armed),
	}
}

// Schedule arms a one-shot timer for fireAt. When fireAt is not in the
// future the callback runs synchronously; callers that must never fire late
// (the reminder) skip scheduling instead.
func (s *Service) Schedule(key Key, fireAt time.Time, fn func(firedAt time.Time)) {
	s.mu.Lock()
	if prev, ok := s.timers[key]; ok {
		prev.handle.Stop()
		delete(s.timers, key)
	}
	s.gen++
	gen := s.gen

	now := s.Clock.Now()
	if !fireAt.After(now) {
		s.mu.Unlock()
		s.Logger.Info("timer fired immediately",
			"event", "distribution_timer_fired_immediately",
			"module", "seminar-coordination/topic-distribution",
			"layer", "timers",
			"subject", key.Subject,
			"kind", string(key.Kind),
		)
		s.run(key, fn, now)
		return
	}

	handle := s.Clock.AfterFunc(fireAt.Sub(now), func() {
		s.mu.Lock()
		current, ok := s.timers[key]
		if !ok || current.gen != gen {
			s.mu.Unlock()
			s.Logger.Debug("stale timer callback suppressed",
				"event", "distribution_timer_stale_suppressed",
				"module", "seminar-coordination/topic-distribution",
				"layer", "timers",
				"subject", key.Subject,
				"kind", string(key.Kind),
			)
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		s.run(key, fn, s.Clock.Now())
	})
	s.timers[key] = armed{handle: handle, gen: gen, fireAt: fireAt}
	s.mu.Unlock()

	s.Logger.Info("timer armed",
		"event", "distribution_timer_armed",
		"module", "seminar-coordination/topic-distribution",
		"layer", "timers",
		"subject", key.Subject,
		"kind", string(key.Kind),
		"fire_at", fireAt,
	)
}

// Cancel stops a pending timer if present; cancelling an unarmed key is a
// no-op.
func (s *Service) Cancel(key Key) {
	s.mu.Lock()
	prev, ok := s.timers[key]
	if ok {
		prev.handle.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()
	if ok {
		s.Logger.Info("timer cancelled",
			"event", "distribution_timer_cancelled",
			"module", "seminar-coordination/topic-distribution",
			"layer", "timers",
			"subject", key.Subject,
			"kind", string(key.Kind),
		)
	}
}

// Pending reports whether a timer is armed for the key.
func (s *Service) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

func (s *Service) run(key Key, fn func(firedAt time.Time), firedAt time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("timer callback panicked",
				"event", "distribution_timer_callback_panicked",
				"module", "seminar-coordination/topic-distribution",
				"layer", "timers",
				"subject", key.Subject,
				"kind", string(key.Kind),
				"panic", r,
			)
		}
	}()
	fn(firedAt)
}
