package queries

import (
	"context"
	"strings"

	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

// UseCase serves the read side: listings, snapshots, and results reporting.
type UseCase struct {
	Subjects ports.SubjectRegistry
	Ledger   ports.RegistrationLedger
	Clock    ports.Clock
}

func (uc UseCase) ListSubjects(ctx context.Context) ([]entities.SubjectSummary, error) {
	return uc.Subjects.ListSubjects(ctx)
}

func (uc UseCase) OpenSubjects(ctx context.Context) ([]string, error) {
	return uc.Subjects.ListOpenSubjects(ctx, uc.Clock.Now())
}

// Snapshot renders one subject's topics in ascending number order with the
// gating state evaluated against the current clock.
func (uc UseCase) Snapshot(ctx context.Context, subject string) (entities.SubjectSnapshot, error) {
	return uc.Subjects.GetSnapshot(ctx, strings.TrimSpace(subject), uc.Clock.Now())
}

// Results lists a subject's registrations ordered by claim time ascending
// (insertion order breaks timestamp ties), joined with topic titles.
func (uc UseCase) Results(ctx context.Context, subject string) ([]entities.Registration, map[int]string, error) {
	name := strings.TrimSpace(subject)
	regs, err := uc.Ledger.ListRegistrations(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	current, err := uc.Subjects.GetSubject(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	titles := make(map[int]string, len(regs))
	for _, reg := range regs {
		titles[reg.TopicNumber] = current.Topics[reg.TopicNumber]
	}
	return regs, titles, nil
}
