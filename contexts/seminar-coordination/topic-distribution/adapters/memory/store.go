package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	domainerrors "topicdesk/contexts/seminar-coordination/topic-distribution/domain/errors"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// subjectState serializes every mutation of one subject — topic map, start
// time, registrations — through its own mutex. Cross-subject reads take each
// subject's lock only long enough to copy a snapshot.
type subjectState struct {
	mu        sync.Mutex
	name      string
	createdAt time.Time
	topics    map[int]string
	startAt   *time.Time
	regs      map[int]entities.Registration
}

// Store is the in-memory adapter behind the registry, ledger, pending-claim,
// and outbox ports.
type Store struct {
	mu       sync.RWMutex
	subjects map[string]*subjectState
	order    []string

	pendingMu sync.Mutex
	pending   map[string]ports.PendingClaim

	outboxMu sync.Mutex
	outbox   map[string]outboxRecord
	obOrder  []string

	seqMu sync.Mutex
	seq   uint64
}

func NewStore() *Store {
	return &Store{
		subjects: make(map[string]*subjectState),
		pending:  make(map[string]ports.PendingClaim),
		outbox:   make(map[string]outboxRecord),
	}
}

func (s *Store) subject(name string) (*subjectState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.subjects[name]
	return state, ok
}

func (s *Store) nextSeq() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}

func (s *Store) CreateSubject(_ context.Context, name string, now time.Time) (entities.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.Subject{}, domainerrors.ErrMalformedInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subjects[name]; exists {
		return entities.Subject{}, domainerrors.ErrDuplicateSubject
	}
	state := &subjectState{
		name:      name,
		createdAt: now,
		topics:    make(map[int]string),
		regs:      make(map[int]entities.Registration),
	}
	s.subjects[name] = state
	s.order = append(s.order, name)
	return entities.Subject{Name: name, Topics: map[int]string{}, CreatedAt: now}, nil
}

func (s *Store) ReplaceTopics(_ context.Context, name string, topics map[int]string) (entities.Subject, error) {
	if len(topics) == 0 {
		return entities.Subject{}, domainerrors.ErrEmptyTopicSet
	}
	state, ok := s.subject(strings.TrimSpace(name))
	if !ok {
		return entities.Subject{}, domainerrors.ErrUnknownSubject
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if len(state.regs) > 0 {
		return entities.Subject{}, domainerrors.ErrTopicSetFinalized
	}
	replacement := make(map[int]string, len(topics))
	for number, title := range topics {
		replacement[number] = title
	}
	state.topics = replacement
	return state.toEntityLocked(), nil
}

func (s *Store) SetStartTime(_ context.Context, name string, startAt time.Time) (entities.Subject, error) {
	state, ok := s.subject(strings.TrimSpace(name))
	if !ok {
		return entities.Subject{}, domainerrors.ErrUnknownSubject
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	at := startAt
	state.startAt = &at
	return state.toEntityLocked(), nil
}

func (s *Store) GetSubject(_ context.Context, name string) (entities.Subject, error) {
	state, ok := s.subject(strings.TrimSpace(name))
	if !ok {
		return entities.Subject{}, domainerrors.ErrUnknownSubject
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.toEntityLocked(), nil
}

func (s *Store) GetSnapshot(_ context.Context, name string, now time.Time) (entities.SubjectSnapshot, error) {
	state, ok := s.subject(strings.TrimSpace(name))
	if !ok {
		return entities.SubjectSnapshot{}, domainerrors.ErrUnknownSubject
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.snapshotLocked(now), nil
}

func (s *Store) ListSubjects(_ context.Context) ([]entities.SubjectSummary, error) {
	s.mu.RLock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	s.mu.RUnlock()

	summaries := make([]entities.SubjectSummary, 0, len(names))
	for _, name := range names {
		state, ok := s.subject(name)
		if !ok {
			continue
		}
		state.mu.Lock()
		summary := entities.SubjectSummary{
			Name:              state.name,
			TopicCount:        len(state.topics),
			RegistrationCount: len(state.regs),
		}
		if state.startAt != nil {
			at := *state.startAt
			summary.StartTime = &at
		}
		state.mu.Unlock()
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *Store) ListOpenSubjects(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	s.mu.RUnlock()

	open := make([]string, 0, len(names))
	for _, name := range names {
		state, ok := s.subject(name)
		if !ok {
			continue
		}
		state.mu.Lock()
		isOpen := len(state.topics) > 0 && (state.startAt == nil || !now.Before(*state.startAt))
		state.mu.Unlock()
		if isOpen {
			open = append(open, name)
		}
	}
	return open, nil
}

// Claim performs the atomic check-and-insert under the subject's lock, so
// exactly one of any set of concurrent claimants wins a topic. The failure
// checks run in the contract order: unknown subject, unknown topic, not
// open, already claimed.
func (s *Store) Claim(
	_ context.Context,
	subject string,
	topicNumber int,
	claimantID string,
	displayName string,
	now time.Time,
) (entities.Registration, error) {
	state, ok := s.subject(strings.TrimSpace(subject))
	if !ok {
		return entities.Registration{}, domainerrors.ErrUnknownSubject
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, exists := state.topics[topicNumber]; !exists {
		return entities.Registration{}, domainerrors.ErrUnknownTopic
	}
	if state.startAt != nil && now.Before(*state.startAt) {
		return entities.Registration{}, &domainerrors.NotOpenError{
			Subject:   state.name,
			StartTime: *state.startAt,
			Remaining: state.startAt.Sub(now),
		}
	}
	if _, taken := state.regs[topicNumber]; taken {
		return entities.Registration{}, domainerrors.ErrTopicAlreadyClaimed
	}

	reg := entities.Registration{
		SubjectName: state.name,
		TopicNumber: topicNumber,
		ClaimantID:  strings.TrimSpace(claimantID),
		DisplayName: strings.TrimSpace(displayName),
		ClaimedAt:   now,
		Seq:         s.nextSeq(),
	}
	state.regs[topicNumber] = reg
	return reg, nil
}

func (s *Store) RemoveRegistration(_ context.Context, subject string, topicNumber int) (entities.Registration, error) {
	state, ok := s.subject(strings.TrimSpace(subject))
	if !ok {
		return entities.Registration{}, domainerrors.ErrUnknownSubject
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	reg, exists := state.regs[topicNumber]
	if !exists {
		return entities.Registration{}, domainerrors.ErrNotRegistered
	}
	delete(state.regs, topicNumber)
	return reg, nil
}

func (s *Store) ListRegistrations(_ context.Context, subject string) ([]entities.Registration, error) {
	state, ok := s.subject(strings.TrimSpace(subject))
	if !ok {
		return nil, domainerrors.ErrUnknownSubject
	}
	state.mu.Lock()
	regs := make([]entities.Registration, 0, len(state.regs))
	for _, reg := range state.regs {
		regs = append(regs, reg)
	}
	state.mu.Unlock()

	sort.Slice(regs, func(i, j int) bool {
		if regs[i].ClaimedAt.Equal(regs[j].ClaimedAt) {
			return regs[i].Seq < regs[j].Seq
		}
		return regs[i].ClaimedAt.Before(regs[j].ClaimedAt)
	})
	return regs, nil
}

func (s *Store) PutPending(_ context.Context, claim ports.PendingClaim) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[strings.TrimSpace(claim.Token)] = claim
	return nil
}

func (s *Store) TakePending(_ context.Context, token string, now time.Time) (ports.PendingClaim, bool, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	claim, ok := s.pending[strings.TrimSpace(token)]
	if !ok {
		return ports.PendingClaim{}, false, nil
	}
	delete(s.pending, strings.TrimSpace(token))
	if !claim.ExpiresAt.IsZero() && !claim.ExpiresAt.After(now) {
		return ports.PendingClaim{}, false, nil
	}
	return claim, true, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	createdAt := envelope.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	s.obOrder = append(s.obOrder, outboxID)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	items := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.obOrder {
		row := s.outbox[id]
		if row.published {
			continue
		}
		items = append(items, row.message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrMalformedInput
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}

func (st *subjectState) toEntityLocked() entities.Subject {
	topics := make(map[int]string, len(st.topics))
	for number, title := range st.topics {
		topics[number] = title
	}
	subject := entities.Subject{
		Name:      st.name,
		Topics:    topics,
		CreatedAt: st.createdAt,
	}
	if st.startAt != nil {
		at := *st.startAt
		subject.StartTime = &at
	}
	return subject
}

func (st *subjectState) snapshotLocked(now time.Time) entities.SubjectSnapshot {
	numbers := make([]int, 0, len(st.topics))
	for number := range st.topics {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	statuses := make([]entities.TopicStatus, 0, len(numbers))
	for _, number := range numbers {
		status := entities.TopicStatus{Number: number, Title: st.topics[number]}
		if reg, taken := st.regs[number]; taken {
			status.Claimed = true
			status.ClaimantID = reg.ClaimantID
			status.DisplayName = reg.DisplayName
			status.ClaimedAt = reg.ClaimedAt
		}
		statuses = append(statuses, status)
	}

	snapshot := entities.SubjectSnapshot{
		Name:   st.name,
		Topics: statuses,
		Open:   st.startAt == nil || !now.Before(*st.startAt),
	}
	if st.startAt != nil {
		at := *st.startAt
		snapshot.StartTime = &at
		if !snapshot.Open {
			snapshot.TimeToStart = at.Sub(now)
		}
	}
	return snapshot
}
