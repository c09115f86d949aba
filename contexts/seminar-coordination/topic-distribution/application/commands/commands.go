package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "topicdesk/contexts/seminar-coordination/topic-distribution/application"
	"topicdesk/contexts/seminar-coordination/topic-distribution/application/timers"
	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	domainerrors "topicdesk/contexts/seminar-coordination/topic-distribution/domain/errors"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

const (
	defaultReminderLead = 5 * time.Minute
	defaultPendingTTL   = 10 * time.Minute
)

// CreateSubjectCommand opens a new empty subject.
type CreateSubjectCommand struct {
	Name string
}

// LoadTopicsCommand bulk-loads the subject's topic set from the raw
// "<number>. <title>" line format.
type LoadTopicsCommand struct {
	Subject   string
	TopicList string
}

// SetStartTimeCommand schedules the distribution start from the collaborator
// date/time format (DD.MM.YYYY and HH:MM).
type SetStartTimeCommand struct {
	Subject string
	Date    string
	Time    string
}

// ClaimTopicCommand attempts a first-come-first-served claim. Subject may be
// empty: with exactly one open subject it resolves automatically, otherwise
// the engine parks the claim and returns a disambiguation token the
// collaborator replays together with the chosen subject.
type ClaimTopicCommand struct {
	Subject             string
	TopicNumber         int
	ClaimantID          string
	DisplayName         string
	DisambiguationToken string
}

// ClaimResult is the outcome of a claim attempt. On an ErrAmbiguousSubject
// rejection the result is still populated: Ambiguous is set, no registration
// was made, and OpenSubjects and DisambiguationToken tell the collaborator
// what to ask the user.
type ClaimResult struct {
	Registration        entities.Registration
	TopicTitle          string
	Ambiguous           bool
	DisambiguationToken string
	OpenSubjects        []string
}

// RemoveClaimCommand frees a claimed topic. There is no user-initiated
// un-claim: both removal flows are admin-only at the transport boundary, and
// the ledger itself does not authorize.
type RemoveClaimCommand struct {
	Subject     string
	TopicNumber int
}

// UseCase glues the subject registry, registration ledger, timer service,
// and outbox into the operations the collaborator calls.
type UseCase struct {
	Subjects     ports.SubjectRegistry
	Ledger       ports.RegistrationLedger
	Pending      ports.PendingClaimStore
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	Timers       *timers.Service
	IDGen        ports.IDGenerator
	ReminderLead time.Duration
	PendingTTL   time.Duration
	Logger       *slog.Logger
}

func (uc UseCase) CreateSubject(ctx context.Context, cmd CreateSubjectCommand) (entities.Subject, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return entities.Subject{}, domainerrors.ErrMalformedInput
	}
	now := uc.Clock.Now()
	subject, err := uc.Subjects.CreateSubject(ctx, name, now)
	if err != nil {
		logger.Warn("subject create rejected",
			"event", "distribution_subject_create_rejected",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"subject", name,
			"error", err.Error(),
		)
		return entities.Subject{}, err
	}
	logger.Info("subject created",
		"event", "distribution_subject_created",
		"module", "seminar-coordination/topic-distribution",
		"layer", "application",
		"subject", name,
	)
	if err := uc.emit(ctx, EventTypeSubjectCreated, name, now, map[string]any{"subject": name}); err != nil {
		return entities.Subject{}, err
	}
	return subject, nil
}

func (uc UseCase) LoadTopics(ctx context.Context, cmd LoadTopicsCommand) (entities.Subject, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Subject)
	topics, err := application.ParseTopicList(cmd.TopicList)
	if err != nil {
		return entities.Subject{}, err
	}
	subject, err := uc.Subjects.ReplaceTopics(ctx, name, topics)
	if err != nil {
		logger.Warn("topic load rejected",
			"event", "distribution_topics_load_rejected",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"subject", name,
			"error", err.Error(),
		)
		return entities.Subject{}, err
	}
	logger.Info("topics loaded",
		"event", "distribution_topics_loaded",
		"module", "seminar-coordination/topic-distribution",
		"layer", "application",
		"subject", name,
		"topic_count", len(subject.Topics),
	)
	now := uc.Clock.Now()
	snapshot, err := uc.Subjects.GetSnapshot(ctx, name, now)
	if err != nil {
		return entities.Subject{}, err
	}
	if err := uc.emit(ctx, EventTypeTopicsLoaded, name, now, snapshotData(snapshot)); err != nil {
		return entities.Subject{}, err
	}
	return subject, nil
}

func (uc UseCase) SetStartTime(ctx context.Context, cmd SetStartTimeCommand) (entities.Subject, error) {
	logger := application.ResolveLogger(uc.Logger)
	name := strings.TrimSpace(cmd.Subject)
	startAt, err := application.ParseStartAt(cmd.Date, cmd.Time)
	if err != nil {
		return entities.Subject{}, err
	}
	now := uc.Clock.Now()
	if !startAt.After(now) {
		return entities.Subject{}, domainerrors.ErrPastTimestamp
	}
	subject, err := uc.Subjects.SetStartTime(ctx, name, startAt)
	if err != nil {
		return entities.Subject{}, err
	}
	uc.scheduleTimers(name, startAt, now)
	logger.Info("start time set",
		"event", "distribution_start_time_set",
		"module", "seminar-coordination/topic-distribution",
		"layer", "application",
		"subject", name,
		"start_at", startAt,
	)
	if err := uc.emit(ctx, EventTypeStartTimeSet, name, now, map[string]any{
		"subject":    name,
		"start_time": startAt.UTC(),
	}); err != nil {
		return entities.Subject{}, err
	}
	return subject, nil
}

// scheduleTimers arms the start broadcast at startAt and the reminder at
// startAt minus the lead. A reminder whose fire time has already passed is
// never scheduled late; any stale reminder for the subject is cancelled
// instead.
func (uc UseCase) scheduleTimers(subject string, startAt time.Time, now time.Time) {
	uc.Timers.Schedule(
		timers.Key{Subject: subject, Kind: entities.TimerKindStart},
		startAt,
		func(time.Time) { uc.onDistributionStart(subject, startAt) },
	)
	remindAt := startAt.Add(-uc.reminderLead())
	if remindAt.After(now) {
		uc.Timers.Schedule(
			timers.Key{Subject: subject, Kind: entities.TimerKindReminder},
			remindAt,
			func(time.Time) { uc.onReminderDue(subject, startAt) },
		)
	} else {
		uc.Timers.Cancel(timers.Key{Subject: subject, Kind: entities.TimerKindReminder})
	}
}

// onDistributionStart runs from the timer goroutine. A failure here is
// logged and swallowed: the timer counts as fired and is never re-armed.
func (uc UseCase) onDistributionStart(subject string, scheduledAt time.Time) {
	logger := application.ResolveLogger(uc.Logger)
	ctx := context.Background()
	current, err := uc.Subjects.GetSubject(ctx, subject)
	if err != nil || current.StartTime == nil || !current.StartTime.Equal(scheduledAt) {
		// Superseded while the callback was in flight.
		return
	}
	now := uc.Clock.Now()
	snapshot, err := uc.Subjects.GetSnapshot(ctx, subject, now)
	if err != nil {
		logger.Error("distribution start snapshot failed",
			"event", "distribution_start_snapshot_failed",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"subject", subject,
			"error", err.Error(),
		)
		return
	}
	logger.Info("distribution started",
		"event", "distribution_started",
		"module", "seminar-coordination/topic-distribution",
		"layer", "application",
		"subject", subject,
	)
	if err := uc.emit(ctx, EventTypeDistributionStarted, subject, now, snapshotData(snapshot)); err != nil {
		logger.Error("distribution start event append failed",
			"event", "distribution_start_event_failed",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"subject", subject,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) onReminderDue(subject string, scheduledStart time.Time) {
	logger := application.ResolveLogger(uc.Logger)
	ctx := context.Background()
	current, err := uc.Subjects.GetSubject(ctx, subject)
	if err != nil || current.StartTime == nil || !current.StartTime.Equal(scheduledStart) {
		return
	}
	now := uc.Clock.Now()
	logger.Info("reminder due",
		"event", "distribution_reminder_due",
		"module", "seminar-coordination/topic-distribution",
		"layer", "application",
		"subject", subject,
	)
	if err := uc.emit(ctx, EventTypeReminderDue, subject, now, map[string]any{
		"subject":      subject,
		"start_time":   scheduledStart.UTC(),
		"lead_minutes": int(uc.reminderLead() / time.Minute),
	}); err != nil {
		logger.Error("reminder event append failed",
			"event", "distribution_reminder_event_failed",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"subject", subject,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) ClaimTopic(ctx context.Context, cmd ClaimTopicCommand) (ClaimResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.Clock.Now()
	subject := strings.TrimSpace(cmd.Subject)
	topicNumber := cmd.TopicNumber
	claimantID := strings.TrimSpace(cmd.ClaimantID)
	displayName := strings.TrimSpace(cmd.DisplayName)
	if claimantID == "" || displayName == "" {
		return ClaimResult{}, domainerrors.ErrMalformedInput
	}

	if token := strings.TrimSpace(cmd.DisambiguationToken); token != "" {
		pending, found, err := uc.Pending.TakePending(ctx, token, now)
		if err != nil {
			return ClaimResult{}, err
		}
		if !found || pending.ClaimantID != claimantID {
			return ClaimResult{}, domainerrors.ErrUnknownPendingClaim
		}
		if subject == "" {
			return ClaimResult{}, domainerrors.ErrMalformedInput
		}
		topicNumber = pending.TopicNumber
		if pending.DisplayName != "" {
			displayName = pending.DisplayName
		}
	}

	if subject == "" {
		open, err := uc.Subjects.ListOpenSubjects(ctx, now)
		if err != nil {
			return ClaimResult{}, err
		}
		switch len(open) {
		case 0:
			return ClaimResult{}, domainerrors.ErrNoOpenDistribution
		case 1:
			subject = open[0]
		default:
			return uc.parkAmbiguousClaim(ctx, cmd, open, now)
		}
	}

	if topicNumber <= 0 {
		return ClaimResult{}, domainerrors.ErrMalformedInput
	}

	reg, err := uc.Ledger.Claim(ctx, subject, topicNumber, claimantID, displayName, now)
	if err != nil {
		logger.Warn("claim rejected",
			"event", "distribution_claim_rejected",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"subject", subject,
			"topic_number", topicNumber,
			"claimant_id", claimantID,
			"error", err.Error(),
		)
		uc.emitBestEffort(ctx, EventTypeClaimRejected, subject, now, map[string]any{
			"subject":      subject,
			"topic_number": topicNumber,
			"claimant_id":  claimantID,
			"reason":       err.Error(),
		})
		return ClaimResult{}, err
	}

	logger.Info("claim confirmed",
		"event", "distribution_claim_confirmed",
		"module", "seminar-coordination/topic-distribution",
		"layer", "application",
		"subject", subject,
		"topic_number", topicNumber,
		"claimant_id", claimantID,
	)

	title := uc.topicTitle(ctx, subject, topicNumber)
	if err := uc.emit(ctx, EventTypeClaimConfirmed, subject, now, registrationData(reg, title)); err != nil {
		return ClaimResult{}, err
	}
	if err := uc.emitSnapshot(ctx, subject, now); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{Registration: reg, TopicTitle: title}, nil
}

func (uc UseCase) parkAmbiguousClaim(
	ctx context.Context,
	cmd ClaimTopicCommand,
	open []string,
	now time.Time,
) (ClaimResult, error) {
	token, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ClaimResult{}, err
	}
	if err := uc.Pending.PutPending(ctx, ports.PendingClaim{
		Token:       token,
		TopicNumber: cmd.TopicNumber,
		ClaimantID:  strings.TrimSpace(cmd.ClaimantID),
		DisplayName: strings.TrimSpace(cmd.DisplayName),
		ExpiresAt:   now.Add(uc.pendingTTL()),
	}); err != nil {
		return ClaimResult{}, err
	}
	uc.emitBestEffort(ctx, EventTypeClaimAmbiguous, "", now, map[string]any{
		"claimant_id":   strings.TrimSpace(cmd.ClaimantID),
		"topic_number":  cmd.TopicNumber,
		"open_subjects": open,
		"token":         token,
	})
	return ClaimResult{
		Ambiguous:           true,
		DisambiguationToken: token,
		OpenSubjects:        open,
	}, domainerrors.ErrAmbiguousSubject
}

// CancelClaim is the admin flow that voids a registration made in error.
func (uc UseCase) CancelClaim(ctx context.Context, cmd RemoveClaimCommand) (entities.Registration, error) {
	return uc.removeClaim(ctx, cmd, EventTypeRegistrationCancelled)
}

// RemoveClaim is the admin flow that frees a topic by removing its holder.
// Ledger semantics are identical to CancelClaim; only the emitted event type
// differs.
func (uc UseCase) RemoveClaim(ctx context.Context, cmd RemoveClaimCommand) (entities.Registration, error) {
	return uc.removeClaim(ctx, cmd, EventTypeParticipantRemoved)
}

func (uc UseCase) removeClaim(ctx context.Context, cmd RemoveClaimCommand, eventType string) (entities.Registration, error) {
	logger := application.ResolveLogger(uc.Logger)
	subject := strings.TrimSpace(cmd.Subject)
	reg, err := uc.Ledger.RemoveRegistration(ctx, subject, cmd.TopicNumber)
	if err != nil {
		logger.Warn("registration removal rejected",
			"event", "distribution_removal_rejected",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"subject", subject,
			"topic_number", cmd.TopicNumber,
			"error", err.Error(),
		)
		return entities.Registration{}, err
	}
	now := uc.Clock.Now()
	logger.Info("registration removed",
		"event", "distribution_registration_removed",
		"module", "seminar-coordination/topic-distribution",
		"layer", "application",
		"subject", subject,
		"topic_number", cmd.TopicNumber,
		"claimant_id", reg.ClaimantID,
	)
	title := uc.topicTitle(ctx, subject, cmd.TopicNumber)
	if err := uc.emit(ctx, eventType, subject, now, registrationData(reg, title)); err != nil {
		return entities.Registration{}, err
	}
	if err := uc.emitSnapshot(ctx, subject, now); err != nil {
		return entities.Registration{}, err
	}
	return reg, nil
}

func (uc UseCase) emitSnapshot(ctx context.Context, subject string, now time.Time) error {
	snapshot, err := uc.Subjects.GetSnapshot(ctx, subject, now)
	if err != nil {
		return err
	}
	return uc.emit(ctx, EventTypeTopicsSnapshot, subject, now, snapshotData(snapshot))
}

func (uc UseCase) emit(ctx context.Context, eventType, subject string, occurredAt time.Time, data map[string]any) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newDistributionEnvelope(eventID, eventType, subject, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc UseCase) emitBestEffort(ctx context.Context, eventType, subject string, occurredAt time.Time, data map[string]any) {
	if err := uc.emit(ctx, eventType, subject, occurredAt, data); err != nil {
		application.ResolveLogger(uc.Logger).Error("event append failed",
			"event", "distribution_event_append_failed",
			"module", "seminar-coordination/topic-distribution",
			"layer", "application",
			"event_type", eventType,
			"subject", subject,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) topicTitle(ctx context.Context, subject string, topicNumber int) string {
	current, err := uc.Subjects.GetSubject(ctx, subject)
	if err != nil {
		return ""
	}
	return current.Topics[topicNumber]
}

func (uc UseCase) reminderLead() time.Duration {
	if uc.ReminderLead > 0 {
		return uc.ReminderLead
	}
	return defaultReminderLead
}

func (uc UseCase) pendingTTL() time.Duration {
	if uc.PendingTTL > 0 {
		return uc.PendingTTL
	}
	return defaultPendingTTL
}
