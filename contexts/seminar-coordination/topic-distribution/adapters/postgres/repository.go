package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	domainerrors "topicdesk/contexts/seminar-coordination/topic-distribution/domain/errors"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the DSN-gated persistent alternative to the in-memory store.
// Claim arbitration rides on the (subject_name, topic_number) primary key:
// the losing concurrent insert surfaces as a unique violation.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Migrate creates the context's tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&subjectModel{},
		&topicModel{},
		&registrationModel{},
		&outboxModel{},
		&pendingClaimModel{},
	)
}

func (r *Repository) CreateSubject(ctx context.Context, name string, now time.Time) (entities.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.Subject{}, domainerrors.ErrMalformedInput
	}
	row := subjectModel{Name: name, CreatedAt: now.UTC()}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Subject{}, domainerrors.ErrDuplicateSubject
		}
		return entities.Subject{}, r.logError("distribution_repo_create_subject_failed", err, "subject", name)
	}
	return entities.Subject{Name: name, Topics: map[int]string{}, CreatedAt: row.CreatedAt}, nil
}

func (r *Repository) ReplaceTopics(ctx context.Context, name string, topics map[int]string) (entities.Subject, error) {
	if len(topics) == 0 {
		return entities.Subject{}, domainerrors.ErrEmptyTopicSet
	}
	name = strings.TrimSpace(name)
	var subject entities.Subject
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockSubject(tx, name)
		if err != nil {
			return err
		}
		var regCount int64
		if err := tx.Model(&registrationModel{}).Where("subject_name = ?", name).Count(&regCount).Error; err != nil {
			return err
		}
		if regCount > 0 {
			return domainerrors.ErrTopicSetFinalized
		}
		if err := tx.Where("subject_name = ?", name).Delete(&topicModel{}).Error; err != nil {
			return err
		}
		rows := make([]topicModel, 0, len(topics))
		for number, title := range topics {
			rows = append(rows, topicModel{SubjectName: name, Number: number, Title: title})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		subject = row.toEntity(topics)
		return nil
	})
	if err != nil {
		return entities.Subject{}, r.mapError("distribution_repo_replace_topics_failed", err, "subject", name)
	}
	return subject, nil
}

func (r *Repository) SetStartTime(ctx context.Context, name string, startAt time.Time) (entities.Subject, error) {
	name = strings.TrimSpace(name)
	at := startAt.UTC()
	result := r.db.WithContext(ctx).Model(&subjectModel{}).
		Where("name = ?", name).
		Update("start_at", &at)
	if result.Error != nil {
		return entities.Subject{}, r.logError("distribution_repo_set_start_time_failed", result.Error, "subject", name)
	}
	if result.RowsAffected == 0 {
		return entities.Subject{}, domainerrors.ErrUnknownSubject
	}
	return r.GetSubject(ctx, name)
}

func (r *Repository) GetSubject(ctx context.Context, name string) (entities.Subject, error) {
	name = strings.TrimSpace(name)
	var row subjectModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Subject{}, domainerrors.ErrUnknownSubject
		}
		return entities.Subject{}, r.logError("distribution_repo_get_subject_failed", err, "subject", name)
	}
	topics, err := r.loadTopics(ctx, name)
	if err != nil {
		return entities.Subject{}, err
	}
	return row.toEntity(topics), nil
}

func (r *Repository) GetSnapshot(ctx context.Context, name string, now time.Time) (entities.SubjectSnapshot, error) {
	subject, err := r.GetSubject(ctx, name)
	if err != nil {
		return entities.SubjectSnapshot{}, err
	}
	regs, err := r.ListRegistrations(ctx, name)
	if err != nil {
		return entities.SubjectSnapshot{}, err
	}
	byNumber := make(map[int]entities.Registration, len(regs))
	for _, reg := range regs {
		byNumber[reg.TopicNumber] = reg
	}

	statuses := make([]entities.TopicStatus, 0, len(subject.Topics))
	for _, number := range subject.TopicNumbers() {
		status := entities.TopicStatus{Number: number, Title: subject.Topics[number]}
		if reg, taken := byNumber[number]; taken {
			status.Claimed = true
			status.ClaimantID = reg.ClaimantID
			status.DisplayName = reg.DisplayName
			status.ClaimedAt = reg.ClaimedAt
		}
		statuses = append(statuses, status)
	}
	snapshot := entities.SubjectSnapshot{
		Name:      subject.Name,
		Topics:    statuses,
		StartTime: subject.StartTime,
		Open:      subject.IsOpen(now),
	}
	if subject.StartTime != nil && !snapshot.Open {
		snapshot.TimeToStart = subject.StartTime.Sub(now)
	}
	return snapshot, nil
}

func (r *Repository) ListSubjects(ctx context.Context) ([]entities.SubjectSummary, error) {
	var rows []subjectModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_list_subjects_failed", err)
	}
	summaries := make([]entities.SubjectSummary, 0, len(rows))
	for _, row := range rows {
		var topicCount, regCount int64
		if err := r.db.WithContext(ctx).Model(&topicModel{}).Where("subject_name = ?", row.Name).Count(&topicCount).Error; err != nil {
			return nil, r.logError("distribution_repo_list_subjects_failed", err, "subject", row.Name)
		}
		if err := r.db.WithContext(ctx).Model(&registrationModel{}).Where("subject_name = ?", row.Name).Count(&regCount).Error; err != nil {
			return nil, r.logError("distribution_repo_list_subjects_failed", err, "subject", row.Name)
		}
		summaries = append(summaries, entities.SubjectSummary{
			Name:              row.Name,
			TopicCount:        int(topicCount),
			RegistrationCount: int(regCount),
			StartTime:         row.StartAt,
		})
	}
	return summaries, nil
}

func (r *Repository) ListOpenSubjects(ctx context.Context, now time.Time) ([]string, error) {
	var rows []subjectModel
	err := r.db.WithContext(ctx).
		Where("start_at IS NULL OR start_at <= ?", now.UTC()).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("distribution_repo_list_open_subjects_failed", err)
	}
	open := make([]string, 0, len(rows))
	for _, row := range rows {
		var topicCount int64
		if err := r.db.WithContext(ctx).Model(&topicModel{}).Where("subject_name = ?", row.Name).Count(&topicCount).Error; err != nil {
			return nil, r.logError("distribution_repo_list_open_subjects_failed", err, "subject", row.Name)
		}
		if topicCount > 0 {
			open = append(open, row.Name)
		}
	}
	return open, nil
}

func (r *Repository) Claim(
	ctx context.Context,
	subject string,
	topicNumber int,
	claimantID string,
	displayName string,
	now time.Time,
) (entities.Registration, error) {
	subject = strings.TrimSpace(subject)
	var reg entities.Registration
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subjectRow subjectModel
		if err := tx.Where("name = ?", subject).First(&subjectRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrUnknownSubject
			}
			return err
		}
		var topicRow topicModel
		if err := tx.Where("subject_name = ? AND number = ?", subject, topicNumber).First(&topicRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrUnknownTopic
			}
			return err
		}
		if subjectRow.StartAt != nil && now.UTC().Before(subjectRow.StartAt.UTC()) {
			return &domainerrors.NotOpenError{
				Subject:   subject,
				StartTime: *subjectRow.StartAt,
				Remaining: subjectRow.StartAt.Sub(now.UTC()),
			}
		}
		row := registrationModel{
			SubjectName: subject,
			TopicNumber: topicNumber,
			ClaimantID:  strings.TrimSpace(claimantID),
			DisplayName: strings.TrimSpace(displayName),
			ClaimedAt:   now.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrTopicAlreadyClaimed
			}
			return err
		}
		reg = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.Registration{}, r.mapError("distribution_repo_claim_failed", err,
			"subject", subject,
			"topic_number", topicNumber,
		)
	}
	return reg, nil
}

func (r *Repository) RemoveRegistration(ctx context.Context, subject string, topicNumber int) (entities.Registration, error) {
	subject = strings.TrimSpace(subject)
	var reg entities.Registration
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockSubject(tx, subject); err != nil {
			return err
		}
		var row registrationModel
		if err := tx.Where("subject_name = ? AND topic_number = ?", subject, topicNumber).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNotRegistered
			}
			return err
		}
		if err := tx.Where("subject_name = ? AND topic_number = ?", subject, topicNumber).
			Delete(&registrationModel{}).Error; err != nil {
			return err
		}
		reg = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.Registration{}, r.mapError("distribution_repo_remove_registration_failed", err,
			"subject", subject,
			"topic_number", topicNumber,
		)
	}
	return reg, nil
}

func (r *Repository) ListRegistrations(ctx context.Context, subject string) ([]entities.Registration, error) {
	subject = strings.TrimSpace(subject)
	var subjectCount int64
	if err := r.db.WithContext(ctx).Model(&subjectModel{}).Where("name = ?", subject).Count(&subjectCount).Error; err != nil {
		return nil, r.logError("distribution_repo_list_registrations_failed", err, "subject", subject)
	}
	if subjectCount == 0 {
		return nil, domainerrors.ErrUnknownSubject
	}
	var rows []registrationModel
	if err := r.db.WithContext(ctx).
		Where("subject_name = ?", subject).
		Order("claimed_at ASC, seq ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_list_registrations_failed", err, "subject", subject)
	}
	regs := make([]entities.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.toEntity())
	}
	return regs, nil
}

func (r *Repository) PutPending(ctx context.Context, claim ports.PendingClaim) error {
	row := pendingClaimModel{
		Token:       strings.TrimSpace(claim.Token),
		TopicNumber: claim.TopicNumber,
		ClaimantID:  claim.ClaimantID,
		DisplayName: claim.DisplayName,
		ExpiresAt:   claim.ExpiresAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("distribution_repo_put_pending_failed", err, "token", row.Token)
	}
	return nil
}

func (r *Repository) TakePending(ctx context.Context, token string, now time.Time) (ports.PendingClaim, bool, error) {
	token = strings.TrimSpace(token)
	var claim ports.PendingClaim
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row pendingClaimModel
		if err := tx.Where("token = ?", token).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("token = ?", token).Delete(&pendingClaimModel{}).Error; err != nil {
			return err
		}
		if !row.ExpiresAt.After(now.UTC()) {
			return nil
		}
		claim = ports.PendingClaim{
			Token:       row.Token,
			TopicNumber: row.TopicNumber,
			ClaimantID:  row.ClaimantID,
			DisplayName: row.DisplayName,
			ExpiresAt:   row.ExpiresAt,
		}
		found = true
		return nil
	})
	if err != nil {
		return ports.PendingClaim{}, false, r.logError("distribution_repo_take_pending_failed", err, "token", token)
	}
	return claim, found, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		ID:           outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("distribution_repo_append_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	at := publishedAt.UTC()
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &at,
		})
	if result.Error != nil {
		return r.logError("distribution_repo_mark_outbox_published_failed", result.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func lockSubject(tx *gorm.DB, name string) (subjectModel, error) {
	var row subjectModel
	err := tx.Raw("SELECT * FROM seminar_subjects WHERE name = ? FOR UPDATE", name).Scan(&row).Error
	if err != nil {
		return subjectModel{}, err
	}
	if row.Name == "" {
		return subjectModel{}, domainerrors.ErrUnknownSubject
	}
	return row, nil
}

func (r *Repository) loadTopics(ctx context.Context, name string) (map[int]string, error) {
	var rows []topicModel
	if err := r.db.WithContext(ctx).Where("subject_name = ?", name).Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_load_topics_failed", err, "subject", name)
	}
	topics := make(map[int]string, len(rows))
	for _, row := range rows {
		topics[row.Number] = row.Title
	}
	return topics, nil
}

// mapError passes domain errors through untouched and logs infra failures.
func (r *Repository) mapError(event string, err error, attrs ...any) error {
	var notOpen *domainerrors.NotOpenError
	switch {
	case errors.Is(err, domainerrors.ErrUnknownSubject),
		errors.Is(err, domainerrors.ErrUnknownTopic),
		errors.Is(err, domainerrors.ErrTopicAlreadyClaimed),
		errors.Is(err, domainerrors.ErrNotRegistered),
		errors.Is(err, domainerrors.ErrTopicSetFinalized),
		errors.Is(err, domainerrors.ErrEmptyTopicSet),
		errors.As(err, &notOpen):
		return err
	default:
		return r.logError(event, err, attrs...)
	}
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := append([]any{
		"event", event,
		"module", "seminar-coordination/topic-distribution",
		"layer", "adapter",
		"error", err.Error(),
	}, attrs...)
	r.logger.Error("postgres adapter operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
