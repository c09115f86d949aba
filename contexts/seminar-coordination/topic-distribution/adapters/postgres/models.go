package postgresadapter

import (
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
)

type subjectModel struct {
	Name      string     `gorm:"column:name;primaryKey"`
	StartAt   *time.Time `gorm:"column:start_at"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	Position  int64      `gorm:"column:position;autoIncrement;uniqueIndex"`
}

func (subjectModel) TableName() string {
	return "seminar_subjects"
}

func (m subjectModel) toEntity(topics map[int]string) entities.Subject {
	if topics == nil {
		topics = map[int]string{}
	}
	return entities.Subject{
		Name:      m.Name,
		Topics:    topics,
		StartTime: m.StartAt,
		CreatedAt: m.CreatedAt,
	}
}

type topicModel struct {
	SubjectName string `gorm:"column:subject_name;primaryKey"`
	Number      int    `gorm:"column:number;primaryKey"`
	Title       string `gorm:"column:title;not null"`
}

func (topicModel) TableName() string {
	return "seminar_topics"
}

type registrationModel struct {
	SubjectName string    `gorm:"column:subject_name;primaryKey"`
	TopicNumber int       `gorm:"column:topic_number;primaryKey"`
	ClaimantID  string    `gorm:"column:claimant_id;not null"`
	DisplayName string    `gorm:"column:display_name;not null"`
	ClaimedAt   time.Time `gorm:"column:claimed_at;not null"`
	Seq         uint64    `gorm:"column:seq;autoIncrement;uniqueIndex"`
}

func (registrationModel) TableName() string {
	return "seminar_registrations"
}

func (m registrationModel) toEntity() entities.Registration {
	return entities.Registration{
		SubjectName: m.SubjectName,
		TopicNumber: m.TopicNumber,
		ClaimantID:  m.ClaimantID,
		DisplayName: m.DisplayName,
		ClaimedAt:   m.ClaimedAt,
		Seq:         m.Seq,
	}
}

type outboxModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;not null"`
	Status       string     `gorm:"column:status;not null;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "distribution_outbox"
}

type pendingClaimModel struct {
	Token       string    `gorm:"column:token;primaryKey"`
	TopicNumber int       `gorm:"column:topic_number;not null"`
	ClaimantID  string    `gorm:"column:claimant_id;not null"`
	DisplayName string    `gorm:"column:display_name"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null"`
}

func (pendingClaimModel) TableName() string {
	return "distribution_pending_claims"
}
