package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// OpensIn is set on distribution-not-open rejections so the caller can
	// render the remaining wait.
	OpensIn string `json:"opens_in,omitempty"`
}

type CreateSubjectRequest struct {
	Name string `json:"name"`
}

type SubjectResponse struct {
	Name       string     `json:"name"`
	TopicCount int        `json:"topic_count"`
	StartTime  *time.Time `json:"start_time,omitempty"`
}

type LoadTopicsRequest struct {
	TopicList string `json:"topic_list"`
}

type SetStartTimeRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type ClaimTopicRequest struct {
	Subject             string `json:"subject,omitempty"`
	TopicNumber         int    `json:"topic_number"`
	DisplayName         string `json:"display_name"`
	DisambiguationToken string `json:"disambiguation_token,omitempty"`
}

type ClaimTopicResponse struct {
	Subject             string    `json:"subject,omitempty"`
	TopicNumber         int       `json:"topic_number,omitempty"`
	TopicTitle          string    `json:"topic_title,omitempty"`
	ClaimantID          string    `json:"claimant_id,omitempty"`
	DisplayName         string    `json:"display_name,omitempty"`
	ClaimedAt           time.Time `json:"claimed_at,omitempty"`
	Ambiguous           bool      `json:"ambiguous,omitempty"`
	DisambiguationToken string    `json:"disambiguation_token,omitempty"`
	OpenSubjects        []string  `json:"open_subjects,omitempty"`
}

type RegistrationResponse struct {
	Subject     string    `json:"subject"`
	TopicNumber int       `json:"topic_number"`
	TopicTitle  string    `json:"topic_title,omitempty"`
	ClaimantID  string    `json:"claimant_id"`
	DisplayName string    `json:"display_name"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

type TopicStatusItem struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Claimed     bool       `json:"claimed"`
	DisplayName string     `json:"display_name,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}

type SnapshotResponse struct {
	Subject   string            `json:"subject"`
	Topics    []TopicStatusItem `json:"topics"`
	Open      bool              `json:"open"`
	StartTime *time.Time        `json:"start_time,omitempty"`
	OpensIn   string            `json:"opens_in,omitempty"`
}

type SubjectSummaryItem struct {
	Name              string     `json:"name"`
	TopicCount        int        `json:"topic_count"`
	RegistrationCount int        `json:"registration_count"`
	StartTime         *time.Time `json:"start_time,omitempty"`
}

type ListSubjectsResponse struct {
	Items []SubjectSummaryItem `json:"items"`
}

type ResultsResponse struct {
	Subject string                 `json:"subject"`
	Items   []RegistrationResponse `json:"items"`
}
