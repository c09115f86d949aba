package entities

import (
	"fmt"
	"sort"
	"time"
)

// TimerKind distinguishes the one-shot timers a subject may own.
type TimerKind string

const (
	TimerKindStart    TimerKind = "distribution-start"
	TimerKindReminder TimerKind = "reminder"
)

// Subject is a named collection of numbered topics. Topic numbers are
// admin-assigned and not necessarily contiguous; a nil StartTime means
// claiming is open immediately.
type Subject struct {
	Name      string
	Topics    map[int]string
	StartTime *time.Time
	CreatedAt time.Time
}

// IsOpen reports whether claiming is permitted at the given instant.
// The boundary now == StartTime counts as open.
func (s Subject) IsOpen(now time.Time) bool {
	if s.StartTime == nil {
		return true
	}
	return !now.Before(*s.StartTime)
}

// TopicNumbers returns the subject's topic numbers in ascending order.
func (s Subject) TopicNumbers() []int {
	numbers := make([]int, 0, len(s.Topics))
	for number := range s.Topics {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

// Registration binds one user to one topic. At most one registration exists
// per (subject, topic number); Seq breaks ties between equal timestamps.
type Registration struct {
	SubjectName string
	TopicNumber int
	ClaimantID  string
	DisplayName string
	ClaimedAt   time.Time
	Seq         uint64
}

// TopicStatus is the per-topic row of a snapshot: free, or claimed with the
// claimant's display name and claim time.
type TopicStatus struct {
	Number      int
	Title       string
	Claimed     bool
	ClaimantID  string
	DisplayName string
	ClaimedAt   time.Time
}

// SubjectSnapshot is a point-in-time view of one subject, ordered by
// ascending topic number, with the gating state evaluated at Now.
type SubjectSnapshot struct {
	Name      string
	Topics    []TopicStatus
	StartTime *time.Time
	Open      bool
	// TimeToStart is zero when the subject is open or unscheduled.
	TimeToStart time.Duration
}

// Countdown renders TimeToStart as days/hours/minutes, floored to whole
// minutes, omitting zero-valued larger units. An open or unscheduled
// snapshot renders as the empty string.
func (s SubjectSnapshot) Countdown() string {
	if s.Open || s.StartTime == nil || s.TimeToStart <= 0 {
		return ""
	}
	return FormatCountdown(s.TimeToStart)
}

// FormatCountdown renders a remaining wait as days/hours/minutes, floored to
// whole minutes, omitting zero-valued larger units.
func FormatCountdown(remaining time.Duration) string {
	if remaining <= 0 {
		return ""
	}
	total := int(remaining / time.Minute)
	days := total / (24 * 60)
	hours := (total / 60) % 24
	minutes := total % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// SubjectSummary is the listing row for a subject, in creation order.
type SubjectSummary struct {
	Name              string
	TopicCount        int
	RegistrationCount int
	StartTime         *time.Time
}
