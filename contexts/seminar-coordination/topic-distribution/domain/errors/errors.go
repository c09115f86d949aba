package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownSubject      = errors.New("subject not found")
	ErrDuplicateSubject    = errors.New("subject already exists")
	ErrEmptyTopicSet       = errors.New("no valid topic lines parsed")
	ErrUnknownTopic        = errors.New("topic number not found")
	ErrDistributionNotOpen = errors.New("distribution has not started")
	ErrTopicAlreadyClaimed = errors.New("topic is already claimed")
	ErrNotRegistered       = errors.New("topic is not registered")
	ErrPastTimestamp       = errors.New("start time is not in the future")
	ErrMalformedInput      = errors.New("malformed input")
	ErrAmbiguousSubject    = errors.New("more than one subject is open")
	ErrTopicSetFinalized   = errors.New("topic set is finalized by existing registrations")
	ErrUnknownPendingClaim = errors.New("pending claim token not found or expired")
	ErrNoOpenDistribution  = errors.New("no distribution is currently open")
)

// NotOpenError carries the remaining wait so the collaborator can render a
// countdown alongside the rejection. It unwraps to ErrDistributionNotOpen.
type NotOpenError struct {
	Subject   string
	StartTime time.Time
	Remaining time.Duration
}

func (e *NotOpenError) Error() string {
	return fmt.Sprintf("distribution for %q has not started (opens in %s)", e.Subject, e.Remaining)
}

func (e *NotOpenError) Unwrap() error {
	return ErrDistributionNotOpen
}
