package wallclock

import (
	"time"

	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

// Clock is the production ports.Clock backed by the runtime clock.
type Clock struct{}

func New() Clock {
	return Clock{}
}

func (Clock) Now() time.Time {
	return time.Now()
}

func (Clock) AfterFunc(d time.Duration, fn func()) ports.TimerHandle {
	return time.AfterFunc(d, fn)
}
