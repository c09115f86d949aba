package application

import (
	"strconv"
	"strings"
	"time"

	domainerrors "topicdesk/contexts/seminar-coordination/topic-distribution/domain/errors"
)

const (
	dateLayout = "02.01.2006"
	timeLayout = "15:04"
)

// ParseTopicList scans the admin-supplied topic list. Each line matching
// "<integer>.<rest-of-line>" contributes one entry keyed by the integer with
// the trimmed rest as title; on duplicate numbers the last occurrence wins.
// Non-matching lines are skipped silently. An empty result is an error.
func ParseTopicList(raw string) (map[int]string, error) {
	topics := make(map[int]string)
	for _, line := range strings.Split(raw, "\n") {
		numberPart, titlePart, found := strings.Cut(line, ".")
		if !found {
			continue
		}
		number, err := strconv.Atoi(strings.TrimSpace(numberPart))
		if err != nil || number <= 0 {
			continue
		}
		title := strings.TrimSpace(titlePart)
		if title == "" {
			continue
		}
		topics[number] = title
	}
	if len(topics) == 0 {
		return nil, domainerrors.ErrEmptyTopicSet
	}
	return topics, nil
}

// ParseStartAt combines a "DD.MM.YYYY" date and a "HH:MM" 24-hour time into
// one local instant. Both parts are validated as real calendar/clock values.
func ParseStartAt(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), time.Local)
	if err != nil {
		return time.Time{}, domainerrors.ErrMalformedInput
	}
	tod, err := time.Parse(timeLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, domainerrors.ErrMalformedInput
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, time.Local), nil
}
