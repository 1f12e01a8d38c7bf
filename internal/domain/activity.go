package domain

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate validates a DateLayout value.
func ParseDate(field, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: field, Value: value, Message: "expected date as YYYY-MM-DD"}
	}
	return t, nil
}

// ParseClock validates a TimeLayout value. Seconds are accepted and dropped.
func ParseClock(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if len(v) == len("15:04:05") {
		v = v[:5]
	}
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		return "", &ErrValidation{Field: field, Value: value, Message: "expected time as HH:MM"}
	}
	return t.Format(TimeLayout), nil
}

// ScheduledInstant combines the activity date and time in loc.
func ScheduledInstant(a *Activity, loc *time.Location) (time.Time, error) {
	clock := a.ActivityTime
	if len(clock) > 5 {
		clock = clock[:5]
	}
	if clock == "" {
		clock = "00:00"
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.ActivityDate+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("activity %s: %w", a.ID, err)
	}
	return t, nil
}

// Classify returns the read-time class of an activity. A pending activity
// is overdue only when its scheduled instant is strictly before now.
// An unparsable schedule is reported as pending rather than overdue.
func Classify(a *Activity, now time.Time, loc *time.Location) ActivityClass {
	switch a.Status {
	case ActivityDone, ActivityNoAnswer:
		return ClassCompleted
	case ActivityRescheduled:
		return ClassRescheduled
	}
	at, err := ScheduledInstant(a, loc)
	if err != nil {
		return ClassPending
	}
	if at.Before(now) {
		return ClassOverdue
	}
	return ClassPending
}

// View wraps an activity with its classification at now.
func View(a Activity, now time.Time, loc *time.Location) ActivityView {
	c := Classify(&a, now, loc)
	return ActivityView{Activity: a, Class: c, IsOverdue: c == ClassOverdue}
}
