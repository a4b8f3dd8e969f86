package lifecycle

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-day format used for event dates.
	DateLayout = "2006-01-02"

	// CutoverHour is the local hour on the day after the event at which it
	// stops being in progress and enters post-event processing.
	CutoverHour = 5
)

var timeLayouts = []string{"15:04", "15:04:05"}

// Input carries the fields of a mercadillo the classifier looks at.
type Input struct {
	Date              string // YYYY-MM-DD
	EndTime           string // HH:MM
	HasInitialBalance bool
	HasCashCount      bool
	PendingAssignment bool
}

// Classify returns the lifecycle state of the event at instant now. The
// calendar comparisons and the 05:00 cutover use now's location. Malformed
// dates or times are logged and classified as scheduled.
func Classify(in Input, now time.Time) State {
	s, err := ClassifyStrict(in, now)
	if err != nil {
		slog.Warn("lifecycle: falling back to scheduled state",
			"date", in.Date, "end_time", in.EndTime, "state", s.String(), "error", err)
	}
	return s
}

// ClassifyStrict is Classify without logging: on a parse failure it returns
// the fallback state together with the error.
func ClassifyStrict(in Input, now time.Time) (State, error) {
	scheduled := scheduledState(in.HasInitialBalance)

	loc := now.Location()
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(in.Date), loc)
	if err != nil {
		return scheduled, fmt.Errorf("parse date %q: %w", in.Date, err)
	}
	if err := checkTime(in.EndTime); err != nil {
		return scheduled, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)

	switch {
	case date.Before(yesterday):
		// stale event that was never processed while it was yesterday
		switch {
		case in.HasCashCount && !in.PendingAssignment:
			return Closed, nil
		case in.HasCashCount && in.PendingAssignment:
			return PendingBalanceAssignment, nil
		default:
			return scheduled, nil
		}
	case date.After(today):
		return scheduled, nil
	case date.Equal(today):
		return InProgress, nil
	default: // yesterday
		if now.Hour() < CutoverHour {
			return InProgress, nil
		}
		switch {
		case in.HasCashCount && in.PendingAssignment:
			return PendingBalanceAssignment, nil
		case in.HasCashCount:
			return Closed, nil
		default:
			return PendingCashCount, nil
		}
	}
}

func scheduledState(hasInitialBalance bool) State {
	if hasInitialBalance {
		return FullyScheduled
	}
	return PartiallyScheduled
}

func checkTime(v string) error {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("parse time %q: expected HH:MM", v)
}

// ParseClock validates an HH:MM (or HH:MM:SS) value and normalises it to HH:MM.
func ParseClock(v string) (string, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", v)
}

// ParseDate validates a YYYY-MM-DD date in loc.
func ParseDate(v string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(v), loc)
}
