// Package dateutil provides date parsing and day arithmetic in local wall-clock time.
package dateutil

import (
	"errors"
	"strings"
	"time"
)

// Layout is the YYYY-MM-DD layout used everywhere dates cross a boundary.
const Layout = "2006-01-02"

// Validation errors.
var (
	ErrInvalidDateFormat  = errors.New("date must be in YYYY-MM-DD format")
	ErrEndDateBeforeStart = errors.New("end date must be on or after start date")
	ErrDateInPast         = errors.New("cannot book in the past")
	ErrInvalidWeekday     = errors.New("invalid weekday name")
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses an English weekday name, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return time.Sunday, ErrInvalidWeekday
	}
	return wd, nil
}

// DateRange is an inclusive span of days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses and validates a date range. An empty start means
// today and an empty end means the same day as start.
func NewDateRange(startDate, endDate string) (*DateRange, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}

	end := start
	if endDate != "" {
		if end, err = ParseDate(endDate); err != nil {
			return nil, err
		}
	}
	if end.Before(start) {
		return nil, ErrEndDateBeforeStart
	}
	return &DateRange{Start: start, End: end}, nil
}

// Days returns every day in the range, in order.
func (r *DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ParseDate parses YYYY-MM-DD as local midnight. Empty means today.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return TruncateToDay(time.Now()), nil
	}
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// TruncateToDay returns t at midnight in t's location.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseRelativeDate parses a date that can be:
//   - empty or "today"
//   - "tomorrow", "yesterday", "next-week"
//   - a weekday name ("friday"): the next occurrence after today
//   - YYYY-MM-DD
//
// When allowPast is false, dates before today yield ErrDateInPast.
func ParseRelativeDate(s string, relativeTo time.Time, allowPast bool) (time.Time, error) {
	today := TruncateToDay(relativeTo)
	input := strings.ToLower(strings.TrimSpace(s))

	var result time.Time
	switch {
	case input == "" || input == "today":
		return today, nil
	case input == "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case input == "yesterday":
		result = today.AddDate(0, 0, -1)
	case input == "next-week":
		return today.AddDate(0, 0, 7), nil
	default:
		if wd, ok := weekdays[strings.TrimPrefix(input, "next-")]; ok {
			return nextWeekday(today, wd), nil
		}
		t, err := time.ParseInLocation(Layout, input, relativeTo.Location())
		if err != nil {
			return time.Time{}, ErrInvalidDateFormat
		}
		result = t
	}

	if !allowPast && result.Before(today) {
		return time.Time{}, ErrDateInPast
	}
	return result, nil
}

// nextWeekday returns the next occurrence of target strictly after today.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	daysUntil := int(target) - int(today.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}
	return today.AddDate(0, 0, daysUntil)
}
