package appointment

import (
	"fmt"
	"math"
	"time"
)

// ClockToMinutes converts "HH:MM" to minutes since midnight.
func ClockToMinutes(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w, got %q", ErrInvalidTimeFormat, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w, got %q", ErrInvalidTimeFormat, s)
		}
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	mins := int(s[3]-'0')*10 + int(s[4]-'0')
	if hours > 23 || mins > 59 {
		return 0, fmt.Errorf("%w, got %q", ErrInvalidTimeFormat, s)
	}
	return hours*60 + mins, nil
}

// MinutesToClock converts minutes since midnight to "HH:MM", clamped to the day.
func MinutesToClock(m int) string {
	if m < 0 {
		m = 0
	}
	if m >= 24*60 {
		m = 24*60 - 1
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// HourToClock formats a fractional hour as "HH:MM" (9.75 -> "09:45").
func HourToClock(h float64) string {
	return MinutesToClock(int(math.Round(h * 60)))
}

// Combine joins a date and an "HH:MM" clock into one instant in the date's location.
func Combine(date time.Time, clock string) (time.Time, error) {
	m, err := ClockToMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, date.Location()), nil
}
