package view

import (
	"time"
)

// DayLabels builds column labels for the days of a day or week view and
// marks the column showing today.
func DayLabels(days []time.Time, today time.Time) ([]string, map[int]bool) {
	labels := make([]string, 0, len(days))
	todayCols := make(map[int]bool)

	long := len(days) == 1
	for i, d := range days {
		label := d.Format("Mon 2")
		if long {
			label = d.Format("Monday, January 2")
		}
		if sameDay(d, today) {
			todayCols[i] = true
		}
		labels = append(labels, label)
	}

	return labels, todayCols
}

// WeekdayLabels returns the short weekday names of a month grid, starting at
// first.
func WeekdayLabels(first time.Weekday) []string {
	labels := make([]string, 7)
	for i := range labels {
		labels[i] = time.Weekday((int(first) + i) % 7).String()[:3]
	}
	return labels
}

func sameDay(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}
