package calendar

import (
	"fmt"
	"strings"
	"time"
)

// MonthCells is the fixed size of a month grid (6 rows of 7 days).
const MonthCells = 42

// Cell is one day in a month grid.
type Cell struct {
	Date     time.Time
	InPeriod bool // false for leading/trailing days of adjacent months
}

// View is the calendar granularity.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView parses a view name.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewDay:
		return ViewDay, nil
	case ViewWeek, "":
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// Columns returns the number of day columns the view lays out.
func (v View) Columns() int {
	if v == ViewDay {
		return 1
	}
	return 7
}

// WeekStart returns the Sunday at or before anchor, at midnight.
func WeekStart(anchor time.Time) time.Time {
	d := day(anchor)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeekGrid returns the 7 consecutive days of anchor's week, Sunday first.
func WeekGrid(anchor time.Time) []time.Time {
	start := WeekStart(anchor)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthGrid returns the 42 cells covering anchor's month, starting on
// firstWeekday.
func MonthGrid(anchor time.Time, firstWeekday time.Weekday) []Cell {
	first := firstOfMonth(anchor)
	offset := (int(first.Weekday()) - int(firstWeekday) + 7) % 7
	start := first.AddDate(0, 0, -offset)

	cells := make([]Cell, MonthCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		cells[i] = Cell{Date: d, InPeriod: d.Month() == first.Month()}
	}
	return cells
}

// MonthCellDate returns the date of the cell at (row, col) of anchor's month grid.
// Out-of-range coordinates are clamped to the grid.
func MonthCellDate(anchor time.Time, firstWeekday time.Weekday, row, col int) time.Time {
	row = clamp(row, 0, MonthCells/7-1)
	col = clamp(col, 0, 6)
	return MonthGrid(anchor, firstWeekday)[row*7+col].Date
}

// Days returns the dates shown as columns by a day or week view.
func Days(v View, anchor time.Time) []time.Time {
	if v == ViewDay {
		return []time.Time{day(anchor)}
	}
	return WeekGrid(anchor)
}

// CommitDate resolves the date a dropped appointment lands on: the anchor in
// day view, and the week's Sunday plus dayIndex in week view.
func CommitDate(v View, anchor time.Time, dayIndex int) time.Time {
	if v == ViewDay {
		return day(anchor)
	}
	return WeekStart(anchor).AddDate(0, 0, clamp(dayIndex, 0, 6))
}

// Shift moves anchor by delta periods of the view.
func Shift(v View, anchor time.Time, delta int) time.Time {
	switch v {
	case ViewDay:
		return day(anchor).AddDate(0, 0, delta)
	case ViewMonth:
		return firstOfMonth(anchor).AddDate(0, delta, 0)
	default:
		return day(anchor).AddDate(0, 0, 7*delta)
	}
}

// Visible returns the inclusive date range a view displays.
func Visible(v View, anchor time.Time, firstWeekday time.Weekday) (start, end time.Time) {
	switch v {
	case ViewDay:
		d := day(anchor)
		return d, d
	case ViewMonth:
		cells := MonthGrid(anchor, firstWeekday)
		return cells[0].Date, cells[MonthCells-1].Date
	default:
		s := WeekStart(anchor)
		return s, s.AddDate(0, 0, 6)
	}
}

// FetchWindow returns the range loaded around anchor: from the first day of
// the previous month to the last day of the next month.
func FetchWindow(anchor time.Time) (start, end time.Time) {
	first := firstOfMonth(anchor)
	return first.AddDate(0, -1, 0), first.AddDate(0, 2, -1)
}

// Covers reports whether [start, end] contains [innerStart, innerEnd].
func Covers(start, end, innerStart, innerEnd time.Time) bool {
	return !innerStart.Before(start) && !innerEnd.After(end)
}

// Title returns the header label of a view.
func Title(v View, anchor time.Time) string {
	switch v {
	case ViewDay:
		return anchor.Format("Monday, January 2 2006")
	case ViewMonth:
		return anchor.Format("January 2006")
	default:
		s := WeekStart(anchor)
		e := s.AddDate(0, 0, 6)
		if s.Month() == e.Month() {
			return fmt.Sprintf("%s %d-%d, %d", s.Format("Jan"), s.Day(), e.Day(), e.Year())
		}
		return fmt.Sprintf("%s - %s", s.Format("Jan 2"), e.Format("Jan 2, 2006"))
	}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
