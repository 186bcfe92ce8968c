// Package gesture turns pointer events into calendar edits. All state lives
// in an immutable ViewState and every transition is a pure function.
package gesture

import (
	"time"

	"github.com/javiermolinar/clinicflow/internal/calendar"
)

// Phase is the state of the drag/resize machine.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Resizing
)

func (p Phase) String() string {
	switch p {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Part is the region of an appointment block that was pressed.
type Part int

const (
	Body Part = iota
	ResizeHandle
)

// Point is a pointer position relative to the top-left corner of the grid
// area (the day columns, excluding the hour gutter).
type Point struct {
	X, Y float64
}

// Target is the appointment a gesture acts on, as it was when pressed.
type Target struct {
	ID       string
	Start    time.Time
	Duration int // minutes
}

// Geometry describes the laid-out grid the pointer moves over.
type Geometry struct {
	RowHeight    float64 // pixels per hour in day and week view
	FirstHour    float64 // hour at Y == 0
	Width        float64 // width of all day columns together
	Height       float64 // height of the month grid
	FirstWeekday time.Weekday
}

// Gesture is the live state of an active drag or resize.
type Gesture struct {
	Phase    Phase
	Target   Target
	origin   Point
	moved    bool
	grab     float64   // hours between the pointer and the block top at press time
	DayIndex int       // current column in day and week view
	Date     time.Time // current cell in month view
	Hour     float64   // current start hour while dragging
	Duration int       // current duration in minutes
}

// Active reports whether a drag or resize is in progress.
func (g Gesture) Active() bool {
	return g.Phase != Idle
}

// ViewState is everything the calendar needs to know about what is shown and
// what the pointer is doing. Values are never mutated in place.
type ViewState struct {
	View    calendar.View
	Anchor  time.Time
	Gesture Gesture
	Ghost   *Point // raw pointer while a gesture is active
}

// NewViewState returns an idle state showing view around anchor.
func NewViewState(view calendar.View, anchor time.Time) ViewState {
	return ViewState{View: view, Anchor: anchor}
}

// Start returns the instant the target would land on if the gesture ended now.
func (s ViewState) Start() time.Time {
	g := s.Gesture
	switch {
	case g.Phase == Resizing:
		return g.Target.Start
	case s.View == calendar.ViewMonth:
		return calendar.AtHour(g.Date, calendar.HourOf(g.Target.Start))
	default:
		return calendar.AtHour(calendar.CommitDate(s.View, s.Anchor, g.DayIndex), g.Hour)
	}
}
