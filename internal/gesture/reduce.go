package gesture

import (
	"math"
	"time"

	"github.com/javiermolinar/clinicflow/internal/calendar"
)

// Event is an input to Reduce.
type Event interface{ event() }

// PointerDown presses on an appointment block.
type PointerDown struct {
	Target Target
	Part   Part
	At     Point
}

// PointerMove moves the pointer inside the grid.
type PointerMove struct {
	At Point
}

// PointerUp releases the pointer inside the grid.
type PointerUp struct {
	At Point
}

// PointerLeave reports the pointer left the grid. An active gesture commits
// at its last known position.
type PointerLeave struct{}

// SetView switches granularity.
type SetView struct {
	View calendar.View
}

// SetAnchor jumps to a date.
type SetAnchor struct {
	Date time.Time
}

// Navigate moves the anchor by Delta periods of the current view.
type Navigate struct {
	Delta int
}

func (PointerDown) event()  {}
func (PointerMove) event()  {}
func (PointerUp) event()    {}
func (PointerLeave) event() {}
func (SetView) event()      {}
func (SetAnchor) event()    {}
func (Navigate) event()     {}

// Effect is an instruction produced by Reduce for the caller to carry out.
type Effect interface{ effect() }

// Preview asks for an optimistic, uncommitted write of the target.
type Preview struct {
	ID       string
	Start    time.Time
	Duration int
}

// Commit asks for the target to be persisted at its final position.
type Commit struct {
	ID       string
	Start    time.Time
	Duration int
	Resize   bool
}

func (Preview) effect() {}
func (Commit) effect()  {}

const lastStart = 24 - calendar.Step

// Reduce applies ev to s and returns the next state along with the effects
// the caller must run. s is never modified.
func Reduce(s ViewState, geo Geometry, ev Event) (ViewState, []Effect) {
	switch ev := ev.(type) {
	case PointerDown:
		return pointerDown(s, geo, ev)
	case PointerMove:
		return pointerMove(s, geo, ev.At)
	case PointerUp:
		if !s.Gesture.Active() {
			return s, nil
		}
		next, effects := pointerMove(s, geo, ev.At)
		final, commit := release(next)
		return final, append(effects, commit...)
	case PointerLeave:
		return release(s)
	case SetView:
		if s.Gesture.Active() || ev.View == "" {
			return s, nil
		}
		s.View = ev.View
		return s, nil
	case SetAnchor:
		if s.Gesture.Active() {
			return s, nil
		}
		s.Anchor = ev.Date
		return s, nil
	case Navigate:
		if s.Gesture.Active() || ev.Delta == 0 {
			return s, nil
		}
		s.Anchor = calendar.Shift(s.View, s.Anchor, ev.Delta)
		return s, nil
	}
	return s, nil
}

func pointerDown(s ViewState, geo Geometry, ev PointerDown) (ViewState, []Effect) {
	if s.Gesture.Active() || ev.Target.ID == "" {
		return s, nil
	}

	startHour := calendar.HourOf(ev.Target.Start)
	g := Gesture{
		Phase:    Dragging,
		Target:   ev.Target,
		Hour:     startHour,
		Duration: ev.Target.Duration,
		Date:     dayOf(ev.Target.Start),
		origin:   ev.At,
	}
	if ev.Part == ResizeHandle && s.View != calendar.ViewMonth {
		g.Phase = Resizing
	}
	if s.View != calendar.ViewMonth && geo.RowHeight > 0 {
		g.grab = geo.FirstHour + ev.At.Y/geo.RowHeight - startHour
	}
	if s.View != calendar.ViewMonth {
		g.DayIndex = dayIndexOf(s, ev.Target.Start)
	}

	s.Gesture = g
	ghost := ev.At
	s.Ghost = &ghost
	return s, nil
}

func pointerMove(s ViewState, geo Geometry, at Point) (ViewState, []Effect) {
	if !s.Gesture.Active() {
		return s, nil
	}
	g := s.Gesture
	ghost := at
	s.Ghost = &ghost
	if !g.moved && at == g.origin {
		return s, nil
	}
	g.moved = true

	switch {
	case g.Phase == Resizing:
		startHour := calendar.HourOf(g.Target.Start)
		end := calendar.PixelToTime(at.Y, geo.RowHeight, geo.FirstHour)
		hours := math.Max(calendar.Step, end-startHour)
		hours = math.Min(hours, math.Max(calendar.Step, 24-startHour))
		g.Duration = int(math.Round(hours * 60))
	case s.View == calendar.ViewMonth:
		row := 0
		if geo.Height > 0 {
			row = int(math.Floor(at.Y / (geo.Height / float64(calendar.MonthCells/7))))
		}
		col := calendar.PixelToDayIndex(at.X, geo.Width, 7)
		g.Date = calendar.MonthCellDate(s.Anchor, geo.FirstWeekday, row, col)
	default:
		g.DayIndex = calendar.PixelToDayIndex(at.X, geo.Width, s.View.Columns())
		hour := calendar.PixelToTime(at.Y-g.grab*geo.RowHeight, geo.RowHeight, geo.FirstHour)
		g.Hour = math.Min(math.Max(hour, 0), lastStart)
	}

	s.Gesture = g
	return s, []Effect{Preview{ID: g.Target.ID, Start: s.Start(), Duration: g.Duration}}
}

// release ends the gesture and commits it unless nothing changed.
func release(s ViewState) (ViewState, []Effect) {
	if !s.Gesture.Active() {
		return s, nil
	}
	g := s.Gesture
	start := s.Start()

	s.Gesture = Gesture{}
	s.Ghost = nil

	if start.Equal(g.Target.Start) && g.Duration == g.Target.Duration {
		return s, nil
	}
	return s, []Effect{Commit{
		ID:       g.Target.ID,
		Start:    start,
		Duration: g.Duration,
		Resize:   g.Phase == Resizing,
	}}
}

// dayIndexOf returns the column t occupies in the current day or week view,
// or 0 when it is not visible.
func dayIndexOf(s ViewState, t time.Time) int {
	if s.View == calendar.ViewDay {
		return 0
	}
	idx := int(math.Round(dayOf(t).Sub(calendar.WeekStart(s.Anchor)).Hours() / 24))
	if idx < 0 || idx > 6 {
		return 0
	}
	return idx
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
