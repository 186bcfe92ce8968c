package tui

import (
	"math"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
	"github.com/javiermolinar/clinicflow/internal/gesture"
)

const (
	gutterWidth  = 6
	titleHeight  = 1
	headerHeight = 1
	footerHeight = 2
	maxRowLines  = 4 // one line per quarter hour
	monthRows    = calendar.MonthCells / 7
)

// Layout is the terminal geometry of one frame. Grid coordinates are
// relative to (GridLeft, GridTop); one terminal cell is one pixel for the
// gesture controller.
type Layout struct {
	Width, Height int
	View          calendar.View
	FirstWeekday  time.Weekday

	GridTop  int
	GridLeft int
	GridH    int
	Columns  int
	ColWidth int

	// Day and week view.
	RowLines  int // lines per hour
	FirstHour int // hour on the first grid line
	Hours     int // hours that fit on screen
	MaxScroll int

	// Month view.
	CellH int
}

func newLayout(width, height int, view calendar.View, firstWeekday time.Weekday, dayStart, dayEnd float64, scroll int) Layout {
	l := Layout{
		Width:        width,
		Height:       height,
		View:         view,
		FirstWeekday: firstWeekday,
		GridTop:      titleHeight + headerHeight,
		Columns:      view.Columns(),
	}
	l.GridH = max(height-l.GridTop-footerHeight, 0)

	if view == calendar.ViewMonth {
		l.ColWidth = max(width/7, 1)
		l.CellH = max(l.GridH/monthRows, 1)
		return l
	}

	l.GridLeft = gutterWidth
	l.ColWidth = max((width-gutterWidth)/l.Columns, 1)

	first := int(math.Floor(dayStart))
	total := max(int(math.Ceil(dayEnd))-first, 1)
	l.RowLines = min(max(l.GridH/total, 1), maxRowLines)
	l.Hours = min(total, l.GridH/l.RowLines)
	l.MaxScroll = total - l.Hours
	l.FirstHour = first + min(max(scroll, 0), l.MaxScroll)
	return l
}

// Rows returns the number of grid lines drawn.
func (l Layout) Rows() int {
	if l.View == calendar.ViewMonth {
		return monthRows * l.CellH
	}
	return l.Hours * l.RowLines
}

// Geometry describes the grid to the gesture controller.
func (l Layout) Geometry() gesture.Geometry {
	return gesture.Geometry{
		RowHeight:    float64(l.RowLines),
		FirstHour:    float64(l.FirstHour),
		Width:        float64(l.Columns * l.ColWidth),
		Height:       float64(monthRows * l.CellH),
		FirstWeekday: l.FirstWeekday,
	}
}

// InGrid reports whether the screen cell (x, y) is over the day columns.
func (l Layout) InGrid(x, y int) bool {
	return x >= l.GridLeft && x < l.GridLeft+l.Columns*l.ColWidth &&
		y >= l.GridTop && y < l.GridTop+l.Rows()
}

// Point converts a screen cell to grid coordinates. The bottom edge of the
// cell is used while resizing so that releasing on a line includes it.
func (l Layout) Point(x, y int, bottomEdge bool) gesture.Point {
	p := gesture.Point{X: float64(x - l.GridLeft), Y: float64(y - l.GridTop)}
	if bottomEdge {
		p.Y++
	}
	return p
}

// block is an appointment placed on the time grid.
type block struct {
	appt  *appointment.Appointment
	col   int
	x     int // first grid column
	width int
	top   int // first grid line, negative when scrolled past
	lines int
}

func (b block) covers(x, y int) bool {
	return x >= b.x && x < b.x+b.width && y >= b.top && y < b.top+b.lines
}

// handle reports whether line y is the resize handle of b.
func (b block) handle(y int) bool {
	return b.lines >= 2 && y == b.top+b.lines-1
}

// blocks places appts on the columns of days. Overlapping appointments of a
// day share the column in lanes.
func (l Layout) blocks(days []time.Time, appts []*appointment.Appointment) []block {
	var out []block
	for col, day := range days {
		var dayAppts []*appointment.Appointment
		for _, a := range appts {
			if dateutil.SameDay(a.Start, day) {
				dayAppts = append(dayAppts, a)
			}
		}

		lanes := make([]int, len(dayAppts))
		var laneEnds []time.Time
		for i, a := range dayAppts {
			lane := -1
			for j, end := range laneEnds {
				if !end.After(a.Start) {
					lane = j
					break
				}
			}
			if lane < 0 {
				lane = len(laneEnds)
				laneEnds = append(laneEnds, time.Time{})
			}
			laneEnds[lane] = a.End()
			lanes[i] = lane
		}

		n := max(len(laneEnds), 1)
		laneW := max(l.ColWidth/n, 1)
		for i, a := range dayAppts {
			start := (a.Hour() - float64(l.FirstHour)) * float64(l.RowLines)
			end := start + a.DurationHours()*float64(l.RowLines)
			top := int(math.Floor(start))
			b := block{
				appt:  a,
				col:   col,
				x:     col*l.ColWidth + lanes[i]*laneW,
				width: laneW,
				top:   top,
				lines: max(int(math.Ceil(end))-top, 1),
			}
			if lanes[i] == n-1 {
				b.width = (col+1)*l.ColWidth - b.x
			}
			out = append(out, b)
		}
	}
	return out
}

// hitBlock finds the block under the screen cell (x, y).
func (l Layout) hitBlock(blocks []block, x, y int) (block, gesture.Part, bool) {
	if !l.InGrid(x, y) {
		return block{}, gesture.Body, false
	}
	gx, gy := x-l.GridLeft, y-l.GridTop
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		if !b.covers(gx, gy) {
			continue
		}
		if b.handle(gy) {
			return b, gesture.ResizeHandle, true
		}
		return b, gesture.Body, true
	}
	return block{}, gesture.Body, false
}

// monthDay holds the appointments of one month cell and how many of them
// fit. The remainder is summarized on the last line.
type monthDay struct {
	cell  calendar.Cell
	appts []*appointment.Appointment
	shown int
}

func (l Layout) monthDays(anchor time.Time, appts []*appointment.Appointment) []monthDay {
	cells := calendar.MonthGrid(anchor, l.FirstWeekday)
	out := make([]monthDay, len(cells))
	capacity := max(l.CellH-1, 0)
	for i, c := range cells {
		d := monthDay{cell: c}
		for _, a := range appts {
			if dateutil.SameDay(a.Start, c.Date) {
				d.appts = append(d.appts, a)
			}
		}
		d.shown = len(d.appts)
		if d.shown > capacity {
			d.shown = max(capacity-1, 0)
		}
		out[i] = d
	}
	return out
}

// hitMonth finds the appointment listed under the screen cell (x, y).
func (l Layout) hitMonth(days []monthDay, x, y int) (*appointment.Appointment, bool) {
	if !l.InGrid(x, y) {
		return nil, false
	}
	gx, gy := x-l.GridLeft, y-l.GridTop
	row, col := gy/l.CellH, min(gx/l.ColWidth, 6)
	idx := row*7 + col
	if idx < 0 || idx >= len(days) {
		return nil, false
	}
	line := gy%l.CellH - 1
	d := days[idx]
	if line < 0 || line >= d.shown {
		return nil, false
	}
	return d.appts[line], true
}
