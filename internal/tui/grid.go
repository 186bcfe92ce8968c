package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/tui/view"
)

// renderTimeGrid draws the day or week view: a header row with the day
// labels, then one line per RowLines fraction of an hour.
func (m Model) renderTimeGrid(l Layout) string {
	days := calendar.Days(m.state.View, m.state.Anchor)
	appts := m.visible()
	blocks := l.blocks(days, appts)
	now := m.now()

	labels, todayCols := view.DayLabels(days, now)
	header := []string{m.styles.GutterStyle.Render(strings.Repeat(" ", gutterWidth))}
	for i, label := range labels {
		style := m.styles.DayHeaderStyle
		if todayCols[i] {
			style = m.styles.DayHeaderToday
		}
		header = append(header, style.Render(view.Fit(" "+label, l.ColWidth)))
	}

	columns := make([][]string, len(days))
	for col, day := range days {
		heat := availability.Heatmap(
			availability.BusyFromAppointments(appts, day, ""),
			l.FirstHour,
			l.FirstHour+l.Hours,
		)
		columns[col] = m.renderColumn(l, col, blocks, heat, now)
	}

	lines := make([]string, 0, l.Rows()+1)
	lines = append(lines, strings.Join(header, ""))
	for y := 0; y < l.Rows(); y++ {
		var sb strings.Builder
		sb.WriteString(m.styles.GutterStyle.Render(gutterLabel(l, y)))
		for col := range columns {
			sb.WriteString(columns[col][y])
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

func gutterLabel(l Layout, y int) string {
	if y%l.RowLines != 0 {
		return strings.Repeat(" ", gutterWidth)
	}
	return fmt.Sprintf("%02d:00 ", l.FirstHour+y/l.RowLines)
}

// renderColumn returns the grid lines of one day column, each exactly
// ColWidth cells wide.
func (m Model) renderColumn(l Layout, col int, blocks []block, heat []int, now time.Time) []string {
	var own []block
	for _, b := range blocks {
		if b.col == col {
			own = append(own, b)
		}
	}

	left, right := col*l.ColWidth, (col+1)*l.ColWidth
	out := make([]string, l.Rows())
	for y := range out {
		empty := m.styles.Heat(heatAt(heat, y/l.RowLines))
		var sb strings.Builder
		for x := left; x < right; {
			if b, ok := blockAt(own, x, y); ok {
				w := min(b.x+b.width, right) - x
				sb.WriteString(m.blockStyle(b, y, now).Render(view.Fit(blockText(b.appt, y-b.top, m.store.IsPending(b.appt.ID)), w)))
				x += w
				continue
			}
			next := right
			for _, b := range own {
				if b.x > x && b.x < next && y >= b.top && y < b.top+b.lines {
					next = b.x
				}
			}
			sb.WriteString(empty.Render(strings.Repeat(" ", next-x)))
			x = next
		}
		out[y] = sb.String()
	}
	return out
}

func heatAt(heat []int, i int) int {
	if i < 0 || i >= len(heat) {
		return 0
	}
	return heat[i]
}

func blockAt(blocks []block, x, y int) (block, bool) {
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].covers(x, y) {
			return blocks[i], true
		}
	}
	return block{}, false
}

func (m Model) blockStyle(b block, y int, now time.Time) lipgloss.Style {
	var style lipgloss.Style
	switch {
	case m.state.Gesture.Active() && m.state.Gesture.Target.ID == b.appt.ID:
		style = m.styles.BlockGhostStyle
	case b.appt.ID == m.selected:
		style = m.styles.BlockSelectedStyle
	default:
		style = m.styles.Block(b.appt, b.appt.End().Before(now))
	}
	if b.handle(y) {
		style = style.Underline(true)
	}
	return style
}

// blockText returns line i of an appointment block.
func blockText(a *appointment.Appointment, i int, pending bool) string {
	switch i {
	case 0:
		prefix := " "
		if pending {
			prefix = "◌"
		}
		return prefix + a.TimeString() + " " + a.ClientName
	case 1:
		s := " " + string(a.Kind)
		if a.Location != "" {
			s += " · " + a.Location
		}
		return s
	case 2:
		if a.CounselorName != "" {
			return " " + a.CounselorName
		}
	case 3:
		if a.Recurring != "" && a.Recurring != appointment.RecurrenceNone {
			return " ↻ " + string(a.Recurring)
		}
	}
	return ""
}
