package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/javiermolinar/clinicflow/internal/dateutil"
	"github.com/javiermolinar/clinicflow/internal/tui/view"
)

// renderMonth draws the six-week month grid.
func (m Model) renderMonth(l Layout) string {
	days := l.monthDays(m.state.Anchor, m.visible())
	now := m.now()

	var header []string
	for _, label := range view.WeekdayLabels(l.FirstWeekday) {
		header = append(header, m.styles.DayHeaderStyle.Render(view.Fit(" "+label, l.ColWidth)))
	}

	lines := make([]string, 0, l.Rows()+1)
	lines = append(lines, strings.Join(header, ""))
	for row := 0; row < monthRows; row++ {
		for line := 0; line < l.CellH; line++ {
			var sb strings.Builder
			for col := 0; col < 7; col++ {
				sb.WriteString(m.monthCellLine(days[row*7+col], line, l.ColWidth, now))
			}
			lines = append(lines, sb.String())
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) monthCellLine(d monthDay, line, width int, now time.Time) string {
	s := m.styles
	if line == 0 {
		style := s.MonthCellStyle
		switch {
		case !d.cell.InPeriod:
			style = s.MonthOutStyle
		case dateutil.SameDay(d.cell.Date, now):
			style = s.MonthTodayStyle
		}
		return style.Render(view.Fit(fmt.Sprintf(" %d", d.cell.Date.Day()), width))
	}

	i := line - 1
	switch {
	case i < d.shown:
		a := d.appts[i]
		style := s.Block(a, a.End().Before(now))
		switch {
		case m.state.Gesture.Active() && m.state.Gesture.Target.ID == a.ID:
			style = s.BlockGhostStyle
		case a.ID == m.selected:
			style = s.BlockSelectedStyle
		}
		text := blockText(a, 0, m.store.IsPending(a.ID))
		return style.Render(view.Fit(text, width-1)) + s.EmptyCellStyle.Render(" ")
	case i == d.shown && len(d.appts) > d.shown:
		return s.MoreStyle.Render(view.Fit(fmt.Sprintf(" +%d more", len(d.appts)-d.shown), width))
	}
	return s.EmptyCellStyle.Render(strings.Repeat(" ", width))
}
