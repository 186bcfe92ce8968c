package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// Stats holds aggregated statistics for a set of appointments.
type Stats struct {
	Sessions  int // not canceled
	Minutes   int
	Canceled  int
	Completed int
	ByKind    map[appointment.Kind]int
	DayStats  map[string]DayStats
}

// DayStats holds statistics for a single day.
type DayStats struct {
	Sessions int
	Minutes  int
}

// BusiestDay returns the day with the most booked minutes.
func (s Stats) BusiestDay() (day string, minutes int) {
	days := make([]string, 0, len(s.DayStats))
	for d := range s.DayStats {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		if ds := s.DayStats[d]; ds.Minutes > minutes {
			minutes = ds.Minutes
			day = d
		}
	}
	return day, minutes
}

// AccumulateStats updates stats with one appointment.
func AccumulateStats(stats *Stats, a *appointment.Appointment) {
	if stats.ByKind == nil {
		stats.ByKind = make(map[appointment.Kind]int)
	}
	if stats.DayStats == nil {
		stats.DayStats = make(map[string]DayStats)
	}
	switch a.Status {
	case appointment.StatusCanceled:
		stats.Canceled++
		return
	case appointment.StatusCompleted:
		stats.Completed++
	}
	stats.Sessions++
	stats.Minutes += a.Duration
	stats.ByKind[a.Kind]++

	key := a.DateString()
	ds := stats.DayStats[key]
	ds.Sessions++
	ds.Minutes += a.Duration
	stats.DayStats[key] = ds
}

// AgendaOpts configures agenda printing.
type AgendaOpts struct {
	Verbose  bool // show notes and ids
	MaxWidth int  // client name width, 0 = auto
}

// nameWidth calculates the client name column width.
func (o AgendaOpts) nameWidth(defaultWidth int) int {
	if o.MaxWidth > 0 {
		return o.MaxWidth
	}
	if !o.Verbose {
		return defaultWidth
	}
	// "  ○  HH:MM-HH:MM  " plus kind and duration columns
	available := termWidth() - 48
	if available > defaultWidth {
		return available
	}
	return defaultWidth
}

// PrintAgenda writes appointments grouped by day with a stats footer.
func PrintAgenda(w io.Writer, title string, appts []*appointment.Appointment, opts AgendaOpts) {
	fmt.Fprintf(w, "\n  %s\n", formatHeader(title))
	fmt.Fprintln(w, strings.Repeat("─", 74))

	if len(appts) == 0 {
		fmt.Fprintln(w, "  No appointments.")
		return
	}

	width := opts.nameWidth(24)
	var (
		stats       Stats
		currentDate string
	)
	for _, a := range appts {
		if date := a.DateString(); date != currentDate {
			if currentDate != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s\n", formatHeader(a.Start.Format("Mon Jan 2")))
			currentDate = date
		}
		PrintAppointmentRow(w, a, opts, width)
		AccumulateStats(&stats, a)
	}

	fmt.Fprintln(w, strings.Repeat("─", 74))
	PrintStats(w, stats)
}

// PrintAppointmentRow prints a single appointment with consistent columns.
func PrintAppointmentRow(w io.Writer, a *appointment.Appointment, opts AgendaOpts, nameWidth int) {
	symbol := statusSymbol(a.Status)
	name := truncate(a.ClientName, nameWidth)
	kind := formatKind(a.Kind, fmt.Sprintf("%-9s", a.Kind))
	if !a.IsActive() {
		name = formatMuted(fmt.Sprintf("%-*s", nameWidth, name))
	} else {
		name = fmt.Sprintf("%-*s", nameWidth, name)
	}

	extra := make([]string, 0, 3)
	if a.CounselorName != "" {
		extra = append(extra, a.CounselorName)
	}
	if a.Location != "" {
		extra = append(extra, a.Location)
	}
	if a.Recurring != "" && a.Recurring != appointment.RecurrenceNone {
		extra = append(extra, "↻ "+string(a.Recurring))
	}

	fmt.Fprintf(w, "    %s  %s-%s  %s  %s  %s  %s\n",
		symbol, a.TimeString(), a.End().Format("15:04"),
		kind, name, formatMuted(fmt.Sprintf("%5s", FormatDuration(a.Duration))),
		formatMuted(strings.Join(extra, " · ")))

	if opts.Verbose {
		fmt.Fprintf(w, "       %s\n", formatMuted("id "+a.ID))
		if a.Notes != "" {
			fmt.Fprintf(w, "       %s\n", formatMuted(a.Notes))
		}
	}
}

// PrintStats prints the stats summary.
func PrintStats(w io.Writer, stats Stats) {
	fmt.Fprintf(w, "  Sessions: %d  |  Booked: %s  |  In person: %d  Online: %d  Phone: %d\n",
		stats.Sessions, FormatDuration(stats.Minutes),
		stats.ByKind[appointment.KindInPerson], stats.ByKind[appointment.KindOnline], stats.ByKind[appointment.KindPhone])

	if day, minutes := stats.BusiestDay(); day != "" && len(stats.DayStats) > 1 {
		t, err := time.Parse(appointment.DateLayout, day)
		if err == nil {
			day = t.Format("Mon Jan 2")
		}
		fmt.Fprintf(w, "  Busiest day: %s (%s)\n", day, formatOK(FormatDuration(minutes)))
	}

	if stats.Canceled > 0 || stats.Completed > 0 {
		fmt.Fprintf(w, "  %s\n", formatMuted(fmt.Sprintf("Completed: %d  |  Canceled: %d", stats.Completed, stats.Canceled)))
	}
}

// LoadBar draws how many of the day's slots are booked.
func LoadBar(booked, slots, width int) string {
	if slots <= 0 {
		return "[" + strings.Repeat("░", width) + "]"
	}
	filled := min((booked*width)/slots, width)
	pct := min((booked*100)/slots, 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %d%% booked", bar, pct)
}

// FormatDuration formats minutes as a human-readable duration.
func FormatDuration(minutes int) string {
	if minutes == 0 {
		return "0m"
	}
	hours := minutes / 60
	mins := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, mins)
}

// statusSymbol returns the status indicator for an appointment.
func statusSymbol(s appointment.Status) string {
	switch s {
	case appointment.StatusScheduled:
		return "○"
	case appointment.StatusCompleted:
		return "●"
	case appointment.StatusCanceled:
		return "✗"
	default:
		return "?"
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
