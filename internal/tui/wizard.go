package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/booking"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
	"github.com/javiermolinar/clinicflow/internal/tui/commands"
	"github.com/javiermolinar/clinicflow/internal/tui/view"
)

// Form fields of the intake steps. The first three belong to the identity
// step, the rest to the clinical step.
const (
	fieldName = iota
	fieldPhone
	fieldEmail
	fieldConcern
	fieldReferral
	fieldNotes
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Phone", "Email", "Concern", "Referral", "Notes"}

var kinds = []appointment.Kind{appointment.KindInPerson, appointment.KindOnline, appointment.KindPhone}

var recurrences = []appointment.Recurrence{
	appointment.RecurrenceNone,
	appointment.RecurrenceWeekly,
	appointment.RecurrenceBiWeekly,
	appointment.RecurrenceMonthly,
}

const durationStep = 5

// wizardModel wraps a booking.Wizard with its text inputs.
type wizardModel struct {
	w       *booking.Wizard
	inputs  [fieldCount]textinput.Model
	focus   int
	formErr string
	seq     uint64 // pending reschedule mutation
}

func newWizardModel(w *booking.Wizard, styles *Styles) *wizardModel {
	wm := &wizardModel{w: w}
	for i := range wm.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 32
		ti.PlaceholderStyle = styles.ModalPlaceholderStyle
		ti.TextStyle = styles.ModalInputTextStyle
		ti.PromptStyle = styles.ModalInputTextStyle
		ti.Cursor.Style = styles.ModalInputCursorStyle
		ti.Cursor.TextStyle = styles.ModalInputTextStyle
		wm.inputs[i] = ti
	}
	wm.inputs[fieldEmail].Placeholder = "optional"
	wm.inputs[fieldReferral].Placeholder = "optional"
	wm.inputs[fieldNotes].Placeholder = "optional"
	if w.Step() != booking.StepSchedule {
		wm.setFocus(w.Step(), 0)
	}
	return wm
}

// fields returns the input indexes of a form step.
func fields(step booking.Step) (first, last int) {
	if step == booking.StepClinical {
		return fieldConcern, fieldNotes
	}
	return fieldName, fieldEmail
}

func (wm *wizardModel) setFocus(step booking.Step, offset int) {
	first, last := fields(step)
	n := last - first + 1
	wm.focus = first + ((offset%n)+n)%n
	for i := range wm.inputs {
		if i == wm.focus {
			wm.inputs[i].Focus()
		} else {
			wm.inputs[i].Blur()
		}
	}
}

// sync copies the text inputs into the wizard.
func (wm *wizardModel) sync() {
	w := wm.w
	w.Identity.Name = wm.inputs[fieldName].Value()
	w.Identity.Phone = wm.inputs[fieldPhone].Value()
	w.Identity.Email = wm.inputs[fieldEmail].Value()
	w.Clinical.Concern = wm.inputs[fieldConcern].Value()
	w.Clinical.Referral = wm.inputs[fieldReferral].Value()
	w.Clinical.Notes = wm.inputs[fieldNotes].Value()
}

// openIntake starts the new client dialog on the anchor day.
func (m Model) openIntake() (tea.Model, tea.Cmd) {
	w := booking.NewIntake(m.tracker, m.now(), m.config.Schedule.DefaultDuration)
	req := w.SelectDate(m.intakeDay())
	m.wizard = newWizardModel(w, m.styles)
	m.mode = ModeWizard
	m.logger.Debug("opening intake dialog")
	return m, commands.CheckAvailability(m.repo, req)
}

// intakeDay is the anchor, or today when the anchor lies in the past.
func (m Model) intakeDay() time.Time {
	today := dateutil.TruncateToDay(m.now())
	if m.state.Anchor.Before(today) {
		return today
	}
	return m.state.Anchor
}

// openReschedule starts the reschedule dialog for the selected appointment.
func (m Model) openReschedule() (tea.Model, tea.Cmd) {
	a, ok := m.selectedAppointment()
	if !ok {
		return m.setStatus("Select an appointment first"), nil
	}
	if m.store.IsPending(a.ID) {
		return m.setStatus("Still saving this appointment"), nil
	}
	if !a.IsActive() {
		return m.setStatus("Canceled appointments cannot be rescheduled"), nil
	}
	w := booking.NewReschedule(m.tracker, a)
	m.wizard = newWizardModel(w, m.styles)
	m.mode = ModeWizard
	return m, tea.Batch(commands.CheckAvailability(m.repo, w.Recheck()), m.tick())
}

func (m Model) closeWizard() Model {
	m.wizard = nil
	m.tracker.Reset()
	m.mode = ModeNormal
	return m
}

// handleWizardKeys handles keys while the booking dialog is open.
func (m Model) handleWizardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	wm := m.wizard
	if wm.w.Submitting() {
		return m, nil
	}
	if wm.w.Step() == booking.StepSchedule {
		return m.handleScheduleKeys(msg)
	}

	first, _ := fields(wm.w.Step())
	switch msg.String() {
	case "esc":
		wm.sync()
		if !wm.w.Back() {
			return m.closeWizard(), nil
		}
		wm.formErr = ""
		wm.setFocus(wm.w.Step(), 0)
		return m, nil
	case "tab", "down":
		wm.setFocus(wm.w.Step(), wm.focus-first+1)
		return m, nil
	case "shift+tab", "up":
		wm.setFocus(wm.w.Step(), wm.focus-first-1)
		return m, nil
	case "enter":
		wm.sync()
		if err := wm.w.Next(); err != nil {
			wm.formErr = formError(err)
			return m, nil
		}
		wm.formErr = ""
		if wm.w.Step() == booking.StepSchedule {
			for i := range wm.inputs {
				wm.inputs[i].Blur()
			}
			return m, tea.Batch(commands.CheckAvailability(m.repo, wm.w.Recheck()), m.tick())
		}
		wm.setFocus(wm.w.Step(), 0)
		return m, nil
	}

	var cmd tea.Cmd
	wm.inputs[wm.focus], cmd = wm.inputs[wm.focus].Update(msg)
	return m, cmd
}

// handleScheduleKeys handles the date, hour and detail pickers.
func (m Model) handleScheduleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	wm := m.wizard
	w := wm.w
	sched := w.Schedule()
	date := sched.Date
	if date.IsZero() {
		date = m.intakeDay()
	}

	var req availability.Request
	check := false

	switch msg.String() {
	case "esc":
		if w.Back() {
			wm.setFocus(w.Step(), 0)
			return m, nil
		}
		return m.closeWizard(), nil
	case "left", "h":
		req, check = w.SelectDate(date.AddDate(0, 0, -1)), true
	case "right", "l":
		req, check = w.SelectDate(date.AddDate(0, 0, 1)), true
	case "up":
		req, check = w.SelectDate(date.AddDate(0, 0, -7)), true
	case "down":
		req, check = w.SelectDate(date.AddDate(0, 0, 7)), true
	case "[":
		req, check = w.SelectDate(date.AddDate(0, -1, 0)), true
	case "]":
		req, check = w.SelectDate(date.AddDate(0, 1, 0)), true
	case "j", "k":
		hour := nextHour(sched.Hour, msg.String() == "j")
		r, err := w.SelectHour(hour)
		if err != nil {
			wm.formErr = err.Error()
			return m, nil
		}
		req, check = r, true
	case "K":
		_ = w.SetKind(cycle(kinds, sched.Kind))
	case "o":
		req, check = w.SelectCounselor(m.nextCounselor(sched.CounselorID)), true
	case "L":
		w.SetLocation(m.nextLocation(sched.Location))
	case "R":
		if w.Flow() == booking.FlowIntake {
			_ = w.SetRecurring(cycle(recurrences, sched.Recurring))
		}
	case "+", "=":
		_ = w.SetDuration(sched.Duration + durationStep)
	case "-":
		if err := w.SetDuration(sched.Duration - durationStep); err != nil {
			wm.formErr = "duration " + err.Error()
			return m, nil
		}
	case "enter":
		return m.confirmWizard()
	default:
		return m, nil
	}

	wm.formErr = ""
	if !check {
		return m, nil
	}
	return m, tea.Batch(commands.CheckAvailability(m.repo, req), m.tick())
}

// confirmWizard freezes the dialog and starts persisting it.
func (m Model) confirmWizard() (tea.Model, tea.Cmd) {
	wm := m.wizard
	sub, err := wm.w.Confirm()
	if err != nil {
		wm.formErr = formError(err)
		return m, nil
	}
	wm.formErr = ""

	if sub.Flow == booking.FlowIntake && sub.Create.ClientID == "" {
		m.logger.Info("registering intake client", zap.String("date", sub.Create.Date.Format(time.DateOnly)))
		return m, tea.Batch(commands.RegisterClient(m.repo, sub), m.tick())
	}
	return m.beginSubmission(sub)
}

// beginSubmission applies sub to the store and executes it.
func (m Model) beginSubmission(sub booking.Submission) (tea.Model, tea.Cmd) {
	wm := m.wizard
	mut, err := booking.Begin(m.store, sub)
	if err != nil {
		wm.w.Finish(err)
		return m, nil
	}
	wm.seq = mut.Seq
	m.selected = mut.ID
	if !sub.Update.Start.IsZero() {
		m.state.Anchor = sub.Update.Start
	} else if start, err := sub.Create.Start(); err == nil {
		m.state.Anchor = start
	}
	m, fetch := m.ensureWindow()
	return m, tea.Batch(commands.ExecuteMutation(m.repo, mut), fetch, m.tick())
}

func formError(err error) string {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("%s %s", capitalize(verr.Field), verr.Msg)
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// nextHour steps through the intake hours, starting at the first one.
func nextHour(current int, forward bool) int {
	if current < booking.FirstHour {
		return booking.FirstHour
	}
	if forward {
		return min(current+1, booking.LastHour)
	}
	return max(current-1, booking.FirstHour)
}

func cycle[T comparable](options []T, current T) T {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

// nextCounselor cycles through "any" and the loaded counselors.
func (m Model) nextCounselor(current string) string {
	ids := []string{""}
	for _, c := range m.counselors {
		ids = append(ids, c.ID)
	}
	return cycle(ids, current)
}

func (m Model) nextLocation(current string) string {
	names := []string{""}
	for _, l := range m.locations {
		names = append(names, l.Name)
	}
	return cycle(names, current)
}

func (m Model) counselorName(id string) string {
	if id == "" {
		return "any"
	}
	for _, c := range m.counselors {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

// renderWizard draws the booking dialog.
func (m Model) renderWizard() string {
	wm := m.wizard
	w := wm.w
	s := m.styles

	title := "New client"
	if w.Flow() == booking.FlowReschedule {
		title = "Reschedule " + w.Target().ClientName
	}

	var steps []string
	for _, st := range w.Steps() {
		label := st.String()
		if st == w.Step() {
			steps = append(steps, s.ModalOptionActiveStyle.Render(" "+label+" "))
		} else {
			steps = append(steps, s.ModalMutedStyle.Render(" "+label+" "))
		}
	}

	var body string
	switch w.Step() {
	case booking.StepIdentity, booking.StepClinical:
		body = m.renderFormStep()
	default:
		body = m.renderScheduleStep()
	}

	header := strings.Join(steps, s.ModalMutedStyle.Render("›"))
	if wm.formErr != "" {
		body += "\n\n" + s.ModalErrorStyle.Render(wm.formErr)
	} else if err := w.Err(); err != nil {
		body += "\n\n" + s.ModalErrorStyle.Render(capitalize(err.Error()))
	}

	return view.RenderModalFrame(title, header+"\n\n"+body, m.wizardFooter(), s.Modal())
}

func (m Model) renderFormStep() string {
	wm := m.wizard
	first, last := fields(wm.w.Step())
	lines := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			m.styles.ModalLabelStyle.Render(fieldLabels[i]),
			wm.inputs[i].View(),
		))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderScheduleStep() string {
	w := m.wizard.w
	s := m.styles
	sched := w.Schedule()

	picker := m.renderDatePicker()
	hours := m.renderHours()
	columns := lipgloss.JoinHorizontal(lipgloss.Top, picker, s.ModalBodyStyle.Render("   "), hours)

	row := func(label, value string) string {
		return s.ModalLabelStyle.Render(label) + s.ModalBodyStyle.Render(value)
	}
	location := sched.Location
	if location == "" {
		location = "-"
	}
	details := []string{
		row("Kind", string(sched.Kind)+"  (K)"),
		row("Counselor", m.counselorName(sched.CounselorID)+"  (o)"),
		row("Location", location+"  (L)"),
		row("Duration", fmt.Sprintf("%d min  (+/-)", sched.Duration)),
	}
	if w.Flow() == booking.FlowIntake {
		details = append(details, row("Repeats", string(sched.Recurring)+"  (R)"))
	}

	status := m.availabilityLine()
	return columns + "\n\n" + strings.Join(details, "\n") + "\n\n" + status
}

func (m Model) availabilityLine() string {
	w := m.wizard.w
	s := m.styles
	switch {
	case w.Submitting():
		return m.spinner.View() + s.ModalMutedStyle.Render(" Saving...")
	case w.Availability() == availability.StatusChecking:
		return m.spinner.View() + s.ModalMutedStyle.Render(" "+w.AvailabilityText())
	case w.Availability() == availability.StatusTaken:
		return s.ModalErrorStyle.Render(w.AvailabilityText())
	case w.Availability() == availability.StatusAvailable:
		return s.ModalOKStyle.Render(w.AvailabilityText())
	case w.Availability() == availability.StatusUnknown:
		return s.ModalMutedStyle.Render(w.AvailabilityText())
	}
	return s.ModalMutedStyle.Render("Pick a date and an hour.")
}

// renderDatePicker draws the month of the selected date.
func (m Model) renderDatePicker() string {
	w := m.wizard.w
	s := m.styles
	sched := w.Schedule()
	today := m.now()
	fw := m.config.FirstWeekday()

	lines := []string{s.ModalTitleStyle.Render(fmt.Sprintf("%-20s", w.Month().Format("January 2006")))}
	var header []string
	for _, d := range view.WeekdayLabels(fw) {
		header = append(header, d[:2])
	}
	lines = append(lines, s.ModalMutedStyle.Render(strings.Join(header, " ")))

	cells := w.MonthCells(fw)
	for row := 0; row < len(cells)/7; row++ {
		var parts []string
		for _, c := range cells[row*7 : row*7+7] {
			label := fmt.Sprintf("%2d", c.Date.Day())
			style := s.ModalBodyStyle
			switch {
			case !sched.Date.IsZero() && dateutil.SameDay(c.Date, sched.Date):
				style = s.ModalOptionActiveStyle
			case !c.InPeriod:
				style = s.ModalMutedStyle
			case dateutil.SameDay(c.Date, today):
				style = s.ModalOKStyle
			}
			parts = append(parts, style.Render(label))
		}
		lines = append(lines, strings.Join(parts, s.ModalBodyStyle.Render(" ")))
	}
	return strings.Join(lines, "\n")
}

// renderHours lists the intake hours shaded by how busy the day is.
func (m Model) renderHours() string {
	w := m.wizard.w
	s := m.styles
	sched := w.Schedule()

	var heat []int
	if !sched.Date.IsZero() {
		busy := availability.BusyFromAppointments(m.store.Appointments(), sched.Date, sched.CounselorID)
		if t := w.Target(); t != nil {
			busy = availability.BusyFromAppointments(withoutID(m.store.Appointments(), t.ID), sched.Date, sched.CounselorID)
		}
		heat = availability.Heatmap(busy, booking.FirstHour, booking.LastHour+1)
	}

	hours := booking.Hours()
	half := (len(hours) + 1) / 2
	cols := [2][]string{}
	for i, h := range hours {
		label := " " + calendar.FormatHour(float64(h))
		label = fmt.Sprintf("%-6s", label)
		mark := " "
		if i < len(heat) && heat[i] > 0 {
			mark = "•"
		}
		style := s.ModalBodyStyle
		if h == sched.Hour {
			style = s.ModalOptionActiveStyle
		}
		cols[i/half] = append(cols[i/half], style.Render(label)+s.ModalMutedStyle.Render(mark))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(cols[0], "\n"),
		s.ModalBodyStyle.Render("  "),
		strings.Join(cols[1], "\n"),
	)
}

func withoutID(appts []*appointment.Appointment, id string) []*appointment.Appointment {
	out := make([]*appointment.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func (m Model) wizardFooter() string {
	w := m.wizard.w
	s := m.styles
	if w.Step() != booking.StepSchedule {
		next := "Next"
		back := "Cancel"
		if w.Step() != booking.StepIdentity {
			back = "Back"
		}
		return view.RenderModalButtons(s.Modal(),
			view.Button{Label: "esc " + back},
			view.Button{Label: "enter " + next, Active: true},
		) + "\n" + s.ModalMutedStyle.Render("tab next field")
	}

	label := "Book"
	if w.Flow() == booking.FlowReschedule {
		label = "Move"
	}
	back := "Cancel"
	if w.Flow() == booking.FlowIntake {
		back = "Back"
	}
	return view.RenderModalButtons(s.Modal(),
		view.Button{Label: "esc " + back},
		view.Button{Label: "enter " + label, Active: w.CanConfirm(), Disabled: !w.CanConfirm()},
	) + "\n" + s.ModalMutedStyle.Render("←→ day  ↑↓ week  [ ] month  j/k hour")
}
