// Package booking drives the intake and reschedule dialogs. It holds the form
// state, decides when an availability check is due and when the booking may
// be confirmed. Rendering and I/O belong to the caller.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
	"github.com/javiermolinar/clinicflow/internal/store"
)

// Intake hours are whole hours from FirstHour to LastHour inclusive.
const (
	FirstHour       = 9
	LastHour        = 20
	DefaultDuration = 50
)

// Wizard errors.
var (
	ErrNotReady    = errors.New("pick a date and an available hour first")
	ErrSubmitting  = errors.New("booking is already being submitted")
	ErrHourOutside = errors.New("hour is outside clinic hours")
)

// ValidationError reports a form field that blocks the current step.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

// Flow selects the dialog variant.
type Flow int

const (
	FlowIntake Flow = iota
	FlowReschedule
)

// Step is one page of the dialog.
type Step int

const (
	StepIdentity Step = iota
	StepClinical
	StepSchedule
)

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "Client"
	case StepClinical:
		return "Clinical"
	default:
		return "Schedule"
	}
}

// Hours lists the selectable intake hours.
func Hours() []int {
	hours := make([]int, 0, LastHour-FirstHour+1)
	for h := FirstHour; h <= LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Identity is the first intake step.
type Identity struct {
	Name  string
	Phone string
	Email string
}

// Clinical is the second intake step.
type Clinical struct {
	Concern  string
	Referral string
	Notes    string
}

// Schedule is the final step, and the only one when rescheduling.
type Schedule struct {
	Date        time.Time
	Hour        int // -1 until picked
	Kind        appointment.Kind
	Location    string
	CounselorID string
	Duration    int
	Recurring   appointment.Recurrence
}

// Submission is what Confirm hands to the caller to persist.
type Submission struct {
	Flow   Flow
	Client *appointment.Client       // intake only
	Create appointment.CreateRequest // intake only
	Update appointment.TimeUpdate    // reschedule only
}

// Wizard is the state of one booking dialog.
type Wizard struct {
	Identity Identity
	Clinical Clinical

	flow       Flow
	step       Step
	schedule   Schedule
	month      time.Time
	target     *appointment.Appointment
	client     *appointment.Client // intake client of the last attempt
	tracker    *availability.Tracker
	submitting bool
	done       bool
	err        error
}

// NewIntake starts the three-step new client flow. duration <= 0 uses
// DefaultDuration.
func NewIntake(tracker *availability.Tracker, today time.Time, duration int) *Wizard {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if tracker == nil {
		tracker = availability.NewTracker(nil)
	}
	tracker.Reset()
	return &Wizard{
		flow: FlowIntake,
		step: StepIdentity,
		schedule: Schedule{
			Hour:      -1,
			Kind:      appointment.KindInPerson,
			Duration:  duration,
			Recurring: appointment.RecurrenceNone,
		},
		month:   firstOfMonth(today),
		tracker: tracker,
	}
}

// NewReschedule starts the single-step flow for a. The current slot is
// preselected when it falls on an intake hour.
func NewReschedule(tracker *availability.Tracker, a *appointment.Appointment) *Wizard {
	if tracker == nil {
		tracker = availability.NewTracker(nil)
	}
	tracker.Reset()
	hour := -1
	if a.Start.Minute() == 0 && a.Start.Hour() >= FirstHour && a.Start.Hour() <= LastHour {
		hour = a.Start.Hour()
	}
	return &Wizard{
		flow: FlowReschedule,
		step: StepSchedule,
		schedule: Schedule{
			Date:        a.Day(),
			Hour:        hour,
			Kind:        a.Kind,
			Location:    a.Location,
			CounselorID: a.CounselorID,
			Duration:    a.Duration,
			Recurring:   a.Recurring,
		},
		month:   firstOfMonth(a.Start),
		target:  a.Clone(),
		tracker: tracker,
	}
}

// Flow returns the dialog variant.
func (w *Wizard) Flow() Flow { return w.flow }

// Step returns the current step.
func (w *Wizard) Step() Step { return w.step }

// Steps lists the steps of the flow in order.
func (w *Wizard) Steps() []Step {
	if w.flow == FlowReschedule {
		return []Step{StepSchedule}
	}
	return []Step{StepIdentity, StepClinical, StepSchedule}
}

// Schedule returns the schedule selection.
func (w *Wizard) Schedule() Schedule { return w.schedule }

// Target returns the appointment being rescheduled, or nil.
func (w *Wizard) Target() *appointment.Appointment { return w.target }

// Next validates the current step and moves on.
func (w *Wizard) Next() error {
	var err error
	switch w.step {
	case StepIdentity:
		err = w.Identity.validate()
	case StepClinical:
		err = w.Clinical.validate()
	default:
		return nil
	}
	if err != nil {
		return err
	}
	w.step++
	return nil
}

// Back returns to the previous step. It reports false on the first step.
func (w *Wizard) Back() bool {
	if w.flow == FlowReschedule || w.step == StepIdentity {
		return false
	}
	w.step--
	return true
}

// Month returns the first day of the month shown in the date picker.
func (w *Wizard) Month() time.Time { return w.month }

// ShiftMonth moves the date picker by delta months.
func (w *Wizard) ShiftMonth(delta int) {
	w.month = w.month.AddDate(0, delta, 0)
}

// MonthCells returns the date picker grid.
func (w *Wizard) MonthCells(firstWeekday time.Weekday) []calendar.Cell {
	return calendar.MonthGrid(w.month, firstWeekday)
}

// SelectDate picks a day and returns the availability check to run.
func (w *Wizard) SelectDate(d time.Time) availability.Request {
	w.schedule.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	w.month = firstOfMonth(d)
	return w.Recheck()
}

// SelectHour picks an intake hour and returns the availability check to run.
func (w *Wizard) SelectHour(h int) (availability.Request, error) {
	if h < FirstHour || h > LastHour {
		return availability.Request{}, ErrHourOutside
	}
	w.schedule.Hour = h
	return w.Recheck(), nil
}

// SelectCounselor picks a counselor ("" for any) and returns the check to run.
func (w *Wizard) SelectCounselor(id string) availability.Request {
	w.schedule.CounselorID = id
	return w.Recheck()
}

// SetKind sets the appointment kind.
func (w *Wizard) SetKind(k appointment.Kind) error {
	if !k.Valid() {
		return appointment.ErrInvalidKind
	}
	w.schedule.Kind = k
	return nil
}

// SetLocation sets the room or address.
func (w *Wizard) SetLocation(loc string) {
	w.schedule.Location = strings.TrimSpace(loc)
}

// SetDuration sets the length in minutes.
func (w *Wizard) SetDuration(minutes int) error {
	if minutes <= 0 {
		return appointment.ErrInvalidDuration
	}
	w.schedule.Duration = minutes
	return nil
}

// SetRecurring sets the recurrence label.
func (w *Wizard) SetRecurring(r appointment.Recurrence) error {
	if !r.Valid() {
		return appointment.ErrInvalidRecurrence
	}
	w.schedule.Recurring = r
	return nil
}

// Recheck issues a check for the current selection. Earlier checks become stale.
func (w *Wizard) Recheck() availability.Request {
	return w.tracker.Begin(availability.Query{
		Date:        w.schedule.Date,
		Hour:        float64(w.schedule.Hour),
		CounselorID: w.schedule.CounselorID,
	})
}

// Resolve applies an availability response. When rescheduling, the
// appointment's own slot does not count against it.
func (w *Wizard) Resolve(resp availability.Response) bool {
	if w.target != nil && resp.Err == nil {
		resp.Busy = w.withoutTarget(resp.Busy)
	}
	return w.tracker.Resolve(resp)
}

func (w *Wizard) withoutTarget(busy []appointment.BusySlot) []appointment.BusySlot {
	if !dateutil.SameDay(w.schedule.Date, w.target.Start) {
		return busy
	}
	out := make([]appointment.BusySlot, 0, len(busy))
	skipped := false
	for _, b := range busy {
		if !skipped && b.Time == w.target.TimeString() && b.OccupantName == w.target.ClientName {
			skipped = true
			continue
		}
		out = append(out, b)
	}
	return out
}

// Availability returns the status of the latest check.
func (w *Wizard) Availability() availability.Status { return w.tracker.Status() }

// AvailabilityText describes the latest check for display.
func (w *Wizard) AvailabilityText() string { return w.tracker.Message() }

// CanConfirm reports whether the confirm action is enabled.
func (w *Wizard) CanConfirm() bool {
	if w.step != StepSchedule || w.submitting || w.done {
		return false
	}
	if w.schedule.Date.IsZero() || w.schedule.Hour < 0 {
		return false
	}
	return !w.tracker.Blocking()
}

// Submitting reports whether a confirmed booking is in flight.
func (w *Wizard) Submitting() bool { return w.submitting }

// Done reports whether the booking went through.
func (w *Wizard) Done() bool { return w.done }

// Err returns the inline error of the last attempt.
func (w *Wizard) Err() error { return w.err }

// Start returns the selected instant.
func (w *Wizard) Start() time.Time {
	return calendar.AtHour(w.schedule.Date, float64(w.schedule.Hour))
}

// Confirm freezes the form into a Submission. The wizard stays in the
// submitting state until Finish is called. Once the intake client has been
// registered, later attempts book against it instead of registering again.
func (w *Wizard) Confirm() (Submission, error) {
	if w.submitting {
		return Submission{}, ErrSubmitting
	}
	if !w.CanConfirm() {
		return Submission{}, ErrNotReady
	}
	if w.schedule.Duration <= 0 {
		return Submission{}, &ValidationError{Field: "duration", Msg: "must be positive"}
	}

	sub := Submission{Flow: w.flow}
	switch w.flow {
	case FlowIntake:
		if err := w.Identity.validate(); err != nil {
			return Submission{}, err
		}
		if err := w.Clinical.validate(); err != nil {
			return Submission{}, err
		}
		client := &appointment.Client{
			Name:     strings.TrimSpace(w.Identity.Name),
			Phone:    strings.TrimSpace(w.Identity.Phone),
			Email:    strings.TrimSpace(w.Identity.Email),
			Concern:  strings.TrimSpace(w.Clinical.Concern),
			Referral: strings.TrimSpace(w.Clinical.Referral),
		}
		if w.client == nil || !sameClient(w.client, client) {
			w.client = client
		}
		sub.Client = w.client
		sub.Create = appointment.CreateRequest{
			ClientID:    w.client.ID,
			Date:        w.schedule.Date,
			Time:        appointment.HourToClock(float64(w.schedule.Hour)),
			Kind:        w.schedule.Kind,
			Duration:    w.schedule.Duration,
			Notes:       strings.TrimSpace(w.Clinical.Notes),
			Recurring:   w.schedule.Recurring,
			CounselorID: w.schedule.CounselorID,
			Location:    w.schedule.Location,
		}
	case FlowReschedule:
		upd := appointment.TimeUpdate{
			ID:       w.target.ID,
			Start:    w.Start(),
			Duration: w.schedule.Duration,
		}
		if w.schedule.Location != w.target.Location {
			loc := w.schedule.Location
			upd.Location = &loc
		}
		if w.schedule.CounselorID != w.target.CounselorID {
			id := w.schedule.CounselorID
			upd.CounselorID = &id
		}
		sub.Update = upd
	}
	w.submitting = true
	w.err = nil
	return sub, nil
}

// Finish records the outcome of a submission. On success the dialog is done
// and the caller should refresh; on failure it stays open for a retry.
func (w *Wizard) Finish(err error) {
	w.submitting = false
	if err != nil {
		w.err = friendly(err)
		return
	}
	w.done = true
	w.err = nil
}

// RegisterClient creates the intake client and points the appointment at it.
func RegisterClient(ctx context.Context, repo appointment.Repository, sub Submission) (Submission, error) {
	if sub.Client == nil {
		return sub, fmt.Errorf("registering client: %w", appointment.ErrMissingClient)
	}
	if err := repo.CreateClient(ctx, sub.Client); err != nil {
		sub.Client.ID = ""
		return sub, fmt.Errorf("registering client: %w", err)
	}
	sub.Create.ClientID = sub.Client.ID
	return sub, nil
}

// Begin applies sub to the store optimistically and returns the mutation to
// execute. Intake submissions must have been through RegisterClient.
func Begin(st *store.Store, sub Submission) (store.Mutation, error) {
	if sub.Flow == FlowReschedule {
		return st.BeginReschedule(sub.Update)
	}
	name := ""
	if sub.Client != nil {
		name = sub.Client.Name
	}
	return st.BeginCreate(sub.Create, name)
}

// Submit persists sub synchronously through the store.
func Submit(ctx context.Context, repo appointment.Repository, st *store.Store, sub Submission) (*appointment.Appointment, error) {
	if sub.Flow == FlowIntake && sub.Create.ClientID == "" {
		var err error
		if sub, err = RegisterClient(ctx, repo, sub); err != nil {
			return nil, err
		}
	}
	m, err := Begin(st, sub)
	if err != nil {
		return nil, err
	}
	return st.Sync(ctx, repo, m)
}

func friendly(err error) error {
	switch {
	case errors.Is(err, appointment.ErrClientNotFound):
		return errors.New("client not found")
	case errors.Is(err, appointment.ErrCounselorMissing):
		return errors.New("counselor not found")
	case errors.Is(err, appointment.ErrNotFound):
		return errors.New("appointment no longer exists")
	default:
		return err
	}
}

func (id Identity) validate() error {
	if strings.TrimSpace(id.Name) == "" {
		return &ValidationError{Field: "name", Msg: "is required"}
	}
	if strings.TrimSpace(id.Phone) == "" {
		return &ValidationError{Field: "phone", Msg: "is required"}
	}
	if email := strings.TrimSpace(id.Email); email != "" && !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Msg: "is not a valid address"}
	}
	return nil
}

func (c Clinical) validate() error {
	if strings.TrimSpace(c.Concern) == "" {
		return &ValidationError{Field: "concern", Msg: "is required"}
	}
	return nil
}

func sameClient(a, b *appointment.Client) bool {
	return a.Name == b.Name && a.Phone == b.Phone && a.Email == b.Email &&
		a.Concern == b.Concern && a.Referral == b.Referral
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
