// Package appointment defines the core domain types for clinicflow.
package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrInvalidKind       = errors.New("kind must be 'in-person', 'online' or 'phone'")
	ErrInvalidStatus     = errors.New("status must be 'scheduled', 'completed' or 'canceled'")
	ErrInvalidRecurrence = errors.New("recurring must be 'none', 'weekly', 'biweekly' or 'monthly'")
	ErrInvalidDuration   = errors.New("duration must be a positive number of minutes")
	ErrInvalidTimeFormat = errors.New("time must be in HH:MM format")
	ErrMissingClient     = errors.New("client is required")
	ErrEmptyName         = errors.New("name cannot be empty")
)

// Domain errors.
var (
	ErrNotFound         = errors.New("appointment not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrStatusTerminal   = errors.New("appointment is canceled or completed and cannot change status")
	ErrCounselorMissing = errors.New("counselor not found")
)

// DateLayout is the wire and storage format for appointment dates.
const DateLayout = "2006-01-02"

// Kind is the delivery mode of an appointment.
type Kind string

const (
	KindInPerson Kind = "in-person"
	KindOnline   Kind = "online"
	KindPhone    Kind = "phone"
)

// Kinds lists every Kind in display order.
var Kinds = []Kind{KindInPerson, KindOnline, KindPhone}

// Valid returns true if k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInPerson, KindOnline, KindPhone:
		return true
	default:
		return false
	}
}

// ParseKind accepts the canonical names plus a few common spellings.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in-person", "in_person", "inperson", "office":
		return KindInPerson, nil
	case "online", "video", "telehealth":
		return KindOnline, nil
	case "phone", "call":
		return KindPhone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Status represents the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Valid returns true if s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCanceled:
		return true
	default:
		return false
	}
}

// ParseStatus parses a status name. "cancelled" is accepted as well.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled":
		return StatusScheduled, nil
	case "completed", "done":
		return StatusCompleted, nil
	case "canceled", "cancelled":
		return StatusCanceled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Recurrence is informational only. Each occurrence is an independent record.
type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiWeekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

// Recurrences lists every Recurrence in display order.
var Recurrences = []Recurrence{RecurrenceNone, RecurrenceWeekly, RecurrenceBiWeekly, RecurrenceMonthly}

// Valid returns true if r is a known recurrence.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceWeekly, RecurrenceBiWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// ParseRecurrence parses a recurrence name. Empty means none.
func ParseRecurrence(s string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "no":
		return RecurrenceNone, nil
	case "weekly":
		return RecurrenceWeekly, nil
	case "biweekly", "bi-weekly":
		return RecurrenceBiWeekly, nil
	case "monthly":
		return RecurrenceMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
}

// Appointment is a booked session between a client and the clinic.
type Appointment struct {
	ID            string
	ClientID      string
	ClientName    string
	CounselorID   string
	CounselorName string
	Start         time.Time
	Duration      int // minutes
	Kind          Kind
	Location      string
	Status        Status
	Recurring     Recurrence
	Notes         string
	CreatedAt     time.Time
}

// End returns the instant the appointment finishes.
func (a *Appointment) End() time.Time {
	return a.Start.Add(time.Duration(a.Duration) * time.Minute)
}

// Hour returns the start as a fractional hour of the day (14:30 -> 14.5).
func (a *Appointment) Hour() float64 {
	return float64(a.Start.Hour()) + float64(a.Start.Minute())/60
}

// DurationHours returns the duration as fractional hours.
func (a *Appointment) DurationHours() float64 {
	return float64(a.Duration) / 60
}

// Day returns the start date at local midnight.
func (a *Appointment) Day() time.Time {
	return time.Date(a.Start.Year(), a.Start.Month(), a.Start.Day(), 0, 0, 0, 0, a.Start.Location())
}

// DateString returns the start date in YYYY-MM-DD format.
func (a *Appointment) DateString() string {
	return a.Start.Format(DateLayout)
}

// TimeString returns the start time in HH:MM format.
func (a *Appointment) TimeString() string {
	return a.Start.Format("15:04")
}

// IsActive returns true unless the appointment was canceled.
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCanceled
}

// Clone returns a copy that shares no mutable state with a.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Terminal reports whether s accepts no further status change.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusCompleted
}

// CanTransition reports whether the status may move to next.
// Canceled and completed are terminal. Re-applying the current status is allowed.
func (a *Appointment) CanTransition(next Status) error {
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if a.Status.Terminal() && next != a.Status {
		return ErrStatusTerminal
	}
	return nil
}

// Client is the owner of an appointment.
type Client struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	Concern   string
	Referral  string
	CreatedAt time.Time
}

// Counselor is a clinician that appointments may be assigned to.
type Counselor struct {
	ID   string
	Name string
}

// Location is a room or site where in-person sessions happen.
type Location struct {
	ID   string
	Name string
}

// BusySlot is an occupied start time on a given day.
type BusySlot struct {
	Time         string // "HH:MM"
	OccupantName string
}

// Hour returns the slot time as fractional hours, or -1 if malformed.
func (b BusySlot) Hour() float64 {
	m, err := ClockToMinutes(b.Time)
	if err != nil {
		return -1
	}
	return float64(m) / 60
}
