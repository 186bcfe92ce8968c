package appointment

import (
	"context"
	"strings"
	"time"
)

// CreateRequest carries everything needed to book a new appointment.
type CreateRequest struct {
	ClientID    string
	Date        time.Time // day of the appointment, time of day ignored
	Time        string    // "HH:MM"
	Kind        Kind
	Duration    int // minutes
	Notes       string
	Recurring   Recurrence
	CounselorID string
	Location    string
}

// Start combines Date and Time into the appointment instant.
func (r CreateRequest) Start() (time.Time, error) {
	return Combine(r.Date, r.Time)
}

// Validate checks the request before it reaches a repository.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.ClientID) == "" {
		return ErrMissingClient
	}
	if _, err := ClockToMinutes(r.Time); err != nil {
		return err
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if r.Duration <= 0 {
		return ErrInvalidDuration
	}
	if r.Recurring != "" && !r.Recurring.Valid() {
		return ErrInvalidRecurrence
	}
	return nil
}

// TimeUpdate moves or resizes an appointment. Location and CounselorID
// are only changed when non-nil.
type TimeUpdate struct {
	ID          string
	Start       time.Time
	Duration    int // minutes
	Location    *string
	CounselorID *string
}

// Date returns the new date in YYYY-MM-DD format.
func (u TimeUpdate) Date() string {
	return u.Start.Format(DateLayout)
}

// Time returns the new start time in HH:MM format.
func (u TimeUpdate) Time() string {
	return u.Start.Format("15:04")
}

// Validate checks the update before it reaches a repository.
func (u TimeUpdate) Validate() error {
	if u.ID == "" {
		return ErrNotFound
	}
	if u.Duration <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// AvailabilityChecker reports the busy start times of a day.
type AvailabilityChecker interface {
	// CheckAvailability returns the non-canceled appointments on date,
	// optionally restricted to one counselor when counselorID is not empty.
	CheckAvailability(ctx context.Context, date time.Time, counselorID string) ([]BusySlot, error)
}

// Repository defines the storage interface for appointments and the
// reference data they point at. Every implementation is scoped to a single
// organization.
type Repository interface {
	AvailabilityChecker

	// ListAppointments returns appointments whose date falls in [start, end], ordered by start.
	ListAppointments(ctx context.Context, start, end time.Time) ([]*Appointment, error)

	// CreateAppointment books a new appointment.
	// Returns ErrClientNotFound if the client does not belong to the organization.
	CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error)

	// UpdateAppointmentTime moves or resizes an appointment and returns the stored value.
	UpdateAppointmentTime(ctx context.Context, upd TimeUpdate) (*Appointment, error)

	// UpdateAppointmentStatus changes the lifecycle state.
	// Returns ErrStatusTerminal when leaving a canceled or completed state.
	UpdateAppointmentStatus(ctx context.Context, id string, status Status) error

	// DeleteAppointment removes an appointment.
	DeleteAppointment(ctx context.Context, id string) error

	// ListClients returns the organization's clients ordered by name.
	ListClients(ctx context.Context) ([]*Client, error)

	// CreateClient registers a new client.
	CreateClient(ctx context.Context, c *Client) error

	// ListCounselors returns the organization's counselors ordered by name.
	ListCounselors(ctx context.Context) ([]*Counselor, error)

	// CreateCounselor registers a counselor.
	CreateCounselor(ctx context.Context, c *Counselor) error

	// ListLocations returns the organization's locations ordered by name.
	ListLocations(ctx context.Context) ([]*Location, error)

	// CreateLocation registers a location.
	CreateLocation(ctx context.Context, l *Location) error

	// Close releases any resources held by the repository.
	Close() error
}
