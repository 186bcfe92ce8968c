// Package api exposes the appointment repository over HTTP and provides a
// client that implements the same repository interface against it.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

const clockLayout = "15:04"

// AppointmentJSON is the wire form of an appointment. Dates and times are
// local wall-clock values, as stored.
type AppointmentJSON struct {
	ID            string `json:"id"`
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	CounselorID   string `json:"counselor_id,omitempty"`
	CounselorName string `json:"counselor_name,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Duration      int    `json:"duration"`
	Kind          string `json:"kind"`
	Location      string `json:"location,omitempty"`
	Status        string `json:"status"`
	Recurring     string `json:"recurring"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// CreateAppointmentJSON is the body of POST /v1/appointments.
type CreateAppointmentJSON struct {
	ClientID    string `json:"client_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Kind        string `json:"kind"`
	Duration    int    `json:"duration"`
	Notes       string `json:"notes,omitempty"`
	Recurring   string `json:"recurring,omitempty"`
	CounselorID string `json:"counselor_id,omitempty"`
	Location    string `json:"location,omitempty"`
}

// UpdateTimeJSON is the body of PATCH /v1/appointments/{id}/time.
type UpdateTimeJSON struct {
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Duration    int     `json:"duration"`
	Location    *string `json:"location,omitempty"`
	CounselorID *string `json:"counselor_id,omitempty"`
}

// UpdateStatusJSON is the body of PATCH /v1/appointments/{id}/status.
type UpdateStatusJSON struct {
	Status string `json:"status"`
}

// BusySlotJSON is one entry of GET /v1/availability.
type BusySlotJSON struct {
	Time         string `json:"time"`
	OccupantName string `json:"occupant_name"`
}

// ClientJSON is the wire form of a client.
type ClientJSON struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Concern  string `json:"concern,omitempty"`
	Referral string `json:"referral,omitempty"`
}

// NamedJSON is the wire form of counselors and locations.
type NamedJSON struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// ErrorJSON is the body of every non-2xx response.
type ErrorJSON struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// errBadRequest covers malformed bodies and query parameters.
var errBadRequest = errors.New("bad request")

// sentinels maps domain errors to status codes and stable wire codes so the
// client can hand the same error values back to its callers.
var sentinels = []struct {
	code   string
	status int
	err    error
}{
	{"not_found", http.StatusNotFound, appointment.ErrNotFound},
	{"client_not_found", http.StatusNotFound, appointment.ErrClientNotFound},
	{"counselor_not_found", http.StatusNotFound, appointment.ErrCounselorMissing},
	{"status_terminal", http.StatusConflict, appointment.ErrStatusTerminal},
	{"invalid_kind", http.StatusBadRequest, appointment.ErrInvalidKind},
	{"invalid_status", http.StatusBadRequest, appointment.ErrInvalidStatus},
	{"invalid_recurrence", http.StatusBadRequest, appointment.ErrInvalidRecurrence},
	{"invalid_duration", http.StatusBadRequest, appointment.ErrInvalidDuration},
	{"invalid_time", http.StatusBadRequest, appointment.ErrInvalidTimeFormat},
	{"missing_client", http.StatusBadRequest, appointment.ErrMissingClient},
	{"empty_name", http.StatusBadRequest, appointment.ErrEmptyName},
	{"bad_request", http.StatusBadRequest, errBadRequest},
}

func classify(err error) (status int, code string) {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.status, s.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func sentinelFor(code string) error {
	for _, s := range sentinels {
		if s.code == code {
			return s.err
		}
	}
	return nil
}

func toAppointmentJSON(a *appointment.Appointment) AppointmentJSON {
	out := AppointmentJSON{
		ID:            a.ID,
		ClientID:      a.ClientID,
		ClientName:    a.ClientName,
		CounselorID:   a.CounselorID,
		CounselorName: a.CounselorName,
		Date:          a.DateString(),
		Time:          a.TimeString(),
		Duration:      a.Duration,
		Kind:          string(a.Kind),
		Location:      a.Location,
		Status:        string(a.Status),
		Recurring:     string(a.Recurring),
		Notes:         a.Notes,
	}
	if !a.CreatedAt.IsZero() {
		out.CreatedAt = a.CreatedAt.Format(time.RFC3339)
	}
	return out
}

func fromAppointmentJSON(in AppointmentJSON) (*appointment.Appointment, error) {
	day, err := parseDay(in.Date)
	if err != nil {
		return nil, err
	}
	start, err := appointment.Combine(day, in.Time)
	if err != nil {
		return nil, err
	}
	kind, err := appointment.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	status, err := appointment.ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	recurring, err := appointment.ParseRecurrence(in.Recurring)
	if err != nil {
		return nil, err
	}
	a := &appointment.Appointment{
		ID:            in.ID,
		ClientID:      in.ClientID,
		ClientName:    in.ClientName,
		CounselorID:   in.CounselorID,
		CounselorName: in.CounselorName,
		Start:         start,
		Duration:      in.Duration,
		Kind:          kind,
		Location:      in.Location,
		Status:        status,
		Recurring:     recurring,
		Notes:         in.Notes,
	}
	if in.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, in.CreatedAt); err == nil {
			a.CreatedAt = t
		}
	}
	return a, nil
}

func toClientJSON(c *appointment.Client) ClientJSON {
	return ClientJSON{
		ID:       c.ID,
		Name:     c.Name,
		Phone:    c.Phone,
		Email:    c.Email,
		Concern:  c.Concern,
		Referral: c.Referral,
	}
}

func fromClientJSON(in ClientJSON) *appointment.Client {
	return &appointment.Client{
		ID:       in.ID,
		Name:     in.Name,
		Phone:    in.Phone,
		Email:    in.Email,
		Concern:  in.Concern,
		Referral: in.Referral,
	}
}

// parseDay parses a required YYYY-MM-DD as local midnight.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errBadRequest
	}
	d, err := time.ParseInLocation(appointment.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errBadRequest
	}
	return d, nil
}
