package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// Client is an appointment.Repository backed by a remote clinicflow API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ appointment.Repository = (*Client)(nil)

// NewClient returns a client for the API at baseURL. A nil httpClient uses a
// client with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

// ListAppointments implements appointment.Repository.
func (c *Client) ListAppointments(ctx context.Context, start, end time.Time) ([]*appointment.Appointment, error) {
	q := url.Values{}
	q.Set("start", start.Format(appointment.DateLayout))
	q.Set("end", end.Format(appointment.DateLayout))

	var body []AppointmentJSON
	if err := c.do(ctx, http.MethodGet, "/v1/appointments?"+q.Encode(), nil, &body); err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	appts := make([]*appointment.Appointment, 0, len(body))
	for _, in := range body {
		a, err := fromAppointmentJSON(in)
		if err != nil {
			return nil, fmt.Errorf("decoding appointment %s: %w", in.ID, err)
		}
		appts = append(appts, a)
	}
	return appts, nil
}

// CreateAppointment implements appointment.Repository.
func (c *Client) CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload := CreateAppointmentJSON{
		ClientID:    req.ClientID,
		Date:        req.Date.Format(appointment.DateLayout),
		Time:        req.Time,
		Kind:        string(req.Kind),
		Duration:    req.Duration,
		Notes:       req.Notes,
		Recurring:   string(req.Recurring),
		CounselorID: req.CounselorID,
		Location:    req.Location,
	}
	var out AppointmentJSON
	if err := c.do(ctx, http.MethodPost, "/v1/appointments", payload, &out); err != nil {
		return nil, fmt.Errorf("creating appointment: %w", err)
	}
	return fromAppointmentJSON(out)
}

// UpdateAppointmentTime implements appointment.Repository.
func (c *Client) UpdateAppointmentTime(ctx context.Context, upd appointment.TimeUpdate) (*appointment.Appointment, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	payload := UpdateTimeJSON{
		Date:        upd.Date(),
		Time:        upd.Time(),
		Duration:    upd.Duration,
		Location:    upd.Location,
		CounselorID: upd.CounselorID,
	}
	var out AppointmentJSON
	if err := c.do(ctx, http.MethodPatch, "/v1/appointments/"+url.PathEscape(upd.ID)+"/time", payload, &out); err != nil {
		return nil, fmt.Errorf("updating appointment time: %w", err)
	}
	return fromAppointmentJSON(out)
}

// UpdateAppointmentStatus implements appointment.Repository.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id string, status appointment.Status) error {
	payload := UpdateStatusJSON{Status: string(status)}
	if err := c.do(ctx, http.MethodPatch, "/v1/appointments/"+url.PathEscape(id)+"/status", payload, nil); err != nil {
		return fmt.Errorf("updating appointment status: %w", err)
	}
	return nil
}

// DeleteAppointment implements appointment.Repository.
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/appointments/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}
	return nil
}

// CheckAvailability implements appointment.AvailabilityChecker.
func (c *Client) CheckAvailability(ctx context.Context, date time.Time, counselorID string) ([]appointment.BusySlot, error) {
	q := url.Values{}
	q.Set("date", date.Format(appointment.DateLayout))
	if counselorID != "" {
		q.Set("counselor_id", counselorID)
	}
	var body []BusySlotJSON
	if err := c.do(ctx, http.MethodGet, "/v1/availability?"+q.Encode(), nil, &body); err != nil {
		return nil, fmt.Errorf("checking availability: %w", err)
	}
	busy := make([]appointment.BusySlot, 0, len(body))
	for _, b := range body {
		busy = append(busy, appointment.BusySlot{Time: b.Time, OccupantName: b.OccupantName})
	}
	return busy, nil
}

// ListClients implements appointment.Repository.
func (c *Client) ListClients(ctx context.Context) ([]*appointment.Client, error) {
	var body []ClientJSON
	if err := c.do(ctx, http.MethodGet, "/v1/clients", nil, &body); err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	clients := make([]*appointment.Client, 0, len(body))
	for _, in := range body {
		clients = append(clients, fromClientJSON(in))
	}
	return clients, nil
}

// CreateClient implements appointment.Repository. The assigned ID is written
// back to cl.
func (c *Client) CreateClient(ctx context.Context, cl *appointment.Client) error {
	var out ClientJSON
	if err := c.do(ctx, http.MethodPost, "/v1/clients", toClientJSON(cl), &out); err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	cl.ID = out.ID
	return nil
}

// ListCounselors implements appointment.Repository.
func (c *Client) ListCounselors(ctx context.Context) ([]*appointment.Counselor, error) {
	var body []NamedJSON
	if err := c.do(ctx, http.MethodGet, "/v1/counselors", nil, &body); err != nil {
		return nil, fmt.Errorf("listing counselors: %w", err)
	}
	out := make([]*appointment.Counselor, 0, len(body))
	for _, n := range body {
		out = append(out, &appointment.Counselor{ID: n.ID, Name: n.Name})
	}
	return out, nil
}

// CreateCounselor implements appointment.Repository.
func (c *Client) CreateCounselor(ctx context.Context, co *appointment.Counselor) error {
	var out NamedJSON
	if err := c.do(ctx, http.MethodPost, "/v1/counselors", NamedJSON{Name: co.Name}, &out); err != nil {
		return fmt.Errorf("creating counselor: %w", err)
	}
	co.ID = out.ID
	return nil
}

// ListLocations implements appointment.Repository.
func (c *Client) ListLocations(ctx context.Context) ([]*appointment.Location, error) {
	var body []NamedJSON
	if err := c.do(ctx, http.MethodGet, "/v1/locations", nil, &body); err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	out := make([]*appointment.Location, 0, len(body))
	for _, n := range body {
		out = append(out, &appointment.Location{ID: n.ID, Name: n.Name})
	}
	return out, nil
}

// CreateLocation implements appointment.Repository.
func (c *Client) CreateLocation(ctx context.Context, l *appointment.Location) error {
	var out NamedJSON
	if err := c.do(ctx, http.MethodPost, "/v1/locations", NamedJSON{Name: l.Name}, &out); err != nil {
		return fmt.Errorf("creating location: %w", err)
	}
	l.ID = out.ID
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// RemoteError is a non-2xx answer that does not map to a domain error.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote returned %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e ErrorJSON
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if sentinel := sentinelFor(e.Code); sentinel != nil {
			return sentinel
		}
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &RemoteError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
