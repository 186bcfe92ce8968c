package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// Memory implements appointment.Repository in process memory. It backs the
// "memory" storage driver and tests.
type Memory struct {
	mu           sync.RWMutex
	appointments map[string]*appointment.Appointment
	clients      map[string]*appointment.Client
	counselors   map[string]*appointment.Counselor
	locations    map[string]*appointment.Location
	now          func() time.Time
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		appointments: make(map[string]*appointment.Appointment),
		clients:      make(map[string]*appointment.Client),
		counselors:   make(map[string]*appointment.Counselor),
		locations:    make(map[string]*appointment.Location),
		now:          time.Now,
	}
}

// ListAppointments returns appointments dated within [start, end], ordered by start.
func (m *Memory) ListAppointments(_ context.Context, start, end time.Time) ([]*appointment.Appointment, error) {
	from, to := start.Format(appointment.DateLayout), end.Format(appointment.DateLayout)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*appointment.Appointment
	for _, a := range m.appointments {
		d := a.DateString()
		if d < from || d > to {
			continue
		}
		out = append(out, m.hydrate(a))
	}
	sortByStart(out)
	return out, nil
}

// CreateAppointment books a new appointment for an existing client.
func (m *Memory) CreateAppointment(_ context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start, err := req.Start()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[req.ClientID]; !ok {
		return nil, appointment.ErrClientNotFound
	}
	if req.CounselorID != "" {
		if _, ok := m.counselors[req.CounselorID]; !ok {
			return nil, appointment.ErrCounselorMissing
		}
	}

	recurring := req.Recurring
	if recurring == "" {
		recurring = appointment.RecurrenceNone
	}
	a := &appointment.Appointment{
		ID:          uuid.NewString(),
		ClientID:    req.ClientID,
		CounselorID: req.CounselorID,
		Start:       start,
		Duration:    req.Duration,
		Kind:        req.Kind,
		Location:    req.Location,
		Status:      appointment.StatusScheduled,
		Recurring:   recurring,
		Notes:       req.Notes,
		CreatedAt:   m.now(),
	}
	m.appointments[a.ID] = a
	return m.hydrate(a), nil
}

// UpdateAppointmentTime moves or resizes an appointment.
func (m *Memory) UpdateAppointmentTime(_ context.Context, upd appointment.TimeUpdate) (*appointment.Appointment, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[upd.ID]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	if upd.CounselorID != nil && *upd.CounselorID != "" {
		if _, ok := m.counselors[*upd.CounselorID]; !ok {
			return nil, appointment.ErrCounselorMissing
		}
	}

	next := a.Clone()
	next.Start = upd.Start
	next.Duration = upd.Duration
	if upd.Location != nil {
		next.Location = *upd.Location
	}
	if upd.CounselorID != nil {
		next.CounselorID = *upd.CounselorID
	}
	m.appointments[a.ID] = next
	return m.hydrate(next), nil
}

// UpdateAppointmentStatus changes the lifecycle state.
func (m *Memory) UpdateAppointmentStatus(_ context.Context, id string, status appointment.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return appointment.ErrNotFound
	}
	if err := a.CanTransition(status); err != nil {
		return err
	}
	next := a.Clone()
	next.Status = status
	m.appointments[id] = next
	return nil
}

// DeleteAppointment removes an appointment.
func (m *Memory) DeleteAppointment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appointments[id]; !ok {
		return appointment.ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

// CheckAvailability lists the non-canceled start times on date.
func (m *Memory) CheckAvailability(_ context.Context, date time.Time, counselorID string) ([]appointment.BusySlot, error) {
	day := date.Format(appointment.DateLayout)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var appts []*appointment.Appointment
	for _, a := range m.appointments {
		if a.DateString() != day || !a.IsActive() {
			continue
		}
		if counselorID != "" && a.CounselorID != counselorID {
			continue
		}
		appts = append(appts, m.hydrate(a))
	}
	sortByStart(appts)

	busy := make([]appointment.BusySlot, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, appointment.BusySlot{Time: a.TimeString(), OccupantName: a.ClientName})
	}
	return busy, nil
}

// ListClients returns all clients ordered by name.
func (m *Memory) ListClients(_ context.Context) ([]*appointment.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*appointment.Client, 0, len(m.clients))
	for _, c := range m.clients {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// CreateClient registers a client and assigns its ID.
func (m *Memory) CreateClient(_ context.Context, c *appointment.Client) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client: %w", appointment.ErrEmptyName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

// ListCounselors returns all counselors ordered by name.
func (m *Memory) ListCounselors(_ context.Context) ([]*appointment.Counselor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*appointment.Counselor, 0, len(m.counselors))
	for _, c := range m.counselors {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateCounselor registers a counselor and assigns its ID.
func (m *Memory) CreateCounselor(_ context.Context, c *appointment.Counselor) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("counselor: %w", appointment.ErrEmptyName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	m.counselors[c.ID] = &cp
	return nil
}

// ListLocations returns all locations ordered by name.
func (m *Memory) ListLocations(_ context.Context) ([]*appointment.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*appointment.Location, 0, len(m.locations))
	for _, l := range m.locations {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateLocation registers a location and assigns its ID.
func (m *Memory) CreateLocation(_ context.Context, l *appointment.Location) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("location: %w", appointment.ErrEmptyName)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	cp := *l
	m.locations[l.ID] = &cp
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// hydrate returns a copy of a with client and counselor names filled in.
// Callers must hold m.mu.
func (m *Memory) hydrate(a *appointment.Appointment) *appointment.Appointment {
	out := a.Clone()
	if c, ok := m.clients[a.ClientID]; ok {
		out.ClientName = c.Name
	}
	if c, ok := m.counselors[a.CounselorID]; ok {
		out.CounselorName = c.Name
	}
	return out
}

func sortByStart(appts []*appointment.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Start.Equal(appts[j].Start) {
			return appts[i].ID < appts[j].ID
		}
		return appts[i].Start.Before(appts[j].Start)
	})
}
