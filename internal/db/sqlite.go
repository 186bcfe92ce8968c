// Package db provides the SQLite, PostgreSQL and in-memory appointment repositories.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// SQLite implements appointment.Repository using SQLite. All reads and
// writes are scoped to one organization.
type SQLite struct {
	db    *sql.DB
	orgID string
}

// New opens the database at path, runs migrations and scopes the repository to orgID.
func New(path, orgID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db, orgID: orgID}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

const selectAppointment = `
	SELECT a.id, a.client_id, c.name, COALESCE(a.counselor_id, ''), COALESCE(co.name, ''),
	       a.scheduled_date, a.scheduled_time, a.duration, a.kind, a.location,
	       a.status, a.recurring, a.notes, a.created_at
	FROM appointments a
	JOIN clients c ON c.id = a.client_id
	LEFT JOIN counselors co ON co.id = a.counselor_id
`

// ListAppointments returns appointments dated within [start, end], ordered by start.
func (s *SQLite) ListAppointments(ctx context.Context, start, end time.Time) ([]*appointment.Appointment, error) {
	query := selectAppointment + `
		WHERE a.org_id = ? AND a.scheduled_date >= ? AND a.scheduled_date <= ?
		ORDER BY a.scheduled_date, a.scheduled_time, a.id
	`

	rows, err := s.db.QueryContext(ctx, query,
		s.orgID,
		start.Format(appointment.DateLayout),
		end.Format(appointment.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("querying appointments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var appts []*appointment.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating appointments: %w", err)
	}
	return appts, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *SQLite) GetAppointment(ctx context.Context, id string) (*appointment.Appointment, error) {
	row := s.db.QueryRowContext(ctx, selectAppointment+` WHERE a.org_id = ? AND a.id = ?`, s.orgID, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appointment.ErrNotFound
	}
	return a, err
}

// CreateAppointment books a new appointment.
// Returns ErrClientNotFound if the client does not belong to the organization.
func (s *SQLite) CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireRow(ctx, "clients", req.ClientID, appointment.ErrClientNotFound); err != nil {
		return nil, err
	}
	if req.CounselorID != "" {
		if err := s.requireRow(ctx, "counselors", req.CounselorID, appointment.ErrCounselorMissing); err != nil {
			return nil, err
		}
	}

	recurring := req.Recurring
	if recurring == "" {
		recurring = appointment.RecurrenceNone
	}

	id := uuid.NewString()
	query := `
		INSERT INTO appointments (
			id, org_id, client_id, counselor_id, scheduled_date, scheduled_time,
			duration, kind, location, status, recurring, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id,
		s.orgID,
		req.ClientID,
		nullString(req.CounselorID),
		req.Date.Format(appointment.DateLayout),
		req.Time,
		req.Duration,
		req.Kind,
		req.Location,
		appointment.StatusScheduled,
		recurring,
		req.Notes,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting appointment: %w", err)
	}

	return s.GetAppointment(ctx, id)
}

// UpdateAppointmentTime moves or resizes an appointment in place.
func (s *SQLite) UpdateAppointmentTime(ctx context.Context, upd appointment.TimeUpdate) (*appointment.Appointment, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	current, err := s.GetAppointment(ctx, upd.ID)
	if err != nil {
		return nil, err
	}

	location := current.Location
	if upd.Location != nil {
		location = *upd.Location
	}
	counselorID := current.CounselorID
	if upd.CounselorID != nil {
		counselorID = *upd.CounselorID
		if counselorID != "" {
			if err := s.requireRow(ctx, "counselors", counselorID, appointment.ErrCounselorMissing); err != nil {
				return nil, err
			}
		}
	}

	query := `
		UPDATE appointments
		SET scheduled_date = ?, scheduled_time = ?, duration = ?, location = ?, counselor_id = ?
		WHERE org_id = ? AND id = ?
	`
	_, err = s.db.ExecContext(ctx, query,
		upd.Date(), upd.Time(), upd.Duration, location, nullString(counselorID),
		s.orgID, upd.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating appointment time: %w", err)
	}

	return s.GetAppointment(ctx, upd.ID)
}

// UpdateAppointmentStatus changes the lifecycle state.
func (s *SQLite) UpdateAppointmentStatus(ctx context.Context, id string, status appointment.Status) error {
	current, err := s.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := current.CanTransition(status); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `UPDATE appointments SET status = ? WHERE org_id = ? AND id = ?`, status, s.orgID, id)
	if err != nil {
		return fmt.Errorf("updating appointment status: %w", err)
	}
	return nil
}

// DeleteAppointment removes an appointment.
func (s *SQLite) DeleteAppointment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM appointments WHERE org_id = ? AND id = ?`, s.orgID, id)
	if err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return appointment.ErrNotFound
	}
	return nil
}

// CheckAvailability lists the non-canceled start times on date.
func (s *SQLite) CheckAvailability(ctx context.Context, date time.Time, counselorID string) ([]appointment.BusySlot, error) {
	query := `
		SELECT a.scheduled_time, c.name
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.org_id = ? AND a.scheduled_date = ? AND a.status != ?
	`
	args := []any{s.orgID, date.Format(appointment.DateLayout), appointment.StatusCanceled}
	if counselorID != "" {
		query += ` AND a.counselor_id = ?`
		args = append(args, counselorID)
	}
	query += ` ORDER BY a.scheduled_time`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying availability: %w", err)
	}
	defer func() { _ = rows.Close() }()

	busy := []appointment.BusySlot{}
	for rows.Next() {
		var b appointment.BusySlot
		if err := rows.Scan(&b.Time, &b.OccupantName); err != nil {
			return nil, fmt.Errorf("scanning busy slot: %w", err)
		}
		busy = append(busy, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating busy slots: %w", err)
	}
	return busy, nil
}

// ListClients returns the organization's clients ordered by name.
func (s *SQLite) ListClients(ctx context.Context) ([]*appointment.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, concern, referral, created_at
		FROM clients WHERE org_id = ? ORDER BY name COLLATE NOCASE
	`, s.orgID)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clients []*appointment.Client
	for rows.Next() {
		var (
			c         appointment.Client
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Concern, &c.Referral, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		clients = append(clients, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clients: %w", err)
	}
	return clients, nil
}

// CreateClient registers a client and assigns its ID.
func (s *SQLite) CreateClient(ctx context.Context, c *appointment.Client) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client: %w", appointment.ErrEmptyName)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, org_id, name, phone, email, concern, referral, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, s.orgID, c.Name, c.Phone, c.Email, c.Concern, c.Referral, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting client: %w", err)
	}
	return nil
}

// ListCounselors returns the organization's counselors ordered by name.
func (s *SQLite) ListCounselors(ctx context.Context) ([]*appointment.Counselor, error) {
	var out []*appointment.Counselor
	err := s.listNamed(ctx, "counselors", func(id, name string) {
		out = append(out, &appointment.Counselor{ID: id, Name: name})
	})
	return out, err
}

// CreateCounselor registers a counselor and assigns its ID.
func (s *SQLite) CreateCounselor(ctx context.Context, c *appointment.Counselor) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return s.insertNamed(ctx, "counselors", c.ID, c.Name)
}

// ListLocations returns the organization's locations ordered by name.
func (s *SQLite) ListLocations(ctx context.Context) ([]*appointment.Location, error) {
	var out []*appointment.Location
	err := s.listNamed(ctx, "locations", func(id, name string) {
		out = append(out, &appointment.Location{ID: id, Name: name})
	})
	return out, err
}

// CreateLocation registers a location and assigns its ID.
func (s *SQLite) CreateLocation(ctx context.Context, l *appointment.Location) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return s.insertNamed(ctx, "locations", l.ID, l.Name)
}

// Close releases database resources.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// table is always one of the fixed reference tables, never user input.
func (s *SQLite) listNamed(ctx context.Context, table string, fn func(id, name string)) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM `+table+` WHERE org_id = ? ORDER BY name`, s.orgID)
	if err != nil {
		return fmt.Errorf("querying %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scanning %s: %w", table, err)
		}
		fn(id, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s: %w", table, err)
	}
	return nil
}

func (s *SQLite) insertNamed(ctx context.Context, table, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s: %w", table, appointment.ErrEmptyName)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO `+table+` (id, org_id, name) VALUES (?, ?, ?)`, id, s.orgID, name)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

// requireRow returns notFound unless table has id in this organization.
func (s *SQLite) requireRow(ctx context.Context, table, id string, notFound error) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE org_id = ? AND id = ?`, s.orgID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("looking up %s: %w", table, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner) (*appointment.Appointment, error) {
	var (
		a         appointment.Appointment
		date      string
		clock     string
		createdAt string
	)
	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.ClientName,
		&a.CounselorID,
		&a.CounselorName,
		&date,
		&clock,
		&a.Duration,
		&a.Kind,
		&a.Location,
		&a.Status,
		&a.Recurring,
		&a.Notes,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning appointment: %w", err)
	}

	a.Start, err = parseStart(date, clock)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created at: %w", err)
	}
	return &a, nil
}

// parseStart joins stored date and clock columns as local wall-clock time.
func parseStart(date, clock string) (time.Time, error) {
	// Some drivers hand back date-only text as "2006-01-02T00:00:00Z".
	if len(date) > 10 && date[10] == 'T' {
		date = date[:10]
	}
	if len(clock) > 5 {
		clock = clock[:5]
	}
	day, err := time.ParseInLocation(appointment.DateLayout, date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing scheduled date: %w", err)
	}
	start, err := appointment.Combine(day, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing scheduled time: %w", err)
	}
	return start, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
