package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// pgxConn is the subset of *pgxpool.Pool the repository needs.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Postgres implements appointment.Repository on PostgreSQL.
type Postgres struct {
	pool  pgxConn
	orgID string
}

// NewPostgres connects to dsn, runs migrations and scopes the repository to orgID.
func NewPostgres(ctx context.Context, dsn, orgID string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	p := NewPostgresWithPool(pool, orgID)
	for _, step := range schema {
		if _, err := pool.Exec(ctx, step.query); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: creating %s: %w", step.name, err)
		}
	}
	return p, nil
}

// NewPostgresWithPool wraps an existing pool without running migrations.
func NewPostgresWithPool(pool pgxConn, orgID string) *Postgres {
	return &Postgres{pool: pool, orgID: orgID}
}

const pgSelectAppointment = `
	SELECT a.id, a.client_id, c.name, COALESCE(a.counselor_id, ''), COALESCE(co.name, ''),
	       a.scheduled_date, a.scheduled_time, a.duration, a.kind, a.location,
	       a.status, a.recurring, a.notes, a.created_at
	FROM appointments a
	JOIN clients c ON c.id = a.client_id
	LEFT JOIN counselors co ON co.id = a.counselor_id
`

// ListAppointments returns appointments dated within [start, end], ordered by start.
func (p *Postgres) ListAppointments(ctx context.Context, start, end time.Time) ([]*appointment.Appointment, error) {
	rows, err := p.pool.Query(ctx, pgSelectAppointment+`
		WHERE a.org_id = $1 AND a.scheduled_date >= $2 AND a.scheduled_date <= $3
		ORDER BY a.scheduled_date, a.scheduled_time, a.id`,
		p.orgID, start.Format(appointment.DateLayout), end.Format(appointment.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying appointments: %w", err)
	}
	defer rows.Close()

	var appts []*appointment.Appointment
	for rows.Next() {
		a, err := scanPgAppointment(rows)
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
func (p *Postgres) GetAppointment(ctx context.Context, id string) (*appointment.Appointment, error) {
	row := p.pool.QueryRow(ctx, pgSelectAppointment+` WHERE a.org_id = $1 AND a.id = $2`, p.orgID, id)
	a, err := scanPgAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, appointment.ErrNotFound
	}
	return a, err
}

// CreateAppointment books a new appointment.
// Returns ErrClientNotFound if the client does not belong to the organization.
func (p *Postgres) CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := p.requireRow(ctx, "clients", req.ClientID, appointment.ErrClientNotFound); err != nil {
		return nil, err
	}
	if req.CounselorID != "" {
		if err := p.requireRow(ctx, "counselors", req.CounselorID, appointment.ErrCounselorMissing); err != nil {
			return nil, err
		}
	}

	recurring := req.Recurring
	if recurring == "" {
		recurring = appointment.RecurrenceNone
	}

	id := uuid.NewString()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO appointments (
			id, org_id, client_id, counselor_id, scheduled_date, scheduled_time,
			duration, kind, location, status, recurring, notes, created_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, p.orgID, req.ClientID, req.CounselorID,
		req.Date.Format(appointment.DateLayout), req.Time, req.Duration,
		string(req.Kind), req.Location, string(appointment.StatusScheduled), string(recurring),
		req.Notes, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting appointment: %w", err)
	}
	return p.GetAppointment(ctx, id)
}

// UpdateAppointmentTime moves or resizes an appointment inside a transaction
// that locks the row.
func (p *Postgres) UpdateAppointmentTime(ctx context.Context, upd appointment.TimeUpdate) (*appointment.Appointment, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var location, counselorID string
	err = tx.QueryRow(ctx, `
		SELECT location, COALESCE(counselor_id, '')
		FROM appointments WHERE org_id = $1 AND id = $2 FOR UPDATE`,
		p.orgID, upd.ID).Scan(&location, &counselorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, appointment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking appointment: %w", err)
	}
	if upd.Location != nil {
		location = *upd.Location
	}
	if upd.CounselorID != nil {
		counselorID = *upd.CounselorID
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET scheduled_date = $1, scheduled_time = $2, duration = $3, location = $4, counselor_id = NULLIF($5, '')
		WHERE org_id = $6 AND id = $7`,
		upd.Date(), upd.Time(), upd.Duration, location, counselorID, p.orgID, upd.ID)
	if err != nil {
		return nil, fmt.Errorf("updating appointment time: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return p.GetAppointment(ctx, upd.ID)
}

// UpdateAppointmentStatus changes the lifecycle state.
func (p *Postgres) UpdateAppointmentStatus(ctx context.Context, id string, status appointment.Status) error {
	var current string
	err := p.pool.QueryRow(ctx, `SELECT status FROM appointments WHERE org_id = $1 AND id = $2`, p.orgID, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return appointment.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying appointment status: %w", err)
	}
	a := appointment.Appointment{Status: appointment.Status(current)}
	if err := a.CanTransition(status); err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `UPDATE appointments SET status = $1 WHERE org_id = $2 AND id = $3`, string(status), p.orgID, id)
	if err != nil {
		return fmt.Errorf("updating appointment status: %w", err)
	}
	return nil
}

// DeleteAppointment removes an appointment.
func (p *Postgres) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM appointments WHERE org_id = $1 AND id = $2`, p.orgID, id)
	if err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return appointment.ErrNotFound
	}
	return nil
}

// CheckAvailability lists the non-canceled start times on date.
func (p *Postgres) CheckAvailability(ctx context.Context, date time.Time, counselorID string) ([]appointment.BusySlot, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.scheduled_time, c.name
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.org_id = $1 AND a.scheduled_date = $2 AND a.status <> 'canceled'
		  AND ($3 = '' OR a.counselor_id = $3)
		ORDER BY a.scheduled_time`,
		p.orgID, date.Format(appointment.DateLayout), counselorID)
	if err != nil {
		return nil, fmt.Errorf("querying availability: %w", err)
	}
	defer rows.Close()

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
func (p *Postgres) ListClients(ctx context.Context) ([]*appointment.Client, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, phone, email, concern, referral, created_at
		FROM clients WHERE org_id = $1 ORDER BY lower(name)`, p.orgID)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer rows.Close()

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
func (p *Postgres) CreateClient(ctx context.Context, c *appointment.Client) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client: %w", appointment.ErrEmptyName)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO clients (id, org_id, name, phone, email, concern, referral, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, p.orgID, c.Name, c.Phone, c.Email, c.Concern, c.Referral, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting client: %w", err)
	}
	return nil
}

// ListCounselors returns the organization's counselors ordered by name.
func (p *Postgres) ListCounselors(ctx context.Context) ([]*appointment.Counselor, error) {
	var out []*appointment.Counselor
	err := p.listNamed(ctx, "counselors", func(id, name string) {
		out = append(out, &appointment.Counselor{ID: id, Name: name})
	})
	return out, err
}

// CreateCounselor registers a counselor and assigns its ID.
func (p *Postgres) CreateCounselor(ctx context.Context, c *appointment.Counselor) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return p.insertNamed(ctx, "counselors", c.ID, c.Name)
}

// ListLocations returns the organization's locations ordered by name.
func (p *Postgres) ListLocations(ctx context.Context) ([]*appointment.Location, error) {
	var out []*appointment.Location
	err := p.listNamed(ctx, "locations", func(id, name string) {
		out = append(out, &appointment.Location{ID: id, Name: name})
	})
	return out, err
}

// CreateLocation registers a location and assigns its ID.
func (p *Postgres) CreateLocation(ctx context.Context, l *appointment.Location) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return p.insertNamed(ctx, "locations", l.ID, l.Name)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) listNamed(ctx context.Context, table string, fn func(id, name string)) error {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM `+table+` WHERE org_id = $1 ORDER BY name`, p.orgID)
	if err != nil {
		return fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

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

func (p *Postgres) insertNamed(ctx context.Context, table, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s: %w", table, appointment.ErrEmptyName)
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO `+table+` (id, org_id, name) VALUES ($1, $2, $3)`, id, p.orgID, name)
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return nil
}

func (p *Postgres) requireRow(ctx context.Context, table, id string, notFound error) error {
	var one int
	err := p.pool.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE org_id = $1 AND id = $2`, p.orgID, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("looking up %s: %w", table, err)
	}
	return nil
}

func scanPgAppointment(row pgx.Row) (*appointment.Appointment, error) {
	var (
		a                       appointment.Appointment
		date, clock, createdAt  string
		kind, status, recurring string
	)
	err := row.Scan(
		&a.ID, &a.ClientID, &a.ClientName, &a.CounselorID, &a.CounselorName,
		&date, &clock, &a.Duration, &kind, &a.Location,
		&status, &recurring, &a.Notes, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning appointment: %w", err)
	}
	a.Kind = appointment.Kind(kind)
	a.Status = appointment.Status(status)
	a.Recurring = appointment.Recurrence(recurring)

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
