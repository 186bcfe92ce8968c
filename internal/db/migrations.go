package db

import "fmt"

// schema is shared by the SQLite and PostgreSQL backends. Dates and clock
// times are stored as text ("2006-01-02", "15:04") in local wall-clock time.
var schema = []struct {
	name  string
	query string
}{
	{"clients", `
		CREATE TABLE IF NOT EXISTS clients (
			id         TEXT PRIMARY KEY,
			org_id     TEXT NOT NULL,
			name       TEXT NOT NULL,
			phone      TEXT NOT NULL DEFAULT '',
			email      TEXT NOT NULL DEFAULT '',
			concern    TEXT NOT NULL DEFAULT '',
			referral   TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`},
	{"counselors", `
		CREATE TABLE IF NOT EXISTS counselors (
			id     TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			name   TEXT NOT NULL
		)`},
	{"locations", `
		CREATE TABLE IF NOT EXISTS locations (
			id     TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			name   TEXT NOT NULL
		)`},
	{"appointments", `
		CREATE TABLE IF NOT EXISTS appointments (
			id             TEXT PRIMARY KEY,
			org_id         TEXT NOT NULL,
			client_id      TEXT NOT NULL REFERENCES clients(id),
			counselor_id   TEXT REFERENCES counselors(id),
			scheduled_date TEXT NOT NULL,
			scheduled_time TEXT NOT NULL,
			duration       INTEGER NOT NULL CHECK(duration > 0),
			kind           TEXT NOT NULL CHECK(kind IN ('in-person', 'online', 'phone')),
			location       TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'scheduled' CHECK(status IN ('scheduled', 'completed', 'canceled')),
			recurring      TEXT NOT NULL DEFAULT 'none' CHECK(recurring IN ('none', 'weekly', 'biweekly', 'monthly')),
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL
		)`},
	{"appointments date index", `CREATE INDEX IF NOT EXISTS idx_appointments_org_date ON appointments(org_id, scheduled_date)`},
	{"appointments status index", `CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`},
	{"clients org index", `CREATE INDEX IF NOT EXISTS idx_clients_org ON clients(org_id)`},
}

// migrate creates the schema if it does not exist.
func (s *SQLite) migrate() error {
	for _, step := range schema {
		if _, err := s.db.Exec(step.query); err != nil {
			return fmt.Errorf("creating %s: %w", step.name, err)
		}
	}
	return nil
}
