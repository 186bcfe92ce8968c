package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

var appointmentColumns = []string{
	"id", "client_id", "name", "counselor_id", "counselor_name",
	"scheduled_date", "scheduled_time", "duration", "kind", "location",
	"status", "recurring", "notes", "created_at",
}

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
	return NewPostgresWithPool(mock, "org-1"), mock
}

func appointmentRow(mock pgxmock.PgxPoolIface, date, clock string) *pgxmock.Rows {
	return mock.NewRows(appointmentColumns).AddRow(
		"a1", "c1", "Ana Ruiz", "co1", "Dr. Lee",
		date, clock, 50, "in-person", "Room 1",
		"scheduled", "none", "", "2024-01-01T10:00:00Z",
	)
}

func TestPostgresCreateAppointment(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT 1 FROM clients").
		WithArgs("org-1", "c1").
		WillReturnRows(mock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(
			pgxmock.AnyArg(), "org-1", "c1", "",
			"2024-01-10", "09:00", 50,
			"in-person", "Room 1", "scheduled", "none",
			"", pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT a.id").
		WithArgs("org-1", pgxmock.AnyArg()).
		WillReturnRows(appointmentRow(mock, "2024-01-10", "09:00"))

	a, err := repo.CreateAppointment(context.Background(), appointment.CreateRequest{
		ClientID: "c1",
		Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local),
		Time:     "09:00",
		Kind:     appointment.KindInPerson,
		Duration: 50,
		Location: "Room 1",
	})
	if err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	if a.ClientName != "Ana Ruiz" {
		t.Errorf("client name = %q, want Ana Ruiz", a.ClientName)
	}
	if want := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local); !a.Start.Equal(want) {
		t.Errorf("start = %v, want %v", a.Start, want)
	}
	if a.Kind != appointment.KindInPerson || a.Recurring != appointment.RecurrenceNone {
		t.Errorf("kind = %s, recurring = %s", a.Kind, a.Recurring)
	}
}

func TestPostgresCreateAppointmentUnknownClient(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT 1 FROM clients").
		WithArgs("org-1", "ghost").
		WillReturnRows(mock.NewRows([]string{"one"}))

	_, err := repo.CreateAppointment(context.Background(), appointment.CreateRequest{
		ClientID: "ghost",
		Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local),
		Time:     "09:00",
		Kind:     appointment.KindPhone,
		Duration: 30,
	})
	if !errors.Is(err, appointment.ErrClientNotFound) {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
}

func TestPostgresUpdateAppointmentTime(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT location").
		WithArgs("org-1", "a1").
		WillReturnRows(mock.NewRows([]string{"location", "counselor_id"}).AddRow("Room 1", "co1"))
	mock.ExpectExec("UPDATE appointments").
		WithArgs("2024-01-12", "14:00", 50, "Room 1", "co1", "org-1", "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT a.id").
		WithArgs("org-1", "a1").
		WillReturnRows(appointmentRow(mock, "2024-01-12", "14:00"))

	a, err := repo.UpdateAppointmentTime(context.Background(), appointment.TimeUpdate{
		ID:       "a1",
		Start:    time.Date(2024, 1, 12, 14, 0, 0, 0, time.Local),
		Duration: 50,
	})
	if err != nil {
		t.Fatalf("UpdateAppointmentTime failed: %v", err)
	}
	if a.DateString() != "2024-01-12" || a.Duration != 50 {
		t.Errorf("got %s for %d minutes, want 2024-01-12 for 50", a.DateString(), a.Duration)
	}
}

func TestPostgresUpdateAppointmentTimeNotFound(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT location").
		WithArgs("org-1", "missing").
		WillReturnRows(mock.NewRows([]string{"location", "counselor_id"}))
	mock.ExpectRollback()

	_, err := repo.UpdateAppointmentTime(context.Background(), appointment.TimeUpdate{
		ID:       "missing",
		Start:    time.Date(2024, 1, 12, 14, 0, 0, 0, time.Local),
		Duration: 50,
	})
	if !errors.Is(err, appointment.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresUpdateStatusTerminal(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs("org-1", "a1").
		WillReturnRows(mock.NewRows([]string{"status"}).AddRow("canceled"))

	err := repo.UpdateAppointmentStatus(context.Background(), "a1", appointment.StatusScheduled)
	if !errors.Is(err, appointment.ErrStatusTerminal) {
		t.Errorf("expected ErrStatusTerminal, got %v", err)
	}
}

func TestPostgresUpdateStatus(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs("org-1", "a1").
		WillReturnRows(mock.NewRows([]string{"status"}).AddRow("scheduled"))
	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("completed", "org-1", "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateAppointmentStatus(context.Background(), "a1", appointment.StatusCompleted); err != nil {
		t.Fatalf("UpdateAppointmentStatus failed: %v", err)
	}
}

func TestPostgresDeleteNotFound(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectExec("DELETE FROM appointments").
		WithArgs("org-1", "nope").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteAppointment(context.Background(), "nope")
	if !errors.Is(err, appointment.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresCheckAvailability(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT a.scheduled_time").
		WithArgs("org-1", "2024-01-19", "").
		WillReturnRows(mock.NewRows([]string{"scheduled_time", "name"}).
			AddRow("10:00", "Ana Ruiz").
			AddRow("16:30", "Ben Ito"))

	busy, err := repo.CheckAvailability(context.Background(), time.Date(2024, 1, 19, 0, 0, 0, 0, time.Local), "")
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if len(busy) != 2 {
		t.Fatalf("expected 2 busy slots, got %d", len(busy))
	}
	if want := (appointment.BusySlot{Time: "10:00", OccupantName: "Ana Ruiz"}); busy[0] != want {
		t.Errorf("busy[0] = %+v, want %+v", busy[0], want)
	}
}

func TestPostgresListAppointmentsError(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT a.id").
		WithArgs("org-1", "2024-01-01", "2024-01-31").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListAppointments(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local))
	if err == nil || !strings.Contains(err.Error(), "querying appointments") {
		t.Errorf("expected a wrapped query error, got %v", err)
	}
}

func TestPostgresListAppointments(t *testing.T) {
	repo, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT a.id").
		WithArgs("org-1", "2024-01-01", "2024-01-31").
		WillReturnRows(appointmentRow(mock, "2024-01-10", "09:00"))

	appts, err := repo.ListAppointments(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("ListAppointments failed: %v", err)
	}
	if len(appts) != 1 || appts[0].CounselorName != "Dr. Lee" {
		t.Fatalf("unexpected appointments %+v", appts)
	}
}
