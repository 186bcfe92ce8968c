package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// Each contract test runs against every backend that does not need a server.
var backends = map[string]func(t *testing.T) appointment.Repository{
	"sqlite": func(t *testing.T) appointment.Repository { return newTestRepo(t) },
	"memory": func(t *testing.T) appointment.Repository { return NewMemory() },
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo appointment.Repository)) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

type fixture struct {
	client    *appointment.Client
	counselor *appointment.Counselor
}

func seed(t *testing.T, repo appointment.Repository) fixture {
	t.Helper()
	ctx := context.Background()

	client := &appointment.Client{Name: "Ana Ruiz", Phone: "555-0100", Email: "ana@example.com"}
	if err := repo.CreateClient(ctx, client); err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	counselor := &appointment.Counselor{Name: "Dr. Lee"}
	if err := repo.CreateCounselor(ctx, counselor); err != nil {
		t.Fatalf("CreateCounselor failed: %v", err)
	}
	return fixture{client: client, counselor: counselor}
}

func book(t *testing.T, repo appointment.Repository, f fixture, date time.Time, clock string) *appointment.Appointment {
	t.Helper()
	a, err := repo.CreateAppointment(context.Background(), appointment.CreateRequest{
		ClientID:    f.client.ID,
		Date:        date,
		Time:        clock,
		Kind:        appointment.KindInPerson,
		Duration:    50,
		CounselorID: f.counselor.ID,
		Location:    "Room 1",
	})
	if err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	return a
}

func TestCreateAppointment(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		f := seed(t, repo)
		a := book(t, repo, f, day(2024, 1, 10), "09:00")

		if a.ID == "" {
			t.Error("expected ID to be set after insert")
		}
		if !a.Start.Equal(time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)) {
			t.Errorf("got start %v", a.Start)
		}
		if a.Status != appointment.StatusScheduled {
			t.Errorf("got status %q, want scheduled", a.Status)
		}
		if a.Recurring != appointment.RecurrenceNone {
			t.Errorf("got recurring %q, want none", a.Recurring)
		}
		if a.ClientName != "Ana Ruiz" {
			t.Errorf("got client name %q", a.ClientName)
		}
		if a.CounselorName != "Dr. Lee" {
			t.Errorf("got counselor name %q", a.CounselorName)
		}
		if a.Duration != 50 {
			t.Errorf("got duration %d", a.Duration)
		}
	})
}

func TestCreateAppointment_UnknownClient(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		_, err := repo.CreateAppointment(context.Background(), appointment.CreateRequest{
			ClientID: "missing",
			Date:     day(2024, 1, 10),
			Time:     "09:00",
			Kind:     appointment.KindOnline,
			Duration: 50,
		})
		if !errors.Is(err, appointment.ErrClientNotFound) {
			t.Fatalf("got error %v, want %v", err, appointment.ErrClientNotFound)
		}
	})
}

func TestCreateAppointment_Invalid(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		f := seed(t, repo)
		_, err := repo.CreateAppointment(context.Background(), appointment.CreateRequest{
			ClientID: f.client.ID,
			Date:     day(2024, 1, 10),
			Time:     "09:00",
			Kind:     "fax",
			Duration: 50,
		})
		if !errors.Is(err, appointment.ErrInvalidKind) {
			t.Fatalf("got error %v, want %v", err, appointment.ErrInvalidKind)
		}
	})
}

func TestListAppointments(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		f := seed(t, repo)
		book(t, repo, f, day(2024, 1, 12), "14:00")
		book(t, repo, f, day(2024, 1, 10), "11:00")
		book(t, repo, f, day(2024, 1, 10), "09:00")
		book(t, repo, f, day(2024, 1, 20), "09:00")

		appts, err := repo.ListAppointments(context.Background(), day(2024, 1, 10), day(2024, 1, 12))
		if err != nil {
			t.Fatalf("ListAppointments failed: %v", err)
		}
		if len(appts) != 3 {
			t.Fatalf("got %d appointments, want 3", len(appts))
		}
		want := []string{"2024-01-10 09:00", "2024-01-10 11:00", "2024-01-12 14:00"}
		for i, a := range appts {
			if got := a.DateString() + " " + a.TimeString(); got != want[i] {
				t.Errorf("appointment %d: got %s, want %s", i, got, want[i])
			}
		}
	})
}

func TestUpdateAppointmentTime_KeepsDuration(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		f := seed(t, repo)
		a := book(t, repo, f, day(2024, 1, 10), "09:00")

		got, err := repo.UpdateAppointmentTime(context.Background(), appointment.TimeUpdate{
			ID:       a.ID,
			Start:    time.Date(2024, 1, 12, 14, 0, 0, 0, time.Local),
			Duration: a.Duration,
		})
		if err != nil {
			t.Fatalf("UpdateAppointmentTime failed: %v", err)
		}
		if got.DateString() != "2024-01-12" || got.TimeString() != "14:00" {
			t.Errorf("got %s %s", got.DateString(), got.TimeString())
		}
		if got.Duration != 50 {
			t.Errorf("got duration %d, want 50", got.Duration)
		}
		if got.Location != "Room 1" || got.CounselorID != f.counselor.ID {
			t.Errorf("unset optional fields must be kept, got location %q counselor %q", got.Location, got.CounselorID)
		}
	})
}

func TestUpdateAppointmentTime_OptionalFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		f := seed(t, repo)
		a := book(t, repo, f, day(2024, 1, 10), "09:00")

		other := &appointment.Counselor{Name: "Dr. Ortiz"}
		if err := repo.CreateCounselor(context.Background(), other); err != nil {
			t.Fatalf("CreateCounselor failed: %v", err)
		}
		room := "Room 7"
		got, err := repo.UpdateAppointmentTime(context.Background(), appointment.TimeUpdate{
			ID:          a.ID,
			Start:       a.Start,
			Duration:    30,
			Location:    &room,
			CounselorID: &other.ID,
		})
		if err != nil {
			t.Fatalf("UpdateAppointmentTime failed: %v", err)
		}
		if got.Location != "Room 7" || got.CounselorName != "Dr. Ortiz" || got.Duration != 30 {
			t.Errorf("got location %q counselor %q duration %d", got.Location, got.CounselorName, got.Duration)
		}
	})
}

func TestUpdateAppointmentTime_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		_, err := repo.UpdateAppointmentTime(context.Background(), appointment.TimeUpdate{
			ID:       "nope",
			Start:    time.Now(),
			Duration: 50,
		})
		if !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("got error %v, want %v", err, appointment.ErrNotFound)
		}
	})
}

func TestUpdateAppointmentStatus(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		ctx := context.Background()
		f := seed(t, repo)
		a := book(t, repo, f, day(2024, 1, 10), "09:00")

		if err := repo.UpdateAppointmentStatus(ctx, a.ID, appointment.StatusCanceled); err != nil {
			t.Fatalf("UpdateAppointmentStatus failed: %v", err)
		}
		err := repo.UpdateAppointmentStatus(ctx, a.ID, appointment.StatusScheduled)
		if !errors.Is(err, appointment.ErrStatusTerminal) {
			t.Fatalf("got error %v, want %v", err, appointment.ErrStatusTerminal)
		}
		if err := repo.UpdateAppointmentStatus(ctx, "nope", appointment.StatusCompleted); !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("got error %v, want %v", err, appointment.ErrNotFound)
		}
	})
}

func TestCompletedIsTerminal(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		ctx := context.Background()
		f := seed(t, repo)
		a := book(t, repo, f, day(2024, 1, 10), "09:00")

		if err := repo.UpdateAppointmentStatus(ctx, a.ID, appointment.StatusCompleted); err != nil {
			t.Fatalf("UpdateAppointmentStatus failed: %v", err)
		}
		for _, next := range []appointment.Status{appointment.StatusCanceled, appointment.StatusScheduled} {
			if err := repo.UpdateAppointmentStatus(ctx, a.ID, next); !errors.Is(err, appointment.ErrStatusTerminal) {
				t.Errorf("completed -> %s: got %v, want %v", next, err, appointment.ErrStatusTerminal)
			}
		}
		if err := repo.UpdateAppointmentStatus(ctx, a.ID, appointment.StatusCompleted); err != nil {
			t.Errorf("re-applying completed: unexpected error: %v", err)
		}
	})
}

func TestDeleteAppointment(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		ctx := context.Background()
		f := seed(t, repo)
		a := book(t, repo, f, day(2024, 1, 10), "09:00")

		if err := repo.DeleteAppointment(ctx, a.ID); err != nil {
			t.Fatalf("DeleteAppointment failed: %v", err)
		}
		if err := repo.DeleteAppointment(ctx, a.ID); !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("got error %v, want %v", err, appointment.ErrNotFound)
		}
		appts, err := repo.ListAppointments(ctx, day(2024, 1, 1), day(2024, 1, 31))
		if err != nil {
			t.Fatalf("ListAppointments failed: %v", err)
		}
		if len(appts) != 0 {
			t.Errorf("expected no appointments, got %d", len(appts))
		}
	})
}

func TestCheckAvailability(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		ctx := context.Background()
		f := seed(t, repo)
		book(t, repo, f, day(2024, 1, 19), "10:00")
		canceled := book(t, repo, f, day(2024, 1, 19), "15:00")
		book(t, repo, f, day(2024, 1, 20), "10:00")
		if err := repo.UpdateAppointmentStatus(ctx, canceled.ID, appointment.StatusCanceled); err != nil {
			t.Fatalf("UpdateAppointmentStatus failed: %v", err)
		}

		busy, err := repo.CheckAvailability(ctx, day(2024, 1, 19), "")
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if len(busy) != 1 {
			t.Fatalf("got %d busy slots, want 1 (canceled excluded)", len(busy))
		}
		if busy[0].Time != "10:00" || busy[0].OccupantName != "Ana Ruiz" {
			t.Errorf("got %+v", busy[0])
		}

		busy, err = repo.CheckAvailability(ctx, day(2024, 1, 19), "other-counselor")
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if len(busy) != 0 {
			t.Errorf("counselor filter: got %d busy slots, want 0", len(busy))
		}
	})
}

func TestReferenceData(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo appointment.Repository) {
		ctx := context.Background()
		for _, name := range []string{"Zoe", "adam"} {
			if err := repo.CreateClient(ctx, &appointment.Client{Name: name}); err != nil {
				t.Fatalf("CreateClient failed: %v", err)
			}
		}
		if err := repo.CreateClient(ctx, &appointment.Client{Name: "  "}); !errors.Is(err, appointment.ErrEmptyName) {
			t.Errorf("got error %v, want %v", err, appointment.ErrEmptyName)
		}
		clients, err := repo.ListClients(ctx)
		if err != nil {
			t.Fatalf("ListClients failed: %v", err)
		}
		if len(clients) != 2 || clients[0].Name != "adam" {
			t.Errorf("expected case-insensitive name order, got %+v", clients)
		}

		if err := repo.CreateLocation(ctx, &appointment.Location{Name: "Room 2"}); err != nil {
			t.Fatalf("CreateLocation failed: %v", err)
		}
		locations, err := repo.ListLocations(ctx)
		if err != nil {
			t.Fatalf("ListLocations failed: %v", err)
		}
		if len(locations) != 1 || locations[0].ID == "" {
			t.Errorf("got %+v", locations)
		}
	})
}

func TestSQLiteOrgScoping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	clinicA, err := New(path, "clinic-a")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = clinicA.Close() })
	clinicB, err := New(path, "clinic-b")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = clinicB.Close() })

	f := seed(t, clinicA)
	book(t, clinicA, f, day(2024, 1, 10), "09:00")

	appts, err := clinicB.ListAppointments(ctx, day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("ListAppointments failed: %v", err)
	}
	if len(appts) != 0 {
		t.Errorf("clinic-b sees %d of clinic-a's appointments", len(appts))
	}

	_, err = clinicB.CreateAppointment(ctx, appointment.CreateRequest{
		ClientID: f.client.ID,
		Date:     day(2024, 1, 10),
		Time:     "10:00",
		Kind:     appointment.KindPhone,
		Duration: 30,
	})
	if !errors.Is(err, appointment.ErrClientNotFound) {
		t.Errorf("got error %v, want %v", err, appointment.ErrClientNotFound)
	}
}

func TestParseStart(t *testing.T) {
	tests := []struct {
		date, clock string
	}{
		{"2024-01-10", "09:30"},
		{"2024-01-10T00:00:00Z", "09:30"},
		{"2024-01-10", "09:30:00"},
	}
	want := time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local)
	for _, tt := range tests {
		got, err := parseStart(tt.date, tt.clock)
		if err != nil {
			t.Fatalf("parseStart(%q, %q): %v", tt.date, tt.clock, err)
		}
		if !got.Equal(want) {
			t.Errorf("parseStart(%q, %q) = %v, want %v", tt.date, tt.clock, got, want)
		}
	}

	if _, err := parseStart("10/01/2024", "09:30"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func newTestRepo(t *testing.T) *SQLite {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	repo, err := New(dbPath, "test-org")
	if err != nil {
		t.Fatalf("failed to create test repo: %v", err)
	}

	t.Cleanup(func() {
		_ = repo.Close()
	})

	return repo
}
