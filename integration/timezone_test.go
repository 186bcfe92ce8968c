package integration

import (
	"context"
	"testing"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/dateutil"
)

func TestCurrentWeekIncludesToday(t *testing.T) {
	repo, _ := openRepo(t)
	ctx := context.Background()

	now := time.Now()
	t.Logf("Current time: %v (%v)", now, now.Location())

	start, end := calendar.Visible(calendar.ViewWeek, now, time.Monday)
	t.Logf("Week: %v to %v", start, end)

	c := &appointment.Client{Name: "Ana Ruiz", Phone: "555-0101"}
	if err := repo.CreateClient(ctx, c); err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	created, err := repo.CreateAppointment(ctx, appointment.CreateRequest{
		ClientID: c.ID,
		Date:     dateutil.TruncateToDay(now),
		Time:     "10:00",
		Kind:     appointment.KindInPerson,
		Duration: 50,
	})
	if err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	if created.Start.Location() != time.Local {
		t.Errorf("expected a local start, got %v", created.Start.Location())
	}

	appts, err := repo.ListAppointments(ctx, start, end)
	if err != nil {
		t.Fatalf("ListAppointments failed: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected today's appointment in the current week, got %d", len(appts))
	}
	if !dateutil.SameDay(appts[0].Start, now) {
		t.Errorf("expected the appointment on %s, got %v", now.Format("2006-01-02"), appts[0].Start)
	}
}

func TestVisibleRangeIsInclusive(t *testing.T) {
	repo, _ := openRepo(t)

	// Sun Jan 7 - Sat Jan 13, 2024.
	start, end := calendar.Visible(calendar.ViewWeek, day(10), time.Sunday)
	if !start.Equal(day(7)) || !end.Equal(day(13)) {
		t.Fatalf("unexpected week %v - %v", start, end)
	}

	createAppointment(t, repo, "Before", 6, 20)
	createAppointment(t, repo, "First", 7, 9)
	createAppointment(t, repo, "Last", 13, 20)
	createAppointment(t, repo, "After", 14, 9)

	st := loadStore(t, repo, start, end)
	shown := st.Between(start, end.AddDate(0, 0, 1))
	if len(shown) != 2 {
		t.Fatalf("expected 2 appointments in the week, got %d", len(shown))
	}
	if shown[0].ClientName != "First" || shown[1].ClientName != "Last" {
		t.Errorf("expected First then Last, got %s then %s", shown[0].ClientName, shown[1].ClientName)
	}
	if calendar.Title(calendar.ViewWeek, day(10)) != "Jan 7-13, 2024" {
		t.Errorf("unexpected title %q", calendar.Title(calendar.ViewWeek, day(10)))
	}
}

func TestMonthGridCoversLeadingDays(t *testing.T) {
	repo, _ := openRepo(t)

	// January 2024 starts on a Monday, so a Sunday-first grid opens on Dec 31.
	start, end := calendar.Visible(calendar.ViewMonth, day(15), time.Sunday)
	if want := time.Date(2023, 12, 31, 0, 0, 0, 0, time.Local); !start.Equal(want) {
		t.Fatalf("expected the grid to start %v, got %v", want, start)
	}
	if want := start.AddDate(0, 0, calendar.MonthCells-1); !end.Equal(want) {
		t.Fatalf("expected %d cells ending %v, got %v", calendar.MonthCells, want, end)
	}

	c := &appointment.Client{Name: "Eve", Phone: "555-0199"}
	ctx := context.Background()
	if err := repo.CreateClient(ctx, c); err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if _, err := repo.CreateAppointment(ctx, appointment.CreateRequest{
		ClientID: c.ID,
		Date:     start,
		Time:     "09:00",
		Kind:     appointment.KindPhone,
		Duration: 50,
	}); err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}

	st := loadStore(t, repo, start, end)
	if got := st.Between(start, end.AddDate(0, 0, 1)); len(got) != 1 {
		t.Errorf("expected the leading day's appointment to be loaded, got %d", len(got))
	}
}
