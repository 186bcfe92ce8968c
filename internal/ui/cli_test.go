package ui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/config"
	"github.com/javiermolinar/clinicflow/internal/db"
)

func TestMain(m *testing.M) {
	DisableColor()
	os.Exit(m.Run())
}

// Monday, January 8 2024.
var testNow = time.Date(2024, 1, 8, 8, 0, 0, 0, time.Local)

func newTestApp(t *testing.T) (*App, *db.Memory) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Log.File = filepath.Join(t.TempDir(), "clinicflow.log")

	repo := db.NewMemory()
	app := NewApp(repo, cfg)
	app.now = func() time.Time { return testNow }
	return app, repo
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app.SetOutput(&out)
	app.SetArgs(args)
	err := app.Execute()
	return out.String(), err
}

// mustRun fails the test when the command errors.
func mustRun(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := run(t, app, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func seedAppointment(t *testing.T, repo *db.Memory, name string, day, hour int) *appointment.Appointment {
	t.Helper()
	ctx := context.Background()
	c := &appointment.Client{Name: name, Phone: "555-0100"}
	if err := repo.CreateClient(ctx, c); err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	a, err := repo.CreateAppointment(ctx, appointment.CreateRequest{
		ClientID: c.ID,
		Date:     time.Date(2024, 1, day, 0, 0, 0, 0, time.Local),
		Time:     appointment.HourToClock(float64(hour)),
		Kind:     appointment.KindInPerson,
		Duration: 50,
	})
	if err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	return a
}

func listWeek(t *testing.T, repo *db.Memory) []*appointment.Appointment {
	t.Helper()
	appts, err := repo.ListAppointments(context.Background(), testNow, testNow.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("ListAppointments failed: %v", err)
	}
	return appts
}

func TestVersion(t *testing.T) {
	app, _ := newTestApp(t)

	out := mustRun(t, app, "version")
	if out != "clinicflow dev (commit: none)\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestBookAndAgenda(t *testing.T) {
	app, repo := newTestApp(t)
	if err := repo.CreateCounselor(context.Background(), &appointment.Counselor{Name: "Dr. Lee"}); err != nil {
		t.Fatalf("CreateCounselor failed: %v", err)
	}

	out := mustRun(t, app, "book",
		"--name", "Ana Ruiz",
		"--phone", "555-0101",
		"--concern", "anxiety",
		"--date", "2024-01-10",
		"--time", "10:00",
		"--kind", "video",
		"--counselor", "dr. lee",
	)
	assertContains(t, out, "Ana Ruiz on Wed Jan 10 2024 at 10:00 (online, 50m)")

	out = mustRun(t, app, "agenda", "--view", "week", "--date", "2024-01-10")
	assertContains(t, out, "Jan 7-13, 2024", "Wed Jan 10", "10:00-10:50", "Ana Ruiz", "Dr. Lee", "Sessions: 1")
}

func TestBookRefusesTakenHour(t *testing.T) {
	app, repo := newTestApp(t)
	seedAppointment(t, repo, "Ana Ruiz", 10, 10)

	_, err := run(t, app, "book",
		"--name", "Ben Ortiz",
		"--phone", "555-0102",
		"--concern", "grief",
		"--date", "2024-01-10",
		"--time", "10",
	)
	if err == nil || !strings.Contains(err.Error(), "Ana Ruiz is already booked at 10:00") {
		t.Fatalf("expected the conflict error, got %v", err)
	}
	if n := len(listWeek(t, repo)); n != 1 {
		t.Errorf("expected 1 appointment, got %d", n)
	}
}

func TestBookValidatesTheForm(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing phone",
			args: []string{"--name", "Ana", "--concern", "x", "--time", "10:00"},
			want: "phone: is required",
		},
		{
			name: "missing concern",
			args: []string{"--name", "Ana", "--phone", "1", "--time", "10:00"},
			want: "concern: is required",
		},
		{
			name: "outside clinic hours",
			args: []string{"--name", "Ana", "--phone", "1", "--concern", "x", "--time", "22:00"},
			want: "outside clinic hours",
		},
		{
			name: "off the hour",
			args: []string{"--name", "Ana", "--phone", "1", "--concern", "x", "--time", "10:30"},
			want: "on the hour",
		},
		{
			name: "date in the past",
			args: []string{"--name", "Ana", "--phone", "1", "--concern", "x", "--time", "10:00", "--date", "2023-12-01"},
			want: "past",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			_, err := run(t, app, append([]string{"book"}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected an error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRescheduleMovesAppointment(t *testing.T) {
	app, repo := newTestApp(t)
	a := seedAppointment(t, repo, "Ana Ruiz", 10, 9)

	out := mustRun(t, app, "reschedule", a.ID, "--date", "2024-01-11", "--time", "15:00", "--duration", "80")
	if want := "Moved Ana Ruiz to Thu Jan 11 2024 at 15:00 (1h20m)\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	appts := listWeek(t, repo)
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}
	if want := time.Date(2024, 1, 11, 15, 0, 0, 0, time.Local); !appts[0].Start.Equal(want) {
		t.Errorf("start = %v, want %v", appts[0].Start, want)
	}
	if appts[0].Duration != 80 {
		t.Errorf("duration = %d, want 80", appts[0].Duration)
	}
}

func TestRescheduleInPlaceIgnoresOwnSlot(t *testing.T) {
	app, repo := newTestApp(t)
	a := seedAppointment(t, repo, "Ana Ruiz", 10, 9)

	mustRun(t, app, "reschedule", a.ID, "--duration", "90")
}

func TestCancelThenComplete(t *testing.T) {
	app, repo := newTestApp(t)
	a := seedAppointment(t, repo, "Ana Ruiz", 10, 9)

	out := mustRun(t, app, "cancel", a.ID)
	if want := "Canceled Ana Ruiz on Wed Jan 10 2024 at 09:00\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	if _, err := run(t, app, "complete", a.ID); !errors.Is(err, appointment.ErrStatusTerminal) {
		t.Fatalf("expected ErrStatusTerminal, got %v", err)
	}

	out = mustRun(t, app, "availability", "--date", "2024-01-10")
	assertContains(t, out, "09:00  free")
}

func TestCompleteThenCancel(t *testing.T) {
	app, repo := newTestApp(t)
	a := seedAppointment(t, repo, "Ana Ruiz", 10, 9)

	mustRun(t, app, "complete", a.ID)
	if _, err := run(t, app, "cancel", a.ID); !errors.Is(err, appointment.ErrStatusTerminal) {
		t.Fatalf("expected ErrStatusTerminal, got %v", err)
	}
}

func TestCancelUnknownAppointment(t *testing.T) {
	app, _ := newTestApp(t)

	if _, err := run(t, app, "cancel", "missing"); !errors.Is(err, appointment.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAvailability(t *testing.T) {
	app, repo := newTestApp(t)
	seedAppointment(t, repo, "Ana Ruiz", 10, 10)

	out := mustRun(t, app, "availability", "--date", "2024-01-10")
	assertContains(t, out,
		"Wednesday, January 10, 2024",
		"09:00  free",
		"10:00  taken  Ana Ruiz at 10:00",
		"11:00  free",
		"8% booked",
	)
}

func TestReferenceCommands(t *testing.T) {
	app, repo := newTestApp(t)

	mustRun(t, app, "counselor", "add", "Dr. Lee")
	mustRun(t, app, "location", "add", "Room 2")
	mustRun(t, app, "client", "add", "Ana Ruiz", "--phone", "555-0101")

	counselors, err := repo.ListCounselors(context.Background())
	if err != nil {
		t.Fatalf("ListCounselors failed: %v", err)
	}
	if len(counselors) != 1 || counselors[0].Name != "Dr. Lee" {
		t.Fatalf("unexpected counselors %+v", counselors)
	}

	assertContains(t, mustRun(t, app, "location", "list"), "Room 2")
	assertContains(t, mustRun(t, app, "client", "list"), "Ana Ruiz", "555-0101")
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "10", want: 10},
		{in: "9:00", want: 9},
		{in: "09:00", want: 9},
		{in: "20:00", want: 20},
		{in: "10:30", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "", wantErr: true},
		{in: "24", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHour(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseHour(%q) = %d, want an error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHour(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseHour(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigInit(t *testing.T) {
	app, _ := newTestApp(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	t.Setenv("CLINICFLOW_LOG_FILE", filepath.Join(dir, "clinicflow.log"))

	out := mustRun(t, app, "--config", path, "config", "init")
	assertContains(t, out, "Created "+path)

	if _, err := run(t, app, "--config", path, "config", "init"); err == nil {
		t.Error("expected init to refuse an existing file")
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.UI.DefaultView != "week" {
		t.Errorf("default view = %q, want week", cfg.UI.DefaultView)
	}
}
