package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/booking"
	"github.com/javiermolinar/clinicflow/internal/db"
	"github.com/javiermolinar/clinicflow/internal/logging"
	"github.com/javiermolinar/clinicflow/internal/store"
)

type fakeRepo struct {
	*db.Memory
	listErr error
}

func (f fakeRepo) ListAppointments(ctx context.Context, start, end time.Time) ([]*appointment.Appointment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Memory.ListAppointments(ctx, start, end)
}

func seeded(t *testing.T) (fakeRepo, *appointment.Appointment) {
	t.Helper()
	repo := fakeRepo{Memory: db.NewMemory()}
	ctx := context.Background()
	client := &appointment.Client{Name: "Ana Ruiz", Phone: "555-0100"}
	if err := repo.CreateClient(ctx, client); err != nil {
		t.Fatalf("creating client: %v", err)
	}
	a, err := repo.CreateAppointment(ctx, appointment.CreateRequest{
		ClientID: client.ID,
		Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local),
		Time:     "09:00",
		Kind:     appointment.KindInPerson,
		Duration: 50,
	})
	if err != nil {
		t.Fatalf("creating appointment: %v", err)
	}
	return repo, a
}

func TestLoadAppointmentsReturnsListLoadedMsg(t *testing.T) {
	repo, _ := seeded(t)
	st := store.New(nil, logging.Nop())
	req := st.BeginList(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local))

	msg := LoadAppointments(repo, req)()

	loaded, ok := msg.(ListLoadedMsg)
	if !ok {
		t.Fatalf("msg type = %T, want ListLoadedMsg", msg)
	}
	if loaded.Result.Token != req.Token {
		t.Fatalf("token = %d, want %d", loaded.Result.Token, req.Token)
	}
	if len(loaded.Result.Items) != 1 || loaded.Result.Items[0].ClientName != "Ana Ruiz" {
		t.Fatalf("unexpected items %+v", loaded.Result.Items)
	}
}

func TestLoadAppointmentsCarriesError(t *testing.T) {
	repo, _ := seeded(t)
	repo.listErr = errors.New("connection refused")
	st := store.New(nil, logging.Nop())

	msg := LoadAppointments(repo, st.BeginList(time.Now(), time.Now()))()

	loaded := msg.(ListLoadedMsg)
	if loaded.Result.Err == nil {
		t.Fatal("expected the list error to be carried")
	}
}

func TestExecuteMutationReturnsSettledMsg(t *testing.T) {
	repo, a := seeded(t)
	st := store.New(nil, logging.Nop())
	res := store.List(context.Background(), repo, st.BeginList(a.Day(), a.Day()))
	st.ApplyList(res)

	m, err := st.BeginUpdateTime(a.ID, a.Start.Add(time.Hour), a.Duration)
	if err != nil {
		t.Fatalf("BeginUpdateTime: %v", err)
	}
	msg := ExecuteMutation(repo, m)()

	settled, ok := msg.(MutationSettledMsg)
	if !ok {
		t.Fatalf("msg type = %T, want MutationSettledMsg", msg)
	}
	if settled.Result.Err != nil {
		t.Fatalf("unexpected error: %v", settled.Result.Err)
	}
	if settled.Result.Seq != m.Seq {
		t.Fatalf("seq = %d, want %d", settled.Result.Seq, m.Seq)
	}
	if settled.Result.Value.TimeString() != "10:00" {
		t.Fatalf("stored time = %s, want 10:00", settled.Result.Value.TimeString())
	}
}

func TestCheckAvailability(t *testing.T) {
	repo, a := seeded(t)
	tracker := availability.NewTracker(nil)

	if cmd := CheckAvailability(repo, tracker.Begin(availability.Query{Date: a.Day(), Hour: -1})); cmd != nil {
		t.Fatal("incomplete query should not produce a command")
	}

	req := tracker.Begin(availability.Query{Date: a.Day(), Hour: 9})
	msg := CheckAvailability(repo, req)()

	got, ok := msg.(AvailabilityMsg)
	if !ok {
		t.Fatalf("msg type = %T, want AvailabilityMsg", msg)
	}
	if len(got.Response.Busy) != 1 || got.Response.Busy[0].OccupantName != "Ana Ruiz" {
		t.Fatalf("unexpected busy slots %+v", got.Response.Busy)
	}
}

func TestRegisterClient(t *testing.T) {
	repo, _ := seeded(t)
	sub := booking.Submission{
		Flow:   booking.FlowIntake,
		Client: &appointment.Client{Name: "Luis Vega", Phone: "555-0101"},
	}

	msg := RegisterClient(repo, sub)()

	got := msg.(ClientRegisteredMsg)
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if got.Submission.Create.ClientID == "" {
		t.Fatal("expected the appointment to point at the new client")
	}

	msg = RegisterClient(repo, booking.Submission{Flow: booking.FlowIntake})()
	if got := msg.(ClientRegisteredMsg); !errors.Is(got.Err, appointment.ErrMissingClient) {
		t.Fatalf("err = %v, want ErrMissingClient", got.Err)
	}
}

func TestLoadReference(t *testing.T) {
	repo, _ := seeded(t)
	ctx := context.Background()
	if err := repo.CreateCounselor(ctx, &appointment.Counselor{Name: "Dr. Lee"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateLocation(ctx, &appointment.Location{Name: "Room 2"}); err != nil {
		t.Fatal(err)
	}

	got := LoadReference(repo)().(ReferenceLoadedMsg)
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if len(got.Counselors) != 1 || len(got.Locations) != 1 {
		t.Fatalf("got %d counselors and %d locations", len(got.Counselors), len(got.Locations))
	}
}
