// Package commands provides TUI command constructors and message types.
package commands

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/booking"
	"github.com/javiermolinar/clinicflow/internal/store"
)

// RequestTimeout bounds every repository call made from the event loop.
const RequestTimeout = 10 * time.Second

// ListLoadedMsg carries the answer to a list request.
type ListLoadedMsg struct {
	Result store.ListResult
}

// MutationSettledMsg carries the outcome of an optimistic mutation.
type MutationSettledMsg struct {
	Result store.MutationResult
}

// AvailabilityMsg carries the answer to an availability check.
type AvailabilityMsg struct {
	Response availability.Response
}

// ClientRegisteredMsg is sent once the intake client exists, or failed to.
type ClientRegisteredMsg struct {
	Submission booking.Submission
	Err        error
}

// ReferenceLoadedMsg carries the counselors and locations offered by the
// booking dialog.
type ReferenceLoadedMsg struct {
	Counselors []*appointment.Counselor
	Locations  []*appointment.Location
	Err        error
}

// StatusMsg is sent for temporary status messages.
type StatusMsg struct {
	Msg string
}

// LoadAppointments runs a list request.
func LoadAppointments(repo appointment.Repository, req store.ListRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		return ListLoadedMsg{Result: store.List(ctx, repo, req)}
	}
}

// ExecuteMutation persists a mutation the store has already applied.
func ExecuteMutation(repo appointment.Repository, m store.Mutation) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		return MutationSettledMsg{Result: store.Execute(ctx, repo, m)}
	}
}

// CheckAvailability runs req. Incomplete queries need no round trip and
// yield no command.
func CheckAvailability(checker appointment.AvailabilityChecker, req availability.Request) tea.Cmd {
	if !req.Query.Ready() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		return AvailabilityMsg{Response: availability.Run(ctx, checker, req)}
	}
}

// RegisterClient creates the client of an intake submission.
func RegisterClient(repo appointment.Repository, sub booking.Submission) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		registered, err := booking.RegisterClient(ctx, repo, sub)
		return ClientRegisteredMsg{Submission: registered, Err: err}
	}
}

// LoadReference loads counselors and locations.
func LoadReference(repo appointment.Repository) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()

		counselors, err := repo.ListCounselors(ctx)
		if err != nil {
			return ReferenceLoadedMsg{Err: fmt.Errorf("loading counselors: %w", err)}
		}
		locations, err := repo.ListLocations(ctx)
		if err != nil {
			return ReferenceLoadedMsg{Err: fmt.Errorf("loading locations: %w", err)}
		}
		return ReferenceLoadedMsg{Counselors: counselors, Locations: locations}
	}
}
