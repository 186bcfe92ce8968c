package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/booking"
	"github.com/javiermolinar/clinicflow/internal/store"
	"github.com/javiermolinar/clinicflow/internal/tui/commands"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll = min(m.scroll, m.layout().MaxScroll)
		return m, nil

	case commands.ListLoadedMsg:
		if !m.store.ApplyList(msg.Result) {
			m.logger.Debug("dropping stale list", zap.Uint64("token", msg.Result.Token))
			return m, nil
		}
		if msg.Result.Err != nil {
			m.fetchStart, m.fetchEnd = m.store.Window()
			return m.setStatus("Could not load appointments"), nil
		}
		if _, ok := m.store.Get(m.selected); !ok {
			m.selected = ""
		}
		return m, nil

	case commands.MutationSettledMsg:
		return m.settle(msg.Result)

	case commands.AvailabilityMsg:
		if m.wizard == nil || !m.wizard.w.Resolve(msg.Response) {
			m.logger.Debug("dropping stale availability", zap.Uint64("token", msg.Response.Token))
		}
		return m, nil

	case commands.ClientRegisteredMsg:
		if m.wizard == nil {
			return m, nil
		}
		if msg.Err != nil {
			m.wizard.w.Finish(msg.Err)
			return m, nil
		}
		return m.beginSubmission(msg.Submission)

	case commands.ReferenceLoadedMsg:
		if msg.Err != nil {
			m.logger.Warn("loading reference data", zap.Error(msg.Err))
			return m, nil
		}
		m.counselors = msg.Counselors
		m.locations = msg.Locations
		return m, nil

	case commands.StatusMsg:
		return m.setStatus(msg.Msg), nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// settle folds a mutation result into the store and reports failures.
func (m Model) settle(res store.MutationResult) (tea.Model, tea.Cmd) {
	err := m.store.Settle(res)
	if errors.Is(err, store.ErrUnknownMutation) {
		m.logger.Debug("dropping unknown mutation", zap.Uint64("seq", res.Seq))
		return m, nil
	}

	if m.wizard != nil && m.wizard.seq == res.Seq {
		m.wizard.w.Finish(err)
		if !m.wizard.w.Done() {
			return m, nil
		}
		flow := m.wizard.w.Flow()
		m = m.closeWizard()
		if res.Value != nil {
			m.selected = res.Value.ID
		}
		var fetch tea.Cmd
		m, fetch = m.fetch()
		if flow == booking.FlowIntake {
			return m.setStatus("Appointment booked"), tea.Batch(fetch, m.tick())
		}
		return m.setStatus("Appointment moved"), tea.Batch(fetch, m.tick())
	}

	if err != nil {
		if m.mode != ModeNormal {
			return m.setStatus("Change rolled back: " + err.Error()), nil
		}
		m.alert = alertState{
			title: "Change rolled back",
			body:  fmt.Sprintf("The server rejected the change:\n%v", err),
		}
		m.mode = ModeAlert
		return m, nil
	}
	return m, nil
}
