package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/gesture"
	"github.com/javiermolinar/clinicflow/internal/store"
	"github.com/javiermolinar/clinicflow/internal/tui/commands"
)

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.logger.Debug("key", zap.String("key", msg.String()), zap.Int("mode", int(m.mode)))

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case ModeWizard:
		return m.handleWizardKeys(msg)
	case ModeConfirm:
		return m.handleConfirmKeys(msg)
	case ModeAlert:
		return m.handleAlertKeys(msg)
	default:
		return m.handleNormalKeys(msg)
	}
}

// handleNormalKeys handles keys in normal mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	l := m.layout()

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "esc":
		m.selected = ""
		return m, nil

	// Views
	case "d":
		return m.setView(calendar.ViewDay)
	case "w":
		return m.setView(calendar.ViewWeek)
	case "m":
		return m.setView(calendar.ViewMonth)

	// Navigation
	case "h", "left":
		return m.navigate(gesture.Navigate{Delta: -1})
	case "l", "right":
		return m.navigate(gesture.Navigate{Delta: 1})
	case "t":
		return m.navigate(gesture.SetAnchor{Date: m.now()})
	case "j", "down":
		m.scroll = min(m.scroll+1, l.MaxScroll)
		return m, nil
	case "k", "up":
		m.scroll = max(min(m.scroll, l.MaxScroll)-1, 0)
		return m, nil
	case "ctrl+r":
		m, cmd := m.fetch()
		return m, tea.Batch(cmd, m.tick())

	// Selection
	case "tab":
		return m.cycleSelection(1), nil
	case "shift+tab":
		return m.cycleSelection(-1), nil

	// Appointment actions
	case "n":
		return m.openIntake()
	case "r", "enter":
		return m.openReschedule()
	case "c":
		return m.askConfirm(confirmCancel)
	case "x":
		return m.askConfirm(confirmComplete)
	case "D":
		return m.askConfirm(confirmDelete)
	}
	return m, nil
}

func (m Model) setView(v calendar.View) (tea.Model, tea.Cmd) {
	next, _ := gesture.Reduce(m.state, m.layout().Geometry(), gesture.SetView{View: v})
	m.state = next
	m, cmd := m.ensureWindow()
	return m, tea.Batch(cmd, m.tick())
}

// navigate moves the anchor. Every anchor change refetches its window so
// writes from other clients show up.
func (m Model) navigate(ev gesture.Event) (tea.Model, tea.Cmd) {
	next, _ := gesture.Reduce(m.state, m.layout().Geometry(), ev)
	if next.Anchor.Equal(m.state.Anchor) {
		return m, nil
	}
	m.state = next
	m, cmd := m.fetch()
	return m, tea.Batch(cmd, m.tick())
}

// cycleSelection moves the selection through the visible appointments.
func (m Model) cycleSelection(delta int) Model {
	appts := m.visible()
	if len(appts) == 0 {
		m.selected = ""
		return m
	}
	idx := -1
	for i, a := range appts {
		if a.ID == m.selected {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && delta < 0:
		idx = len(appts) - 1
	case idx < 0:
		idx = 0
	default:
		idx = (idx + delta + len(appts)) % len(appts)
	}
	m.selected = appts[idx].ID
	return m
}

// askConfirm opens a yes/no dialog for op on the selected appointment.
func (m Model) askConfirm(op confirmOp) (tea.Model, tea.Cmd) {
	a, ok := m.selectedAppointment()
	if !ok {
		return m.setStatus("Select an appointment first"), nil
	}
	if m.store.IsPending(a.ID) {
		return m.setStatus("Still saving this appointment"), nil
	}

	var prompt string
	switch op {
	case confirmCancel:
		if err := a.CanTransition(appointment.StatusCanceled); err != nil {
			return m.setStatus("Cannot cancel: " + err.Error()), nil
		}
		prompt = "Cancel"
	case confirmComplete:
		if err := a.CanTransition(appointment.StatusCompleted); err != nil {
			return m.setStatus("Cannot complete: " + err.Error()), nil
		}
		prompt = "Mark as completed"
	case confirmDelete:
		prompt = "Delete"
	}
	m.confirm = confirmState{
		op:     op,
		id:     a.ID,
		prompt: fmt.Sprintf("%s %s on %s at %s?", prompt, a.ClientName, a.Start.Format("Mon Jan 2"), a.TimeString()),
	}
	m.mode = ModeConfirm
	return m, nil
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.mode = ModeNormal
		return m.runConfirmed()
	case "n", "N", "esc", "q":
		m.mode = ModeNormal
		m.confirm = confirmState{}
		return m, nil
	}
	return m, nil
}

func (m Model) runConfirmed() (tea.Model, tea.Cmd) {
	c := m.confirm
	m.confirm = confirmState{}

	var (
		mut store.Mutation
		err error
	)
	switch c.op {
	case confirmCancel:
		mut, err = m.store.BeginUpdateStatus(c.id, appointment.StatusCanceled)
	case confirmComplete:
		mut, err = m.store.BeginUpdateStatus(c.id, appointment.StatusCompleted)
	case confirmDelete:
		mut, err = m.store.BeginDelete(c.id)
		if err == nil && m.selected == c.id {
			m.selected = ""
		}
	}
	if err != nil {
		return m.setStatus(err.Error()), nil
	}
	m.logger.Info("changing appointment", zap.String("op", mut.Op.String()), zap.String("id", c.id))
	return m, tea.Batch(commands.ExecuteMutation(m.repo, mut), m.tick())
}

func (m Model) handleAlertKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "q", " ":
		m.mode = ModeNormal
		m.alert = alertState{}
	}
	return m, nil
}
