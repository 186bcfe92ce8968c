// Package tui provides the terminal calendar for clinicflow.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/availability"
	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/config"
	"github.com/javiermolinar/clinicflow/internal/gesture"
	"github.com/javiermolinar/clinicflow/internal/metrics"
	"github.com/javiermolinar/clinicflow/internal/store"
	"github.com/javiermolinar/clinicflow/internal/tui/commands"
	"github.com/javiermolinar/clinicflow/internal/tui/theme"
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNormal  Mode = iota
	ModeWizard  // booking or rescheduling dialog
	ModeConfirm // yes/no question about the selected appointment
	ModeAlert   // dismissable message
)

const statusDuration = 4 * time.Second

// confirmOp is the action a confirmation dialog guards.
type confirmOp int

const (
	confirmCancel confirmOp = iota
	confirmDelete
	confirmComplete
)

type confirmState struct {
	op     confirmOp
	id     string
	prompt string
}

type alertState struct {
	title string
	body  string
}

// Model is the main TUI model.
type Model struct {
	// Dependencies
	repo    appointment.Repository
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// Theme and styles
	theme  *theme.Theme
	styles *Styles

	// Calendar state
	store   *store.Store
	state   gesture.ViewState
	tracker *availability.Tracker

	mode     Mode
	selected string // appointment id
	scroll   int    // hours scrolled past the day start

	// Dialogs
	wizard  *wizardModel
	confirm confirmState
	alert   alertState
	overlay OverlayModel
	spinner spinner.Model

	// Reference data for the booking dialog
	counselors []*appointment.Counselor
	locations  []*appointment.Location

	// Fetch bookkeeping
	fetchStart time.Time
	fetchEnd   time.Time

	// Terminal dimensions
	width  int
	height int

	// Messages
	statusMsg  string    // Temporary status/error message
	statusTime time.Time // When to clear message
}

// ModelOption configures optional model behavior.
type ModelOption func(*Model)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink shared by the store and availability checks.
func WithMetrics(mt *metrics.Metrics) ModelOption {
	return func(m *Model) {
		m.metrics = mt
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a new TUI model.
func New(repo appointment.Repository, cfg *config.Config, opts ...ModelOption) Model {
	if cfg == nil {
		cfg = config.Default()
	}

	t, err := theme.Load(cfg.UI.Theme)
	if err != nil {
		t, _ = theme.Load(theme.DefaultName)
	}
	styles := NewStyles(t)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styles.ModalOKStyle

	m := Model{
		repo:    repo,
		config:  cfg,
		logger:  zap.NewNop(),
		now:     time.Now,
		theme:   t,
		styles:  styles,
		mode:    ModeNormal,
		overlay: NewOverlayModel(),
		spinner: sp,
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.store = store.New(m.metrics, m.logger)
	m.tracker = availability.NewTracker(m.metrics)
	m.state = gesture.NewViewState(cfg.DefaultView(), m.now())
	return m
}

// Init loads the first window of appointments and the reference data.
func (m Model) Init() tea.Cmd {
	m, cmd := m.ensureWindow()
	return tea.Batch(cmd, commands.LoadReference(m.repo))
}

// Run starts the TUI.
func Run(repo appointment.Repository, cfg *config.Config, opts ...ModelOption) error {
	model := New(repo, cfg, opts...)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// layout computes the frame geometry for the current size and view.
func (m Model) layout() Layout {
	return newLayout(
		m.width,
		m.height,
		m.state.View,
		m.config.FirstWeekday(),
		m.config.DayStartHour(),
		m.config.DayEndHour(),
		m.scroll,
	)
}

// ensureWindow fetches the appointments around the anchor unless the
// loaded or requested window already covers what is visible. It serves view
// switches, which keep the anchor.
func (m Model) ensureWindow() (Model, tea.Cmd) {
	visStart, visEnd := calendar.Visible(m.state.View, m.state.Anchor, m.config.FirstWeekday())
	if loadedStart, loadedEnd := m.store.Window(); calendar.Covers(loadedStart, loadedEnd, visStart, visEnd) {
		return m, nil
	}
	if m.store.Loading() && calendar.Covers(m.fetchStart, m.fetchEnd, visStart, visEnd) {
		return m, nil
	}
	return m.fetch()
}

// fetch requests the window around the anchor. Older requests in flight
// become stale.
func (m Model) fetch() (Model, tea.Cmd) {
	start, end := calendar.FetchWindow(m.state.Anchor)
	req := m.store.BeginList(start, end)
	m.fetchStart, m.fetchEnd = start, end
	m.logger.Debug("fetching appointments",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Uint64("token", req.Token),
	)
	return m, commands.LoadAppointments(m.repo, req)
}

// visible returns the appointments shown in the current view, ordered by start.
func (m Model) visible() []*appointment.Appointment {
	start, end := calendar.Visible(m.state.View, m.state.Anchor, m.config.FirstWeekday())
	return m.store.Between(start, end.AddDate(0, 0, 1))
}

func (m Model) selectedAppointment() (*appointment.Appointment, bool) {
	if m.selected == "" {
		return nil, false
	}
	return m.store.Get(m.selected)
}

func (m Model) setStatus(msg string) Model {
	m.statusMsg = msg
	m.statusTime = m.now().Add(statusDuration)
	return m
}

func (m Model) status() string {
	if m.statusMsg == "" || m.now().After(m.statusTime) {
		return ""
	}
	return m.statusMsg
}

// busy reports whether the spinner should run.
func (m Model) busy() bool {
	if m.store.Loading() || m.store.Pending() {
		return true
	}
	return m.wizard != nil && (m.wizard.w.Submitting() || m.wizard.w.Availability() == availability.StatusChecking)
}

func (m Model) tick() tea.Cmd {
	if !m.busy() {
		return nil
	}
	return m.spinner.Tick
}
