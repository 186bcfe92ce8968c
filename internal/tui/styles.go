package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/tui/theme"
	"github.com/javiermolinar/clinicflow/internal/tui/view"
)

// Styles holds all lipgloss styles for the calendar, derived from a theme.
type Styles struct {
	palette *theme.Palette

	colorBg lipgloss.Color

	// Title bar
	TitleStyle     lipgloss.Style
	ViewTabStyle   lipgloss.Style
	ViewTabActive  lipgloss.Style
	LoadingStyle   lipgloss.Style
	DayHeaderStyle lipgloss.Style
	DayHeaderToday lipgloss.Style

	// Grid
	GutterStyle     lipgloss.Style
	EmptyCellStyle  lipgloss.Style
	MonthCellStyle  lipgloss.Style
	MonthOutStyle   lipgloss.Style
	MonthTodayStyle lipgloss.Style
	MoreStyle       lipgloss.Style

	// Blocks
	BlockSelectedStyle lipgloss.Style
	BlockGhostStyle    lipgloss.Style
	BlockCanceledStyle lipgloss.Style

	// Footer
	StatusStyle lipgloss.Style
	ErrorStyle  lipgloss.Style
	HelpStyle   lipgloss.Style

	// Modal
	ModalBgColor           lipgloss.Color
	ModalBackdropColor     lipgloss.Color
	ModalStyle             lipgloss.Style
	ModalHeaderStyle       lipgloss.Style
	ModalTitleStyle        lipgloss.Style
	ModalFooterStyle       lipgloss.Style
	ModalBodyStyle         lipgloss.Style
	ModalLabelStyle        lipgloss.Style
	ModalMutedStyle        lipgloss.Style
	ModalErrorStyle        lipgloss.Style
	ModalOKStyle           lipgloss.Style
	ModalOptionStyle       lipgloss.Style
	ModalOptionActiveStyle lipgloss.Style
	ModalInputTextStyle    lipgloss.Style
	ModalInputCursorStyle  lipgloss.Style
	ModalPlaceholderStyle  lipgloss.Style
	ModalButtonStyle       lipgloss.Style
	ModalButtonActiveStyle lipgloss.Style
	ModalButtonOffStyle    lipgloss.Style
}

// NewStyles creates a new Styles instance from a theme.
func NewStyles(t *theme.Theme) *Styles {
	p := theme.NewPalette(t)
	s := &Styles{palette: p, colorBg: p.Bg}

	base := lipgloss.NewStyle().Background(p.Bg).Foreground(p.Fg)

	s.TitleStyle = base.Foreground(p.Accent).Bold(true)
	s.ViewTabStyle = base.Foreground(p.FgMuted)
	s.ViewTabActive = lipgloss.NewStyle().Background(p.Accent).Foreground(p.TextOnAccent).Bold(true)
	s.LoadingStyle = base.Foreground(p.FgMuted).Italic(true)
	s.DayHeaderStyle = base.Foreground(p.Fg).Bold(true)
	s.DayHeaderToday = lipgloss.NewStyle().Background(p.Accent).Foreground(p.TextOnAccent).Bold(true)

	s.GutterStyle = base.Foreground(p.FgMuted)
	s.EmptyCellStyle = base
	s.MonthCellStyle = base.Foreground(p.Fg)
	s.MonthOutStyle = base.Foreground(p.FgMuted)
	s.MonthTodayStyle = lipgloss.NewStyle().Background(p.Accent).Foreground(p.TextOnAccent).Bold(true)
	s.MoreStyle = base.Foreground(p.FgMuted).Italic(true)

	s.BlockSelectedStyle = lipgloss.NewStyle().Background(p.BgSelection).Foreground(p.Fg).Bold(true)
	s.BlockGhostStyle = lipgloss.NewStyle().Background(p.Warning).Foreground(p.TextOnWarning).Bold(true)
	s.BlockCanceledStyle = base.Foreground(p.FgMuted).Strikethrough(true)

	s.StatusStyle = base.Foreground(p.Fg)
	s.ErrorStyle = base.Foreground(p.Warning).Bold(true)
	s.HelpStyle = base.Foreground(p.FgMuted)

	m := p.Modal
	s.ModalBgColor = m.Bg
	s.ModalBackdropColor = m.Backdrop
	modal := lipgloss.NewStyle().Background(m.Bg).Foreground(m.Text)
	s.ModalStyle = modal.Padding(1, 2).Border(lipgloss.RoundedBorder()).BorderForeground(m.Border).BorderBackground(m.Bg)
	s.ModalHeaderStyle = modal
	s.ModalTitleStyle = modal.Foreground(p.Accent).Bold(true)
	s.ModalFooterStyle = modal.Foreground(m.Muted)
	s.ModalBodyStyle = modal
	s.ModalLabelStyle = modal.Foreground(m.Muted).Width(11)
	s.ModalMutedStyle = modal.Foreground(m.Muted)
	s.ModalErrorStyle = modal.Foreground(p.Warning).Bold(true)
	s.ModalOKStyle = modal.Foreground(p.Accent)
	s.ModalOptionStyle = modal
	s.ModalOptionActiveStyle = lipgloss.NewStyle().Background(m.Highlight).Foreground(m.Text).Bold(true)
	s.ModalInputTextStyle = modal
	s.ModalInputCursorStyle = modal.Foreground(p.Accent)
	s.ModalPlaceholderStyle = modal.Foreground(m.Muted)
	s.ModalButtonStyle = modal.Foreground(m.Muted).Padding(0, 1)
	s.ModalButtonActiveStyle = lipgloss.NewStyle().Background(p.Accent).Foreground(p.TextOnAccent).Bold(true).Padding(0, 1)
	s.ModalButtonOffStyle = modal.Foreground(m.Muted).Faint(true).Padding(0, 1)

	return s
}

// Block returns the style of an appointment block.
func (s *Styles) Block(a *appointment.Appointment, past bool) lipgloss.Style {
	if a.Status == appointment.StatusCanceled {
		return s.BlockCanceledStyle
	}
	kind := string(a.Kind)
	bg := s.palette.KindBg[kind]
	if past || a.Status == appointment.StatusCompleted {
		bg = s.palette.KindPastBg[kind]
	}
	return lipgloss.NewStyle().Background(bg).Foreground(s.palette.KindText[kind])
}

// Heat returns the empty-cell style for an hour with count bookings.
func (s *Styles) Heat(count int) lipgloss.Style {
	return s.EmptyCellStyle.Background(s.palette.HeatColor(count))
}

// Modal returns the style set used by the view package.
func (s *Styles) Modal() view.ModalStyles {
	return view.ModalStyles{
		ModalHeaderStyle:         s.ModalHeaderStyle,
		ModalTitleStyle:          s.ModalTitleStyle,
		ModalFooterStyle:         s.ModalFooterStyle,
		ModalStyle:               s.ModalStyle,
		ModalButtonStyle:         s.ModalButtonStyle,
		ModalButtonActiveStyle:   s.ModalButtonActiveStyle,
		ModalButtonDisabledStyle: s.ModalButtonOffStyle,
		ModalBodyStyle:           s.ModalBodyStyle,
	}
}
