package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/clinicflow/internal/calendar"
	"github.com/javiermolinar/clinicflow/internal/tui/view"
)

const helpLine = "d/w/m view · h/l move · t today · n new · tab select · r reschedule · c cancel · x done · q quit"

// View draws the title bar, the calendar grid and the footer, with any open
// dialog laid over them.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	base := m.renderAppContent()
	modal := m.renderModal()
	m.overlay.SetActive(modal != "")
	if modal == "" {
		return base
	}
	m.overlay.SetBackground(m.styles.ModalBackdropColor)
	return m.overlay.Render(base, m.width, m.height, modal)
}

func (m Model) renderAppContent() string {
	l := m.layout()
	if l.GridH <= 0 || l.ColWidth < 2 {
		return "Terminal too small"
	}

	var grid string
	if l.View == calendar.ViewMonth {
		grid = m.renderMonth(l)
	} else {
		grid = m.renderTimeGrid(l)
	}
	gridBox := m.placeBox(m.width, l.GridH+headerHeight, lipgloss.Top, grid)

	content := lipgloss.JoinVertical(lipgloss.Left, m.titleBar(), gridBox, m.footer())
	return view.PadLinesWithBackground(content, m.width, m.height, m.styles.colorBg)
}

// placeBox is a helper to render content in an explicit lipgloss box.
func (m Model) placeBox(w, h int, vAlign lipgloss.Position, content string) string {
	return view.PlaceBox(w, h, vAlign, content, m.styles.colorBg)
}

// footer stacks the status line over the key help.
func (m Model) footer() string {
	help := m.styles.HelpStyle.Render(view.Fit(helpLine, m.width))
	return m.placeBox(m.width, footerHeight, lipgloss.Bottom, m.statusLine()+"\n"+help)
}

func (m Model) titleBar() string {
	s := m.styles
	parts := []string{s.TitleStyle.Render(" clinicflow ")}
	for _, v := range []calendar.View{calendar.ViewDay, calendar.ViewWeek, calendar.ViewMonth} {
		label := " " + strings.ToUpper(string(v)[:1]) + string(v)[1:] + " "
		if v == m.state.View {
			parts = append(parts, s.ViewTabActive.Render(label))
		} else {
			parts = append(parts, s.ViewTabStyle.Render(label))
		}
	}
	parts = append(parts, s.TitleStyle.Render("  "+calendar.Title(m.state.View, m.state.Anchor)))
	if m.store.Loading() {
		parts = append(parts, s.LoadingStyle.Render("  "+m.spinner.View()+" loading"))
	}
	return m.placeBox(m.width, titleHeight, lipgloss.Top, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

// statusLine shows, in order of priority, a temporary message, a load
// failure, unsaved changes or the selected appointment.
func (m Model) statusLine() string {
	s := m.styles
	if msg := m.status(); msg != "" {
		return s.StatusStyle.Render(view.Fit(" "+msg, m.width))
	}
	if err := m.store.ListErr(); err != nil {
		return s.ErrorStyle.Render(view.Fit(fmt.Sprintf(" Could not load appointments: %v (ctrl+r to retry)", err), m.width))
	}
	if m.store.Pending() {
		return s.StatusStyle.Render(view.Fit(" "+m.spinner.View()+" Saving changes...", m.width))
	}
	a, ok := m.selectedAppointment()
	if !ok {
		return s.StatusStyle.Render(view.Fit("", m.width))
	}
	details := []string{
		a.ClientName,
		fmt.Sprintf("%s %s-%s", a.Start.Format("Mon Jan 2"), a.TimeString(), a.End().Format("15:04")),
		string(a.Kind),
	}
	if a.Location != "" {
		details = append(details, a.Location)
	}
	if a.CounselorName != "" {
		details = append(details, a.CounselorName)
	}
	details = append(details, string(a.Status))
	return s.StatusStyle.Render(view.Fit(" "+strings.Join(details, " · "), m.width))
}

// renderModal returns the dialog for the current mode, or "".
func (m Model) renderModal() string {
	s := m.styles
	switch m.mode {
	case ModeWizard:
		if m.wizard != nil {
			return m.renderWizard()
		}
	case ModeConfirm:
		footer := view.RenderModalButtons(s.Modal(),
			view.Button{Label: "n No"},
			view.Button{Label: "y Yes", Active: true},
		)
		return view.RenderModalFrame("Confirm", s.ModalBodyStyle.Render(m.confirm.prompt), footer, s.Modal())
	case ModeAlert:
		footer := view.RenderModalButtons(s.Modal(), view.Button{Label: "enter OK", Active: true})
		return view.RenderModalFrame(m.alert.title, s.ModalBodyStyle.Render(m.alert.body), footer, s.Modal())
	}
	return ""
}
