package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ModalStyles groups the styles needed to render modal frames and buttons.
type ModalStyles struct {
	ModalHeaderStyle         lipgloss.Style
	ModalTitleStyle          lipgloss.Style
	ModalFooterStyle         lipgloss.Style
	ModalStyle               lipgloss.Style
	ModalButtonStyle         lipgloss.Style
	ModalButtonActiveStyle   lipgloss.Style
	ModalButtonDisabledStyle lipgloss.Style
	ModalBodyStyle           lipgloss.Style
}

// Button is one action in a modal footer.
type Button struct {
	Label    string
	Active   bool
	Disabled bool
}

// RenderModalFrame renders a modal with the provided title, body, and footer.
func RenderModalFrame(title, body, footer string, styles ModalStyles) string {
	var b strings.Builder

	header := styles.ModalHeaderStyle.Render(styles.ModalTitleStyle.Render(title))
	b.WriteString(header)
	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	if footer != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.ModalFooterStyle.Render(footer))
	}

	return styles.ModalStyle.Render(b.String())
}

// RenderModalButtons renders a row of modal buttons.
func RenderModalButtons(styles ModalStyles, buttons ...Button) string {
	parts := make([]string, 0, len(buttons))
	for _, btn := range buttons {
		style := styles.ModalButtonStyle
		switch {
		case btn.Disabled:
			style = styles.ModalButtonDisabledStyle
		case btn.Active:
			style = styles.ModalButtonActiveStyle
		}
		parts = append(parts, style.Render(btn.Label))
	}
	sep := styles.ModalBodyStyle.Render(" ")
	return strings.Join(parts, sep)
}
