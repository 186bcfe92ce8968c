package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	overlayMinWidth  = 24
	overlayMinHeight = 5
	overlayMargin    = 2 // blank cells kept around the content
)

// OverlayModel splices an opaque box over the calendar. The box grows with
// its content and is centered on screen.
type OverlayModel struct {
	active  bool
	bgColor lipgloss.Color
}

// NewOverlayModel initializes an inactive overlay.
func NewOverlayModel() OverlayModel {
	return OverlayModel{bgColor: lipgloss.Color("")}
}

// SetActive shows or hides the overlay.
func (o *OverlayModel) SetActive(active bool) {
	o.active = active
}

// Active reports whether the overlay is visible.
func (o OverlayModel) Active() bool {
	return o.active
}

// SetBackground updates the overlay background color.
func (o *OverlayModel) SetBackground(color lipgloss.Color) {
	o.bgColor = color
}

// Render draws content in a box on top of base.
func (o OverlayModel) Render(base string, width, height int, content string) string {
	if !o.active || width <= 0 || height <= 0 {
		return base
	}

	contentLines := splitContent(content)
	boxW, boxH := o.boxSize(contentLines, width, height)
	top := max((height-boxH)/2, 0)
	left := max((width-boxW)/2, 0)

	baseLines := normalizeLines(base, width, height)
	box := o.fill(contentLines, boxW, boxH)

	for i, line := range box {
		row := top + i
		if row >= height {
			break
		}
		b := baseLines[row]
		baseLines[row] = ansi.Cut(b, 0, left) + line + ansi.Cut(b, left+boxW, width)
	}
	return strings.Join(baseLines, "\n")
}

func (o OverlayModel) boxSize(content []string, width, height int) (int, int) {
	w, h := 0, len(content)
	for _, line := range content {
		w = max(w, lipgloss.Width(line))
	}
	boxW := min(max(w+2*overlayMargin, overlayMinWidth), width)
	boxH := min(max(h+2, overlayMinHeight), height)
	return boxW, boxH
}

// fill returns boxH lines of exactly boxW cells with content centered.
func (o OverlayModel) fill(content []string, boxW, boxH int) []string {
	bgSeq := o.backgroundSeq()
	blank := bgSeq + strings.Repeat(" ", boxW) + ansi.ResetStyle

	lines := make([]string, boxH)
	for i := range lines {
		lines[i] = blank
	}

	contentH := min(len(content), boxH)
	contentW := 0
	for _, line := range content {
		contentW = max(contentW, lipgloss.Width(line))
	}
	contentW = min(contentW, boxW)

	top := (boxH - contentH) / 2
	left := (boxW - contentW) / 2
	for i := 0; i < contentH; i++ {
		line := content[i]
		if lipgloss.Width(line) > contentW {
			line = ansi.Cut(line, 0, contentW)
		}
		line += strings.Repeat(" ", contentW-lipgloss.Width(line))
		line = reapplyBackground(line, bgSeq)

		right := boxW - left - contentW
		lines[top+i] = bgSeq + strings.Repeat(" ", left) + line + bgSeq + strings.Repeat(" ", right) + ansi.ResetStyle
	}
	return lines
}

func (o OverlayModel) backgroundSeq() string {
	if o.bgColor == "" {
		return ""
	}
	return ansi.Style{}.BackgroundColor(ansi.HexColor(string(o.bgColor))).String()
}

// reapplyBackground restores the box background after every reset inside a
// styled line so unstyled cells do not show the terminal default.
func reapplyBackground(line, bgSeq string) string {
	if bgSeq == "" || line == "" {
		return line
	}
	line = strings.ReplaceAll(line, ansi.ResetStyle, ansi.ResetStyle+bgSeq)
	line = strings.ReplaceAll(line, "\x1b[0m", "\x1b[0m"+bgSeq)
	return strings.ReplaceAll(line, "\x1b[49m", "\x1b[49m"+bgSeq)
}

func splitContent(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// normalizeLines pads or cuts base to exactly height lines of width cells.
func normalizeLines(base string, width, height int) []string {
	lines := strings.Split(base, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]

	for i, line := range lines {
		w := lipgloss.Width(line)
		switch {
		case w > width:
			lines[i] = ansi.Cut(line, 0, width)
		case w < width:
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	return lines
}
