package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestOverlayActive(t *testing.T) {
	overlay := NewOverlayModel()
	if overlay.Active() {
		t.Fatalf("expected overlay to start inactive")
	}

	overlay.SetActive(true)
	if !overlay.Active() {
		t.Fatalf("expected overlay to be active")
	}
}

func TestOverlayRenderInactiveReturnsBase(t *testing.T) {
	overlay := NewOverlayModel()
	base := "alpha\nbeta"
	got := overlay.Render(base, 10, 2, "content")
	if got != base {
		t.Fatalf("expected base content unchanged when inactive")
	}
}

func TestOverlayRenderCentersContent(t *testing.T) {
	overlay := NewOverlayModel()
	overlay.SetBackground(lipgloss.Color("#0c0c0c"))
	overlay.SetActive(true)

	width := 40
	height := 12
	row := strings.Repeat(".", width)
	base := strings.Repeat(row+"\n", height-1) + row
	content := "RESCHEDULE"
	got := overlay.Render(base, width, height, content)

	lines := strings.Split(got, "\n")
	if len(lines) != height {
		t.Fatalf("expected %d lines, got %d", height, len(lines))
	}

	boxW, boxH := overlay.boxSize([]string{content}, width, height)
	if boxW != overlayMinWidth || boxH != overlayMinHeight {
		t.Fatalf("box = %dx%d, want the minimum size", boxW, boxH)
	}
	top := (height - boxH) / 2
	bgSeq := overlay.backgroundSeq()

	for i, line := range lines {
		if w := lipgloss.Width(line); w != width {
			t.Fatalf("expected line width %d, got %d", width, w)
		}
		hasBg := strings.Contains(line, bgSeq)
		if i >= top && i < top+boxH {
			if !hasBg {
				t.Fatalf("expected overlay background on line %d", i)
			}
		} else if hasBg {
			t.Fatalf("expected no overlay background on line %d", i)
		}
	}

	middle := ansi.Strip(lines[top+boxH/2])
	if !strings.Contains(middle, content) {
		t.Fatalf("expected content on the middle line, got %q", middle)
	}
	if !strings.HasPrefix(middle, "........") {
		t.Fatalf("expected base visible left of the box, got %q", middle)
	}
}

func TestOverlayGrowsWithContent(t *testing.T) {
	overlay := NewOverlayModel()
	overlay.SetActive(true)

	content := strings.Repeat("x", 50) + "\n" + strings.Repeat("y\n", 9)
	boxW, boxH := overlay.boxSize(splitContent(content), 80, 30)
	if boxW != 50+2*overlayMargin {
		t.Fatalf("boxW = %d, want %d", boxW, 50+2*overlayMargin)
	}
	if boxH != 12 {
		t.Fatalf("boxH = %d, want 12", boxH)
	}

	boxW, boxH = overlay.boxSize(splitContent(content), 30, 6)
	if boxW != 30 || boxH != 6 {
		t.Fatalf("box should be clamped to the screen, got %dx%d", boxW, boxH)
	}
}
