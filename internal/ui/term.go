package ui

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/javiermolinar/clinicflow/internal/appointment"
)

// Color definitions for consistent styling across the UI.
var (
	// Kinds
	colorInPerson = color.New(color.FgCyan, color.Bold)
	colorOnline   = color.New(color.FgGreen)
	colorPhone    = color.New(color.FgMagenta)

	// Headers: bold
	colorHeader = color.New(color.Bold)

	// Free slots and confirmations
	colorOK = color.New(color.FgGreen)

	// Taken slots and errors
	colorWarn = color.New(color.FgYellow)

	// Muted: for secondary information and canceled sessions
	colorMuted = color.New(color.FgWhite, color.Faint)
)

// termWidth returns the terminal width, or a default if detection fails.
func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // sensible default
	}
	return width
}

// DisableColor disables all color output.
func DisableColor() {
	color.NoColor = true
}

// EnableColor enables color output (if terminal supports it).
func EnableColor() {
	color.NoColor = false
}

// formatKind colors an appointment kind label.
func formatKind(k appointment.Kind, s string) string {
	switch k {
	case appointment.KindOnline:
		return colorOnline.Sprint(s)
	case appointment.KindPhone:
		return colorPhone.Sprint(s)
	default:
		return colorInPerson.Sprint(s)
	}
}

// formatHeader formats text as a header.
func formatHeader(s string) string {
	return colorHeader.Sprint(s)
}

func formatOK(s string) string {
	return colorOK.Sprint(s)
}

func formatWarn(s string) string {
	return colorWarn.Sprint(s)
}

// formatMuted formats text as secondary/muted.
func formatMuted(s string) string {
	return colorMuted.Sprint(s)
}
