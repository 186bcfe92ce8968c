package theme

import (
	"math"

	"github.com/charmbracelet/lipgloss"
)

// HeatLevels is the number of heatmap shades, including the empty one.
const HeatLevels = 3

// Palette holds precomputed colors derived from a Theme.
type Palette struct {
	Bg          lipgloss.Color
	BgHighlight lipgloss.Color
	BgSelection lipgloss.Color
	Fg          lipgloss.Color
	FgMuted     lipgloss.Color
	Accent      lipgloss.Color
	Warning     lipgloss.Color

	// Block backgrounds per kind, for upcoming and past sessions.
	KindBg     map[string]lipgloss.Color
	KindPastBg map[string]lipgloss.Color
	KindText   map[string]lipgloss.Color

	// Heat[0] is the plain background; higher levels blend in more Busy.
	Heat [HeatLevels]lipgloss.Color

	TextOnAccent  lipgloss.Color
	TextOnWarning lipgloss.Color

	Modal ModalColors
}

// ModalColors holds modal-specific colors derived from a Theme.
type ModalColors struct {
	Bg        lipgloss.Color
	Border    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Highlight lipgloss.Color
	Backdrop  lipgloss.Color
}

// NewPalette derives a Palette from the provided Theme.
func NewPalette(t *Theme) *Palette {
	if t == nil {
		t, _ = Load(DefaultName)
	}
	filled := *t
	filled.applyDefaults()
	t = &filled
	isLight := isLightTheme(t.Bg)

	p := &Palette{
		Bg:          lipgloss.Color(t.Bg),
		BgHighlight: lipgloss.Color(t.BgHighlight),
		BgSelection: lipgloss.Color(t.BgSelection),
		Fg:          lipgloss.Color(t.Fg),
		FgMuted:     lipgloss.Color(t.FgMuted),
		Accent:      lipgloss.Color(t.Accent),
		Warning:     lipgloss.Color(t.Warning),

		KindBg:     make(map[string]lipgloss.Color, 3),
		KindPastBg: make(map[string]lipgloss.Color, 3),
		KindText:   make(map[string]lipgloss.Color, 3),

		TextOnAccent:  lipgloss.Color(chooseTextColor(t.Accent, t.Bg, t.Fg)),
		TextOnWarning: lipgloss.Color(chooseTextColor(t.Warning, t.Bg, t.Fg)),

		Modal: ModalColors{
			Bg:        lipgloss.Color(t.BaseBg),
			Border:    lipgloss.Color(t.ModalBorder),
			Text:      lipgloss.Color(t.TextPrimary),
			Muted:     lipgloss.Color(t.TextMuted),
			Highlight: lipgloss.Color(t.Highlight),
			Backdrop:  lipgloss.Color(coalesce(t.BgSelection, t.BgHighlight, t.Bg)),
		},
	}

	for _, kind := range []string{"in-person", "online", "phone"} {
		accent := t.KindColor(kind)
		bg := blockBg(accent, t.Bg, isLight)
		p.KindBg[kind] = lipgloss.Color(bg)
		p.KindPastBg[kind] = lipgloss.Color(blendColors(bg, t.Bg, 0.6))
		p.KindText[kind] = lipgloss.Color(chooseTextColor(bg, t.Fg, t.Bg))
	}

	p.Heat[0] = lipgloss.Color(t.Bg)
	for i := 1; i < HeatLevels; i++ {
		// 1 booking barely tints the row, 2+ is clearly visible.
		ratio := 0.92 - 0.12*float64(i)
		p.Heat[i] = lipgloss.Color(blendColors(t.Busy, t.Bg, ratio))
	}

	return p
}

// HeatColor returns the background for an hour with count bookings.
func (p *Palette) HeatColor(count int) lipgloss.Color {
	if count < 0 {
		count = 0
	}
	if count >= HeatLevels {
		count = HeatLevels - 1
	}
	return p.Heat[count]
}

func isLightTheme(bg string) bool {
	return relativeLuminance(bg) > 0.55
}

func blockBg(accent, bg string, isLight bool) string {
	if isLight {
		return blendColors(accent, bg, 0.75)
	}
	return blendColors(accent, "#000000", 0.45)
}

// parseHex parses a 2-character hex string into an integer.
func parseHex(s string, v *int) {
	var val int
	for i := 0; i < len(s); i++ {
		val *= 16
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	*v = val
}

func rgb(hex string) (r, g, b int, ok bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, false
	}
	parseHex(hex[1:3], &r)
	parseHex(hex[3:5], &g)
	parseHex(hex[5:7], &b)
	return r, g, b, true
}

// formatHexColor formats RGB values as a hex color string.
func formatHexColor(r, g, b int) string {
	const hex = "0123456789abcdef"
	result := make([]byte, 7)
	result[0] = '#'
	result[1] = hex[r>>4]
	result[2] = hex[r&0xf]
	result[3] = hex[g>>4]
	result[4] = hex[g&0xf]
	result[5] = hex[b>>4]
	result[6] = hex[b&0xf]
	return string(result)
}

func chooseTextColor(bg, lightText, darkText string) string {
	if contrastRatio(bg, lightText) >= contrastRatio(bg, darkText) {
		return lightText
	}
	return darkText
}

func contrastRatio(a, b string) float64 {
	l1 := relativeLuminance(a)
	l2 := relativeLuminance(b)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

func relativeLuminance(hex string) float64 {
	r, g, b, ok := rgb(hex)
	if !ok {
		return 0
	}
	return 0.2126*srgbToLinear(r) + 0.7152*srgbToLinear(g) + 0.0722*srgbToLinear(b)
}

func srgbToLinear(c int) float64 {
	v := float64(c) / 255.0
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// blendColors mixes ratio of b into a.
func blendColors(a, b string, ratio float64) string {
	ar, ag, ab, okA := rgb(a)
	br, bg, bb, okB := rgb(b)
	if !okA || !okB {
		return a
	}
	ratio = math.Min(math.Max(ratio, 0), 1)

	mix := func(x, y int) int {
		return int(float64(x)*(1-ratio) + float64(y)*ratio)
	}
	return formatHexColor(mix(ar, br), mix(ag, bg), mix(ab, bb))
}
