package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme holds the colors and styles of the UI.
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Success lipgloss.Color

	BgMedium lipgloss.Color
	BgLight  lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color

	HeaderStyle      lipgloss.Style
	BreadcrumbStyle  lipgloss.Style
	TabActiveStyle   lipgloss.Style
	TabInactiveStyle lipgloss.Style
	StatusBarStyle   lipgloss.Style
	SelectedRow      lipgloss.Style
	CursorIndicator  lipgloss.Style
	DirName          lipgloss.Style
	FileName         lipgloss.Style
	SizeText         lipgloss.Style
	PercentText      lipgloss.Style
	ErrorText        lipgloss.Style
	BusyBadge        lipgloss.Style
	IdleBadge        lipgloss.Style
	HelpKey          lipgloss.Style
	HelpDesc         lipgloss.Style
	ModalStyle       lipgloss.Style
	ModalTitle       lipgloss.Style
}

// DefaultTheme returns the dark theme.
func DefaultTheme() Theme {
	t := Theme{
		Primary: lipgloss.Color("#7B2FBE"),
		Accent:  lipgloss.Color("#61AFEF"),
		Error:   lipgloss.Color("#E06C75"),
		Warning: lipgloss.Color("#E5C07B"),
		Success: lipgloss.Color("#98C379"),

		BgMedium: lipgloss.Color("#282A36"),
		BgLight:  lipgloss.Color("#313244"),

		TextPrimary:   lipgloss.Color("#CDD6F4"),
		TextSecondary: lipgloss.Color("#BAC2DE"),
		TextMuted:     lipgloss.Color("#6C7086"),

		GradientStart: lipgloss.Color("#7B2FBE"),
		GradientEnd:   lipgloss.Color("#00D4AA"),
	}

	t.HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.TextPrimary).
		Background(t.BgMedium)

	t.BreadcrumbStyle = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.TabActiveStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.TextPrimary).
		Background(t.Primary).
		Padding(0, 1)

	t.TabInactiveStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Padding(0, 1)

	t.StatusBarStyle = lipgloss.NewStyle().
		Foreground(t.TextSecondary).
		Background(t.BgMedium)

	t.SelectedRow = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4A4A6A"))

	t.CursorIndicator = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	t.DirName = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	t.FileName = lipgloss.NewStyle().Foreground(t.TextSecondary)

	t.SizeText = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(10).
		Align(lipgloss.Right)

	t.PercentText = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(6).
		Align(lipgloss.Right)

	t.ErrorText = lipgloss.NewStyle().Foreground(t.Error)

	t.BusyBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.BgMedium).
		Background(t.Warning).
		Padding(0, 1)

	t.IdleBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.BgMedium).
		Background(t.Success).
		Padding(0, 1)

	t.HelpKey = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	t.HelpDesc = lipgloss.NewStyle().Foreground(t.TextMuted)

	t.ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Background(t.BgMedium)

	t.ModalTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.TextPrimary).
		Padding(0, 0, 1, 0)

	return t
}

// GradientColor interpolates between the gradient ends in Lab space.
func (t Theme) GradientColor(ratio float64) lipgloss.Color {
	if ratio <= 0 {
		return t.GradientStart
	}
	if ratio >= 1 {
		return t.GradientEnd
	}
	c1, _ := colorful.Hex(string(t.GradientStart))
	c2, _ := colorful.Hex(string(t.GradientEnd))
	return lipgloss.Color(c1.BlendLab(c2, ratio).Hex())
}

// BarGradient renders a bar of width cells, the first ratio of them filled,
// each filled cell colored by its position along the gradient.
func (t Theme) BarGradient(width int, ratio float64) string {
	if width <= 0 {
		return ""
	}
	filled := min(max(int(ratio*float64(width)), 0), width)

	var buf strings.Builder
	buf.Grow(width * 20)

	c1, _ := colorful.Hex(string(t.GradientStart))
	c2, _ := colorful.Hex(string(t.GradientEnd))
	for i := range filled {
		pos := float64(i) / float64(max(width-1, 1))
		color := lipgloss.Color(c1.BlendLab(c2, pos).Hex())
		buf.WriteString(lipgloss.NewStyle().Foreground(color).Render("━"))
	}
	if filled < width {
		buf.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(strings.Repeat("─", width-filled)))
	}
	return buf.String()
}
