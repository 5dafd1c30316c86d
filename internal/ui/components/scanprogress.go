package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/volscan/internal/session"
	"github.com/sadopc/volscan/internal/ui/style"
)

// RenderProgress renders the two progress lines of a session: the
// estimate bar with the elapsed clock, then the counters and current path.
func RenderProgress(theme style.Theme, st session.State, width int) string {
	width = max(width, 1)

	pct := fmt.Sprintf("%5.1f%%", st.Progress)
	clock := " " + st.ElapsedText + " "
	barWidth := max(width-lipgloss.Width(pct)-lipgloss.Width(clock)-4, 0)
	bar := theme.BarGradient(barWidth, st.Progress/100)
	pctStyled := lipgloss.NewStyle().Foreground(theme.GradientColor(st.Progress / 100)).Render(pct)
	top := " [" + bar + "] " + pctStyled + lipgloss.NewStyle().Foreground(theme.TextMuted).Render(clock)

	counts := fmt.Sprintf(" %s files  %s dirs",
		humanize.Comma(st.Files), humanize.Comma(st.Directories))
	line := lipgloss.NewStyle().Foreground(theme.TextSecondary).Render(counts)
	if st.Errors > 0 {
		line += theme.ErrorText.Render(fmt.Sprintf("  %s unreadable", humanize.Comma(st.Errors)))
	}
	if st.CurrentPath != "" {
		room := width - lipgloss.Width(line) - 2
		if room > 3 {
			path := ansi.Truncate(st.CurrentPath, room, "…")
			line += "  " + lipgloss.NewStyle().Foreground(theme.TextMuted).Render(path)
		}
	}

	return strings.Join([]string{
		ansi.Truncate(style.FullWidth(top, width), width, ""),
		ansi.Truncate(style.FullWidth(line, width), width, ""),
	}, "\n")
}
