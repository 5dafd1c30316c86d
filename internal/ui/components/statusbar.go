package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/volscan/internal/model"
	"github.com/sadopc/volscan/internal/ui/style"
	"github.com/sadopc/volscan/internal/util"
)

// StatusInfo holds what the status bar reports.
type StatusInfo struct {
	Dir      *model.Node // directory shown in the tree view
	Items    int         // rows in the current view
	Selected *model.Node // row under the cursor
	Message  string      // transient message, shown instead of the summary
	Sizes    model.Sizes
	Now      time.Time
}

// RenderStatusBar renders the bottom bar.
func RenderStatusBar(theme style.Theme, info StatusInfo, width int) string {
	if info.Message != "" {
		msg := " " + lipgloss.NewStyle().Foreground(theme.Warning).Bold(true).Render(info.Message)
		return theme.StatusBarStyle.Width(max(width, 1)).Render(msg)
	}

	parts := []string{fmt.Sprintf("%s items", humanize.Comma(int64(info.Items)))}
	if info.Dir != nil {
		parts = append(parts, util.FormatBytes(info.Sizes.Of(info.Dir)))
	}
	if n := info.Selected; n != nil && !n.Mtime.IsZero() {
		parts = append(parts, fmt.Sprintf("%s modified %s", n.Name, humanize.RelTime(n.Mtime, info.Now, "ago", "from now")))
	}
	left := " " + strings.Join(parts, " | ")

	hints := []struct{ key, desc string }{
		{"s", "scan"},
		{"x", "stop"},
		{"?", "help"},
		{"q", "quit"},
	}
	rightParts := make([]string, len(hints))
	for i, h := range hints {
		rightParts[i] = theme.HelpKey.Render(h.key) + theme.HelpDesc.Render(" "+h.desc)
	}
	right := strings.Join(rightParts, "  ") + " "

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return theme.StatusBarStyle.Width(max(width, 1)).Render(left + strings.Repeat(" ", gap) + right)
}

// RenderTabBar renders the view tabs and the active sort.
func RenderTabBar(theme style.Theme, activeView int, sort model.SortConfig, width int) string {
	tabs := []string{"Tree", "Flat"}

	var tabLine []string
	for i, tab := range tabs {
		label := fmt.Sprintf(" %d %s ", i+1, tab)
		if i == activeView {
			tabLine = append(tabLine, theme.TabActiveStyle.Render(label))
		} else {
			tabLine = append(tabLine, theme.TabInactiveStyle.Render(label))
		}
	}
	left := " " + strings.Join(tabLine, " ")

	order := "↑"
	if sort.Order == model.SortDesc {
		order = "↓"
	}
	sortLabel := lipgloss.NewStyle().
		Foreground(theme.TextMuted).
		Render(fmt.Sprintf("Sort: %s %s ", sort.Field, order))

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(sortLabel), 1)
	return lipgloss.NewStyle().
		Foreground(theme.TextSecondary).
		Background(theme.BgLight).
		Width(max(width, 1)).
		Render(left + strings.Repeat(" ", gap) + sortLabel)
}
