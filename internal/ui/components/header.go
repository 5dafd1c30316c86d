package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/volscan/internal/model"
	"github.com/sadopc/volscan/internal/ui/style"
	"github.com/sadopc/volscan/internal/util"
	"github.com/sadopc/volscan/internal/volume"
)

// HeaderInfo is what the header shows about the selected volume.
type HeaderInfo struct {
	Volume    volume.Volume
	FreeSpace string
	Index     int // 0-based position of the selected volume
	Count     int
	Busy      bool
}

// RenderHeader renders the top bar: title, volume, position and free space.
func RenderHeader(theme style.Theme, info HeaderInfo, width int) string {
	if width < 10 {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render(" volscan")

	badge := theme.IdleBadge.Render("idle")
	if info.Busy {
		badge = theme.BusyBadge.Render("scanning")
	}

	var right string
	if info.Count > 0 {
		right = fmt.Sprintf("free %s  [%d/%d] ", info.FreeSpace, info.Index+1, info.Count)
	} else {
		right = "no ready volumes "
	}
	rightStyled := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(right)

	fixed := lipgloss.Width(title) + lipgloss.Width(badge) + lipgloss.Width(rightStyled) + 4
	name := info.Volume.String()
	if room := width - fixed; room > 5 {
		name = util.TruncateString(name, room)
	} else {
		name = ""
	}
	nameStyled := lipgloss.NewStyle().Foreground(theme.TextPrimary).Render("  " + name + " ")

	left := title + nameStyled + badge
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(rightStyled), 1)
	return theme.HeaderStyle.Width(width).Render(left + strings.Repeat(" ", gap) + rightStyled)
}

// RenderBreadcrumb renders the path from the volume root to current.
func RenderBreadcrumb(theme style.Theme, current *model.Node, width int) string {
	if current == nil {
		return style.FullWidth("", width)
	}

	var segments []string
	for n := current; n != nil; n = n.Parent {
		name := n.Name
		if name == "" {
			name = n.Path
		}
		segments = append([]string{name}, segments...)
	}

	sep := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(" > ")
	parts := make([]string, len(segments))
	for i, seg := range segments {
		s := lipgloss.NewStyle().Foreground(theme.TextMuted)
		if i == len(segments)-1 {
			s = lipgloss.NewStyle().Foreground(theme.TextPrimary).Bold(true)
		}
		parts[i] = s.Render(seg)
	}

	crumb := " " + strings.Join(parts, sep)
	if lipgloss.Width(crumb) > width && len(parts) > 2 {
		ellipsis := lipgloss.NewStyle().Foreground(theme.TextMuted).Render("...")
		crumb = " " + ellipsis + sep + strings.Join(parts[len(parts)-2:], sep)
	}
	return theme.BreadcrumbStyle.Width(max(width, 1)).Render(crumb)
}
