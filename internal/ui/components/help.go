package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/volscan/internal/ui/style"
)

type helpSection struct {
	name  string
	binds [][2]string
}

var helpSections = []helpSection{
	{"Scanning", [][2]string{
		{"s", "Start scanning the selected volume"},
		{"x", "Stop the scan, keeping what was found"},
		{"c", "Clear the results"},
		{"E", "Export results as ncdu JSON"},
	}},
	{"Volumes", [][2]string{
		{"]/[", "Next / previous volume"},
		{"R", "Reload the volume list"},
	}},
	{"Navigation", [][2]string{
		{"j/k", "Move down/up"},
		{"l/Enter", "Enter directory"},
		{"h/Backspace", "Go to parent"},
	}},
	{"Views", [][2]string{
		{"1 / 2", "Tree / flat list"},
		{"Tab", "Switch view"},
		{"o", "Cycle sort field"},
		{"r", "Reverse sort order"},
	}},
	{"General", [][2]string{
		{"?", "Toggle help"},
		{"q", "Quit"},
	}},
}

// RenderHelp renders the help overlay.
func RenderHelp(theme style.Theme, width, height int) string {
	boxWidth := max(min(60, width-4), 1)

	lines := []string{theme.ModalTitle.Render("  volscan - Keyboard Shortcuts"), ""}
	for _, sec := range helpSections {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(theme.Accent).Render("  "+sec.name))
		for _, b := range sec.binds {
			key := theme.HelpKey.Width(16).Render("    " + b[0])
			desc := lipgloss.NewStyle().Foreground(theme.TextSecondary).Render(b[1])
			lines = append(lines, fmt.Sprintf("%s %s", key, desc))
		}
		lines = append(lines, "")
	}
	lines = append(lines, theme.HelpDesc.Render("  Press ? or Esc to close"))

	box := theme.ModalStyle.Width(boxWidth).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
