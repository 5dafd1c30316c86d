package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chromeLines is the height taken by everything except the content area:
// header, two progress lines, tab bar, breadcrumb and status bar.
const chromeLines = 6

// Layout sizes the panes for a terminal.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the rows left for the tree or flat list.
func (l Layout) ContentHeight() int {
	return max(l.Height-chromeLines, 1)
}

// ContentWidth returns the width available for the main content area.
func (l Layout) ContentWidth() int {
	return max(l.Width, 20)
}

// BarWidth returns the width of the per-row size bar.
func (l Layout) BarWidth() int {
	return min(max(l.ContentWidth()-rowOverhead, 5), 40)
}

// NameWidth returns the width available for node names.
func (l Layout) NameWidth() int {
	return max(l.ContentWidth()-rowOverhead-l.BarWidth(), 8)
}

// rowOverhead is the fixed part of a tree row:
//
//	cursor(2) icon(3) pct(6) " ["(2) bar "] "(2) name " "(1) size(10)
const rowOverhead = 26

// FullWidth pads s with spaces to width cells. Wider strings are returned
// unchanged.
func FullWidth(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
