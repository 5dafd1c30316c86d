package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/volscan/internal/model"
	"github.com/sadopc/volscan/internal/ui/style"
	"github.com/sadopc/volscan/internal/util"
)

// TreeView renders the children of one directory as rows with a size bar
// relative to the directory.
type TreeView struct {
	Theme      style.Theme
	Layout     style.Layout
	Items      []*model.Node
	Sizes      model.Sizes
	Cursor     int
	Offset     int
	ParentSize int64
}

// Render renders the visible window of rows.
func (tv *TreeView) Render() string {
	width := tv.Layout.ContentWidth()
	height := tv.Layout.ContentHeight()

	var lines []string
	if len(tv.Items) == 0 {
		empty := lipgloss.NewStyle().Foreground(tv.Theme.TextMuted).Render("  (nothing scanned here yet)")
		lines = append(lines, style.FullWidth(empty, width))
	}

	end := min(tv.Offset+height, len(tv.Items))
	for i := tv.Offset; i < end; i++ {
		lines = append(lines, tv.renderRow(tv.Items[i], i == tv.Cursor, width))
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func (tv *TreeView) renderRow(n *model.Node, selected bool, width int) string {
	size := tv.Sizes.Of(n)
	pct := util.Percent(size, tv.ParentSize)
	bar := tv.Theme.BarGradient(tv.Layout.BarWidth(), pct/100)

	name := n.Name
	if n.IsDir() {
		name += "/"
	}
	name = util.TruncateString(name, tv.Layout.NameWidth())

	nameStyled := tv.Theme.FileName.Render(name)
	if n.IsDir() {
		nameStyled = tv.Theme.DirName.Render(name)
	}

	cursor := "  "
	if selected {
		cursor = tv.Theme.CursorIndicator.Render(" >")
	}

	row := fmt.Sprintf("%s%s %s [%s] %s %s",
		cursor,
		util.Icon(n.Kind, n.Name),
		tv.Theme.PercentText.Render(fmt.Sprintf("%5.1f%%", pct)),
		bar,
		nameStyled,
		tv.Theme.SizeText.Render(util.FormatBytes(size)),
	)
	row = style.FullWidth(row, width)
	if selected {
		return tv.Theme.SelectedRow.Width(width).Render(row)
	}
	return row
}

// EnsureVisible scrolls Offset so that Cursor is on screen.
func (tv *TreeView) EnsureVisible() {
	height := tv.Layout.ContentHeight()
	if tv.Cursor < tv.Offset {
		tv.Offset = tv.Cursor
	}
	if tv.Cursor >= tv.Offset+height {
		tv.Offset = tv.Cursor - height + 1
	}
	tv.Offset = max(tv.Offset, 0)
}
