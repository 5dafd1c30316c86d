package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/volscan/internal/model"
	"github.com/sadopc/volscan/internal/ui/style"
	"github.com/sadopc/volscan/internal/util"
)

// Fixed widths of the flat table's non-name columns.
const (
	kindColWidth     = 9
	sizeColWidth     = 10
	modifiedColWidth = 16
)

// NewFlatTable returns a focused table for the flat projection.
func NewFlatTable(theme style.Theme) table.Model {
	t := table.New(
		table.WithColumns(FlatColumns(80)),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.TextMuted).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(theme.Primary).
		Bold(true)
	t.SetStyles(styles)
	return t
}

// FlatColumns sizes the columns for a terminal width; the name column
// takes what the others leave.
func FlatColumns(width int) []table.Column {
	name := max(width-kindColWidth-sizeColWidth-modifiedColWidth-8, 12)
	return []table.Column{
		{Title: "Name", Width: name},
		{Title: "Kind", Width: kindColWidth},
		{Title: "Size", Width: sizeColWidth},
		{Title: "Modified", Width: modifiedColWidth},
	}
}

// FlatRows renders nodes in projection order, indenting each name by its
// depth. sizes should come from the same projection so that a directory's
// size matches the rows below it.
func FlatRows(nodes []*model.Node, sizes model.Sizes, now time.Time) []table.Row {

	rows := make([]table.Row, 0, len(nodes))
	for _, n := range nodes {
		name := strings.Repeat("  ", n.Depth()) + util.Icon(n.Kind, n.Name) + " " + n.Name
		var modified string
		if !n.Mtime.IsZero() {
			modified = humanize.RelTime(n.Mtime, now, "ago", "from now")
		}
		rows = append(rows, table.Row{
			name,
			n.Kind.String(),
			util.FormatBytes(sizes.Of(n)),
			modified,
		})
	}
	return rows
}
