// Package ui is the terminal front end: a Bubble Tea model that observes a
// session.Manager and turns key presses into Manager commands.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/volscan/internal/model"
	"github.com/sadopc/volscan/internal/ops"
	"github.com/sadopc/volscan/internal/session"
	"github.com/sadopc/volscan/internal/ui/components"
	"github.com/sadopc/volscan/internal/ui/style"
)

// DefaultExportPath is where E writes when no path was configured.
const DefaultExportPath = "volscan-export.json"

// ViewMode selects the content pane.
type ViewMode int

const (
	ViewTree ViewMode = iota
	ViewFlat
)

// AppState represents the application state.
type AppState int

const (
	StateBrowsing AppState = iota
	StateHelp
)

// ExportDoneMsg is sent when an export finishes.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// App is the root Bubble Tea model.
type App struct {
	ExportPath string
	Version    string
	// AutoStart scans the selected volume as soon as the UI starts.
	AutoStart bool

	manager     *session.Manager
	bridge      *Bridge
	unsubscribe func()
	ctx         context.Context

	state    AppState
	viewMode ViewMode
	width    int
	height   int

	st         session.State
	root       *model.Node
	sizes      model.Sizes
	currentDir *model.Node
	navStack   []*model.Node
	sortConfig model.SortConfig
	items      []*model.Node
	cursor     int
	offset     int
	table      table.Model

	theme  style.Theme
	keys   KeyMap
	layout style.Layout
	now    func() time.Time

	statusMsg string
}

// NewApp creates an App observing m. Scans it starts derive from ctx.
func NewApp(ctx context.Context, m *session.Manager) *App {
	theme := style.DefaultTheme()
	a := &App{
		manager:    m,
		bridge:     NewBridge(),
		ctx:        ctx,
		state:      StateBrowsing,
		viewMode:   ViewTree,
		sortConfig: model.DefaultSort(),
		table:      components.NewFlatTable(theme),
		theme:      theme,
		keys:       DefaultKeyMap(),
		now:        time.Now,
	}
	a.unsubscribe = m.Subscribe(a.bridge)
	a.syncSelection()
	return a
}

// Close detaches the App from its manager.
func (a *App) Close() {
	a.unsubscribe()
	a.bridge.Close()
}

func (a *App) Init() tea.Cmd {
	if a.AutoStart {
		a.command(a.manager.StartSelected(a.ctx))
	}
	return a.bridge.Next()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout = style.NewLayout(msg.Width, msg.Height)
		a.table.SetColumns(components.FlatColumns(a.layout.ContentWidth()))
		a.table.SetWidth(a.layout.ContentWidth())
		a.table.SetHeight(a.layout.ContentHeight())
		return a, nil

	case EventMsg:
		a.st = msg.State
		if msg.Changed.Has(session.FieldTree) || msg.Changed.Has(session.FieldBusy) {
			a.syncSelection()
		}
		return a, a.bridge.Next()

	case ExportDoneMsg:
		if msg.Err != nil {
			a.statusMsg = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			a.statusMsg = fmt.Sprintf("Exported to %s", msg.Path)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		return a, a.quit()
	}

	if a.state == StateHelp {
		if key.Matches(msg, a.keys.Help) || msg.String() == "esc" {
			a.state = StateBrowsing
			return a, tea.ClearScreen
		}
		return a, nil
	}

	a.statusMsg = ""
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, a.quit()
	case key.Matches(msg, a.keys.Help):
		a.state = StateHelp
		return a, tea.ClearScreen

	case key.Matches(msg, a.keys.Start):
		a.command(a.manager.StartSelected(a.ctx))
	case key.Matches(msg, a.keys.Stop):
		a.command(a.manager.StopSelected())
	case key.Matches(msg, a.keys.Clear):
		a.command(a.manager.ClearSelected())
	case key.Matches(msg, a.keys.Export):
		return a, a.exportCmd()

	case key.Matches(msg, a.keys.NextVolume):
		a.stepVolume(1)
	case key.Matches(msg, a.keys.PrevVolume):
		a.stepVolume(-1)
	case key.Matches(msg, a.keys.Reload):
		a.command(a.manager.Refresh())
		a.syncSelection()

	case key.Matches(msg, a.keys.ViewTree):
		a.setView(ViewTree)
		return a, tea.ClearScreen
	case key.Matches(msg, a.keys.ViewFlat):
		a.setView(ViewFlat)
		return a, tea.ClearScreen
	case key.Matches(msg, a.keys.ToggleView):
		a.setView(1 - a.viewMode)
		return a, tea.ClearScreen
	case key.Matches(msg, a.keys.CycleSort):
		a.sortConfig.Field = (a.sortConfig.Field + 1) % (model.SortByMtime + 1)
		a.refreshSorted()
	case key.Matches(msg, a.keys.Reverse):
		a.sortConfig.Order = 1 - a.sortConfig.Order
		a.refreshSorted()

	default:
		if a.viewMode == ViewFlat {
			var cmd tea.Cmd
			a.table, cmd = a.table.Update(msg)
			return a, cmd
		}
		a.handleTreeKey(msg)
	}
	return a, nil
}

func (a *App) handleTreeKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-1)
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(1)
	case key.Matches(msg, a.keys.Enter):
		a.enterDir()
	case key.Matches(msg, a.keys.Back):
		a.goBack()
	}
}

// command reports the outcome of a Manager command in the status bar.
func (a *App) command(err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrBusy):
		a.statusMsg = "A scan is running; stop it first (x)"
	case errors.Is(err, session.ErrNoSelection):
		a.statusMsg = "No volume selected"
	default:
		a.statusMsg = err.Error()
	}
}

func (a *App) quit() tea.Cmd {
	a.manager.StopAll()
	return tea.Quit
}

func (a *App) stepVolume(delta int) {
	vols := a.manager.Volumes()
	if len(vols) < 2 {
		return
	}
	i := a.selectedIndex(vols)
	next := vols[(i+delta+len(vols))%len(vols)]
	a.command(a.manager.Select(next.Volume().RootPath))
	a.syncSelection()
}

func (a *App) selectedIndex(vols []*session.Session) int {
	sel := a.manager.Selected()
	for i, s := range vols {
		if s == sel {
			return i
		}
	}
	return 0
}

func (a *App) setView(v ViewMode) {
	a.viewMode = v
	a.refreshFlat()
}

// syncSelection re-reads the selected session. A new root (another volume,
// a fresh scan or a clear) resets navigation.
func (a *App) syncSelection() {
	sel := a.manager.Selected()
	var root *model.Node
	a.sizes = nil
	if sel != nil {
		root = sel.Root()
		a.sizes = sel.Sizes()
		a.st = sel.State()
	} else {
		a.st = session.State{}
	}
	if root != a.root {
		a.root = root
		a.currentDir = root
		a.navStack = nil
		a.cursor = 0
		a.offset = 0
	}
	a.refreshSorted()
	a.refreshFlat()
}

func (a *App) refreshSorted() {
	if a.currentDir == nil {
		a.items = nil
		return
	}
	items := a.currentDir.Children()
	model.SortNodes(items, a.sortConfig, a.sizes)
	a.items = items
	a.cursor = min(a.cursor, max(len(items)-1, 0))
}

func (a *App) refreshFlat() {
	if a.viewMode != ViewFlat {
		return
	}
	var flat []*model.Node
	if sel := a.manager.Selected(); sel != nil {
		flat = sel.Flat()
	}
	a.table.SetRows(components.FlatRows(flat, a.sizes, a.now()))
}

func (a *App) moveCursor(delta int) {
	a.cursor = min(max(a.cursor+delta, 0), max(len(a.items)-1, 0))
}

func (a *App) enterDir() {
	if a.cursor >= len(a.items) {
		return
	}
	if item := a.items[a.cursor]; item.IsDir() {
		a.navStack = append(a.navStack, a.currentDir)
		a.currentDir = item
		a.cursor = 0
		a.offset = 0
		a.refreshSorted()
	}
}

func (a *App) goBack() {
	if len(a.navStack) == 0 {
		return
	}
	leaving := a.currentDir
	a.currentDir = a.navStack[len(a.navStack)-1]
	a.navStack = a.navStack[:len(a.navStack)-1]
	a.refreshSorted()

	a.cursor = 0
	for i, item := range a.items {
		if item == leaving {
			a.cursor = i
			break
		}
	}
	a.offset = 0
}

func (a *App) exportCmd() tea.Cmd {
	if a.st.Busy {
		a.statusMsg = "Wait for the scan to finish before exporting"
		return nil
	}
	if a.root == nil {
		a.statusMsg = "Nothing to export; scan first (s)"
		return nil
	}
	path := a.ExportPath
	if path == "" {
		path = DefaultExportPath
	}
	root, version := a.root, a.Version
	return func() tea.Msg {
		return ExportDoneMsg{Path: path, Err: ops.ExportFile(root, path, version)}
	}
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}
	if a.state == StateHelp {
		return components.RenderHelp(a.theme, a.width, a.height)
	}

	vols := a.manager.Volumes()
	info := components.HeaderInfo{Count: len(vols), Busy: a.st.Busy}
	if sel := a.manager.Selected(); sel != nil {
		info.Volume = sel.Volume()
		info.FreeSpace = a.manager.FreeSpaceText()
		info.Index = a.selectedIndex(vols)
	}

	header := components.RenderHeader(a.theme, info, a.width)
	progress := components.RenderProgress(a.theme, a.st, a.width)
	tabBar := components.RenderTabBar(a.theme, int(a.viewMode), a.sortConfig, a.width)

	status := components.StatusInfo{Message: a.statusMsg, Sizes: a.sizes, Now: a.now()}
	var crumb, content string
	switch a.viewMode {
	case ViewTree:
		crumb = components.RenderBreadcrumb(a.theme, a.currentDir, a.width)
		var parentSize int64
		if a.currentDir != nil {
			parentSize = a.sizes.Of(a.currentDir)
		}
		tv := &components.TreeView{
			Theme:      a.theme,
			Layout:     a.layout,
			Items:      a.items,
			Sizes:      a.sizes,
			Cursor:     a.cursor,
			Offset:     a.offset,
			ParentSize: parentSize,
		}
		tv.EnsureVisible()
		a.offset = tv.Offset
		content = tv.Render()

		status.Dir = a.currentDir
		status.Items = len(a.items)
		if a.cursor < len(a.items) {
			status.Selected = a.items[a.cursor]
		}

	case ViewFlat:
		crumb = components.RenderBreadcrumb(a.theme, a.root, a.width)
		content = a.table.View()
		status.Dir = a.root
		status.Items = len(a.table.Rows())
	}

	statusBar := components.RenderStatusBar(a.theme, status, a.width)
	return header + "\n" + progress + "\n" + tabBar + "\n" + crumb + "\n" + content + "\n" + statusBar
}
