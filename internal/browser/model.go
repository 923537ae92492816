// Package browser is the terminal file browser that shows git status next to
// each entry.
package browser

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/chmouel/treestatus/internal/config"
	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/chmouel/treestatus/internal/theme"
	"github.com/chmouel/treestatus/internal/watch"
)

// Message types for the Bubble Tea app
type (
	dispatchReadyMsg struct{}
	listingChangedMsg struct{}
)

// row is an entry with its status resolved for rendering.
type row struct {
	entry    Entry
	code     string
	category gitstatus.Category
}

// Model is the bubbletea model of the browser.
type Model struct {
	svc      *gitstatus.Service
	notifier *watch.SaveNotifier
	styles   styles

	dir        string
	entries    []Entry
	rows       []row
	cursor     int
	offset     int
	showHidden bool
	showIcons  bool
	err        error
	notice     string

	// set by the refresh sink while the dispatcher drains
	dirty  bool
	reload bool

	filter    textinput.Model
	filtering bool
	help      viewport.Model
	showHelp  bool

	width  int
	height int
	quit   bool
}

// New builds a browser rooted at dir. notifier may be nil. The model
// registers itself as the service's refresh sink.
func New(cfg *config.AppConfig, svc *gitstatus.Service, notifier *watch.SaveNotifier, dir string) *Model {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	filterInput := textinput.New()
	filterInput.Placeholder = "Filter entries..."
	filterInput.Prompt = "/ "
	filterInput.Width = 40

	m := &Model{
		svc:        svc,
		notifier:   notifier,
		styles:     newStyles(theme.GetTheme(cfg.Theme)),
		dir:        dir,
		showHidden: cfg.ShowHidden,
		showIcons:  cfg.ShowIcons,
		filter:     filterInput,
		help:       viewport.New(60, 20),
		width:      80,
		height:     24,
	}
	svc.SetRefreshFunc(m.onRefresh)
	m.loadDir()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForDispatch(), m.waitForListing())
}

// onRefresh is the service's refresh sink. It runs inside Dispatcher.Drain,
// which only Update calls, so it may touch the model directly.
func (m *Model) onRefresh(refetch bool) {
	m.dirty = true
	if refetch {
		m.reload = true
	}
}

func (m *Model) waitForDispatch() tea.Cmd {
	ready := m.svc.Dispatcher().Ready()
	return func() tea.Msg {
		<-ready
		return dispatchReadyMsg{}
	}
}

func (m *Model) waitForListing() tea.Cmd {
	if m.notifier == nil {
		return nil
	}
	events := m.notifier.NextEvent()
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return listingChangedMsg{}
	}
}

// Dir returns the displayed directory.
func (m *Model) Dir() string {
	return m.dir
}

// loadDir rereads the displayed directory and recomputes every row.
func (m *Model) loadDir() {
	entries, err := ListDir(m.dir, m.showHidden)
	m.err = err
	m.entries = entries
	if m.notifier != nil {
		m.notifier.SetDirs(m.dir)
	}
	m.rebuildRows()
}

// rebuildRows queries the service for every visible entry. Queries never
// block; entries of a repository seen for the first time come back empty
// and are filled in when its fetch completes.
func (m *Model) rebuildRows() {
	visible := filterEntries(m.entries, m.filter.Value())
	rows := make([]row, 0, len(visible))
	for _, e := range visible {
		code, _ := m.svc.GetStatus(e.Path, e.IsDir)
		rows = append(rows, row{entry: e, code: code, category: gitstatus.HighlightFor(code)})
	}
	m.rows = rows
	m.dirty = false
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	page := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// listHeight is the number of rows left after the header and footer.
func (m *Model) listHeight() int {
	h := m.height - 3
	if h < 1 {
		return 1
	}
	return h
}

func (m *Model) selected() (Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return Entry{}, false
	}
	return m.rows[m.cursor].entry, true
}

func (m *Model) changeDir(dir string) {
	if dir == m.dir {
		return
	}
	prev := m.dir
	m.dir = dir
	m.cursor, m.offset = 0, 0
	m.filter.SetValue("")
	m.loadDir()
	if m.err != nil {
		m.notice = "cannot open " + dir + ": " + m.err.Error()
		m.dir = prev
		m.loadDir()
		return
	}
	m.notice = ""
}

func (m *Model) parentDir() {
	parent := filepath.Dir(m.dir)
	if parent == m.dir {
		return
	}
	child := filepath.Base(m.dir)
	m.changeDir(parent)
	for i, r := range m.rows {
		if r.entry.Name == child {
			m.cursor = i
			m.clampCursor()
			break
		}
	}
}
