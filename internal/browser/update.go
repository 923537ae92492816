package browser

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = min(msg.Width-4, 80)
		m.help.Height = max(msg.Height-4, 3)
		m.clampCursor()
		return m, nil

	case dispatchReadyMsg:
		m.svc.Dispatcher().Drain()
		switch {
		case m.reload:
			m.reload = false
			m.loadDir()
		case m.dirty:
			m.rebuildRows()
		}
		return m, m.waitForDispatch()

	case listingChangedMsg:
		m.notifier.ResetWaiting()
		m.loadDir()
		return m, m.waitForListing()

	case tea.KeyMsg:
		if m.showHelp {
			return m.handleHelpKey(msg)
		}
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quit = true
		return m, tea.Quit
	case "j", "down":
		m.cursor++
		m.clampCursor()
	case "k", "up":
		m.cursor--
		m.clampCursor()
	case "g", "home":
		m.cursor = 0
		m.clampCursor()
	case "G", "end":
		m.cursor = len(m.rows) - 1
		m.clampCursor()
	case "pgdown", "ctrl+d":
		m.cursor += m.listHeight()
		m.clampCursor()
	case "pgup", "ctrl+u":
		m.cursor -= m.listHeight()
		m.clampCursor()
	case "enter", "l", "right":
		if e, ok := m.selected(); ok && e.IsDir {
			m.changeDir(e.Path)
		}
	case "h", "left", "backspace":
		m.parentDir()
	case "r":
		if m.svc.RefreshPath(m.dir) == nil {
			m.notice = "nothing to refresh"
			if !m.svc.IsEnabled() {
				m.notice = "git status is disabled"
			}
		} else {
			m.notice = "refreshing..."
		}
	case "c":
		m.svc.ClearCache()
		m.notice = "status cache cleared"
		m.rebuildRows()
	case ".":
		m.showHidden = !m.showHidden
		m.loadDir()
	case "/":
		m.filtering = true
		m.filter.Focus()
		return m, nil
	case "esc":
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.rebuildRows()
		}
	case "?":
		m.showHelp = true
		m.help.SetContent(m.helpContent())
		m.help.GotoTop()
	}
	return m, nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.rebuildRows()
		return m, nil
	case "ctrl+c":
		m.quit = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	m.rebuildRows()
	return m, cmd
}

func (m *Model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "?":
		m.showHelp = false
		return m, nil
	case "ctrl+c":
		m.quit = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.help, cmd = m.help.Update(msg)
	return m, cmd
}
