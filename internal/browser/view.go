package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
)

const (
	codeWidth   = 3
	cursorWidth = 2
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quit {
		return ""
	}
	if m.showHelp {
		return m.styles.help.Render(m.help.View())
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.renderRepoLine())
	b.WriteByte('\n')
	b.WriteString(m.renderList())
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.styles.header.Render("treestatus")
	dir := truncate.StringWithTail(m.dir, uint(max(m.width-12, 10)), "…") //nolint:gosec
	return title + " " + m.styles.text.Render(dir)
}

// renderRepoLine describes the repository of the displayed directory and
// the state of its last status run.
func (m *Model) renderRepoLine() string {
	if !m.svc.IsEnabled() {
		return m.styles.muted.Render("git status off")
	}
	root, state, ok := m.svc.StateFor(m.dir)
	if root == "" {
		return m.styles.muted.Render("not in a git repository")
	}
	if !ok {
		return m.styles.muted.Render("repo " + root)
	}

	switch state.Phase {
	case gitstatus.PhasePending:
		return m.styles.muted.Render("repo " + root + " · loading…")
	case gitstatus.PhaseFailed:
		msg := "git status failed"
		if state.Err != nil {
			msg += ": " + state.Err.Error()
		}
		line := "repo " + root + " · " + msg
		return m.styles.errText.Render(truncate.StringWithTail(line, uint(max(m.width, 10)), "…")) //nolint:gosec
	default:
		changes := "clean"
		if state.Entries > 0 {
			changes = fmt.Sprintf("%d changed", state.Entries)
		}
		return m.styles.muted.Render(fmt.Sprintf("repo %s · %s · updated %s",
			root, changes, state.UpdatedAt.Format(time.TimeOnly)))
	}
}

func (m *Model) renderList() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(m.styles.errText.Render(m.err.Error()))
		b.WriteByte('\n')
		return b.String()
	}
	if len(m.rows) == 0 {
		b.WriteString(m.styles.muted.Render("  (empty)"))
		b.WriteByte('\n')
		return b.String()
	}

	end := min(m.offset+m.listHeight(), len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *Model) renderRow(r row, selected bool) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}

	name := r.entry.Name
	if r.entry.IsDir {
		name += "/"
	}
	if m.showIcons {
		name = iconWithSpace(deviconForName(r.entry.Name, r.entry.IsDir)) + name
	}
	nameWidth := max(m.width-cursorWidth-codeWidth-1, 8)
	name = truncate.StringWithTail(name, uint(nameWidth), "…") //nolint:gosec

	code := r.code
	if code == "" {
		code = "  "
	}
	style := m.styles.forCategory(r.category)
	line := cursor +
		style.Render(code) + " " +
		style.Render(name)
	if selected {
		return m.styles.selected.Render(line)
	}
	return line
}

func (m *Model) renderFooter() string {
	if m.filtering {
		return m.filter.View()
	}
	if m.notice != "" {
		return m.styles.warn.Render(m.notice)
	}
	hint := "enter open · h up · r refresh · c clear · . hidden · / filter · ? help · q quit"
	if q := m.filter.Value(); q != "" {
		hint = "filter: " + q + " · esc clear"
	}
	return m.styles.footer.Render(truncate.StringWithTail(hint, uint(max(m.width, 10)), "…")) //nolint:gosec
}

func (m *Model) helpContent() string {
	keys := [][2]string{
		{"j/k, ↑/↓", "move"},
		{"g/G", "first / last entry"},
		{"enter, l", "open directory"},
		{"h, backspace", "parent directory"},
		{"r", "refresh git status of this repository"},
		{"c", "forget every cached repository"},
		{".", "show or hide dot files"},
		{"/", "filter entries by name"},
		{"?", "toggle this help"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(m.styles.header.Render("Help"))
	b.WriteString("\n\n")
	for _, k := range keys {
		b.WriteString(lipgloss.NewStyle().Width(16).Render(k[0]))
		b.WriteString(k[1])
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	legend := "Status codes come from git status --porcelain. Names are coloured " +
		"by category: added, modified, deleted, renamed, copied and untracked. " +
		"Directories show the status of their first changed descendant."
	b.WriteString(wrap.String(legend, max(m.help.Width-2, 20)))
	b.WriteString("\n\n")
	for _, c := range []gitstatus.Category{
		gitstatus.CategoryAdded, gitstatus.CategoryModified, gitstatus.CategoryDeleted,
		gitstatus.CategoryRenamed, gitstatus.CategoryCopied, gitstatus.CategoryUntracked,
	} {
		b.WriteString("  ")
		b.WriteString(m.styles.forCategory(c).Render(c.String()))
		b.WriteByte('\n')
	}
	return b.String()
}
