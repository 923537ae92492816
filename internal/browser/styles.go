package browser

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/chmouel/treestatus/internal/theme"
)

type styles struct {
	header   lipgloss.Style
	muted    lipgloss.Style
	text     lipgloss.Style
	selected lipgloss.Style
	warn     lipgloss.Style
	errText  lipgloss.Style
	footer   lipgloss.Style
	help     lipgloss.Style
	status   map[gitstatus.Category]lipgloss.Style
}

func newStyles(th *theme.Theme) styles {
	return styles{
		header:   lipgloss.NewStyle().Foreground(th.Accent).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(th.MutedFg),
		text:     lipgloss.NewStyle().Foreground(th.TextFg),
		selected: lipgloss.NewStyle().Background(th.AccentDim).Bold(true),
		warn:     lipgloss.NewStyle().Foreground(th.WarnFg),
		errText:  lipgloss.NewStyle().Foreground(th.ErrorFg).Bold(true),
		footer:   lipgloss.NewStyle().Foreground(th.MutedFg),
		help: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(th.Border).
			Padding(0, 1),
		status: map[gitstatus.Category]lipgloss.Style{
			gitstatus.CategoryAdded:     lipgloss.NewStyle().Foreground(th.Added),
			gitstatus.CategoryModified:  lipgloss.NewStyle().Foreground(th.Modified),
			gitstatus.CategoryDeleted:   lipgloss.NewStyle().Foreground(th.Deleted).Strikethrough(true),
			gitstatus.CategoryRenamed:   lipgloss.NewStyle().Foreground(th.Renamed),
			gitstatus.CategoryCopied:    lipgloss.NewStyle().Foreground(th.Copied),
			gitstatus.CategoryUntracked: lipgloss.NewStyle().Foreground(th.Untracked).Italic(true),
		},
	}
}

// forCategory returns the style for a highlight category; CategoryNone gets
// plain text.
func (s styles) forCategory(c gitstatus.Category) lipgloss.Style {
	if st, ok := s.status[c]; ok {
		return st
	}
	return s.text
}
