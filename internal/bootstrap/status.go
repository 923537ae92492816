package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/chmouel/treestatus/internal/browser"
	"github.com/chmouel/treestatus/internal/config"
	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/chmouel/treestatus/internal/metrics"
	"github.com/chmouel/treestatus/internal/theme"
	urfavecli "github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// isTerminal reports whether w is an interactive terminal. Tests replace it.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec
}

// statusEntry is one line of `treestatus status` output.
type statusEntry struct {
	Name     string `json:"name"`
	Dir      bool   `json:"dir"`
	Code     string `json:"code"`
	Category string `json:"category"`
}

func statusCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "status",
		Usage:     "Print the entries of a directory with their git status",
		ArgsUsage: "[dir]",
		Flags:     statusFlags(),
		Action:    runStatus,
	}
}

func runStatus(ctx context.Context, cmd *urfavecli.Command) error {
	dir, err := targetDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadCLIConfig(cmd, dir)
	if err != nil {
		return err
	}

	// an explicit status request always asks git, once
	cfg.GitStatus.Enabled = true
	cfg.GitStatus.InitialDelay = cfg.GitStatus.UpdateInterval

	svc := newService(cfg, cmd.Root().ErrWriter, metrics.NoopRecorder{})
	defer svc.Shutdown()

	_, state, err := svc.Sync(ctx, dir)
	switch {
	case errors.Is(err, gitstatus.ErrNoRoot):
		fmt.Fprintf(cmd.Root().ErrWriter, "%s is not inside a git repository\n", dir)
	case err != nil:
		return fmt.Errorf("git status: %w", err)
	case state.Phase == gitstatus.PhaseFailed:
		return fmt.Errorf("git status: %w", state.Err)
	}

	entries, err := browser.ListDir(dir, cmd.Bool("all"))
	if err != nil {
		return err
	}
	rows := make([]statusEntry, 0, len(entries))
	for _, e := range entries {
		code, _ := svc.GetStatus(e.Path, e.IsDir)
		if cmd.Bool("changed") && code == "" {
			continue
		}
		rows = append(rows, statusEntry{
			Name:     e.Name,
			Dir:      e.IsDir,
			Code:     code,
			Category: gitstatus.HighlightFor(code).String(),
		})
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return printStatus(out, rows, cfg, isTerminal(out))
}

func printStatus(out io.Writer, rows []statusEntry, cfg *config.AppConfig, color bool) error {
	th := theme.GetTheme(cfg.Theme)
	colors := map[string]lipgloss.Color{
		string(gitstatus.CategoryAdded):     th.Added,
		string(gitstatus.CategoryModified):  th.Modified,
		string(gitstatus.CategoryDeleted):   th.Deleted,
		string(gitstatus.CategoryRenamed):   th.Renamed,
		string(gitstatus.CategoryCopied):    th.Copied,
		string(gitstatus.CategoryUntracked): th.Untracked,
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		code := r.Code
		if code == "" {
			code = "  "
		}
		name := r.Name
		if r.Dir {
			name += "/"
		}
		if c, ok := colors[r.Category]; ok && color {
			name = lipgloss.NewStyle().Foreground(c).Render(name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", code, name, r.Category)
	}
	return w.Flush()
}
