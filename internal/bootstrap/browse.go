package bootstrap

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chmouel/treestatus/internal/browser"
	"github.com/chmouel/treestatus/internal/log"
	"github.com/chmouel/treestatus/internal/metrics"
	"github.com/chmouel/treestatus/internal/watch"
	urfavecli "github.com/urfave/cli/v3"
)

// runProgram runs the bubbletea program. Tests replace it.
var runProgram = func(ctx context.Context, m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
}

// runBrowser is the default action: the interactive file browser.
func runBrowser(ctx context.Context, cmd *urfavecli.Command) error {
	dir, err := targetDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadCLIConfig(cmd, dir)
	if err != nil {
		return err
	}

	svc := newService(cfg, cmd.Root().ErrWriter, metrics.NoopRecorder{})
	defer svc.Shutdown()

	notifier := watch.NewSaveNotifier(svc, svc.Dispatcher(), log.Printf)
	if err := notifier.Start(); err != nil {
		log.Printf("bootstrap: save notifier unavailable: %v", err)
		notifier = nil
	} else {
		defer notifier.Stop()
	}

	model := browser.New(cfg, svc, notifier, dir)
	if _, err := runProgram(ctx, model); err != nil {
		return fmt.Errorf("error running browser: %w", err)
	}
	return nil
}
