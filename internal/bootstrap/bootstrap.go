package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chmouel/treestatus/internal/buildinfo"
	"github.com/chmouel/treestatus/internal/completion"
	"github.com/chmouel/treestatus/internal/config"
	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/chmouel/treestatus/internal/log"
	"github.com/chmouel/treestatus/internal/metrics"
	urfavecli "github.com/urfave/cli/v3"
)

// newRunner builds the git runner for every command. Tests replace it.
var newRunner = func() gitstatus.Runner { return gitstatus.ExecRunner{} }

// NewCommand builds the root command.
func NewCommand(stdout, stderr io.Writer) *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "treestatus",
		Usage:     "Browse directories with live git status",
		ArgsUsage: "[dir]",
		Version:   buildinfo.Summary(),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands: []*urfavecli.Command{
			statusCommand(),
			watchCommand(),
		},
		EnableShellCompletion: true,
		ShellComplete:         completeFlagValues,
		Action:                runBrowser,
	}
}

// completionArgs returns the raw command line. Tests replace it.
var completionArgs = func() []string { return os.Args }

// completeFlagValues suggests values for the flag preceding the completion
// request, and falls back to flag and command names.
func completeFlagValues(ctx context.Context, cmd *urfavecli.Command) {
	args := completionArgs()
	for i := len(args) - 1; i > 0; i-- {
		if args[i] != "--generate-shell-completion" {
			continue
		}
		if suggestions := completion.Suggest(args[i-1], ""); len(suggestions) > 0 {
			for _, s := range suggestions {
				fmt.Fprintln(cmd.Root().Writer, s)
			}
			return
		}
		break
	}
	urfavecli.DefaultCompleteWithFlags(ctx, cmd)
}

// Run executes the command line and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	cmd := NewCommand(os.Stdout, os.Stderr)
	err := cmd.Run(ctx, args)
	if cerr := log.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error closing debug log: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

// loadCLIConfig builds the configuration for dir: YAML file, global git
// config, the repository's local git config, then command line flags and
// --config overrides with the highest precedence.
func loadCLIConfig(cmd *urfavecli.Command, dir string) (*config.AppConfig, error) {
	root := cmd.Root()

	cfg, err := config.LoadConfig(root.String("config-file"))
	if err != nil {
		fmt.Fprintf(root.ErrWriter, "Error loading config: %v\n", err)
		cfg = config.DefaultConfig()
		cfg.Theme = "dracula"
	}
	if err := config.ApplyRepoConfig(cfg, dir); err != nil {
		log.Printf("bootstrap: %v", err)
	}

	if themeName := root.String("theme"); themeName != "" {
		normalized := config.NormalizeThemeName(themeName)
		if normalized == "" {
			return nil, fmt.Errorf("unknown theme %q", themeName)
		}
		cfg.Theme = normalized
	}
	if root.Bool("git-status") {
		cfg.GitStatus.Enabled = true
	}
	if interval := root.Duration("interval"); interval > 0 {
		cfg.GitStatus.UpdateInterval = interval
	}
	if debugLog := root.String("debug-log"); debugLog != "" {
		cfg.DebugLog = debugLog
	}

	if err := config.ApplyCLIOverrides(cfg, root.StringSlice("config")); err != nil {
		return nil, fmt.Errorf("error applying config overrides: %w", err)
	}

	setupDebugLog(cfg, root.ErrWriter)
	return cfg, nil
}

// setupDebugLog points the debug logger at cfg.DebugLog, or discards the
// buffered messages when none is configured.
func setupDebugLog(cfg *config.AppConfig, stderr io.Writer) {
	if cfg.DebugLog == "" {
		_ = log.SetFile("")
		return
	}
	path := cfg.DebugLog
	if expanded, err := config.ExpandPath(path); err == nil {
		path = expanded
	}
	if err := log.SetFile(path); err != nil {
		fmt.Fprintf(stderr, "Error opening debug log file %q: %v\n", path, err)
		return
	}
	cfg.DebugLog = path
}

// newService builds a Service for cfg and applies its git_status section.
// A scheduler failure is reported but leaves the service usable.
func newService(cfg *config.AppConfig, stderr io.Writer, recorder metrics.Recorder) *gitstatus.Service {
	svc := gitstatus.NewService(gitstatus.Options{
		Runner:   newRunner(),
		Recorder: recorder,
		Notify:   cliNotify(stderr),
		Debugf:   log.Printf,
	})
	if err := svc.Setup(cfg.ToStatusConfig()); err != nil {
		log.Printf("bootstrap: git status setup: %v", err)
	}
	return svc
}

// cliNotify prints service notifications on stderr.
func cliNotify(stderr io.Writer) gitstatus.NotifyFn {
	return func(message, severity string) {
		if severity == "error" {
			fmt.Fprintf(stderr, "Error: %s\n", message)
			return
		}
		fmt.Fprintf(stderr, "%s\n", message)
	}
}

// targetDir returns the directory argument or the working directory.
func targetDir(cmd *urfavecli.Command) (string, error) {
	if dir := cmd.Args().First(); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", expanded)
		}
		return expanded, nil
	}
	return os.Getwd()
}
