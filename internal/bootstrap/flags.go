// Package bootstrap wires configuration, logging and the git status service
// into the treestatus command line.
package bootstrap

import (
	urfavecli "github.com/urfave/cli/v3"
)

// globalFlags returns all global flags for the application.
// Note: --version is provided automatically by urfave/cli via Command.Version
func globalFlags() []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.StringFlag{
			Name:  "config-file",
			Usage: "Path to configuration file",
		},
		&urfavecli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"C"},
			Usage:   "Override config values (repeatable): --config=ts.key=value",
		},
		&urfavecli.StringFlag{
			Name:  "debug-log",
			Usage: "Path to debug log file",
		},
		&urfavecli.StringFlag{
			Name:    "theme",
			Aliases: []string{"t"},
			Usage:   "Override the UI theme",
		},
		&urfavecli.BoolFlag{
			Name:  "git-status",
			Usage: "Enable git status tracking regardless of configuration",
		},
		&urfavecli.DurationFlag{
			Name:  "interval",
			Usage: "Override the periodic git status refresh interval",
		},
	}
}

func statusFlags() []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Include dot files",
		},
		&urfavecli.BoolFlag{
			Name:  "json",
			Usage: "Print entries as JSON",
		},
		&urfavecli.BoolFlag{
			Name:  "changed",
			Usage: "Only print entries with a status",
		},
	}
}

func watchFlags() []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve Prometheus metrics on this address (overrides metrics_addr)",
		},
	}
}
