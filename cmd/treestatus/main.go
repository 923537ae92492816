// Package main is the entry point for the treestatus application.
package main

import (
	"context"
	"os"

	"github.com/chmouel/treestatus/internal/bootstrap"
	"github.com/chmouel/treestatus/internal/buildinfo"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	buildinfo.Set(buildinfo.Info{Version: version, Commit: commit, Date: date, BuiltBy: builtBy})
	os.Exit(bootstrap.Run(context.Background(), os.Args))
}
