// Package buildinfo holds the build metadata of the treestatus binary. The
// linker injects values into cmd/treestatus; main forwards them with Set.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Info is the build metadata.
type Info struct {
	Version string
	Commit  string
	Date    string
	BuiltBy string
}

var current = Info{
	Version: "dev",
	Commit:  "none",
	Date:    "unknown",
	BuiltBy: "unknown",
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Set stores the linker-injected metadata and fills what is missing from
// the Go build info: the VCS revision for the commit and the toolchain for
// the builder.
func Set(info Info) {
	current = info
	if current.Commit != "none" && current.BuiltBy != "unknown" {
		return
	}

	bi, ok := readBuildInfo()
	if !ok {
		return
	}
	if current.Commit == "none" {
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" {
				current.Commit = setting.Value
			}
		}
	}
	if current.BuiltBy == "unknown" {
		current.BuiltBy = bi.GoVersion
	}
}

// Get returns the current metadata.
func Get() Info { return current }

// Summary is the string printed by --version.
func Summary() string {
	return fmt.Sprintf("%s (commit %s, built %s by %s)", current.Version, current.Commit, current.Date, current.BuiltBy)
}
