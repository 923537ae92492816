// Package completion holds the data behind treestatus shell completion.
package completion

import (
	"strings"

	"github.com/chmouel/treestatus/internal/theme"
)

// FlagInfo contains metadata about a command-line flag for completion generation.
type FlagInfo struct {
	Name        string   // Flag name without dashes
	Description string   // Human-readable description
	HasValue    bool     // true for string flags, false for bool flags
	ValueHint   string   // Hint for value type (e.g., "DIR", "PATH", "NAME")
	Values      []string // Enumerated values for completion (e.g., theme names)
}

// GetFlags returns metadata for the global treestatus flags.
func GetFlags() []FlagInfo {
	return []FlagInfo{
		{
			Name:        "config-file",
			Description: "Path to configuration file",
			HasValue:    true,
			ValueHint:   "FILE",
		},
		{
			Name:        "config",
			Description: "Override config values",
			HasValue:    true,
			ValueHint:   "KEY=VALUE",
			Values:      ConfigKeys(""),
		},
		{
			Name:        "debug-log",
			Description: "Path to debug log file",
			HasValue:    true,
			ValueHint:   "PATH",
		},
		{
			Name:        "theme",
			Description: "Override UI theme",
			HasValue:    true,
			ValueHint:   "NAME",
			Values:      theme.AvailableThemes(),
		},
		{
			Name:        "git-status",
			Description: "Enable git status tracking",
		},
		{
			Name:        "interval",
			Description: "Periodic refresh interval",
			HasValue:    true,
			ValueHint:   "DURATION",
		},
	}
}

var configKeys = []string{
	"theme", "show_icons", "show_hidden", "debug_log", "metrics_addr",
	"git_status.enabled", "git_status.update_interval", "git_status.initial_delay",
	"git_status.untracked_files", "git_status.fetch_timeout",
}

// ConfigKeys returns "ts.key=" suggestions whose key starts with prefix.
func ConfigKeys(prefix string) []string {
	prefix = strings.TrimPrefix(prefix, "ts.")
	var matches []string
	for _, key := range configKeys {
		if strings.HasPrefix(key, prefix) {
			matches = append(matches, "ts."+key+"=")
		}
	}
	return matches
}

// ConfigValues returns value suggestions for a config key, without the
// "ts." prefix.
func ConfigValues(key string) []string {
	switch key {
	case "theme":
		return theme.AvailableThemes()
	case "git_status.untracked_files":
		return []string{"normal", "all", "no"}
	case "show_icons", "show_hidden", "git_status.enabled":
		return []string{"true", "false"}
	default:
		return nil
	}
}

// Suggest returns completions for the word being typed after previous,
// which is the preceding argument on the command line.
func Suggest(previous, current string) []string {
	name := strings.TrimLeft(previous, "-")
	if strings.HasPrefix(previous, "-") {
		for _, flag := range GetFlags() {
			if flag.Name != name && !(name == "t" && flag.Name == "theme") && !(name == "C" && flag.Name == "config") {
				continue
			}
			if !flag.HasValue {
				break
			}
			if flag.Name == "config" {
				return suggestOverride(current)
			}
			return filterPrefix(flag.Values, current)
		}
	}
	if strings.HasPrefix(current, "-") {
		var out []string
		for _, flag := range GetFlags() {
			if strings.HasPrefix("--"+flag.Name, current) {
				out = append(out, "--"+flag.Name)
			}
		}
		return out
	}
	return nil
}

func suggestOverride(current string) []string {
	key, value, found := strings.Cut(current, "=")
	if !found {
		return ConfigKeys(key)
	}
	var out []string
	for _, v := range ConfigValues(strings.TrimPrefix(key, "ts.")) {
		if strings.HasPrefix(v, value) {
			out = append(out, key+"="+v)
		}
	}
	return out
}

func filterPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
