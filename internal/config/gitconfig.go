package config

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/chmouel/treestatus/internal/gitstatus"
)

// keyPrefix namespaces treestatus keys in git config and CLI overrides.
const keyPrefix = "ts."

// gitConfigMock allows tests to mock git config output.
var gitConfigMock func(args []string, repoPath string) (string, error)

// runGitConfig executes git config command and returns raw output.
func runGitConfig(args []string, repoPath string) (string, error) {
	if gitConfigMock != nil {
		return gitConfigMock(args, repoPath)
	}

	cmd := exec.Command("git", args...)
	if repoPath != "" {
		cmd.Dir = repoPath
	}

	output, err := cmd.Output()
	if err != nil {
		// git config returns exit code 1 when key not found (not an error)
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return string(output), nil
}

// setNested stores value under a dotted key, creating intermediate sections:
// "git_status.enabled" lands in data["git_status"]["enabled"]. A later value
// for the same key replaces the earlier one.
func setNested(data map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("empty config key segment in %q", key)
		}
		if i == len(parts)-1 {
			data[part] = value
			return nil
		}
		next, ok := data[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			data[part] = next
		}
		data = next
	}
	return nil
}

// parseGitConfigOutput parses git config output into the nested map
// applyConfig expects.
// Input format: "ts.git_status.enabled true\nts.theme nord\n"
func parseGitConfigOutput(output string) map[string]any {
	result := make(map[string]any)
	if output == "" {
		return result
	}

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// values may contain spaces
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimPrefix(parts[0], keyPrefix)
		if err := setNested(result, key, parts[1]); err != nil {
			continue
		}
	}

	return result
}

// loadGitConfig reads ts.* values from git config.
func loadGitConfig(globalOnly bool, repoPath string) (map[string]any, error) {
	args := []string{"config", "--get-regexp", "^ts\\."}

	if globalOnly {
		args = append(args, "--global")
	} else {
		args = append(args, "--local")
	}

	output, err := runGitConfig(args, repoPath)
	if err != nil {
		return nil, err
	}

	return parseGitConfigOutput(output), nil
}

// ApplyRepoConfig overlays the ts.* keys from the local git config of the
// repository containing dir. Directories outside a repository are ignored.
func ApplyRepoConfig(cfg *AppConfig, dir string) error {
	root, ok := gitstatus.ResolveRoot(dir)
	if !ok {
		return nil
	}
	data, err := loadGitConfig(false, root)
	if err != nil {
		return fmt.Errorf("reading git config in %s: %w", root, err)
	}
	applyConfig(cfg, data)
	return nil
}

// parseCLIConfigOverrides parses --config=ts.key=value format.
// Returns a map suitable for applyConfig().
func parseCLIConfigOverrides(overrides []string) (map[string]any, error) {
	result := make(map[string]any)

	for _, override := range overrides {
		// Parse "ts.key=value" format
		parts := strings.SplitN(override, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config override: %q, expected format: ts.key=value (note: use = not space)", override)
		}

		fullKey := parts[0]
		value := parts[1]

		if !strings.HasPrefix(fullKey, keyPrefix) {
			return nil, fmt.Errorf("config override key must start with 'ts.': %q", fullKey)
		}

		key := strings.TrimPrefix(fullKey, keyPrefix)
		if key == "" {
			return nil, fmt.Errorf("empty config key in override: %q", override)
		}

		if err := setNested(result, key, value); err != nil {
			return nil, err
		}
	}

	return result, nil
}
