// Package config loads application configuration from YAML, git config and
// command line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/chmouel/treestatus/internal/theme"
	"gopkg.in/yaml.v3"
)

// GitStatusConfig is the git_status section.
type GitStatusConfig struct {
	Enabled        bool
	UpdateInterval time.Duration
	InitialDelay   time.Duration
	UntrackedFiles string // normal, all or no
	FetchTimeout   time.Duration
}

// AppConfig defines the global treestatus configuration options.
type AppConfig struct {
	GitStatus   GitStatusConfig
	DebugLog    string
	ShowIcons   bool   // Render Nerd Font icons next to file names (default: true)
	ShowHidden  bool   // List dot files (default: false)
	Theme       string // Theme name: see AvailableThemes in internal/theme
	MetricsAddr string // Listen address for the watch command's /metrics endpoint
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		GitStatus: GitStatusConfig{
			Enabled:        false,
			UpdateInterval: gitstatus.DefaultUpdateInterval,
			InitialDelay:   gitstatus.DefaultInitialDelay,
			UntrackedFiles: "normal",
		},
		ShowIcons: true,
	}
}

// ToStatusConfig converts the git_status section for gitstatus.Service.
func (c *AppConfig) ToStatusConfig() gitstatus.Config {
	return gitstatus.Config{
		Enabled:        c.GitStatus.Enabled,
		UpdateInterval: c.GitStatus.UpdateInterval,
		InitialDelay:   c.GitStatus.InitialDelay,
		UntrackedFiles: c.GitStatus.UntrackedFiles,
		FetchTimeout:   c.GitStatus.FetchTimeout,
	}
}

func coerceBool(value any, defaultVal bool) bool {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		text := strings.ToLower(strings.TrimSpace(v))
		switch text {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultVal
}

func coerceInt(value any, defaultVal int) int {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return defaultVal
	case int:
		return v
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return defaultVal
		}
		if i, err := strconv.Atoi(text); err == nil {
			return i
		}
	}
	return defaultVal
}

// coerceDuration accepts integer milliseconds or a Go duration string.
// Negative values fall back to the default.
func coerceDuration(value any, defaultVal time.Duration) time.Duration {
	if s, ok := value.(string); ok {
		text := strings.TrimSpace(s)
		if d, err := time.ParseDuration(text); err == nil {
			if d < 0 {
				return defaultVal
			}
			return d
		}
	}
	ms := coerceInt(value, -1)
	if ms < 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

func coerceString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		text := strings.TrimSpace(v)
		return text, text != ""
	case int, bool:
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func parseGitStatus(data map[string]any, cfg *GitStatusConfig) {
	cfg.Enabled = coerceBool(data["enabled"], cfg.Enabled)
	cfg.UpdateInterval = coerceDuration(data["update_interval"], cfg.UpdateInterval)
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = gitstatus.DefaultUpdateInterval
	}
	cfg.InitialDelay = coerceDuration(data["initial_delay"], cfg.InitialDelay)
	cfg.FetchTimeout = coerceDuration(data["fetch_timeout"], cfg.FetchTimeout)

	if mode, ok := coerceString(data["untracked_files"]); ok {
		mode = strings.ToLower(mode)
		switch mode {
		case "normal", "all", "no":
			cfg.UntrackedFiles = mode
		}
	}
}

// applyConfig overlays data onto cfg. Keys absent from data keep their
// current value so YAML, git config and CLI layers can stack.
func applyConfig(cfg *AppConfig, data map[string]any) {
	if section, ok := data["git_status"].(map[string]any); ok {
		parseGitStatus(section, &cfg.GitStatus)
	}

	if debugLog, ok := coerceString(data["debug_log"]); ok {
		cfg.DebugLog = debugLog
	}
	if addr, ok := coerceString(data["metrics_addr"]); ok {
		cfg.MetricsAddr = addr
	}

	cfg.ShowIcons = coerceBool(data["show_icons"], cfg.ShowIcons)
	cfg.ShowHidden = coerceBool(data["show_hidden"], cfg.ShowHidden)

	if themeName, ok := data["theme"].(string); ok {
		if normalized := NormalizeThemeName(themeName); normalized != "" {
			cfg.Theme = normalized
		}
	}
}

func parseConfig(data map[string]any) *AppConfig {
	cfg := DefaultConfig()
	applyConfig(cfg, data)
	return cfg
}

func getConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// LoadConfig reads the application configuration from a YAML file, then
// layers global git config (ts.* keys) on top. A missing file yields the
// defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	configBase := filepath.Join(getConfigDir(), "treestatus")
	configBase = filepath.Clean(configBase)

	var paths []string

	if configPath != "" {
		expanded, err := ExpandPath(configPath)
		if err != nil {
			return DefaultConfig(), err
		}
		absPath, err := filepath.Abs(expanded)
		if err != nil {
			return DefaultConfig(), err
		}
		if !isPathWithin(configBase, absPath) {
			return DefaultConfig(), fmt.Errorf("config path must reside inside %s", configBase)
		}
		paths = []string{absPath}
	} else {
		paths = []string{
			filepath.Join(configBase, "config.yaml"),
			filepath.Join(configBase, "config.yml"),
		}
	}

	cfg := DefaultConfig()

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		// #nosec G304 -- path is constrained to the config directory after validation
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var yamlData map[string]any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
		}

		applyConfig(cfg, yamlData)
		break
	}

	if gitData, err := loadGitConfig(true, ""); err == nil {
		applyConfig(cfg, gitData)
	}

	if cfg.Theme == "" {
		detected, err := theme.DetectBackground(500 * time.Millisecond)
		if err == nil {
			cfg.Theme = detected
		} else {
			cfg.Theme = theme.DefaultDark()
		}
	}

	return cfg, nil
}

// ApplyCLIOverrides applies --config=ts.key=value overrides on top of cfg.
func ApplyCLIOverrides(cfg *AppConfig, overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}
	data, err := parseCLIConfigOverrides(overrides)
	if err != nil {
		return err
	}
	applyConfig(cfg, data)
	return nil
}

// ExpandPath expands a leading ~ and environment variables in path.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}

func isPathWithin(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return true
}

// NormalizeThemeName returns the canonical theme name if it is supported.
func NormalizeThemeName(name string) string {
	return theme.Normalize(strings.ToLower(strings.TrimSpace(name)))
}
