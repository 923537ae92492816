// Package theme provides the colour palettes used by the browser.
package theme

import (
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines all colors used in the browser UI. The status colors are
// the ones painted on file names for each change category.
type Theme struct {
	Name      string
	Accent    lipgloss.Color
	AccentFg  lipgloss.Color // Foreground color for text on Accent background
	AccentDim lipgloss.Color
	Border    lipgloss.Color
	MutedFg   lipgloss.Color
	TextFg    lipgloss.Color
	WarnFg    lipgloss.Color
	ErrorFg   lipgloss.Color

	Added     lipgloss.Color
	Modified  lipgloss.Color
	Deleted   lipgloss.Color
	Renamed   lipgloss.Color
	Copied    lipgloss.Color
	Untracked lipgloss.Color

	light bool
}

// Theme names.
const (
	DraculaName         = "dracula"
	DraculaLightName    = "dracula-light"
	NarnaName           = "narna"
	SolarizedDarkName   = "solarized-dark"
	SolarizedLightName  = "solarized-light"
	GruvboxDarkName     = "gruvbox-dark"
	GruvboxLightName    = "gruvbox-light"
	NordName            = "nord"
	CatppuccinMochaName = "catppuccin-mocha"
)

// palette lists accent, accentFg, accentDim, border, muted, text, success,
// warn, error, cyan, pink and yellow in that order.
type palette [12]string

var palettes = map[string]struct {
	colors palette
	light  bool
}{
	DraculaName: {colors: palette{
		"#BD93F9", "#282A36", "#44475A", "#6272A4", "#6272A4", "#F8F8F2",
		"#50FA7B", "#FFB86C", "#FF5555", "#8BE9FD", "#FF79C6", "#F1FA8C",
	}},
	DraculaLightName: {light: true, colors: palette{
		"#c6dbe5", "#24292F", "#F3E8FF", "#D0D7DE", "#6E7781", "#24292F",
		"#059669", "#D97706", "#DC2626", "#0891B2", "#DB2777", "#CA8A04",
	}},
	NarnaName: {colors: palette{
		"#41ADFF", "#0D1117", "#1A2230", "#30363D", "#8B949E", "#E6EDF3",
		"#3FB950", "#E3B341", "#F47067", "#7CE0F3", "#D2A8FF", "#F2CC60",
	}},
	SolarizedDarkName: {colors: palette{
		"#268BD2", "#FDF6E3", "#073642", "#586E75", "#586E75", "#EEE8D5",
		"#859900", "#B58900", "#DC322F", "#2AA198", "#D33682", "#B58900",
	}},
	SolarizedLightName: {light: true, colors: palette{
		"#268BD2", "#FDF6E3", "#EEE8D5", "#93A1A1", "#93A1A1", "#073642",
		"#859900", "#B58900", "#DC322F", "#2AA198", "#D33682", "#B58900",
	}},
	GruvboxDarkName: {colors: palette{
		"#FABD2F", "#282828", "#3C3836", "#504945", "#928374", "#EBDBB2",
		"#B8BB26", "#FABD2F", "#FB4934", "#83A598", "#D3869B", "#FABD2F",
	}},
	GruvboxLightName: {light: true, colors: palette{
		"#D79921", "#FBF1C7", "#E0CFA9", "#D5C4A1", "#7C6F64", "#3C3836",
		"#79740E", "#D79921", "#9D0006", "#427B58", "#B16286", "#D79921",
	}},
	NordName: {colors: palette{
		"#88C0D0", "#2E3440", "#3B4252", "#4C566A", "#81A1C1", "#E5E9F0",
		"#A3BE8C", "#EBCB8B", "#BF616A", "#88C0D0", "#B48EAD", "#EBCB8B",
	}},
	CatppuccinMochaName: {colors: palette{
		"#B4BEFE", "#1E1E2E", "#313244", "#45475A", "#6C7086", "#CDD6F4",
		"#A6E3A1", "#F9E2AF", "#F38BA8", "#89DCEB", "#F5C2E7", "#F9E2AF",
	}},
}

func build(name string) *Theme {
	p := palettes[name]
	c := func(i int) lipgloss.Color { return lipgloss.Color(p.colors[i]) }
	return &Theme{
		Name:      name,
		Accent:    c(0),
		AccentFg:  c(1),
		AccentDim: c(2),
		Border:    c(3),
		MutedFg:   c(4),
		TextFg:    c(5),
		WarnFg:    c(7),
		ErrorFg:   c(8),
		Added:     c(6),
		Modified:  c(7),
		Deleted:   c(8),
		Renamed:   c(9),
		Copied:    c(10),
		Untracked: c(11),
		light:     p.light,
	}
}

// GetTheme returns a theme by name, or Dracula if not found.
func GetTheme(name string) *Theme {
	if _, ok := palettes[name]; !ok {
		name = DraculaName
	}
	return build(name)
}

// IsLight reports whether the theme is meant for light backgrounds.
func (t *Theme) IsLight() bool {
	return t.light
}

// Normalize returns name if it is a known theme, otherwise "".
func Normalize(name string) string {
	if _, ok := palettes[name]; ok {
		return name
	}
	return ""
}

// DefaultDark returns the default dark theme name.
func DefaultDark() string {
	return DraculaName
}

// DefaultLight returns the default light theme name.
func DefaultLight() string {
	return DraculaLightName
}

// AvailableThemes returns the sorted list of theme names.
func AvailableThemes() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hasDarkBackground is swapped in tests.
var hasDarkBackground = lipgloss.HasDarkBackground

// errDetectTimeout is returned when the terminal does not answer in time.
type errDetectTimeout struct{}

func (errDetectTimeout) Error() string { return "terminal background detection timed out" }

// DetectBackground queries the terminal background and returns the default
// dark or light theme name. Terminals that never answer make it give up
// after timeout.
func DetectBackground(timeout time.Duration) (string, error) {
	detect := hasDarkBackground
	result := make(chan bool, 1)
	go func() { result <- detect() }()

	select {
	case dark := <-result:
		if dark {
			return DefaultDark(), nil
		}
		return DefaultLight(), nil
	case <-time.After(timeout):
		return "", errDetectTimeout{}
	}
}
