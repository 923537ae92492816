package theme

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetThemeFallsBackToDracula(t *testing.T) {
	th := GetTheme("does-not-exist")
	assert.Equal(t, DraculaName, th.Name)
	assert.Equal(t, GetTheme(DraculaName).Accent, th.Accent)
}

func TestEveryThemeHasStatusColors(t *testing.T) {
	for _, name := range AvailableThemes() {
		t.Run(name, func(t *testing.T) {
			th := GetTheme(name)
			assert.Equal(t, name, th.Name)
			for _, c := range []string{
				string(th.Added), string(th.Modified), string(th.Deleted),
				string(th.Renamed), string(th.Copied), string(th.Untracked),
			} {
				assert.Regexp(t, `^#[0-9A-Fa-f]{6}$`, c)
			}
			assert.NotEqual(t, th.Added, th.Deleted)
		})
	}
}

func TestLightThemes(t *testing.T) {
	assert.True(t, GetTheme(DraculaLightName).IsLight())
	assert.True(t, GetTheme(GruvboxLightName).IsLight())
	assert.False(t, GetTheme(NordName).IsLight())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, NordName, Normalize(NordName))
	assert.Empty(t, Normalize("Nord"))
	assert.Empty(t, Normalize(""))
}

func TestAvailableThemesSorted(t *testing.T) {
	names := AvailableThemes()
	require.Len(t, names, len(palettes))
	assert.IsNonDecreasing(t, names)
}

func TestDetectBackground(t *testing.T) {
	orig := hasDarkBackground
	t.Cleanup(func() { hasDarkBackground = orig })

	hasDarkBackground = func() bool { return false }
	name, err := DetectBackground(time.Second)
	require.NoError(t, err)
	assert.Equal(t, DefaultLight(), name)

	hasDarkBackground = func() bool { return true }
	name, err = DetectBackground(time.Second)
	require.NoError(t, err)
	assert.Equal(t, DefaultDark(), name)

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	hasDarkBackground = func() bool { <-block; return true }
	_, err = DetectBackground(10 * time.Millisecond)
	assert.Error(t, err)
}
