package browser

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/chmouel/treestatus/internal/config"
	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu     sync.Mutex
	output map[string]string
	calls  int
}

func (r *stubRunner) Run(_ context.Context, dir string, _ []string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return []byte(r.output[dir]), nil
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// makeTree builds a fake repository with a few files and a nested dir.
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{".git", "src", "docs"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0o750))
	}
	for _, file := range []string{"README.md", ".env", "src/main.go", "src/util.go", "docs/guide.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, file), []byte("x"), 0o600))
	}
	return root
}

func newTestModel(t *testing.T, root, porcelain string) (*Model, *gitstatus.Service, *stubRunner) {
	t.Helper()
	runner := &stubRunner{output: map[string]string{root: porcelain}}
	svc := gitstatus.NewService(gitstatus.Options{Runner: runner})
	t.Cleanup(svc.Shutdown)
	require.NoError(t, svc.Setup(gitstatus.Config{
		Enabled:        true,
		UpdateInterval: time.Hour,
		InitialDelay:   time.Hour,
	}))

	cfg := config.DefaultConfig()
	cfg.Theme = "dracula"
	cfg.ShowIcons = false
	return New(cfg, svc, nil, root), svc, runner
}

// settle waits for the background fetch and feeds the dispatcher signal to
// the model the way the program loop would.
func settle(t *testing.T, m *Model, svc *gitstatus.Service, root string) {
	t.Helper()
	require.Eventually(t, func() bool {
		state, ok := svc.RootState(root)
		return ok && state.Phase != gitstatus.PhasePending && svc.Dispatcher().Pending() > 0
	}, 2*time.Second, 5*time.Millisecond)
	m.Update(dispatchReadyMsg{})
}

func rowCode(m *Model, name string) (string, bool) {
	for _, r := range m.rows {
		if r.entry.Name == name {
			return r.code, true
		}
	}
	return "", false
}

func TestListDir(t *testing.T) {
	root := makeTree(t)

	entries, err := ListDir(root, false)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"docs", "src", "README.md"}, names, "directories first, dot files hidden")

	entries, err = ListDir(root, true)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	_, err = ListDir(filepath.Join(root, "missing"), false)
	assert.Error(t, err)
}

func TestFilterEntries(t *testing.T) {
	entries := []Entry{{Name: "main.go"}, {Name: "Makefile"}, {Name: "util.go"}}
	assert.Len(t, filterEntries(entries, ""), 3)
	assert.Equal(t, []Entry{{Name: "main.go"}, {Name: "Makefile"}}, filterEntries(entries, "ma"))
	assert.Empty(t, filterEntries(entries, "zzz"))
}

func TestModelFillsStatusAfterFetch(t *testing.T) {
	root := makeTree(t)
	m, svc, runner := newTestModel(t, root, " M src/main.go\n?? README.md\n")

	code, ok := rowCode(m, "README.md")
	require.True(t, ok)
	assert.Empty(t, code, "first render happens before the fetch completes")

	settle(t, m, svc, root)

	code, _ = rowCode(m, "README.md")
	assert.Equal(t, "??", code)
	code, _ = rowCode(m, "src")
	assert.Equal(t, " M", code, "directories aggregate their descendants")
	code, _ = rowCode(m, "docs")
	assert.Empty(t, code)
	assert.Equal(t, 1, runner.callCount())

	view := m.View()
	assert.Contains(t, view, "2 changed")
	assert.Contains(t, view, "README.md")
}

func TestModelNavigation(t *testing.T) {
	root := makeTree(t)
	m, svc, _ := newTestModel(t, root, "A  src/util.go\n")
	settle(t, m, svc, root)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	e, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "src", e.Name)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, filepath.Join(root, "src"), m.Dir())
	code, ok := rowCode(m, "util.go")
	require.True(t, ok)
	assert.Equal(t, "A ", code)
	assert.Equal(t, gitstatus.CategoryAdded, m.rows[1].category)

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, root, m.Dir())
	e, _ = m.selected()
	assert.Equal(t, "src", e.Name, "cursor returns to the directory we came from")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	e, _ = m.selected()
	assert.Equal(t, "README.md", e.Name)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, root, m.Dir(), "enter on a file does nothing")
}

func TestModelToggleHidden(t *testing.T) {
	root := makeTree(t)
	m, _, _ := newTestModel(t, root, "")
	_, ok := rowCode(m, ".env")
	assert.False(t, ok)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(".")})
	_, ok = rowCode(m, ".env")
	assert.True(t, ok)
}

func TestModelRefreshAndClear(t *testing.T) {
	root := makeTree(t)
	m, svc, runner := newTestModel(t, root, "M  README.md\n")
	settle(t, m, svc, root)
	require.Equal(t, 1, runner.callCount())

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.Eventually(t, func() bool { return runner.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "refreshing...", m.notice)

	settle(t, m, svc, root)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	code, _ := rowCode(m, "README.md")
	assert.Empty(t, code, "cleared cache answers nothing until refetched")
	settle(t, m, svc, root)
	code, _ = rowCode(m, "README.md")
	assert.Equal(t, "M ", code)
}

func TestModelDisabledService(t *testing.T) {
	root := makeTree(t)
	svc := gitstatus.NewService(gitstatus.Options{Runner: &stubRunner{}})
	cfg := config.DefaultConfig()
	cfg.Theme = "nord"
	m := New(cfg, svc, nil, root)

	assert.Contains(t, m.View(), "git status off")
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, "git status is disabled", m.notice)
}

func TestModelFilter(t *testing.T) {
	root := makeTree(t)
	m, _, _ := newTestModel(t, root, "")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, m.filtering)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("rea")})
	require.Len(t, m.rows, 1)
	assert.Equal(t, "README.md", m.rows[0].entry.Name)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filtering)
	assert.Len(t, m.rows, 1)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.rows, 3)
}

func TestModelFailedRootShowsWarning(t *testing.T) {
	root := makeTree(t)
	runner := failingRunner{}
	svc := gitstatus.NewService(gitstatus.Options{Runner: runner})
	t.Cleanup(svc.Shutdown)
	require.NoError(t, svc.Setup(gitstatus.Config{Enabled: true, UpdateInterval: time.Hour, InitialDelay: time.Hour}))
	cfg := config.DefaultConfig()
	cfg.Theme = "dracula"
	m := New(cfg, svc, nil, root)
	m.Update(tea.WindowSizeMsg{Width: 400, Height: 30})

	settle(t, m, svc, root)
	assert.Contains(t, m.View(), "git status failed: fatal: bad index")
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, string, []string) ([]byte, error) {
	return nil, errors.New("fatal: bad index")
}

func TestProgramHelpAndQuit(t *testing.T) {
	root := makeTree(t)
	m, _, _ := newTestModel(t, root, "D  docs/guide.md\n")

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))

	teatest.WaitFor(
		t, tm.Output(),
		func(bts []byte) bool {
			return bytes.Contains(bts, []byte("1 changed"))
		},
		teatest.WithCheckInterval(20*time.Millisecond),
		teatest.WithDuration(3*time.Second),
	)

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	teatest.WaitFor(
		t, tm.Output(),
		func(bts []byte) bool {
			return bytes.Contains(bts, []byte("Help"))
		},
		teatest.WithCheckInterval(20*time.Millisecond),
		teatest.WithDuration(2*time.Second),
	)

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	fm, ok := tm.FinalModel(t).(*Model)
	require.True(t, ok)
	code, _ := rowCode(fm, "docs")
	assert.Equal(t, "D ", code)
}
