package gitstatus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner returns canned git output per directory. When gate is set,
// every run waits for a value on it before returning.
type fakeRunner struct {
	mu     sync.Mutex
	output map[string]string
	errs   map[string]error
	calls  []string
	args   [][]string
	gate   chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		output: make(map[string]string),
		errs:   make(map[string]error),
	}
}

func (r *fakeRunner) Run(ctx context.Context, dir string, args []string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, dir)
	r.args = append(r.args, args)
	gate := r.gate
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[dir]; err != nil {
		return nil, err
	}
	return []byte(r.output[dir]), nil
}

func (r *fakeRunner) set(dir, out string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output[dir] = out
}

func (r *fakeRunner) fail(dir string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[dir] = err
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func waitFetch(t *testing.T, f *Fetch) {
	t.Helper()
	require.NotNil(t, f)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-f.Done():
	case <-ctx.Done():
		t.Fatal("fetch did not complete")
	}
}

func TestFetcherSuccess(t *testing.T) {
	runner := newFakeRunner()
	runner.set("/repo", "M  foo.txt\n?? bar.txt\n")
	cache := NewCache()
	d := NewDispatcher()
	f := NewFetcher(runner, cache, d, nil, nil)

	called := 0
	handle := f.Fetch(context.Background(), "/repo", func() { called++ })
	waitFetch(t, handle)

	require.NoError(t, handle.Err())
	assert.Equal(t, 2, handle.Entries())
	assert.False(t, handle.Stale())

	code, ok := cache.Get("/repo", "foo.txt")
	require.True(t, ok)
	assert.Equal(t, "M ", code)

	assert.Equal(t, 0, called, "completion must wait for the main loop")
	assert.Equal(t, 1, d.Drain())
	assert.Equal(t, 1, called)
	assert.False(t, f.InFlight("/repo"))
}

func TestFetcherFailureStoresEmptyMap(t *testing.T) {
	runner := newFakeRunner()
	runner.fail("/repo", errors.New("git exited 128: not a git repository"))
	cache := NewCache()
	cache.Set("/repo", map[string]string{"old.txt": "M "})
	d := NewDispatcher()
	f := NewFetcher(runner, cache, d, nil, nil)

	called := 0
	handle := f.Fetch(context.Background(), "/repo", func() { called++ })
	waitFetch(t, handle)

	assert.Error(t, handle.Err())
	assert.True(t, cache.HasRoot("/repo"))
	_, ok := cache.Get("/repo", "old.txt")
	assert.False(t, ok)

	state, _ := cache.State("/repo")
	assert.Equal(t, PhaseFailed, state.Phase)

	d.Drain()
	assert.Equal(t, 1, called)
}

func TestFetcherCoalescesOverlappingRequests(t *testing.T) {
	runner := newFakeRunner()
	runner.gate = make(chan struct{})
	runner.set("/repo", " M a.go\n")
	cache := NewCache()
	d := NewDispatcher()
	f := NewFetcher(runner, cache, d, nil, nil)

	var calls []string
	first := f.Fetch(context.Background(), "/repo", func() { calls = append(calls, "first") })
	require.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, 5*time.Millisecond)

	second := f.Fetch(context.Background(), "/repo", func() { calls = append(calls, "second") })
	third := f.Fetch(context.Background(), "/repo", func() { calls = append(calls, "third") })
	assert.NotSame(t, first, second)
	assert.Same(t, second, third)
	assert.True(t, f.InFlight("/repo"))

	runner.gate <- struct{}{}
	waitFetch(t, first)
	runner.gate <- struct{}{}
	waitFetch(t, second)

	assert.Equal(t, 2, runner.callCount(), "queued requests share one follow-up run")
	assert.Equal(t, 3, d.Drain())
	assert.Equal(t, []string{"first", "second", "third"}, calls)
	require.Eventually(t, func() bool { return !f.InFlight("/repo") }, time.Second, 5*time.Millisecond)
}

func TestFetcherDiscardsResultAfterClear(t *testing.T) {
	runner := newFakeRunner()
	runner.gate = make(chan struct{})
	runner.set("/repo", "M  a.go\n")
	cache := NewCache()
	d := NewDispatcher()
	f := NewFetcher(runner, cache, d, nil, nil)

	called := false
	handle := f.Fetch(context.Background(), "/repo", func() { called = true })
	require.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, 5*time.Millisecond)

	cache.ClearAll()
	runner.gate <- struct{}{}
	waitFetch(t, handle)

	assert.True(t, handle.Stale())
	assert.False(t, cache.HasRoot("/repo"))
	d.Drain()
	assert.True(t, called, "completion still runs for discarded results")
}

func TestFetcherKeepsResultAfterUnrelatedClearRoot(t *testing.T) {
	runner := newFakeRunner()
	runner.gate = make(chan struct{})
	runner.set("/a", "?? x\n")
	cache := NewCache()
	cache.Register("/a")
	f := NewFetcher(runner, cache, NewDispatcher(), nil, nil)

	handle := f.Fetch(context.Background(), "/a", nil)
	require.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, 5*time.Millisecond)

	cache.ClearRoot("/b")
	runner.gate <- struct{}{}
	waitFetch(t, handle)

	assert.False(t, handle.Stale())
	state, ok := cache.State("/a")
	require.True(t, ok)
	assert.Equal(t, PhaseReady, state.Phase)
	code, ok := cache.Get("/a", "x")
	require.True(t, ok)
	assert.Equal(t, "??", code)
}

func TestFetcherDiscardsResultClearedBeforeRunStarts(t *testing.T) {
	runner := newFakeRunner()
	runner.gate = make(chan struct{})
	runner.set("/repo", "M  a.go\n")
	cache := NewCache()
	f := NewFetcher(runner, cache, NewDispatcher(), nil, nil)

	handle := f.Fetch(context.Background(), "/repo", nil)
	cache.ClearAll()
	runner.gate <- struct{}{}
	waitFetch(t, handle)

	assert.True(t, handle.Stale())
	assert.False(t, cache.HasRoot("/repo"))
}

func TestFetcherFollowUpJoinedAfterClearIsStored(t *testing.T) {
	runner := newFakeRunner()
	runner.gate = make(chan struct{})
	runner.set("/repo", "M  a.go\n")
	cache := NewCache()
	f := NewFetcher(runner, cache, NewDispatcher(), nil, nil)

	first := f.Fetch(context.Background(), "/repo", nil)
	require.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, 5*time.Millisecond)
	f.Fetch(context.Background(), "/repo", nil)

	cache.ClearRoot("/repo")
	follow := f.Fetch(context.Background(), "/repo", nil)

	runner.gate <- struct{}{}
	waitFetch(t, first)
	runner.gate <- struct{}{}
	waitFetch(t, follow)

	assert.True(t, first.Stale())
	assert.False(t, follow.Stale())
	code, ok := cache.Get("/repo", "a.go")
	require.True(t, ok)
	assert.Equal(t, "M ", code)
}

func TestFetcherPassesOptions(t *testing.T) {
	runner := newFakeRunner()
	f := NewFetcher(runner, NewCache(), nil, nil, nil)
	f.SetOptions(FetchOptions{UntrackedFiles: "all"})

	waitFetch(t, f.Fetch(context.Background(), "/repo", nil))

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.args, 1)
	assert.Equal(t, []string{"-c", "core.quotePath=false", "status", "--porcelain", "--untracked-files=all"}, runner.args[0])
}

func TestFetcherTimeout(t *testing.T) {
	runner := newFakeRunner()
	runner.gate = make(chan struct{})
	cache := NewCache()
	f := NewFetcher(runner, cache, nil, nil, nil)
	f.SetOptions(FetchOptions{Timeout: 20 * time.Millisecond})

	handle := f.Fetch(context.Background(), "/repo", nil)
	waitFetch(t, handle)

	assert.ErrorIs(t, handle.Err(), context.DeadlineExceeded)
	state, ok := cache.State("/repo")
	require.True(t, ok)
	assert.Equal(t, PhaseFailed, state.Phase)
}

func TestStatusArgs(t *testing.T) {
	base := []string{"-c", "core.quotePath=false", "status", "--porcelain"}
	assert.Equal(t, base, statusArgs(""))
	assert.Equal(t, base, statusArgs("bogus"))
	assert.Equal(t, append(base, "--untracked-files=no"), statusArgs("no"))
}

func TestFetchWaitHonoursContext(t *testing.T) {
	handle := newFetch("/repo", generation{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, handle.Wait(ctx), context.Canceled)
}
