package gitstatus

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chmouel/treestatus/internal/metrics"
)

// Runner executes git in a repository root and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args []string) ([]byte, error)
}

// ExecRunner runs the git binary found in PATH.
type ExecRunner struct{}

// Run executes git with args in dir. A non-zero exit is returned as an error
// carrying the trimmed stderr.
func (ExecRunner) Run(ctx context.Context, dir string, args []string) ([]byte, error) {
	// #nosec G204 -- arguments are built by statusArgs, never from user input
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if stderr != "" {
				return nil, fmt.Errorf("git exited %d: %s", exitErr.ExitCode(), stderr)
			}
			return nil, fmt.Errorf("git exited %d", exitErr.ExitCode())
		}
		return nil, fmt.Errorf("git: %w", err)
	}
	return out, nil
}

// Fetch is the handle for one status run of a root. It is shared by every
// request folded into that run.
type Fetch struct {
	Root string

	gen     generation
	done    chan struct{}
	err     error
	entries int
	stale   bool
}

func newFetch(root string, gen generation) *Fetch {
	return &Fetch{Root: root, gen: gen, done: make(chan struct{})}
}

// Done is closed once the run finished and the cache was updated.
func (f *Fetch) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the run finished or ctx is done.
func (f *Fetch) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the run's error. Only meaningful after Done.
func (f *Fetch) Err() error {
	return f.err
}

// Entries returns how many paths the run reported.
func (f *Fetch) Entries() int {
	return f.entries
}

// Stale reports whether the result was discarded because the cache was
// cleared while git was running.
func (f *Fetch) Stale() bool {
	return f.stale
}

// flight tracks the running fetch of one root and the follow-up run queued
// behind it.
type flight struct {
	current   *Fetch
	callbacks []func()
	next      *Fetch
	queued    []func()
}

// FetchOptions tune the git invocation.
type FetchOptions struct {
	UntrackedFiles string
	Timeout        time.Duration
}

// Fetcher runs git status for repository roots and writes the results into
// a Cache. At most one git process runs per root; requests arriving while
// one runs are folded into a single follow-up run.
type Fetcher struct {
	runner   Runner
	cache    *Cache
	dispatch *Dispatcher
	recorder metrics.Recorder
	debugf   func(string, ...any)

	mu       sync.Mutex
	opts     FetchOptions
	inflight map[string]*flight
}

// NewFetcher creates a Fetcher writing into cache and posting completions
// through dispatch.
func NewFetcher(runner Runner, cache *Cache, dispatch *Dispatcher, recorder metrics.Recorder, debugf func(string, ...any)) *Fetcher {
	if runner == nil {
		runner = ExecRunner{}
	}
	if dispatch == nil {
		dispatch = NewDispatcher()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	return &Fetcher{
		runner:   runner,
		cache:    cache,
		dispatch: dispatch,
		recorder: recorder,
		debugf:   debugf,
		inflight: make(map[string]*flight),
	}
}

// SetOptions changes the git invocation for runs started afterwards.
func (f *Fetcher) SetOptions(opts FetchOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = opts
}

// Fetch queues a status run for root and returns immediately. onDone, when
// not nil, is posted to the dispatcher exactly once after the run covering
// this request has updated the cache.
func (f *Fetcher) Fetch(ctx context.Context, root string, onDone func()) *Fetch {
	f.mu.Lock()
	gen := f.cache.generation(root)
	fl, running := f.inflight[root]
	if running {
		if fl.next == nil {
			fl.next = newFetch(root, gen)
		} else {
			f.recorder.IncCoalesced()
			// the queued run also answers this newer request
			fl.next.gen = gen
		}
		if onDone != nil {
			fl.queued = append(fl.queued, onDone)
		}
		handle := fl.next
		f.mu.Unlock()
		f.debugf("gitstatus: fetch for %s queued behind running one", root)
		return handle
	}

	fl = &flight{current: newFetch(root, gen)}
	if onDone != nil {
		fl.callbacks = append(fl.callbacks, onDone)
	}
	f.inflight[root] = fl
	opts := f.opts
	handle := fl.current
	f.mu.Unlock()

	go f.run(ctx, handle, opts)
	return handle
}

// InFlight reports whether a git process is running for root.
func (f *Fetcher) InFlight(root string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inflight[root]
	return ok
}

func (f *Fetcher) run(ctx context.Context, handle *Fetch, opts FetchOptions) {
	for handle != nil {
		handle, opts = f.runOnce(ctx, handle, opts)
	}
}

// runOnce executes one git run and returns the follow-up run to start, if
// requests were queued meanwhile.
func (f *Fetcher) runOnce(ctx context.Context, handle *Fetch, opts FetchOptions) (*Fetch, FetchOptions) {
	root := handle.Root

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := statusArgs(opts.UntrackedFiles)
	f.debugf("gitstatus: run: git %s (cwd=%s)", strings.Join(args, " "), root)
	start := time.Now()
	out, err := f.runner.Run(runCtx, root, args)
	elapsed := time.Since(start)

	var statuses map[string]string
	if err != nil {
		f.debugf("gitstatus: error: %s: %v", root, err)
		statuses = map[string]string{}
	} else {
		statuses = ParseStatus(string(out))
	}

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	if !f.cache.storeIfCurrent(handle.gen, root, statuses, err) {
		f.debugf("gitstatus: discarding result for %s, cache was cleared", root)
		handle.stale = true
		outcome = metrics.OutcomeDiscarded
	}
	f.recorder.ObserveFetch(outcome, elapsed)
	f.recorder.SetCachedRoots(f.cache.Len())

	handle.err = err
	handle.entries = len(statuses)

	f.mu.Lock()
	fl := f.inflight[root]
	callbacks := fl.callbacks
	var follow *Fetch
	var followOpts FetchOptions
	if fl.next != nil {
		fl.current, fl.callbacks = fl.next, fl.queued
		fl.next, fl.queued = nil, nil
		follow = fl.current
		followOpts = f.opts
	} else {
		delete(f.inflight, root)
	}
	f.mu.Unlock()

	close(handle.done)
	for _, cb := range callbacks {
		f.dispatch.Post(cb)
	}
	return follow, followOpts
}

// statusArgs builds the git command line. core.quotePath=false keeps
// non-ASCII and space-containing names unquoted so they match the listing.
func statusArgs(untracked string) []string {
	args := []string{"-c", "core.quotePath=false", "status", "--porcelain"}
	switch untracked {
	case "all", "no", "normal":
		args = append(args, "--untracked-files="+untracked)
	}
	return args
}
