// Package gitstatus tracks per-file git status for directories shown in a
// file browser.
//
// A Service resolves paths to repository roots, caches the output of
// `git status --porcelain` per root and keeps it fresh through a periodic
// scheduler and explicit refreshes. Queries never block on git: an unknown
// root answers "no status" and triggers a background fetch whose completion
// is delivered through the Service's Dispatcher, which the host drains on its
// main loop.
package gitstatus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chmouel/treestatus/internal/metrics"
)

// Defaults used when a Config leaves a duration unset.
const (
	DefaultUpdateInterval = 3000 * time.Millisecond
	DefaultInitialDelay   = 1000 * time.Millisecond
)

// Errors returned by Sync.
var (
	ErrDisabled = errors.New("git status is disabled")
	ErrNoRoot   = errors.New("not inside a git repository")
)

// Config controls the Service.
type Config struct {
	Enabled        bool
	UpdateInterval time.Duration
	InitialDelay   time.Duration
	UntrackedFiles string        // normal, all or no; empty keeps git's default
	FetchTimeout   time.Duration // zero waits for git forever
}

// DefaultConfig returns a disabled Config with default timings.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		UpdateInterval: DefaultUpdateInterval,
		InitialDelay:   DefaultInitialDelay,
	}
}

// RefreshFunc asks the UI to redraw. refetch=false redraws from cached data;
// refetch=true also reloads what the view displays.
type RefreshFunc func(refetch bool)

// NotifyFn receives user-facing notifications.
type NotifyFn func(message string, severity string)

// Options wire a Service to its collaborators. Zero values are replaced by
// working defaults.
type Options struct {
	Runner     Runner
	Dispatcher *Dispatcher
	Recorder   metrics.Recorder
	OnRefresh  RefreshFunc
	Notify     NotifyFn
	Debugf     func(string, ...any)
	Getwd      func() (string, error)
}

// Service is the status cache and refresh subsystem. Build one per process
// and share it with the UI.
type Service struct {
	cache    *Cache
	fetcher  *Fetcher
	dispatch *Dispatcher
	recorder metrics.Recorder
	notify   NotifyFn
	debugf   func(string, ...any)
	getwd    func() (string, error)

	mu        sync.RWMutex
	cfg       Config
	scheduler *Scheduler
	onRefresh RefreshFunc
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewService creates a disabled Service. Call Setup to enable it.
func NewService(opts Options) *Service {
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewDispatcher()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Notify == nil {
		opts.Notify = func(string, string) {}
	}
	if opts.Debugf == nil {
		opts.Debugf = func(string, ...any) {}
	}
	if opts.Getwd == nil {
		opts.Getwd = os.Getwd
	}

	cache := NewCache()
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cache:     cache,
		fetcher:   NewFetcher(opts.Runner, cache, opts.Dispatcher, opts.Recorder, opts.Debugf),
		dispatch:  opts.Dispatcher,
		recorder:  opts.Recorder,
		notify:    opts.Notify,
		debugf:    opts.Debugf,
		getwd:     opts.Getwd,
		cfg:       DefaultConfig(),
		onRefresh: opts.OnRefresh,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Setup applies cfg. Any running scheduler is replaced. Disabling stops the
// scheduler and empties the cache before returning. A returned error means
// periodic refresh could not start; queries and manual refreshes still work.
func (s *Service) Setup(cfg Config) error {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}

	s.mu.Lock()
	old := s.scheduler
	s.scheduler = nil
	s.cfg = cfg
	s.mu.Unlock()

	if err := old.Stop(); err != nil {
		s.debugf("gitstatus: stopping scheduler: %v", err)
	}

	s.fetcher.SetOptions(FetchOptions{UntrackedFiles: cfg.UntrackedFiles, Timeout: cfg.FetchTimeout})

	if !cfg.Enabled {
		s.cache.ClearAll()
		s.recorder.SetCachedRoots(0)
		s.debugf("gitstatus: disabled")
		return nil
	}

	sched, err := NewScheduler(cfg.InitialDelay, cfg.UpdateInterval, func() {
		s.dispatch.Post(s.tick)
	})
	if err != nil {
		s.debugf("gitstatus: periodic refresh unavailable: %v", err)
		s.notify("Git status: periodic refresh unavailable: "+err.Error(), "warning")
		return err
	}

	s.mu.Lock()
	s.scheduler = sched
	s.mu.Unlock()
	s.debugf("gitstatus: enabled, refreshing every %s", cfg.UpdateInterval)
	return nil
}

// Shutdown stops the scheduler, empties the cache and kills running git
// processes. The Service can be enabled again with Setup.
func (s *Service) Shutdown() {
	cfg := s.Config()
	cfg.Enabled = false
	_ = s.Setup(cfg)

	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()
}

// SetRefreshFunc replaces the UI refresh sink.
func (s *Service) SetRefreshFunc(fn RefreshFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

// Config returns the active configuration.
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// IsEnabled reports whether status tracking is on.
func (s *Service) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Enabled
}

// Dispatcher returns the queue the host must drain on its main loop.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatch
}

// GetStatus returns the status code for path. The first query inside a
// repository registers it, starts a fetch and answers "no status"; callers
// query again when the refresh sink fires. Directories without an entry of
// their own report the status of their first changed descendant.
func (s *Service) GetStatus(path string, isDir bool) (string, bool) {
	if !s.IsEnabled() {
		return "", false
	}

	abs := s.absPath(path)
	root, ok := ResolveRoot(abs)
	if !ok {
		return "", false
	}

	if s.cache.Register(root) {
		s.recorder.SetCachedRoots(s.cache.Len())
		s.fetcher.Fetch(s.context(), root, s.refreshCallback(false))
		return "", false
	}

	rel := relativePath(root, abs)
	if code, ok := s.cache.Get(root, rel); ok {
		return code, true
	}
	if !isDir {
		return "", false
	}
	return s.cache.FirstUnder(root, rel)
}

// HighlightFor maps a status code to its highlight category.
func (s *Service) HighlightFor(code string) Category {
	return HighlightFor(code)
}

// Refresh fetches the repository containing the working directory. It
// returns nil when disabled or outside a repository.
func (s *Service) Refresh() *Fetch {
	wd, err := s.getwd()
	if err != nil {
		s.debugf("gitstatus: refresh: %v", err)
		return nil
	}
	return s.RefreshPath(wd)
}

// RefreshPath fetches the repository containing path unconditionally.
func (s *Service) RefreshPath(path string) *Fetch {
	if !s.IsEnabled() {
		return nil
	}
	root, ok := ResolveRoot(s.absPath(path))
	if !ok {
		return nil
	}
	if s.cache.Register(root) {
		s.recorder.SetCachedRoots(s.cache.Len())
	}
	return s.fetcher.Fetch(s.context(), root, s.refreshCallback(false))
}

// Sync refreshes the repository containing path and waits for the result.
// It is meant for one-shot callers that have no main loop: completion
// callbacks stay queued on the Dispatcher.
func (s *Service) Sync(ctx context.Context, path string) (string, RootState, error) {
	if !s.IsEnabled() {
		return "", RootState{}, ErrDisabled
	}
	abs := s.absPath(path)
	root, ok := ResolveRoot(abs)
	if !ok {
		return "", RootState{}, fmt.Errorf("%s: %w", abs, ErrNoRoot)
	}
	f := s.RefreshPath(root)
	if f == nil {
		return "", RootState{}, ErrDisabled
	}
	err := f.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return root, RootState{}, ctxErr
	}
	state, _ := s.cache.State(root)
	return root, state, err
}

// NotifySaved reacts to a file being written. Only repositories already in
// the cache are fetched.
func (s *Service) NotifySaved(path string) *Fetch {
	if !s.IsEnabled() {
		return nil
	}
	root, ok := ResolveRoot(s.absPath(path))
	if !ok || !s.cache.HasRoot(root) {
		return nil
	}
	s.debugf("gitstatus: %s saved, refreshing %s", path, root)
	return s.fetcher.Fetch(s.context(), root, s.refreshCallback(false))
}

// ClearCache forgets every repository. The scheduler keeps running and the
// next query starts over with a lazy fetch.
func (s *Service) ClearCache() {
	s.cache.ClearAll()
	s.recorder.SetCachedRoots(0)
}

// RootState returns what the last fetch of root produced.
func (s *Service) RootState(root string) (RootState, bool) {
	return s.cache.State(root)
}

// StateFor resolves path and returns its repository's state.
func (s *Service) StateFor(path string) (string, RootState, bool) {
	root, ok := ResolveRoot(s.absPath(path))
	if !ok {
		return "", RootState{}, false
	}
	state, ok := s.cache.State(root)
	return root, state, ok
}

// Roots returns the cached repository roots.
func (s *Service) Roots() []string {
	return s.cache.Roots()
}

// tick runs on the main loop for every scheduler firing.
func (s *Service) tick() {
	if !s.IsEnabled() {
		return
	}
	s.recorder.IncSchedulerTick()
	ctx := s.context()
	for _, root := range s.cache.Roots() {
		s.fetcher.Fetch(ctx, root, s.refreshCallback(false))
	}
}

func (s *Service) refreshCallback(refetch bool) func() {
	return func() {
		s.mu.RLock()
		fn := s.onRefresh
		s.mu.RUnlock()
		if fn != nil {
			fn(refetch)
		}
	}
}

func (s *Service) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *Service) absPath(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	wd, err := s.getwd()
	if err != nil {
		return path
	}
	return filepath.Join(wd, path)
}

// relativePath converts path to the slash-separated form git reports. The
// repository root itself maps to "".
func relativePath(root, path string) string {
	var rel string
	switch {
	case path == root:
		return ""
	case strings.HasPrefix(path, root+string(filepath.Separator)):
		rel = path[len(root)+1:]
	default:
		r, err := filepath.Rel(root, path)
		if err != nil {
			return filepath.ToSlash(path)
		}
		rel = r
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." {
		return ""
	}
	return strings.TrimSuffix(rel, "/")
}
