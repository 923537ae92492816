// Package watch turns filesystem events in the displayed directories into
// save notifications for the git status service.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chmouel/treestatus/internal/gitstatus"
	"github.com/fsnotify/fsnotify"
)

// SaveDebounce is the window in which repeated events for one path count as
// a single save.
const SaveDebounce = 250 * time.Millisecond

// Saver receives save notifications. gitstatus.Service implements it.
type Saver interface {
	NotifySaved(path string) *gitstatus.Fetch
}

// SaveNotifier watches a set of directories. File writes are forwarded to a
// Saver on the dispatcher's main loop; entries appearing or disappearing
// signal Events so the host can reload its listing.
type SaveNotifier struct {
	Events chan struct{}

	mu       sync.Mutex
	started  bool
	waiting  bool
	done     chan struct{}
	watcher  *fsnotify.Watcher
	dirs     map[string]struct{}
	lastSeen map[string]time.Time

	saver    Saver
	dispatch *gitstatus.Dispatcher
	logf     func(string, ...any)
	now      func() time.Time
}

// NewSaveNotifier creates a stopped notifier.
func NewSaveNotifier(saver Saver, dispatch *gitstatus.Dispatcher, logf func(string, ...any)) *SaveNotifier {
	return &SaveNotifier{
		saver:    saver,
		dispatch: dispatch,
		logf:     logf,
		now:      time.Now,
	}
}

// Start creates the fsnotify watcher and the event goroutine.
func (n *SaveNotifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	n.started = true
	n.watcher = watcher
	n.Events = make(chan struct{}, 1)
	n.done = make(chan struct{})
	n.dirs = make(map[string]struct{})
	n.lastSeen = make(map[string]time.Time)

	go n.run(watcher, n.done)
	return nil
}

// Stop closes the watcher. Start may be called again afterwards.
func (n *SaveNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return
	}
	close(n.done)
	n.started = false
	n.waiting = false
	_ = n.watcher.Close()
}

// SetDirs replaces the watched directories with dirs.
func (n *SaveNotifier) SetDirs(dirs ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return
	}

	want := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			want[abs] = struct{}{}
		}
	}

	for dir := range n.dirs {
		if _, keep := want[dir]; keep {
			continue
		}
		_ = n.watcher.Remove(dir)
		delete(n.dirs, dir)
	}
	for dir := range want {
		if _, ok := n.dirs[dir]; ok {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := n.watcher.Add(dir); err != nil {
			n.debugf("watch: add failed for %s: %v", dir, err)
			continue
		}
		n.dirs[dir] = struct{}{}
	}
}

// Dirs returns the watched directories.
func (n *SaveNotifier) Dirs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.dirs))
	for dir := range n.dirs {
		out = append(out, dir)
	}
	return out
}

// NextEvent returns the event channel if nobody is already waiting on it.
func (n *SaveNotifier) NextEvent() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started || n.waiting {
		return nil
	}
	n.waiting = true
	return n.Events
}

// ResetWaiting clears the waiting flag after an event is processed.
func (n *SaveNotifier) ResetWaiting() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waiting = false
}

// Signal notifies listeners that a watched listing changed.
func (n *SaveNotifier) Signal() {
	n.mu.Lock()
	events, done := n.Events, n.done
	n.mu.Unlock()
	if events == nil {
		return
	}
	select {
	case <-done:
		return
	default:
	}
	select {
	case events <- struct{}{}:
	default:
	}
}

// shouldNotify applies the per-path debounce.
func (n *SaveNotifier) shouldNotify(path string) bool {
	now := n.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.lastSeen[path]; ok && now.Sub(last) < SaveDebounce {
		return false
	}
	n.lastSeen[path] = now
	return true
}

func (n *SaveNotifier) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if insideGitDir(event.Name) {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		n.Signal()
	}
	if !n.shouldNotify(event.Name) {
		return
	}

	path := event.Name
	n.dispatch.Post(func() {
		if n.saver.NotifySaved(path) != nil {
			n.debugf("watch: %s changed", path)
		}
	})
}

func (n *SaveNotifier) run(watcher *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			n.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			n.debugf("watch: watcher error: %v", err)
		}
	}
}

func insideGitDir(path string) bool {
	sep := string(filepath.Separator)
	marker := sep + gitstatus.RepoMarker
	return strings.Contains(path, marker+sep) || strings.HasSuffix(path, marker)
}

func (n *SaveNotifier) debugf(format string, args ...any) {
	if n.logf == nil {
		return
	}
	n.logf(format, args...)
}
