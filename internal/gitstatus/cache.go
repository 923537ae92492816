package gitstatus

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Phase describes what is known about a cached root.
type Phase int

// Root phases. A root absent from the cache has no phase at all.
const (
	PhasePending Phase = iota // registered, first fetch not finished
	PhaseReady                // last fetch succeeded
	PhaseFailed               // last fetch failed, entries are empty
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RootState reports the outcome of the last fetch for a root.
type RootState struct {
	Phase     Phase
	Err       error
	UpdatedAt time.Time
	Entries   int
}

type rootEntry struct {
	statuses map[string]string
	state    RootState
}

// Cache maps repository roots to their per-path status codes. A root present
// with no entries is either clean or failed; RootState tells them apart.
type Cache struct {
	mu    sync.RWMutex
	roots map[string]*rootEntry
	epoch uint64            // bumped by ClearAll
	gens  map[string]uint64 // bumped by ClearRoot
}

// generation identifies the cache state a fetch was requested against.
type generation struct {
	epoch uint64
	root  uint64
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		roots: make(map[string]*rootEntry),
		gens:  make(map[string]uint64),
	}
}

// Get returns the status code for rel under root.
func (c *Cache) Get(root, rel string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.roots[root]
	if !ok {
		return "", false
	}
	code, ok := entry.statuses[rel]
	return code, ok
}

// HasRoot reports whether root has been registered.
func (c *Cache) HasRoot(root string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.roots[root]
	return ok
}

// Register adds root with no entries in the pending phase. It returns false
// when the root was already known.
func (c *Cache) Register(root string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.roots[root]; ok {
		return false
	}
	c.roots[root] = &rootEntry{
		statuses: map[string]string{},
		state:    RootState{Phase: PhasePending},
	}
	return true
}

// Set replaces every entry for root. A nil map stores an empty one.
func (c *Cache) Set(root string, statuses map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(root, statuses, nil)
}

// storeIfCurrent writes the result of a fetch requested at generation gen.
// It is dropped when root, or the whole cache, has been cleared since.
func (c *Cache) storeIfCurrent(gen generation, root string, statuses map[string]string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generationLocked(root) != gen {
		return false
	}
	c.storeLocked(root, statuses, err)
	return true
}

func (c *Cache) storeLocked(root string, statuses map[string]string, err error) {
	if statuses == nil {
		statuses = map[string]string{}
	}
	state := RootState{Phase: PhaseReady, UpdatedAt: time.Now(), Entries: len(statuses)}
	if err != nil {
		state.Phase = PhaseFailed
		state.Err = err
	}
	c.roots[root] = &rootEntry{statuses: statuses, state: state}
}

// ClearRoot forgets root, so the next query fetches it again.
func (c *Cache) ClearRoot(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roots, root)
	c.gens[root]++
}

// ClearAll forgets every root.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots = make(map[string]*rootEntry)
	c.epoch++
}

// Roots returns the registered roots in lexicographic order.
func (c *Cache) Roots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	roots := make([]string, 0, len(c.roots))
	for root := range c.roots {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// State returns the RootState for root.
func (c *Cache) State(root string) (RootState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.roots[root]
	if !ok {
		return RootState{}, false
	}
	return entry.state, true
}

// Len returns the number of registered roots.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roots)
}

// FirstUnder returns the status of the lexicographically first entry below
// dir. An empty dir means the repository root and matches any entry.
func (c *Cache) FirstUnder(root, dir string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.roots[root]
	if !ok || len(entry.statuses) == 0 {
		return "", false
	}

	paths := make([]string, 0, len(entry.statuses))
	for path := range entry.statuses {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	for _, path := range paths {
		if strings.HasPrefix(path, prefix) {
			return entry.statuses[path], true
		}
	}
	return "", false
}

func (c *Cache) generation(root string) generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationLocked(root)
}

func (c *Cache) generationLocked(root string) generation {
	return generation{epoch: c.epoch, root: c.gens[root]}
}
