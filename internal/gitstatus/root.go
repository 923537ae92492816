package gitstatus

import (
	"os"
	"path/filepath"
)

// RepoMarker is the entry that identifies the top of a git working tree.
// It is a directory for regular clones and a file for linked worktrees and
// submodules.
const RepoMarker = ".git"

// ResolveRoot walks upward from path and returns the nearest ancestor that
// contains a RepoMarker. Files and paths that do not exist yet start the walk
// from their parent directory. Nothing is cached: every call re-reads the
// filesystem.
func ResolveRoot(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, RepoMarker)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
