package gitstatus

import "strings"

const renameArrow = " -> "

// ParseStatus parses `git status --porcelain` output into a map of
// root-relative path to two-character status code.
// Format: "XY path" or "XY old -> new" for renames and copies; only the new
// name is kept. Lines shorter than three characters are skipped, and so are
// lines with an empty path ("M  "). Paths are stored as git printed them:
// with core.quotePath=false only names holding quotes, backslashes or control
// characters are still C-quoted, and those never match a listed entry.
func ParseStatus(raw string) map[string]string {
	statuses := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 3 {
			continue
		}

		code := line[:2]
		path := line[3:]
		if idx := strings.LastIndex(path, renameArrow); idx >= 0 {
			path = path[idx+len(renameArrow):]
		}
		if path == "" {
			continue
		}
		statuses[path] = code
	}
	return statuses
}
