// Package conflict implements the conflict-resolution probes the merge
// engine uses to decide whether a halted cherry-pick may resume, plus an
// fsnotify-backed watcher the status verb uses to wait for resolution
// activity without busy-polling.
package conflict

import (
	"context"
	"strings"

	"github.com/mergerstool/mergers/internal/gitdriver"
)

// Resolved reports whether every conflict in repo has been resolved and
// staged: true iff `git ls-files -u` produces no output.
func Resolved(ctx context.Context, driver gitdriver.Driver, repo string) (bool, error) {
	return driver.CheckConflictsResolved(ctx, repo)
}

// unmergedXY lists the two-character `git status --porcelain` codes that
// indicate an unmerged path.
var unmergedXY = map[string]bool{
	"UU": true, "AA": true, "DD": true,
	"AU": true, "UA": true, "DU": true, "UD": true,
}

// UnresolvedFromPorcelain extracts the unmerged file paths from `git
// status --porcelain` output. A line counts when its XY code is one of the
// known unmerged pairs or when either position is 'U'; unknown codes are
// treated as non-conflicting.
func UnresolvedFromPorcelain(output []byte) []string {
	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		if len(line) < 4 {
			continue
		}
		xy := line[:2]
		if !unmergedXY[xy] && xy[0] != 'U' && xy[1] != 'U' {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Rename lines carry "from -> to"; the conflict lives at the
		// destination path.
		if idx := strings.LastIndex(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}
