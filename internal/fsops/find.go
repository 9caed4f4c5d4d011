package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petasbytes/fsagent/internal/safety"
)

// MaxFindResults caps the number of matches Find returns.
const MaxFindResults = 500

var errFindLimit = errors.New("find limit reached")

// FindResult holds root-relative slash paths of matching files.
type FindResult struct {
	Matches   []string `json:"matches"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Find walks dir recursively and returns files whose base name matches the
// shell pattern (for example "*.txt"). Symlinked directories are not followed
// and denied subtrees are skipped.
func (w *Workspace) Find(pattern, dir string) (FindResult, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return FindResult{}, safety.InvalidArguments("pattern must not be empty")
	}
	if strings.ContainsRune(pattern, '/') {
		return FindResult{}, safety.InvalidArguments("pattern %q must match a base name, not a path", pattern)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return FindResult{}, safety.InvalidArguments("invalid pattern %q: %v", pattern, err)
	}

	start, err := w.guard.Resolve(dir)
	if err != nil {
		return FindResult{}, err
	}
	fi, err := os.Stat(start)
	if err != nil {
		return FindResult{}, safety.FileSystemError("find", dir, err)
	}
	if !fi.IsDir() {
		return FindResult{}, safety.NotADirectory(dir)
	}

	res := FindResult{Matches: []string{}}
	walkErr := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped rather than failing the whole search.
			if d != nil && d.IsDir() && p != start {
				return fs.SkipDir
			}
			return nil
		}
		rel := w.guard.Rel(p)
		if p != start && w.guard.Denied(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}
		if len(res.Matches) == MaxFindResults {
			res.Truncated = true
			return errFindLimit
		}
		res.Matches = append(res.Matches, rel)
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, errFindLimit) {
		return FindResult{}, safety.FileSystemError("find", dir, walkErr)
	}
	sort.Strings(res.Matches)
	return res, nil
}
