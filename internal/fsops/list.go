package fsops

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/petasbytes/fsagent/internal/safety"
)

// Entry is one directory listing row. Directory names carry a trailing "/".
type Entry struct {
	Name string `json:"name"`
	Dir  bool   `json:"dir,omitempty"`
	Size int64  `json:"size"`
}

// List returns the non-recursive entries of dir sorted by name. An empty dir lists the root.
func (w *Workspace) List(dir string) ([]Entry, error) {
	abs, err := w.guard.Resolve(dir)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, safety.FileSystemError("list", dir, err)
	}
	if !fi.IsDir() {
		return nil, safety.NotADirectory(dir)
	}

	des, err := os.ReadDir(abs)
	if err != nil {
		return nil, safety.FileSystemError("list", dir, err)
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		rel := w.guard.Rel(filepath.Join(abs, de.Name()))
		if w.guard.Denied(rel) {
			continue
		}
		e := Entry{Name: de.Name()}
		if de.IsDir() {
			e.Name += "/"
			e.Dir = true
		} else if info, err := de.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	// Stable order so paging is deterministic across filesystems.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
