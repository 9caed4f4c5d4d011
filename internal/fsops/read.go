package fsops

import (
	"os"

	"github.com/petasbytes/fsagent/internal/safety"
)

// Read returns the full content of the file at p. Directories are rejected.
func (w *Workspace) Read(p string) (string, error) {
	abs, err := w.guard.Resolve(p)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return "", safety.FileSystemError("read", p, err)
	}
	if fi.IsDir() {
		return "", safety.NotAFile(p)
	}

	b, err := os.ReadFile(abs)
	if err != nil {
		return "", safety.FileSystemError("read", p, err)
	}
	return string(b), nil
}
