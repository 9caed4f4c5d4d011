package fsops

import (
	"os"

	"github.com/petasbytes/fsagent/internal/safety"
)

// DeleteFile removes the file or symlink at p. A symlink is removed, never its target.
func (w *Workspace) DeleteFile(p string) error {
	abs, err := w.guard.ResolveEntry(p)
	if err != nil {
		return err
	}
	if err := w.rejectRoot("delete file", p, abs); err != nil {
		return err
	}
	fi, err := os.Lstat(abs)
	if err != nil {
		return safety.FileSystemError("delete file", p, err)
	}
	if fi.IsDir() {
		return safety.NotAFile(p)
	}
	if err := os.Remove(abs); err != nil {
		return safety.FileSystemError("delete file", p, err)
	}
	return nil
}

// DeleteDir removes the empty directory at p.
func (w *Workspace) DeleteDir(p string) error {
	abs, err := w.guard.ResolveEntry(p)
	if err != nil {
		return err
	}
	if err := w.rejectRoot("delete directory", p, abs); err != nil {
		return err
	}
	fi, err := os.Lstat(abs)
	if err != nil {
		return safety.FileSystemError("delete directory", p, err)
	}
	if !fi.IsDir() {
		return safety.NotADirectory(p)
	}
	// os.Remove on a directory is rmdir and fails with ENOTEMPTY when anything is left inside.
	if err := os.Remove(abs); err != nil {
		return safety.FileSystemError("delete directory", p, err)
	}
	return nil
}
