package fsops

import (
	"errors"
	"io/fs"
	"os"

	"github.com/petasbytes/fsagent/internal/safety"
)

// Rename moves from to to. It never overwrites: when to already exists the
// call fails with a file-system error and from is left untouched.
func (w *Workspace) Rename(from, to string) error {
	src, err := w.guard.ResolveEntry(from)
	if err != nil {
		return err
	}
	dst, err := w.guard.ResolveEntry(to)
	if err != nil {
		return err
	}
	if err := w.rejectRoot("rename", from, src); err != nil {
		return err
	}
	if err := w.rejectRoot("rename", to, dst); err != nil {
		return err
	}

	if _, err := os.Lstat(src); err != nil {
		return safety.FileSystemError("rename", from, err)
	}
	if err := renameNoReplace(src, dst); err != nil {
		return safety.FileSystemError("rename", to, err)
	}
	return nil
}

// renameChecked is the portable fallback. The existence check and the rename
// are two steps, so a concurrent writer can still slip in between them.
func renameChecked(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}
