package fsops

import (
	"errors"
	"io/fs"
	"os"

	"github.com/petasbytes/fsagent/internal/safety"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// CreateFile creates a new file at p holding content. The parent directory
// must already exist and an existing entry at p is never overwritten.
func (w *Workspace) CreateFile(p, content string) error {
	abs, err := w.guard.Resolve(p)
	if err != nil {
		return err
	}
	if err := w.rejectRoot("create file", p, abs); err != nil {
		return err
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return safety.FileSystemError("create file", p, err)
	}
	if content != "" {
		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			_ = os.Remove(abs)
			return safety.FileSystemError("create file", p, err)
		}
	}
	if err := f.Close(); err != nil {
		return safety.FileSystemError("create file", p, err)
	}
	return nil
}

// CreateDir creates the directory p and any missing parents. It fails when p already exists.
func (w *Workspace) CreateDir(p string) error {
	abs, err := w.guard.Resolve(p)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err == nil {
		return safety.FileSystemError("create directory", p, &fs.PathError{Op: "mkdir", Path: abs, Err: fs.ErrExist})
	} else if !errors.Is(err, fs.ErrNotExist) {
		return safety.FileSystemError("create directory", p, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return safety.FileSystemError("create directory", p, err)
	}
	return nil
}

// Append adds a newline followed by content to the end of an existing file.
func (w *Workspace) Append(p, content string) error {
	abs, err := w.regularFile("append", p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return safety.FileSystemError("append", p, err)
	}
	if _, err := f.WriteString("\n" + content); err != nil {
		_ = f.Close()
		return safety.FileSystemError("append", p, err)
	}
	if err := f.Close(); err != nil {
		return safety.FileSystemError("append", p, err)
	}
	return nil
}

// regularFile resolves p and requires it to be an existing non-directory.
func (w *Workspace) regularFile(op, p string) (string, error) {
	abs, err := w.guard.Resolve(p)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", safety.FileSystemError(op, p, err)
	}
	if fi.IsDir() {
		return "", safety.NotAFile(p)
	}
	return abs, nil
}
