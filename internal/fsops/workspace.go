// Package fsops performs file-system operations confined to a safe root.
//
// Every method takes a caller-supplied path, resolves it through a safety.Guard
// and reports failures as safety.ToolError values. A Workspace holds no mutable
// state after Open and is safe for concurrent use.
package fsops

import (
	"fmt"

	"github.com/petasbytes/fsagent/internal/safety"
)

// Workspace runs file operations under a single safe root.
type Workspace struct {
	guard *safety.Guard
}

// Open resolves root and returns a Workspace bound to it.
func Open(root string, opts ...safety.Option) (*Workspace, error) {
	g, err := safety.NewGuard(root, opts...)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	return New(g), nil
}

// New wraps an existing guard.
func New(g *safety.Guard) *Workspace {
	return &Workspace{guard: g}
}

// Root returns the resolved safe root.
func (w *Workspace) Root() string { return w.guard.Root() }

// rejectRoot refuses operations that would remove or move the safe root itself.
func (w *Workspace) rejectRoot(op, p, abs string) error {
	if abs == w.guard.Root() {
		return safety.InvalidArguments("%s: %q is the safe root", op, p)
	}
	return nil
}
