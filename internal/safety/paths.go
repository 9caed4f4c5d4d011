// Package safety confines file access to a single safe root directory.
package safety

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrRootInvalid is returned when the configured safe root is not an existing directory.
var ErrRootInvalid = errors.New("safe root is not an existing directory")

var errDanglingLink = errors.New("symlink target does not exist")

// Confine joins p onto root (or takes p as-is when absolute), cleans the
// result lexically, and rejects anything that is not root or below it.
// It performs no I/O; symlinks are handled by Guard.Resolve.
func Confine(root, p string) (string, error) {
	root = filepath.Clean(root)
	p = strings.TrimSpace(p)

	var candidate string
	if filepath.IsAbs(p) {
		candidate = filepath.Clean(p)
	} else {
		candidate = filepath.Join(root, p)
	}
	if !Within(root, candidate) {
		return "", PathEscapesRoot(p)
	}
	return candidate, nil
}

// Within reports whether p is root or a descendant of root. Both must be clean.
// filepath.Rel keeps sibling prefixes such as /work2 vs /work apart.
func Within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Guard resolves caller paths against an absolute, symlink-free root.
// It is immutable after construction and safe for concurrent use.
type Guard struct {
	root string
	// configured is the absolute root as given, when it differs from root
	// because it goes through a symlink.
	configured string
	denied     []string
}

// Option configures a Guard.
type Option func(*Guard)

// WithDenied blocks access to the given root-relative paths and everything below them.
func WithDenied(rel ...string) Option {
	return func(g *Guard) {
		for _, r := range rel {
			r = filepath.ToSlash(filepath.Clean(r))
			if r == "." || r == "" || strings.HasPrefix(r, "../") || r == ".." {
				continue
			}
			g.denied = append(g.denied, r)
		}
	}
}

// NewGuard resolves root to its absolute, symlink-free form. The root must exist.
func NewGuard(root string, opts ...Option) (*Guard, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrRootInvalid)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs(%s): %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootInvalid, err)
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRootInvalid, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootInvalid, resolved)
	}

	g := &Guard{root: resolved}
	if abs = filepath.Clean(abs); abs != resolved {
		g.configured = abs
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Root returns the resolved safe root.
func (g *Guard) Root() string { return g.root }

// Resolve returns the canonical absolute path for p with every symlink resolved.
// Paths that do not exist yet are resolved through their deepest existing ancestor,
// which exposes escapes through a symlinked parent directory.
func (g *Guard) Resolve(p string) (string, error) {
	return g.resolve(p, true)
}

// ResolveEntry is Resolve without following a symlink in the final segment, so
// delete and rename act on the link itself rather than its target.
func (g *Guard) ResolveEntry(p string) (string, error) {
	return g.resolve(p, false)
}

// Rel returns abs relative to the root in slash form, "." for the root itself.
func (g *Guard) Rel(abs string) string {
	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Denied reports whether the root-relative slash path rel is blocked by policy.
func (g *Guard) Denied(rel string) bool {
	for _, d := range g.denied {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// rebase rewrites an absolute p spelled under the configured root onto the
// resolved root. Anything else is returned unchanged.
func (g *Guard) rebase(p string) string {
	p = strings.TrimSpace(p)
	if g.configured == "" || !filepath.IsAbs(p) {
		return p
	}
	clean := filepath.Clean(p)
	if !Within(g.configured, clean) {
		return p
	}
	rel, err := filepath.Rel(g.configured, clean)
	if err != nil {
		return p
	}
	return filepath.Join(g.root, rel)
}

func (g *Guard) resolve(p string, followLeaf bool) (string, error) {
	lexical, err := Confine(g.root, g.rebase(p))
	if err != nil {
		return "", err
	}

	var resolved string
	if followLeaf || lexical == g.root {
		resolved, err = evalExisting(lexical)
	} else {
		var dir string
		dir, err = evalExisting(filepath.Dir(lexical))
		resolved = filepath.Join(dir, filepath.Base(lexical))
	}
	if err != nil {
		return "", FileSystemError("resolve", p, err)
	}

	if !Within(g.root, resolved) {
		return "", PathEscapesRoot(p)
	}
	if g.Denied(g.Rel(resolved)) {
		return "", PathDenied(p)
	}
	return resolved, nil
}

// evalExisting resolves symlinks along the longest existing prefix of p and
// re-appends the segments that do not exist yet.
func evalExisting(p string) (string, error) {
	cur, rest := p, ""
	for {
		r, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(r, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		// A link whose target is missing would be followed by a later create.
		if fi, lerr := os.Lstat(cur); lerr == nil && fi.Mode()&fs.ModeSymlink != 0 {
			return "", &fs.PathError{Op: "resolve", Path: cur, Err: errDanglingLink}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}
