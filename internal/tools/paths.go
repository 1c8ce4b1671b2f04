package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot marks a path that escapes the project root.
var ErrOutsideRoot = fmt.Errorf("path escapes project root")

// Scope confines all file-system tool effects to one project root.
// Relative paths are resolved against the root; absolute paths are
// accepted only when they stay inside it. Symlinks are resolved before
// the containment check so links cannot smuggle a path outside.
type Scope struct {
	root string
}

// NewScope creates a scope anchored at root. The root must exist; it
// is normalized to an absolute, symlink-resolved path.
func NewScope(root string) (*Scope, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving project root %s: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}
	return &Scope{root: resolved}, nil
}

// Root returns the normalized project root.
func (s *Scope) Root() string { return s.root }

// Resolve maps a user-supplied path to an absolute path inside the
// root. It returns ErrOutsideRoot when the target (after symlink
// resolution of its existing ancestors) lands outside the root.
func (s *Scope) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, abs)
	}
	abs = filepath.Clean(abs)

	resolved, err := resolveExisting(abs)
	if err != nil {
		return "", err
	}
	if !s.contains(resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

func (s *Scope) contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// resolveExisting resolves symlinks in the deepest existing ancestor
// of path and re-joins the not-yet-existing remainder. This lets the
// containment check work for paths that are about to be created.
func resolveExisting(path string) (string, error) {
	suffix := ""
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}
