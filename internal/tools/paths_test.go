package tools

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// testScope creates a Scope over a fresh temporary directory.
func testScope(t *testing.T) *Scope {
	t.Helper()
	scope, err := NewScope(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error creating scope: %v", err)
	}
	return scope
}

func TestScopeResolveRelative(t *testing.T) {
	scope := testScope(t)

	path, err := scope.Resolve("sub/file.txt")
	if err != nil {
		t.Fatalf("unexpected error on Resolve: %v", err)
	}
	if path != filepath.Join(scope.Root(), "sub", "file.txt") {
		t.Errorf("expected path under root, got %s", path)
	}
}

func TestScopeResolveDotEscape(t *testing.T) {
	scope := testScope(t)

	for _, p := range []string{"..", "../outside.txt", "sub/../../outside.txt"} {
		_, err := scope.Resolve(p)
		if err == nil {
			t.Errorf("expected error for %q, got nil", p)
			continue
		}
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("expected ErrOutsideRoot for %q, got %v", p, err)
		}
	}
}

func TestScopeResolveAbsolute(t *testing.T) {
	scope := testScope(t)

	inside := filepath.Join(scope.Root(), "inside.txt")
	if _, err := scope.Resolve(inside); err != nil {
		t.Fatalf("unexpected error for absolute path inside root: %v", err)
	}

	_, err := scope.Resolve("/etc/passwd")
	if err == nil {
		t.Fatal("expected error for absolute path outside root, got nil")
	}
	if !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
}

func TestScopeResolveSymlinkEscape(t *testing.T) {
	scope := testScope(t)
	outside := t.TempDir()

	link := filepath.Join(scope.Root(), "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("creating symlink: %v", err)
	}

	_, err := scope.Resolve("link/secret.txt")
	if err == nil {
		t.Fatal("expected error for symlinked escape, got nil")
	}
	if !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
}

func TestScopeResolveNotYetExisting(t *testing.T) {
	scope := testScope(t)

	// Paths about to be created must resolve as long as they stay
	// inside the root.
	path, err := scope.Resolve("new/dir/file.txt")
	if err != nil {
		t.Fatalf("unexpected error for not-yet-existing path: %v", err)
	}
	if path != filepath.Join(scope.Root(), "new", "dir", "file.txt") {
		t.Errorf("unexpected resolved path %s", path)
	}
}

func TestScopeResolveEmptyPath(t *testing.T) {
	scope := testScope(t)
	if _, err := scope.Resolve(""); err == nil {
		t.Fatal("expected error for empty path, got nil")
	}
}

func TestNewScopeRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := NewScope(file); err == nil {
		t.Fatal("expected error for non-directory root, got nil")
	}
}
