package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	exec, _ := testExecutor(t, DefaultLimits())
	ctx := context.Background()

	outcome := exec.Execute(ctx, "write_file", map[string]any{
		"path":    "notes/todo.txt",
		"content": "first line\n",
	})
	if outcome.Failed() {
		t.Fatalf("unexpected failure on write: %s", outcome.Text())
	}

	outcome = exec.Execute(ctx, "read_file", map[string]any{"path": "notes/todo.txt"})
	if outcome.Failed() {
		t.Fatalf("unexpected failure on read: %s", outcome.Text())
	}
	if outcome.Payload != "first line\n" {
		t.Errorf("expected round-tripped content, got %q", outcome.Payload)
	}
}

func TestWriteOverwriteAndAppend(t *testing.T) {
	exec, _ := testExecutor(t, DefaultLimits())
	ctx := context.Background()

	for _, content := range []string{"old", "new"} {
		outcome := exec.Execute(ctx, "write_file", map[string]any{
			"path":    "a.txt",
			"content": content,
		})
		if outcome.Failed() {
			t.Fatalf("unexpected failure on write: %s", outcome.Text())
		}
	}
	outcome := exec.Execute(ctx, "read_file", map[string]any{"path": "a.txt"})
	if outcome.Payload != "new" {
		t.Errorf("expected overwrite to replace content, got %q", outcome.Payload)
	}

	outcome = exec.Execute(ctx, "write_file", map[string]any{
		"path":    "a.txt",
		"content": "+more",
		"append":  true,
	})
	if outcome.Failed() {
		t.Fatalf("unexpected failure on append: %s", outcome.Text())
	}
	outcome = exec.Execute(ctx, "read_file", map[string]any{"path": "a.txt"})
	if outcome.Payload != "new+more" {
		t.Errorf("expected appended content, got %q", outcome.Payload)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	exec, scope := testExecutor(t, DefaultLimits())

	outcome := exec.Execute(context.Background(), "write_file", map[string]any{
		"path":    "b.txt",
		"content": "data",
	})
	if outcome.Failed() {
		t.Fatalf("unexpected failure on write: %s", outcome.Text())
	}

	entries, err := os.ReadDir(scope.Root())
	if err != nil {
		t.Fatalf("reading root: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".sentinel-write-") {
			t.Errorf("temp file %s left behind", entry.Name())
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	exec, _ := testExecutor(t, DefaultLimits())

	outcome := exec.Execute(context.Background(), "read_file", map[string]any{"path": "ghost.txt"})
	if outcome.Kind != FailNotFound {
		t.Fatalf("expected NotFound, got %s", outcome.Kind)
	}
}

func TestReadDirectory(t *testing.T) {
	exec, scope := testExecutor(t, DefaultLimits())
	if err := os.Mkdir(filepath.Join(scope.Root(), "sub"), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}

	outcome := exec.Execute(context.Background(), "read_file", map[string]any{"path": "sub"})
	if outcome.Kind != FailNotAFile {
		t.Fatalf("expected NotAFile, got %s", outcome.Kind)
	}
}

func TestReadTruncatesLargeFile(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOutputBytes = 64
	exec, scope := testExecutor(t, limits)

	big := strings.Repeat("x\n", 200)
	if err := os.WriteFile(filepath.Join(scope.Root(), "big.txt"), []byte(big), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	outcome := exec.Execute(context.Background(), "read_file", map[string]any{"path": "big.txt"})
	if outcome.Failed() {
		t.Fatalf("unexpected failure on read: %s", outcome.Text())
	}
	if !strings.Contains(outcome.Payload, "lines truncated") {
		t.Errorf("expected truncated payload, got %q", outcome.Payload)
	}
}

func TestDeleteIsStrict(t *testing.T) {
	exec, scope := testExecutor(t, DefaultLimits())
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(scope.Root(), "doomed.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	outcome := exec.Execute(ctx, "delete_file", map[string]any{"path": "doomed.txt"})
	if outcome.Failed() {
		t.Fatalf("unexpected failure on first delete: %s", outcome.Text())
	}

	// The second delete of the same path reports NotFound: deletion is
	// not idempotent, and the failure is data, not an abort.
	// Every further delete of the same path keeps reporting NotFound;
	// the failure is data, not an abort.
	for i := 0; i < 2; i++ {
		outcome = exec.Execute(ctx, "delete_file", map[string]any{"path": "doomed.txt"})
		if outcome.Kind != FailNotFound {
			t.Fatalf("expected NotFound on repeated delete, got %s", outcome.Kind)
		}
	}
}

func TestDeleteDirectory(t *testing.T) {
	exec, scope := testExecutor(t, DefaultLimits())
	if err := os.Mkdir(filepath.Join(scope.Root(), "keep"), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}

	outcome := exec.Execute(context.Background(), "delete_file", map[string]any{"path": "keep"})
	if outcome.Kind != FailNotAFile {
		t.Fatalf("expected NotAFile, got %s", outcome.Kind)
	}
	if _, err := os.Stat(filepath.Join(scope.Root(), "keep")); err != nil {
		t.Error("directory must survive a delete_file call")
	}
}

func TestFileToolsRejectEscape(t *testing.T) {
	exec, _ := testExecutor(t, DefaultLimits())
	ctx := context.Background()

	calls := []struct {
		tool string
		args map[string]any
	}{
		{"read_file", map[string]any{"path": "../outside.txt"}},
		{"write_file", map[string]any{"path": "../outside.txt", "content": "x"}},
		{"delete_file", map[string]any{"path": "../outside.txt"}},
	}
	for _, call := range calls {
		outcome := exec.Execute(ctx, call.tool, call.args)
		if outcome.Kind != FailPathOutsideRoot {
			t.Errorf("%s: expected PathOutsideRoot, got %s", call.tool, outcome.Kind)
		}
	}
}
