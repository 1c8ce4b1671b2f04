package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func mustDecode[T any](t *testing.T, outcome Outcome) T {
	t.Helper()
	if outcome.Failed() {
		t.Fatalf("unexpected failure: %s", outcome.Text())
	}
	var payload T
	if err := json.Unmarshal([]byte(outcome.Payload), &payload); err != nil {
		t.Fatalf("decoding payload %q: %v", outcome.Payload, err)
	}
	return payload
}

func TestListDirSorted(t *testing.T) {
	exec, scope := testExecutor(t, DefaultLimits())

	for _, name := range []string{"zz.txt", "aa.txt", "mm.txt"} {
		if err := os.WriteFile(filepath.Join(scope.Root(), name), []byte("x"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(scope.Root(), "sub"), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}

	outcome := exec.Execute(context.Background(), "list_dir", nil)
	payload := mustDecode[listPayload](t, outcome)

	want := []string{"aa.txt", "mm.txt", "sub", "zz.txt"}
	if len(payload.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(payload.Entries))
	}
	for i, entry := range payload.Entries {
		if entry.Name != want[i] {
			t.Errorf("expected entry %d to be %s, got %s", i, want[i], entry.Name)
		}
	}
	for _, entry := range payload.Entries {
		if entry.Name == "sub" && entry.Type != "dir" {
			t.Errorf("expected sub to be a dir, got %s", entry.Type)
		}
		if entry.Name == "aa.txt" && entry.Type != "file" {
			t.Errorf("expected aa.txt to be a file, got %s", entry.Type)
		}
	}
}

func TestListDirMissing(t *testing.T) {
	exec, _ := testExecutor(t, DefaultLimits())

	outcome := exec.Execute(context.Background(), "list_dir", map[string]any{"path": "nowhere"})
	if outcome.Kind != FailNotFound {
		t.Fatalf("expected NotFound, got %s", outcome.Kind)
	}
}

func TestListDirTruncated(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxResults = 3
	exec, scope := testExecutor(t, limits)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if err := os.WriteFile(filepath.Join(scope.Root(), name), []byte("x"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}

	outcome := exec.Execute(context.Background(), "list_dir", nil)
	payload := mustDecode[listPayload](t, outcome)
	if len(payload.Entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(payload.Entries))
	}
	if !payload.Truncated {
		t.Error("expected truncated flag to be set")
	}
}

func TestFindFile(t *testing.T) {
	exec, scope := testExecutor(t, DefaultLimits())

	files := []string{
		"main.go",
		"util.go",
		"README.md",
		filepath.Join("pkg", "deep.go"),
		filepath.Join(".git", "ignored.go"),
	}
	for _, rel := range files {
		full := filepath.Join(scope.Root(), rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("creating directory: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}

	outcome := exec.Execute(context.Background(), "find_file", map[string]any{"pattern": "*.go"})
	payload := mustDecode[findPayload](t, outcome)

	want := []string{"main.go", filepath.Join("pkg", "deep.go"), "util.go"}
	if len(payload.Matches) != len(want) {
		t.Fatalf("expected matches %v, got %v", want, payload.Matches)
	}
	for i, match := range payload.Matches {
		if match != want[i] {
			t.Errorf("expected match %d to be %s, got %s", i, want[i], match)
		}
	}
}

func TestFindFileInvalidPattern(t *testing.T) {
	exec, _ := testExecutor(t, DefaultLimits())

	outcome := exec.Execute(context.Background(), "find_file", map[string]any{"pattern": "[unclosed"})
	if outcome.Kind != FailInvalidArguments {
		t.Fatalf("expected InvalidArguments, got %s", outcome.Kind)
	}
}

func TestFindFileTruncated(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxResults = 2
	exec, scope := testExecutor(t, limits)

	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt"} {
		if err := os.WriteFile(filepath.Join(scope.Root(), name), []byte("x"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}

	outcome := exec.Execute(context.Background(), "find_file", map[string]any{"pattern": "*.txt"})
	payload := mustDecode[findPayload](t, outcome)
	if len(payload.Matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(payload.Matches))
	}
	if !payload.Truncated {
		t.Error("expected truncated flag to be set")
	}
}

func TestFindFileMissingStart(t *testing.T) {
	exec, _ := testExecutor(t, DefaultLimits())

	outcome := exec.Execute(context.Background(), "find_file", map[string]any{
		"pattern": "*.go",
		"path":    "nowhere",
	})
	if outcome.Kind != FailNotFound {
		t.Fatalf("expected NotFound, got %s", outcome.Kind)
	}
}
