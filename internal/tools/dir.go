package tools

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// listPayload is the structured result of a directory listing.
type listPayload struct {
	Path      string      `json:"path"`
	Entries   []listEntry `json:"entries"`
	Truncated bool        `json:"truncated"`
}

type listEntry struct {
	Name string `json:"name"`
	Type string `json:"type"` // "file" or "dir"
	Size int64  `json:"size,omitempty"`
}

// ListDirTool lists the entries of one directory, sorted by name and
// capped at the configured maximum.
type ListDirTool struct {
	scope  *Scope
	limits Limits
}

// NewListDirTool creates the list-directory tool.
func NewListDirTool(scope *Scope, limits Limits) *ListDirTool {
	return &ListDirTool{scope: scope, limits: limits}
}

func (t *ListDirTool) Spec() Spec {
	return Spec{
		Name:        "list_dir",
		Description: "List the entries of a directory.",
		Effect:      EffectReadOnly,
		Params: ObjectSchema(map[string]Property{
			"path": {Type: "string", Description: "Directory path, relative to the project root; defaults to the root"},
		}),
	}
}

func (t *ListDirTool) Run(ctx context.Context, args map[string]any) Outcome {
	target := stringArg(args, "path")
	if target == "" {
		target = "."
	}
	path, err := t.scope.Resolve(target)
	if err != nil {
		return scopeFailure(err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Failf(FailNotFound, "directory %s does not exist", target)
		}
		return Failf(FailInvalidArguments, "listing %s: %v", target, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	payload := listPayload{Path: target}
	for _, entry := range entries {
		if len(payload.Entries) >= t.limits.MaxResults {
			payload.Truncated = true
			break
		}
		e := listEntry{Name: entry.Name(), Type: "file"}
		if entry.IsDir() {
			e.Type = "dir"
		} else if info, err := entry.Info(); err == nil {
			e.Size = info.Size()
		}
		payload.Entries = append(payload.Entries, e)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Failf(FailInvalidArguments, "encoding listing: %v", err)
	}
	return Ok(string(raw))
}

// findPayload is the structured result of a file search.
type findPayload struct {
	Pattern   string   `json:"pattern"`
	Matches   []string `json:"matches"`
	Truncated bool     `json:"truncated"`
}

// FindFileTool walks the project root and returns paths whose base
// name matches a glob pattern. Hidden directories are skipped.
type FindFileTool struct {
	scope  *Scope
	limits Limits
}

// NewFindFileTool creates the find-file tool.
func NewFindFileTool(scope *Scope, limits Limits) *FindFileTool {
	return &FindFileTool{scope: scope, limits: limits}
}

func (t *FindFileTool) Spec() Spec {
	return Spec{
		Name:        "find_file",
		Description: "Find files by name. The pattern is a glob matched against file names, e.g. '*.go'.",
		Effect:      EffectReadOnly,
		Params: ObjectSchema(map[string]Property{
			"pattern": {Type: "string", Description: "Glob pattern matched against file names"},
			"path":    {Type: "string", Description: "Directory to search under, relative to the project root"},
		}, "pattern"),
	}
}

func (t *FindFileTool) Run(ctx context.Context, args map[string]any) Outcome {
	pattern := stringArg(args, "pattern")
	if _, err := filepath.Match(pattern, "x"); err != nil {
		return Failf(FailInvalidArguments, "invalid pattern %q: %v", pattern, err)
	}

	start := stringArg(args, "path")
	if start == "" {
		start = "."
	}
	startPath, err := t.scope.Resolve(start)
	if err != nil {
		return scopeFailure(err)
	}
	if info, err := os.Stat(startPath); err != nil {
		if os.IsNotExist(err) {
			return Failf(FailNotFound, "directory %s does not exist", start)
		}
		return Failf(FailInvalidArguments, "stat %s: %v", start, err)
	} else if !info.IsDir() {
		return Failf(FailNotAFile, "%s is not a directory", start)
	}

	payload := findPayload{Pattern: pattern}
	walkErr := filepath.WalkDir(startPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != startPath && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, name); !ok {
			return nil
		}
		if len(payload.Matches) >= t.limits.MaxResults {
			payload.Truncated = true
			return filepath.SkipAll
		}
		rel, relErr := filepath.Rel(t.scope.Root(), path)
		if relErr != nil {
			rel = path
		}
		payload.Matches = append(payload.Matches, rel)
		return nil
	})
	if walkErr != nil {
		return cancelOutcome(walkErr)
	}
	sort.Strings(payload.Matches)

	raw, err := json.Marshal(payload)
	if err != nil {
		return Failf(FailInvalidArguments, "encoding matches: %v", err)
	}
	return Ok(string(raw))
}
