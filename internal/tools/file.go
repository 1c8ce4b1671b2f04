package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// scopeFailure maps a Scope.Resolve error to an Outcome.
func scopeFailure(err error) Outcome {
	if errors.Is(err, ErrOutsideRoot) {
		return Failf(FailPathOutsideRoot, "%v", err)
	}
	return Failf(FailInvalidArguments, "%v", err)
}

// ReadFileTool returns the text content of a file inside the root.
type ReadFileTool struct {
	scope  *Scope
	limits Limits
}

// NewReadFileTool creates the file-read tool.
func NewReadFileTool(scope *Scope, limits Limits) *ReadFileTool {
	return &ReadFileTool{scope: scope, limits: limits}
}

func (t *ReadFileTool) Spec() Spec {
	return Spec{
		Name:        "read_file",
		Description: "Read a file and return its text content.",
		Effect:      EffectReadOnly,
		Params: ObjectSchema(map[string]Property{
			"path": {Type: "string", Description: "Path of the file, relative to the project root"},
		}, "path"),
	}
}

func (t *ReadFileTool) Run(ctx context.Context, args map[string]any) Outcome {
	path, err := t.scope.Resolve(stringArg(args, "path"))
	if err != nil {
		return scopeFailure(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Failf(FailNotFound, "file %s does not exist", stringArg(args, "path"))
		}
		return Failf(FailInvalidArguments, "stat %s: %v", path, err)
	}
	if info.IsDir() {
		return Failf(FailNotAFile, "%s is a directory, not a file", stringArg(args, "path"))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Failf(FailInvalidArguments, "reading %s: %v", path, err)
	}
	return Ok(truncateMiddle(string(data), t.limits.MaxOutputBytes))
}

// WriteFileTool creates or overwrites a file. Overwrites are atomic:
// content is written to a temp file in the target directory and then
// renamed, so a crash never leaves a half-written file.
type WriteFileTool struct {
	scope *Scope
}

// NewWriteFileTool creates the file-write tool.
func NewWriteFileTool(scope *Scope) *WriteFileTool {
	return &WriteFileTool{scope: scope}
}

func (t *WriteFileTool) Spec() Spec {
	return Spec{
		Name:        "write_file",
		Description: "Write text content to a file, creating parent directories as needed. Set append to add to the end instead of overwriting.",
		Effect:      EffectMutating,
		Params: ObjectSchema(map[string]Property{
			"path":    {Type: "string", Description: "Path of the file, relative to the project root"},
			"content": {Type: "string", Description: "The content to write"},
			"append":  {Type: "boolean", Description: "Append instead of overwrite"},
		}, "path", "content"),
	}
}

func (t *WriteFileTool) Run(ctx context.Context, args map[string]any) Outcome {
	path, err := t.scope.Resolve(stringArg(args, "path"))
	if err != nil {
		return scopeFailure(err)
	}
	content := stringArg(args, "content")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Failf(FailInvalidArguments, "creating parent directory: %v", err)
	}

	if boolArg(args, "append") {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return Failf(FailInvalidArguments, "opening %s for append: %v", path, err)
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return Failf(FailInvalidArguments, "appending to %s: %v", path, err)
		}
		if err := f.Close(); err != nil {
			return Failf(FailInvalidArguments, "closing %s: %v", path, err)
		}
		return Ok(fmt.Sprintf("appended %d bytes to %s", len(content), stringArg(args, "path")))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sentinel-write-*")
	if err != nil {
		return Failf(FailInvalidArguments, "creating temp file: %v", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Failf(FailInvalidArguments, "writing %s: %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Failf(FailInvalidArguments, "closing temp file: %v", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return Failf(FailInvalidArguments, "renaming into place: %v", err)
	}
	return Ok(fmt.Sprintf("wrote %d bytes to %s", len(content), stringArg(args, "path")))
}

// DeleteFileTool removes a file. Deletion is strict: the first call
// succeeds, a second call on the same path reports NotFound. Both are
// ordinary outcomes and never abort the loop.
type DeleteFileTool struct {
	scope *Scope
}

// NewDeleteFileTool creates the file-delete tool.
func NewDeleteFileTool(scope *Scope) *DeleteFileTool {
	return &DeleteFileTool{scope: scope}
}

func (t *DeleteFileTool) Spec() Spec {
	return Spec{
		Name:        "delete_file",
		Description: "Delete a file.",
		Effect:      EffectMutating,
		Params: ObjectSchema(map[string]Property{
			"path": {Type: "string", Description: "Path of the file, relative to the project root"},
		}, "path"),
	}
}

func (t *DeleteFileTool) Run(ctx context.Context, args map[string]any) Outcome {
	path, err := t.scope.Resolve(stringArg(args, "path"))
	if err != nil {
		return scopeFailure(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Failf(FailNotFound, "file %s does not exist", stringArg(args, "path"))
		}
		return Failf(FailInvalidArguments, "stat %s: %v", path, err)
	}
	if info.IsDir() {
		return Failf(FailNotAFile, "%s is a directory, not a file", stringArg(args, "path"))
	}

	if err := os.Remove(path); err != nil {
		return Failf(FailInvalidArguments, "deleting %s: %v", path, err)
	}
	return Ok(fmt.Sprintf("deleted %s", stringArg(args, "path")))
}
