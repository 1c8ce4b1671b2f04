package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// deniedCommands are network-fetch and interactive programs the shell
// tool refuses to launch. This is a safety net, not a security boundary.
var deniedCommands = map[string]bool{
	"curl":   true,
	"curlie": true,
	"wget":   true,
	"axel":   true,
	"aria2c": true,
	"nc":     true,
	"telnet": true,
	"lynx":   true,
	"w3m":    true,
	"links":  true,
	"httpie": true,
	"xh":     true,
}

// shellPayload is the structured result of one command execution.
// A non-zero exit code is data for the model, not a failure.
type shellPayload struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

// ShellTool runs a command line through /bin/sh -c inside the project
// root, with bounded output and a wall-clock timeout.
type ShellTool struct {
	scope  *Scope
	limits Limits
}

// NewShellTool creates the shell tool.
func NewShellTool(scope *Scope, limits Limits) *ShellTool {
	return &ShellTool{scope: scope, limits: limits}
}

func (t *ShellTool) Spec() Spec {
	return Spec{
		Name:        "shell",
		Description: "Execute a shell command in the project root and return stdout, stderr and the exit code.",
		Effect:      EffectProcess,
		Params: ObjectSchema(map[string]Property{
			"command":    {Type: "string", Description: "The command line to execute"},
			"timeout_ms": {Type: "integer", Description: "Optional timeout in milliseconds"},
		}, "command"),
	}
}

func (t *ShellTool) Run(ctx context.Context, args map[string]any) Outcome {
	command := strings.TrimSpace(stringArg(args, "command"))
	if command == "" {
		return Failf(FailInvalidArguments, "command is empty")
	}
	if base := baseCommand(command); deniedCommands[base] {
		return Failf(FailInvalidArguments, "command %q is not permitted", base)
	}

	timeout := t.limits.ShellTimeout
	if ms := intArg(args, "timeout_ms", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	if t.limits.MaxShellTimeout > 0 && timeout > t.limits.MaxShellTimeout {
		timeout = t.limits.MaxShellTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = t.scope.Root()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	exitCode, failure := shellResult(err, runCtx.Err(), ctx.Err(), timeout)
	if failure.Failed() {
		return failure
	}

	payload := shellPayload{
		Stdout:     truncateMiddle(stdout.String(), t.limits.MaxOutputBytes),
		Stderr:     truncateMiddle(stderr.String(), t.limits.MaxOutputBytes),
		ExitCode:   exitCode,
		DurationMs: elapsed.Milliseconds(),
	}
	raw, jsonErr := json.Marshal(payload)
	if jsonErr != nil {
		return Failf(FailInvalidArguments, "encoding command output: %v", jsonErr)
	}
	return Ok(string(raw))
}

// shellResult classifies the result of one command run. A process
// that completed on its own is a success even when the deadline has
// expired since; only a run the deadline actually killed reports
// Timeout, and a caller cancellation wins over the deadline.
func shellResult(err, runErr, callerErr error, timeout time.Duration) (int, Outcome) {
	if err == nil {
		return 0, Outcome{}
	}
	if runErr != nil {
		if callerErr != nil {
			return 0, cancelOutcome(callerErr)
		}
		return 0, Failf(FailTimeout, "command exceeded timeout of %s", timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), Outcome{}
	}
	// The process never started (e.g. /bin/sh missing).
	return 0, Failf(FailInvalidArguments, "starting command: %v", err)
}

// baseCommand extracts the first word of a command line, lower-cased.
func baseCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
