package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Limits bounds the resource usage of tool executions.
type Limits struct {
	// ShellTimeout is the default wall-clock limit for one shell
	// command. MaxShellTimeout caps any model-requested override.
	ShellTimeout    time.Duration
	MaxShellTimeout time.Duration

	// MaxOutputBytes caps any single tool payload; larger output is
	// truncated in the middle.
	MaxOutputBytes int

	// MaxResults caps directory listings and file searches.
	MaxResults int
}

// DefaultLimits mirrors the defaults of the shell and listing tools.
func DefaultLimits() Limits {
	return Limits{
		ShellTimeout:    60 * time.Second,
		MaxShellTimeout: 10 * time.Minute,
		MaxOutputBytes:  30000,
		MaxResults:      500,
	}
}

// Executor validates tool calls against their schemas and runs them.
// It never returns a Go error: every failure mode is an Outcome so the
// agent loop can feed it back to the model.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

// NewExecutor creates an Executor over a populated registry.
func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	return &Executor{registry: registry, logger: logger}
}

// Execute runs one tool call. Schema validation happens before any
// side effect; an unknown name or invalid arguments never touch the
// file system.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) Outcome {
	if err := ctx.Err(); err != nil {
		return cancelOutcome(err)
	}

	tool, err := e.registry.Lookup(name)
	if err != nil {
		e.logger.Warn("tool lookup failed", zap.String("tool", name))
		return Failf(FailUnknownTool, "no tool named %q is registered", name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := tool.Spec().Params.Validate(args); err != nil {
		e.logger.Debug("tool arguments rejected",
			zap.String("tool", name),
			zap.Error(err),
		)
		return Failf(FailInvalidArguments, "%v", err)
	}

	started := time.Now()
	outcome := tool.Run(ctx, args)

	if outcome.Failed() {
		e.logger.Debug("tool failed",
			zap.String("tool", name),
			zap.String("kind", string(outcome.Kind)),
			zap.String("message", outcome.Message),
			zap.Duration("elapsed", time.Since(started)),
		)
	} else {
		e.logger.Debug("tool succeeded",
			zap.String("tool", name),
			zap.Int("payloadLen", len(outcome.Payload)),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
	return outcome
}

// cancelOutcome maps a context error to the matching failure kind.
func cancelOutcome(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Failf(FailTimeout, "execution deadline exceeded")
	}
	return Failf(FailCancelled, "execution cancelled")
}

// truncateMiddle bounds content to max bytes, keeping the head and
// tail halves and noting how many lines were dropped in between.
func truncateMiddle(content string, max int) string {
	if max <= 0 || len(content) <= max {
		return content
	}
	half := max / 2
	middle := content[half : len(content)-half]
	lines := strings.Count(middle, "\n")
	return fmt.Sprintf("%s\n\n... [%d lines truncated] ...\n\n%s",
		content[:half], lines, content[len(content)-half:])
}
