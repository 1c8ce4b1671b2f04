package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/conversation"
	"github.com/tornikegomareli/Sentinel/internal/llm"
	"github.com/tornikegomareli/Sentinel/internal/tools"
)

// StopReason records why a run ended.
type StopReason string

const (
	StopComplete       StopReason = "complete"
	StopBudgetExceeded StopReason = "budget_exceeded"
	StopCancelled      StopReason = "cancelled"
	StopTransportError StopReason = "transport_error"
)

// Budget bounds one run. Zero values fall back to the defaults.
type Budget struct {
	// MaxRounds limits model inferences per user request.
	MaxRounds int
	// MaxToolCalls limits total tool executions per user request.
	MaxToolCalls int
}

// DefaultBudget returns the default run budget.
func DefaultBudget() Budget {
	return Budget{MaxRounds: 10, MaxToolCalls: 25}
}

func (b Budget) withDefaults() Budget {
	def := DefaultBudget()
	if b.MaxRounds <= 0 {
		b.MaxRounds = def.MaxRounds
	}
	if b.MaxToolCalls <= 0 {
		b.MaxToolCalls = def.MaxToolCalls
	}
	return b
}

// RunResult summarizes one completed or aborted run.
type RunResult struct {
	Answer    string
	Stop      StopReason
	Rounds    int
	ToolCalls int
	Usage     llm.Usage
	Duration  time.Duration
}

// runState is the ephemeral per-request state: round and tool-call
// counters plus the termination reason. Created when a user message
// arrives, discarded when the run ends.
type runState struct {
	rounds    int
	toolCalls int
	usage     llm.Usage
	stop      StopReason
}

// Orchestrator drives the agent loop: ask the model, execute any
// requested tools, append results, and ask again until the model
// emits a final answer or a budget is exhausted.
type Orchestrator struct {
	client   llm.Client
	registry *tools.Registry
	executor *tools.Executor
	budget   Budget
	logger   *zap.Logger
}

// New creates an Orchestrator.
func New(client llm.Client, registry *tools.Registry, executor *tools.Executor, budget Budget, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client:   client,
		registry: registry,
		executor: executor,
		budget:   budget.withDefaults(),
		logger:   logger,
	}
}

// Run handles one user message. The transcript gains the user turn,
// every model turn, and exactly one result per emitted tool call. The
// returned error is non-nil only for transport failures and
// cancellation; tool failures are data in the transcript.
func (o *Orchestrator) Run(ctx context.Context, conv *conversation.Conversation, input string, sink Sink) (*RunResult, error) {
	started := time.Now()
	state := &runState{stop: StopComplete}

	if err := conv.Append(conversation.UserTurn(input)); err != nil {
		return nil, fmt.Errorf("appending user turn: %w", err)
	}

	specs := o.registry.Specs()
	o.logger.Info("run started",
		zap.Int("inputLen", len(input)),
		zap.Int("tools", len(specs)),
		zap.Int("maxRounds", o.budget.MaxRounds),
	)

	for state.rounds < o.budget.MaxRounds {
		if ctx.Err() != nil {
			return o.abort(conv, state, started, sink, StopCancelled, ctx.Err())
		}
		state.rounds++

		onChunk := func(chunk string) {
			sink.emit(Event{Type: EventAnswerChunk, Text: chunk})
		}
		reply, err := o.client.Chat(ctx, conv.Snapshot(), specs, onChunk)
		if err != nil {
			if ctx.Err() != nil {
				return o.abort(conv, state, started, sink, StopCancelled, ctx.Err())
			}
			return o.abort(conv, state, started, sink, StopTransportError, err)
		}
		state.usage.Add(reply.Usage)

		calls := o.validateCalls(reply.ToolCalls)
		if err := conv.Append(conversation.AssistantTurn(reply.Text, calls)); err != nil {
			return nil, fmt.Errorf("appending model turn: %w", err)
		}

		if len(calls) == 0 {
			result := o.finish(state, started, reply.Text)
			sink.emit(Event{Type: EventFinalAnswer, Text: reply.Text})
			o.logger.Info("run complete",
				zap.Int("rounds", result.Rounds),
				zap.Int("toolCalls", result.ToolCalls),
				zap.Duration("duration", result.Duration),
			)
			return result, nil
		}

		stop, dispatchErr := o.dispatch(ctx, conv, state, calls, sink)
		if dispatchErr != nil {
			return nil, dispatchErr
		}
		if stop != "" {
			return o.abort(conv, state, started, sink, stop, nil)
		}
	}

	return o.abort(conv, state, started, sink, StopBudgetExceeded, nil)
}

// validateCalls ensures every call has an ID unique to this turn.
func (o *Orchestrator) validateCalls(calls []conversation.ToolCall) []conversation.ToolCall {
	seen := make(map[string]bool, len(calls))
	out := make([]conversation.ToolCall, 0, len(calls))
	for i, call := range calls {
		if call.ID == "" || seen[call.ID] {
			call.ID = fmt.Sprintf("%s-%d", call.Name, i)
		}
		seen[call.ID] = true
		out = append(out, call)
	}
	return out
}

// dispatch executes one model turn's tool calls. Ordering contract:
// results land in the transcript in emission order. Contiguous
// read-only calls run concurrently; any mutating or process-spawning
// call is a barrier executed alone. Returns a non-empty StopReason
// when the run must abort (cancellation or tool-call budget).
func (o *Orchestrator) dispatch(ctx context.Context, conv *conversation.Conversation, state *runState, calls []conversation.ToolCall, sink Sink) (StopReason, error) {
	outcomes := make([]tools.Outcome, len(calls))
	var stop StopReason

	i := 0
	for i < len(calls) {
		if stop == "" && ctx.Err() != nil {
			stop = StopCancelled
		}
		if stop == "" && state.toolCalls >= o.budget.MaxToolCalls {
			stop = StopBudgetExceeded
		}
		if stop != "" {
			// Unexecuted calls still get a recorded result; no
			// call is ever left silently unresolved.
			outcomes[i] = tools.Failf(tools.FailCancelled, "run stopped before execution: %s", stop)
			i++
			continue
		}

		if o.registry.Effect(calls[i].Name) != tools.EffectReadOnly {
			state.toolCalls++
			sink.emit(Event{Type: EventToolCallStarted, Call: &calls[i]})
			outcomes[i] = o.executor.Execute(ctx, calls[i].Name, calls[i].Args)
			i++
			continue
		}

		// Batch the contiguous read-only span, bounded by budget.
		j := i
		for j < len(calls) &&
			o.registry.Effect(calls[j].Name) == tools.EffectReadOnly &&
			state.toolCalls < o.budget.MaxToolCalls {
			state.toolCalls++
			j++
		}
		// Sinks are not required to be thread-safe, so all events
		// are emitted here; only Execute runs on the workers.
		for k := i; k < j; k++ {
			sink.emit(Event{Type: EventToolCallStarted, Call: &calls[k]})
		}
		var wg sync.WaitGroup
		for k := i; k < j; k++ {
			wg.Add(1)
			go func(k int) {
				defer wg.Done()
				outcomes[k] = o.executor.Execute(ctx, calls[k].Name, calls[k].Args)
			}(k)
		}
		wg.Wait()
		i = j
	}

	// Append results in emission order regardless of execution order.
	for i, call := range calls {
		result := conversation.ToolResult{CallID: call.ID, Name: call.Name, Outcome: outcomes[i]}
		if err := conv.Append(conversation.ResultTurn(result)); err != nil {
			return "", fmt.Errorf("appending tool result: %w", err)
		}
		sink.emit(Event{Type: EventToolCallFinished, Call: &calls[i], Result: &result})
	}
	return stop, nil
}

func (o *Orchestrator) finish(state *runState, started time.Time, answer string) *RunResult {
	return &RunResult{
		Answer:    answer,
		Stop:      state.stop,
		Rounds:    state.rounds,
		ToolCalls: state.toolCalls,
		Usage:     state.usage,
		Duration:  time.Since(started),
	}
}

// abort ends the run early. The last partial answer is preserved and
// the renderer receives an explicit notice.
func (o *Orchestrator) abort(conv *conversation.Conversation, state *runState, started time.Time, sink Sink, reason StopReason, cause error) (*RunResult, error) {
	state.stop = reason
	result := o.finish(state, started, conv.LastAnswer())

	notice := fmt.Sprintf("run aborted: %s", reason)
	if cause != nil {
		notice = fmt.Sprintf("%s (%v)", notice, cause)
	}
	sink.emit(Event{Type: EventAborted, Text: notice, Reason: reason})

	o.logger.Warn("run aborted",
		zap.String("reason", string(reason)),
		zap.Int("rounds", state.rounds),
		zap.Int("toolCalls", state.toolCalls),
		zap.Error(cause),
	)

	switch reason {
	case StopTransportError:
		return result, fmt.Errorf("reaching model endpoint: %w", cause)
	case StopCancelled:
		if cause == nil {
			cause = context.Canceled
		}
		return result, cause
	default:
		return result, nil
	}
}
