// Package agent implements the orchestration loop that turns one user
// request into a bounded sequence of model inferences and tool
// executions. It owns the conversation transcript, the run budget and
// the cancellation semantics; rendering surfaces consume its event
// stream and never mutate state.
package agent

import "github.com/tornikegomareli/Sentinel/internal/conversation"

// EventType identifies one orchestrator event.
type EventType string

const (
	// EventAnswerChunk carries a streamed fragment of the answer.
	EventAnswerChunk EventType = "answer_chunk"
	// EventToolCallStarted fires before a tool executes.
	EventToolCallStarted EventType = "tool_call_started"
	// EventToolCallFinished fires with the recorded result.
	EventToolCallFinished EventType = "tool_call_finished"
	// EventFinalAnswer carries the complete final answer.
	EventFinalAnswer EventType = "final_answer"
	// EventAborted fires when a run stops early.
	EventAborted EventType = "aborted"
)

// Event is one item of the stream a renderer receives during a run.
type Event struct {
	Type   EventType
	Text   string
	Call   *conversation.ToolCall
	Result *conversation.ToolResult
	Reason StopReason
}

// Sink receives orchestrator events. A nil sink discards them. Events
// are emitted one at a time from the run goroutine, even while tool
// calls execute concurrently, so implementations need no locking.
type Sink func(Event)

func (s Sink) emit(e Event) {
	if s != nil {
		s(e)
	}
}
