// Package llm adapts the conversation transcript and tool catalogue
// into model requests, and model responses back into structured
// replies. The serving endpoint is an external collaborator; the
// parsing and encoding logic here is part of the orchestration core
// because the tool-call wire format must be decoded reliably.
package llm

import (
	"context"
	"fmt"

	"github.com/tornikegomareli/Sentinel/internal/conversation"
	"github.com/tornikegomareli/Sentinel/internal/tools"
)

// ErrTransport marks failures to reach or decode the model endpoint.
// Transport failures abort the run; they are the only model-side
// errors that do.
var ErrTransport = fmt.Errorf("model transport error")

// Usage counts tokens for one inference.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another inference's usage.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Reply is one decoded model response: a final textual answer, or
// one or more tool-call requests, or both.
type Reply struct {
	Text      string
	ToolCalls []conversation.ToolCall
	Usage     Usage
}

// Client sends one conversation snapshot plus the tool catalogue to
// the model and decodes the response. When onChunk is non-nil the
// response is streamed and each answer fragment is delivered through
// it before the full reply returns.
type Client interface {
	Chat(ctx context.Context, turns []conversation.Turn, specs []tools.Spec, onChunk func(string)) (*Reply, error)
}

// estimateTokens approximates a token count from text length; the
// local endpoint does not always report usage.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
