// Package conversation holds the ordered transcript of one agent
// session: user messages, model messages with their tool calls, and
// the tool results produced for them. The transcript is append-only
// and replayed to the model on every inference.
package conversation

import (
	"fmt"
	"sync"

	"github.com/tornikegomareli/Sentinel/internal/tools"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-requested invocation of a registered tool.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the recorded outcome of one tool call.
type ToolResult struct {
	CallID  string        `json:"call_id"`
	Name    string        `json:"name"`
	Outcome tools.Outcome `json:"outcome"`
}

// Turn is one unit of conversation. Exactly one of the role-specific
// fields is meaningful: Text for user turns, Text+ToolCalls for
// assistant turns, Result for tool turns.
type Turn struct {
	Role      Role        `json:"role"`
	Text      string      `json:"text,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`
}

// UserTurn builds a user message turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AssistantTurn builds a model message turn.
func AssistantTurn(text string, calls []ToolCall) Turn {
	return Turn{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

// ResultTurn builds a tool result turn.
func ResultTurn(result ToolResult) Turn {
	return Turn{Role: RoleTool, Result: &result}
}

// Conversation is the append-only transcript. Mutation is single
// writer (the orchestrator); Snapshot gives readers a consistent copy.
type Conversation struct {
	mu    sync.Mutex
	turns []Turn
}

// New creates an empty conversation.
func New() *Conversation {
	return &Conversation{}
}

// Append adds a turn to the transcript. Appending a tool result whose
// call ID has no pending call is rejected so no result can appear in
// the transcript more than once.
func (c *Conversation) Append(turn Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if turn.Role == RoleTool {
		if turn.Result == nil {
			return fmt.Errorf("tool turn without result")
		}
		if !c.pendingLocked(turn.Result.CallID) {
			return fmt.Errorf("no pending tool call with id %s", turn.Result.CallID)
		}
	}
	c.turns = append(c.turns, turn)
	return nil
}

// Snapshot returns a copy of the transcript in order.
func (c *Conversation) Snapshot() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// PendingToolCalls returns, in emission order, the tool calls of the
// latest model message that do not yet have a result.
func (c *Conversation) PendingToolCalls() []ToolCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := make(map[string]bool)
	var lastAssistant *Turn
	for i := len(c.turns) - 1; i >= 0; i-- {
		turn := &c.turns[i]
		if turn.Role == RoleTool && turn.Result != nil {
			resolved[turn.Result.CallID] = true
			continue
		}
		if turn.Role == RoleAssistant {
			lastAssistant = turn
			break
		}
	}
	if lastAssistant == nil {
		return nil
	}

	var pending []ToolCall
	for _, call := range lastAssistant.ToolCalls {
		if !resolved[call.ID] {
			pending = append(pending, call)
		}
	}
	return pending
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// LastAnswer returns the text of the most recent model message, or ""
// when the model has not spoken yet.
func (c *Conversation) LastAnswer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleAssistant {
			return c.turns[i].Text
		}
	}
	return ""
}

// pendingLocked reports whether callID belongs to the latest model
// message and still lacks a result. Callers must hold c.mu.
func (c *Conversation) pendingLocked(callID string) bool {
	resolved := make(map[string]bool)
	for i := len(c.turns) - 1; i >= 0; i-- {
		turn := &c.turns[i]
		if turn.Role == RoleTool && turn.Result != nil {
			if turn.Result.CallID == callID {
				return false
			}
			resolved[turn.Result.CallID] = true
			continue
		}
		if turn.Role == RoleAssistant {
			for _, call := range turn.ToolCalls {
				if call.ID == callID && !resolved[call.ID] {
					return true
				}
			}
			return false
		}
	}
	return false
}
