package llm

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/tornikegomareli/Sentinel/internal/conversation"
)

// inlineCall is the shape a model without native tool support is
// prompted to emit inside a fenced JSON block.
type inlineCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// parseInlineToolCalls scans answer text for fenced JSON tool calls.
// Parsing is strictly permissive: anything malformed yields zero
// calls and the text stands as an ordinary answer. The loop never
// fails on model output.
func parseInlineToolCalls(text string) []conversation.ToolCall {
	var calls []conversation.ToolCall
	for _, block := range fencedBlocks(text) {
		call, ok := decodeInlineCall(block)
		if !ok {
			continue
		}
		calls = append(calls, call)
	}
	if len(calls) > 0 {
		return calls
	}
	// A bare JSON object answer is accepted too.
	if call, ok := decodeInlineCall(text); ok {
		return []conversation.ToolCall{call}
	}
	return nil
}

func decodeInlineCall(raw string) (conversation.ToolCall, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return conversation.ToolCall{}, false
	}
	var in inlineCall
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return conversation.ToolCall{}, false
	}
	if in.Tool == "" {
		return conversation.ToolCall{}, false
	}
	args := in.Args
	if args == nil {
		args = map[string]any{}
	}
	return conversation.ToolCall{ID: uuid.NewString(), Name: in.Tool, Args: args}, true
}

// fencedBlocks extracts the contents of ``` fenced code blocks,
// tolerating a language tag after the opening fence.
func fencedBlocks(text string) []string {
	var blocks []string
	for {
		start := strings.Index(text, "```")
		if start < 0 {
			return blocks
		}
		rest := text[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			// Drop the language tag line.
			rest = rest[nl+1:]
		}
		end := strings.Index(rest, "```")
		if end < 0 {
			return blocks
		}
		blocks = append(blocks, rest[:end])
		text = rest[end+3:]
	}
}
