package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/conversation"
	"github.com/tornikegomareli/Sentinel/internal/tools"
)

func testClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllamaClient(OllamaOptions{
		Host:    srv.URL,
		Model:   "test-model",
		NumCtx:  4096,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func testSpecs() []tools.Spec {
	return []tools.Spec{{
		Name:        "list_dir",
		Description: "List a directory.",
		Effect:      tools.EffectReadOnly,
		Params:      tools.ObjectSchema(map[string]tools.Property{"path": {Type: "string"}}),
	}}
}

func TestChatPlainAnswer(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("expected /api/chat, got %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", req.Model)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message:         chatMessage{Role: "assistant", Content: "hello there"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       5,
		})
	})

	turns := []conversation.Turn{conversation.UserTurn("hi")}
	reply, err := client.Chat(context.Background(), turns, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error on Chat: %v", err)
	}
	if reply.Text != "hello there" {
		t.Errorf("expected answer text, got %q", reply.Text)
	}
	if len(reply.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(reply.ToolCalls))
	}
	if reply.Usage.InputTokens != 12 || reply.Usage.OutputTokens != 5 {
		t.Errorf("expected reported usage 12/5, got %+v", reply.Usage)
	}
}

func TestChatNativeToolCalls(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "list_dir" {
			t.Errorf("expected the tool catalogue in the request, got %+v", req.Tools)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{
				Role: "assistant",
				ToolCalls: []wireToolCall{{
					Function: wireFunction{Name: "list_dir", Arguments: map[string]any{"path": "src"}},
				}},
			},
			Done: true,
		})
	})

	turns := []conversation.Turn{conversation.UserTurn("list src")}
	reply, err := client.Chat(context.Background(), turns, testSpecs(), nil)
	if err != nil {
		t.Fatalf("unexpected error on Chat: %v", err)
	}
	if len(reply.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(reply.ToolCalls))
	}
	call := reply.ToolCalls[0]
	if call.Name != "list_dir" {
		t.Errorf("expected list_dir, got %s", call.Name)
	}
	if call.Args["path"] != "src" {
		t.Errorf("expected path arg src, got %v", call.Args["path"])
	}
	if call.ID == "" {
		t.Error("expected a synthesized call ID")
	}
}

func TestChatStreaming(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("expected streaming request")
		}
		enc := json.NewEncoder(w)
		enc.Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "hel"}})
		enc.Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "lo"}})
		enc.Encode(chatResponse{Done: true, PromptEvalCount: 4, EvalCount: 2})
	})

	var chunks []string
	turns := []conversation.Turn{conversation.UserTurn("hi")}
	reply, err := client.Chat(context.Background(), turns, nil, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("unexpected error on Chat: %v", err)
	}
	if reply.Text != "hello" {
		t.Errorf("expected assembled answer hello, got %q", reply.Text)
	}
	if strings.Join(chunks, "") != "hello" {
		t.Errorf("expected streamed chunks to assemble the answer, got %v", chunks)
	}
	if reply.Usage.InputTokens != 4 || reply.Usage.OutputTokens != 2 {
		t.Errorf("expected usage 4/2, got %+v", reply.Usage)
	}
}

func TestChatInlineFallback(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{
				Role:    "assistant",
				Content: "```json\n{\"tool\": \"list_dir\", \"args\": {\"path\": \".\"}}\n```",
			},
			Done: true,
		})
	})

	turns := []conversation.Turn{conversation.UserTurn("list")}
	reply, err := client.Chat(context.Background(), turns, testSpecs(), nil)
	if err != nil {
		t.Fatalf("unexpected error on Chat: %v", err)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Name != "list_dir" {
		t.Fatalf("expected fallback tool call, got %+v", reply.ToolCalls)
	}
}

func TestChatNoFallbackWithoutSpecs(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: `{"tool": "list_dir"}`},
			Done:    true,
		})
	})

	turns := []conversation.Turn{conversation.UserTurn("hi")}
	reply, err := client.Chat(context.Background(), turns, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error on Chat: %v", err)
	}
	if len(reply.ToolCalls) != 0 {
		t.Errorf("expected no tool calls without a catalogue, got %d", len(reply.ToolCalls))
	}
}

func TestChatHTTPError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := client.Chat(context.Background(), []conversation.Turn{conversation.UserTurn("hi")}, nil, nil)
	if err == nil {
		t.Fatal("expected transport error, got nil")
	}
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestChatEndpointErrorField(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Error: "model is loading"})
	})

	_, err := client.Chat(context.Background(), []conversation.Turn{conversation.UserTurn("hi")}, nil, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestChatUnreachableHost(t *testing.T) {
	client := NewOllamaClient(OllamaOptions{
		Host:    "http://127.0.0.1:1",
		Model:   "test-model",
		Timeout: time.Second,
	}, zap.NewNop())

	_, err := client.Chat(context.Background(), []conversation.Turn{conversation.UserTurn("hi")}, nil, nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestChatEstimatedUsage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "four char answer"},
			Done:    true,
		})
	})

	turns := []conversation.Turn{conversation.UserTurn("a prompt of some length")}
	reply, err := client.Chat(context.Background(), turns, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error on Chat: %v", err)
	}
	if reply.Usage.InputTokens == 0 || reply.Usage.OutputTokens == 0 {
		t.Errorf("expected estimated usage when the endpoint reports none, got %+v", reply.Usage)
	}
}

func TestChatEstimatedUsageCountsToolResults(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "summary"},
			Done:    true,
		})
	})

	// Tool payloads are replayed to the model and dominate the input;
	// the estimate must reflect them, not just the user text.
	payload := strings.Repeat("entry\n", 100)
	turns := []conversation.Turn{
		conversation.UserTurn("ls"),
		conversation.AssistantTurn("", []conversation.ToolCall{{ID: "c1", Name: "list_dir"}}),
		conversation.ResultTurn(conversation.ToolResult{
			CallID:  "c1",
			Name:    "list_dir",
			Outcome: tools.Ok(payload),
		}),
	}
	reply, err := client.Chat(context.Background(), turns, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error on Chat: %v", err)
	}
	if want := estimateTokens(payload); reply.Usage.InputTokens < want {
		t.Errorf("expected at least %d input tokens from the tool payload, got %d", want, reply.Usage.InputTokens)
	}
}

func TestEncodeTurns(t *testing.T) {
	turns := []conversation.Turn{
		conversation.UserTurn("do it"),
		conversation.AssistantTurn("", []conversation.ToolCall{
			{ID: "c1", Name: "shell", Args: map[string]any{"command": "ls"}},
		}),
		conversation.ResultTurn(conversation.ToolResult{
			CallID:  "c1",
			Name:    "shell",
			Outcome: tools.Failf(tools.FailTimeout, "command exceeded timeout of %s", time.Minute),
		}),
	}

	msgs := encodeTurns(turns)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "do it" {
		t.Errorf("unexpected user message %+v", msgs[0])
	}
	if len(msgs[1].ToolCalls) != 1 || msgs[1].ToolCalls[0].Function.Name != "shell" {
		t.Errorf("unexpected assistant message %+v", msgs[1])
	}
	if msgs[2].Role != "tool" || msgs[2].ToolName != "shell" {
		t.Errorf("unexpected tool message %+v", msgs[2])
	}
	// Failures travel to the model as readable error text.
	if want := fmt.Sprintf("error (Timeout): command exceeded timeout of %s", time.Minute); msgs[2].Content != want {
		t.Errorf("expected %q, got %q", want, msgs[2].Content)
	}
}
