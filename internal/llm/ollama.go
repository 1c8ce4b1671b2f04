package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/conversation"
	"github.com/tornikegomareli/Sentinel/internal/tools"
)

// OllamaClient talks to a locally hosted Ollama server over its
// /api/chat endpoint, using the native tool-call wire format with a
// permissive fenced-JSON fallback for models without tool support.
type OllamaClient struct {
	host   string
	model  string
	numCtx int
	http   *http.Client
	logger *zap.Logger
}

// OllamaOptions configures an OllamaClient.
type OllamaOptions struct {
	Host    string // e.g. "http://127.0.0.1:11434"
	Model   string // e.g. "llama3.2:latest"
	NumCtx  int
	Timeout time.Duration
}

// NewOllamaClient creates a client for the given endpoint.
func NewOllamaClient(opts OllamaOptions, logger *zap.Logger) *OllamaClient {
	return &OllamaClient{
		host:   strings.TrimRight(opts.Host, "/"),
		model:  opts.Model,
		numCtx: opts.NumCtx,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string { return c.model }

// ---------- wire types ----------

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

type wireToolCall struct {
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type wireToolSpec struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  *tools.Schema `json:"parameters"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Tools    []wireToolSpec `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// ---------- encoding ----------

func encodeTurns(turns []conversation.Turn) []chatMessage {
	msgs := make([]chatMessage, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case conversation.RoleUser:
			msgs = append(msgs, chatMessage{Role: "user", Content: turn.Text})
		case conversation.RoleAssistant:
			msg := chatMessage{Role: "assistant", Content: turn.Text}
			for _, call := range turn.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, wireToolCall{
					Function: wireFunction{Name: call.Name, Arguments: call.Args},
				})
			}
			msgs = append(msgs, msg)
		case conversation.RoleTool:
			if turn.Result == nil {
				continue
			}
			msgs = append(msgs, chatMessage{
				Role:     "tool",
				ToolName: turn.Result.Name,
				Content:  turn.Result.Outcome.Text(),
			})
		}
	}
	return msgs
}

func encodeSpecs(specs []tools.Spec) []wireToolSpec {
	if len(specs) == 0 {
		return nil
	}
	out := make([]wireToolSpec, 0, len(specs))
	for _, spec := range specs {
		out = append(out, wireToolSpec{
			Type: "function",
			Function: wireToolFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Params,
			},
		})
	}
	return out
}

// ---------- chat ----------

// Chat sends the transcript and catalogue to Ollama and decodes the
// reply. Malformed tool-call syntax from the model is not an error:
// the reply degrades to plain text with zero tool calls.
func (c *OllamaClient) Chat(ctx context.Context, turns []conversation.Turn, specs []tools.Spec, onChunk func(string)) (*Reply, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: encodeTurns(turns),
		Tools:    encodeSpecs(specs),
		Stream:   onChunk != nil,
	}
	if c.numCtx > 0 {
		req.Options = map[string]any{"num_ctx": c.numCtx}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending chat request",
		zap.String("model", c.model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(req.Tools)),
		zap.Bool("stream", req.Stream),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: endpoint returned %s: %s",
			ErrTransport, resp.Status, strings.TrimSpace(string(raw)))
	}

	var last chatResponse
	var text strings.Builder
	var calls []wireToolCall

	if req.Stream {
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				return nil, fmt.Errorf("%w: decoding stream chunk: %v", ErrTransport, err)
			}
			if chunk.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrTransport, chunk.Error)
			}
			if chunk.Message.Content != "" {
				text.WriteString(chunk.Message.Content)
				onChunk(chunk.Message.Content)
			}
			calls = append(calls, chunk.Message.ToolCalls...)
			if chunk.Done {
				last = chunk
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: reading stream: %v", ErrTransport, err)
		}
	} else {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
		}
		if err := json.Unmarshal(raw, &last); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", ErrTransport, err)
		}
		if last.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrTransport, last.Error)
		}
		text.WriteString(last.Message.Content)
		calls = last.Message.ToolCalls
	}

	reply := &Reply{Text: text.String()}
	for _, call := range calls {
		args := call.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		reply.ToolCalls = append(reply.ToolCalls, conversation.ToolCall{
			ID:   uuid.NewString(),
			Name: call.Function.Name,
			Args: args,
		})
	}

	// Models without native tool support announce calls inside the
	// answer text; recover them permissively.
	if len(reply.ToolCalls) == 0 && len(specs) > 0 {
		if fallback := parseInlineToolCalls(reply.Text); len(fallback) > 0 {
			reply.ToolCalls = fallback
		}
	}

	reply.Usage = Usage{InputTokens: last.PromptEvalCount, OutputTokens: last.EvalCount}
	if reply.Usage.InputTokens == 0 {
		for _, turn := range turns {
			text := turn.Text
			if turn.Result != nil {
				text = turn.Result.Outcome.Text()
			}
			reply.Usage.InputTokens += estimateTokens(text)
		}
	}
	if reply.Usage.OutputTokens == 0 {
		reply.Usage.OutputTokens = estimateTokens(reply.Text)
	}

	c.logger.Debug("chat response decoded",
		zap.Int("answerLen", len(reply.Text)),
		zap.Int("toolCalls", len(reply.ToolCalls)),
		zap.Int("tokensIn", reply.Usage.InputTokens),
		zap.Int("tokensOut", reply.Usage.OutputTokens),
	)
	return reply, nil
}
