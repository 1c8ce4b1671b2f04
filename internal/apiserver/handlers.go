package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/agent"
	"github.com/tornikegomareli/Sentinel/internal/conversation"
	"github.com/tornikegomareli/Sentinel/internal/ledger"
	"github.com/tornikegomareli/Sentinel/internal/llm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeJSON serialises data as JSON and writes it to the response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a JSON error envelope to the response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Query
// ---------------------------------------------------------------------------

type queryRequest struct {
	Prompt string `json:"prompt"`
}

type queryResponse struct {
	Answer     string       `json:"answer"`
	StopReason string       `json:"stop_reason"`
	Rounds     int          `json:"rounds"`
	ToolCalls  int          `json:"tool_calls"`
	Usage      llm.Usage    `json:"usage"`
	Events     []queryEvent `json:"events,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

type queryEvent struct {
	Type string `json:"type"`
	Tool string `json:"tool,omitempty"`
	Kind string `json:"kind,omitempty"`
	Text string `json:"text,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		s.writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	var events []queryEvent
	sink := agent.Sink(func(e agent.Event) {
		switch e.Type {
		case agent.EventToolCallStarted:
			events = append(events, queryEvent{Type: string(e.Type), Tool: e.Call.Name})
		case agent.EventToolCallFinished:
			qe := queryEvent{Type: string(e.Type), Tool: e.Result.Name}
			if e.Result.Outcome.Failed() {
				qe.Kind = string(e.Result.Outcome.Kind)
			}
			events = append(events, qe)
		case agent.EventAborted:
			events = append(events, queryEvent{Type: string(e.Type), Text: e.Text})
		}
	})

	started := time.Now()
	conv := conversation.New()
	result, err := s.orc.Run(r.Context(), conv, req.Prompt, sink)
	if err != nil && result == nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.record(started, result)

	if err != nil && errors.Is(err, llm.ErrTransport) {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, queryResponse{
		Answer:     result.Answer,
		StopReason: string(result.Stop),
		Rounds:     result.Rounds,
		ToolCalls:  result.ToolCalls,
		Usage:      result.Usage,
		Events:     events,
		DurationMs: result.Duration.Milliseconds(),
	})
}

// record appends the run to the ledger when one is configured.
func (s *Server) record(started time.Time, result *agent.RunResult) {
	if s.ledger == nil || result == nil {
		return
	}
	rec := ledger.RunRecord{
		ID:         uuid.New().String(),
		StartedAt:  started,
		Duration:   result.Duration,
		Model:      s.model,
		Mode:       "serve",
		Rounds:     result.Rounds,
		ToolCalls:  result.ToolCalls,
		TokensIn:   result.Usage.InputTokens,
		TokensOut:  result.Usage.OutputTokens,
		StopReason: string(result.Stop),
	}
	if err := s.ledger.Append(rec); err != nil {
		s.logger.Warn("failed to record run", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.Specs())
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.writeJSON(w, http.StatusOK, []ledger.RunRecord{})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := s.ledger.List(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []ledger.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}
