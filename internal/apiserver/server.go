// Package apiserver exposes the agent over a small REST surface:
// submit a query, inspect the tool catalogue, read the run ledger.
// The process owns a single conversation, so queries run one at a
// time.
package apiserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/agent"
	"github.com/tornikegomareli/Sentinel/internal/ledger"
	"github.com/tornikegomareli/Sentinel/internal/tools"
)

// Server is the Sentinel HTTP API server.
type Server struct {
	router   *mux.Router
	orc      *agent.Orchestrator
	registry *tools.Registry
	ledger   *ledger.Ledger
	model    string
	logger   *zap.Logger
	server   *http.Server

	// runMu serializes agent runs: one conversation per process.
	runMu sync.Mutex
}

// NewServer creates a fully-wired Server ready to Start(). The ledger
// may be nil; run records are then not persisted.
func NewServer(addr string, orc *agent.Orchestrator, registry *tools.Registry, led *ledger.Ledger, model string, logger *zap.Logger) *Server {
	srv := &Server{
		router:   mux.NewRouter(),
		orc:      orc,
		registry: registry,
		ledger:   led,
		model:    model,
		logger:   logger,
	}
	srv.server = &http.Server{
		Addr:         addr,
		Handler:      srv.loggingMiddleware(srv.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // agent runs are slow
	}
	srv.registerRoutes()
	return srv
}

// Start begins listening and serving HTTP requests. It blocks until
// the server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/query", s.handleQuery).Methods("POST")
	api.HandleFunc("/tools", s.handleListTools).Methods("GET")
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}
