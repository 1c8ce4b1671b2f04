package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/agent"
	"github.com/tornikegomareli/Sentinel/internal/config"
	"github.com/tornikegomareli/Sentinel/internal/ledger"
	"github.com/tornikegomareli/Sentinel/internal/llm"
	"github.com/tornikegomareli/Sentinel/internal/tools"
)

// buildOrchestrator wires the registry, executor, model client and
// agent loop from config. When withTools is false the registry stays
// empty and the model receives no tool catalogue.
func buildOrchestrator(cfg *config.Config, model string, withTools bool, logger *zap.Logger) (*agent.Orchestrator, *tools.Registry, error) {
	registry := tools.NewRegistry()
	if withTools {
		scope, err := tools.NewScope(cfg.Agent.ProjectRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving project root: %w", err)
		}
		limits := tools.Limits{
			ShellTimeout:    cfg.ShellTimeout(),
			MaxShellTimeout: 10 * time.Minute,
			MaxOutputBytes:  cfg.Agent.MaxOutputBytes,
			MaxResults:      cfg.Agent.MaxResults,
		}
		if err := tools.RegisterBuiltins(registry, scope, limits); err != nil {
			return nil, nil, fmt.Errorf("registering tools: %w", err)
		}
	}

	if model == "" {
		model = cfg.Ollama.Model
	}
	client := llm.NewOllamaClient(llm.OllamaOptions{
		Host:    cfg.Ollama.Host,
		Model:   model,
		NumCtx:  cfg.Ollama.NumCtx,
		Timeout: cfg.OllamaTimeout(),
	}, logger)

	executor := tools.NewExecutor(registry, logger)
	budget := agent.Budget{
		MaxRounds:    cfg.Agent.MaxRounds,
		MaxToolCalls: cfg.Agent.MaxToolCalls,
	}
	orc := agent.New(client, registry, executor, budget, logger)
	return orc, registry, nil
}

// openLedger opens the run ledger, creating the data directory. A
// failure is downgraded to a warning: runs still work, they are just
// not recorded.
func openLedger(cfg *config.Config, logger *zap.Logger) *ledger.Ledger {
	if err := os.MkdirAll(cfg.Ledger.DataDir, 0755); err != nil {
		logger.Warn("cannot create data directory; runs will not be recorded", zap.Error(err))
		return nil
	}
	led, err := ledger.Open(cfg.DBPath())
	if err != nil {
		logger.Warn("cannot open run ledger; runs will not be recorded", zap.Error(err))
		return nil
	}
	return led
}

// recordRun appends one run to the ledger, if one is open.
func recordRun(led *ledger.Ledger, model, mode string, startedAt time.Time, result *agent.RunResult, logger *zap.Logger) {
	if led == nil || result == nil {
		return
	}
	rec := ledger.RunRecord{
		ID:         uuid.New().String(),
		StartedAt:  startedAt,
		Duration:   result.Duration,
		Model:      model,
		Mode:       mode,
		Rounds:     result.Rounds,
		ToolCalls:  result.ToolCalls,
		TokensIn:   result.Usage.InputTokens,
		TokensOut:  result.Usage.OutputTokens,
		StopReason: string(result.Stop),
	}
	if err := led.Append(rec); err != nil {
		logger.Warn("failed to record run", zap.Error(err))
	}
}
