package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tornikegomareli/Sentinel/internal/agent"
	"github.com/tornikegomareli/Sentinel/internal/tui"
)

func newChatCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (default from config)")

	return cmd
}

// runChat builds the full agent stack and hands control to the TUI.
// Also invoked by the bare `sentinel` command.
func runChat(cmd *cobra.Command) error {
	model, _ := cmd.Flags().GetString("model")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	orc, _, err := buildOrchestrator(cfg, model, true, logger)
	if err != nil {
		return err
	}
	led := openLedger(cfg, logger)
	if led != nil {
		defer led.Close()
	}

	name := modelName(cfg.Ollama.Model, model)
	recorder := func(result *agent.RunResult) {
		recordRun(led, name, "chat", time.Now().Add(-result.Duration), result, logger)
	}

	app := tui.NewApp(orc, name, recorder, logger)
	return app.Run()
}
