// Package cli implements the sentinel command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/config"
)

var (
	cfgPath     string
	projectRoot string
	logLevel    string
)

// NewRootCmd creates the top-level sentinel CLI command with all
// subcommands. Without a subcommand it launches the interactive chat.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentinel",
		Short: "Interactive agent for locally hosted language models",
		Long: `Sentinel mediates between you, a locally hosted language model
(Ollama) and a small set of tools: shell execution, file CRUD,
directory listing and file search. All tool effects are scoped to a
project root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default action: interactive chat.
			return runChat(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.sentinel/config.yaml)")
	cmd.PersistentFlags().StringVar(&projectRoot, "root", "", "Project root for tool effects (default current directory)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")

	cmd.AddCommand(
		newChatCmd(),
		newAskCmd(),
		newServeCmd(),
		newConfigCmd(),
		newToolsCmd(),
		newStatsCmd(),
	)

	return cmd
}

// loadConfig reads the config file and applies persistent-flag
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if projectRoot != "" {
		cfg.Agent.ProjectRoot = projectRoot
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from config. In interactive
// modes console noise is unwanted, so callers may pass quiet to keep
// only warnings.
func newLogger(cfg *config.Config, quiet bool) (*zap.Logger, error) {
	if quiet && cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	return cfg.NewLogger()
}

// Execute is the process entry point used by cmd/sentinel.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
