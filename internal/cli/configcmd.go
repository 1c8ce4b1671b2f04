package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tornikegomareli/Sentinel/internal/config"
)

func newConfigCmd() *cobra.Command {
	var (
		model     string
		host      string
		maxRounds int
		maxTools  int
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update persisted settings",
		Long: `Without flags, prints the effective configuration as YAML.
With flags, updates the config file and prints the result.`,
		Example: `  sentinel config
  sentinel config --model qwen2.5:7b
  sentinel config --host http://127.0.0.1:11434 --max-rounds 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			changed := false
			if cmd.Flags().Changed("model") {
				cfg.Ollama.Model = model
				changed = true
			}
			if cmd.Flags().Changed("host") {
				cfg.Ollama.Host = host
				changed = true
			}
			if cmd.Flags().Changed("max-rounds") {
				cfg.Agent.MaxRounds = maxRounds
				changed = true
			}
			if cmd.Flags().Changed("max-tool-calls") {
				cfg.Agent.MaxToolCalls = maxTools
				changed = true
			}

			if changed {
				if err := cfg.Save(cfgPath); err != nil {
					return err
				}
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Set the default model")
	cmd.Flags().StringVar(&host, "host", "", "Set the Ollama host URL")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Set the inference-round budget per request")
	cmd.Flags().IntVar(&maxTools, "max-tool-calls", 0, "Set the tool-call budget per request")

	return cmd
}
