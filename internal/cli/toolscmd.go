package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tornikegomareli/Sentinel/internal/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, true)
			if err != nil {
				return err
			}
			defer logger.Sync()

			_, registry, err := buildOrchestrator(cfg, "", true, logger)
			if err != nil {
				return err
			}

			nameStyle := color.New(color.FgCyan, color.Bold)
			effectStyle := map[tools.EffectClass]*color.Color{
				tools.EffectReadOnly: color.New(color.FgGreen),
				tools.EffectMutating: color.New(color.FgYellow),
				tools.EffectProcess:  color.New(color.FgRed),
			}

			for _, spec := range registry.Specs() {
				nameStyle.Printf("%-12s", spec.Name)
				effectStyle[spec.Effect].Printf(" [%s]\n", spec.Effect)
				fmt.Printf("  %s\n", spec.Description)
				if spec.Params != nil && len(spec.Params.Properties) > 0 {
					fmt.Printf("  args: %s\n", formatParams(spec.Params))
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func formatParams(schema *tools.Schema) string {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		part := fmt.Sprintf("%s (%s)", name, schema.Properties[name].Type)
		if required[name] {
			part += "*"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
