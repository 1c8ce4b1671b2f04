package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tornikegomareli/Sentinel/internal/ledger"
)

func newStatsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded run statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			led, err := ledger.Open(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("no run ledger at %s: %w", cfg.DBPath(), err)
			}
			defer led.Close()

			sum, err := led.Summarize()
			if err != nil {
				return err
			}

			color.New(color.Bold).Println("Totals")
			fmt.Printf("  runs: %d (aborted: %d)\n", sum.Runs, sum.Aborted)
			fmt.Printf("  rounds: %d  tool calls: %d\n", sum.Rounds, sum.ToolCalls)
			fmt.Printf("  tokens: %d in / %d out\n\n", sum.TokensIn, sum.TokensOut)

			records, err := led.List(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return nil
			}

			color.New(color.Bold).Println("Recent runs")
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tMODE\tMODEL\tROUNDS\tTOOLS\tTOKENS\tSTOP\tDURATION")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d/%d\t%s\t%s\n",
					rec.StartedAt.Local().Format(time.DateTime),
					rec.Mode,
					rec.Model,
					rec.Rounds,
					rec.ToolCalls,
					rec.TokensIn, rec.TokensOut,
					rec.StopReason,
					rec.Duration.Round(time.Millisecond),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent runs to show")

	return cmd
}
