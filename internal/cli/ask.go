package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tornikegomareli/Sentinel/internal/agent"
	"github.com/tornikegomareli/Sentinel/internal/conversation"
)

func newAskCmd() *cobra.Command {
	var (
		model    string
		useTools bool
		stream   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a one-off message and print the answer",
		Example: `  sentinel ask "explain the files in this directory"
  sentinel ask --tools "list the files in src/ and summarize them"
  sentinel ask --model qwen2.5:7b --tools "run the tests and fix failures"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, true)
			if err != nil {
				return err
			}
			defer logger.Sync()

			orc, _, err := buildOrchestrator(cfg, model, useTools, logger)
			if err != nil {
				return err
			}
			led := openLedger(cfg, logger)
			if led != nil {
				defer led.Close()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			toolLine := color.New(color.FgBlue)
			failLine := color.New(color.FgRed)
			chunked := false

			sink := agent.Sink(func(e agent.Event) {
				switch e.Type {
				case agent.EventAnswerChunk:
					if stream {
						chunked = true
						fmt.Print(e.Text)
					}
				case agent.EventToolCallStarted:
					toolLine.Fprintf(os.Stderr, "⚙ %s\n", e.Call.Name)
				case agent.EventToolCallFinished:
					if e.Result.Outcome.Failed() {
						failLine.Fprintf(os.Stderr, "  ✗ %s: %s\n",
							e.Result.Outcome.Kind, e.Result.Outcome.Message)
					}
				case agent.EventAborted:
					failLine.Fprintf(os.Stderr, "%s\n", e.Text)
				}
			})

			startedAt := time.Now()
			conv := conversation.New()
			result, runErr := orc.Run(ctx, conv, prompt, sink)
			recordRun(led, modelName(cfg.Ollama.Model, model), "ask", startedAt, result, logger)

			if runErr != nil {
				return runErr
			}
			if chunked {
				fmt.Println()
			} else if result.Answer != "" {
				fmt.Println(result.Answer)
			}
			if result.Stop != agent.StopComplete {
				return fmt.Errorf("run did not complete: %s", result.Stop)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (default from config)")
	cmd.Flags().BoolVarP(&useTools, "tools", "t", false, "Enable tool use")
	cmd.Flags().BoolVar(&stream, "stream", true, "Stream the answer as it is generated")

	return cmd
}

func modelName(configured, override string) string {
	if override != "" {
		return override
	}
	return configured
}
