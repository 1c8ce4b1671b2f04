package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tornikegomareli/Sentinel/internal/apiserver"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the agent over a local HTTP API",
		Long: `Start an HTTP server with a query endpoint, the tool catalogue and
the run ledger. Queries execute one at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}

			logger, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			orc, registry, err := buildOrchestrator(cfg, "", true, logger)
			if err != nil {
				return err
			}
			led := openLedger(cfg, logger)
			if led != nil {
				defer led.Close()
			}

			srv := apiserver.NewServer(cfg.ServerAddress(), orc, registry, led, cfg.Ollama.Model, logger)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			color.New(color.FgGreen, color.Bold).Printf("Sentinel API listening on http://%s\n", cfg.ServerAddress())
			fmt.Printf("  POST /api/v1/query    run one agent loop\n")
			fmt.Printf("  GET  /api/v1/tools    tool catalogue\n")
			fmt.Printf("  GET  /api/v1/runs     run ledger\n")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case sig := <-sigCh:
				logger.Info("shutting down", zap.String("signal", sig.String()))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 7171, "Listen port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Listen host")

	return cmd
}
