package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"paperfeed/internal/logger"
	"paperfeed/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the paperfeed API server.

Endpoints:
  GET /health              liveness probe
  GET /api/status          service status
  GET /api/digest/weekly   this week's digest for the authenticated user
  GET /api/papers/search   keyword search over recent papers

Digest and search endpoints require a Bearer JWT whose subject claim
identifies the user.

Examples:
  # Start on the configured port (default 8080)
  paperfeed serve

  # Start on a custom port
  paperfeed serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()

	d, err := buildDeps(false)
	if err != nil {
		return err
	}
	defer d.Close()

	serverCfg := d.cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	srv := server.New(d.service, d.scholar, d.db.Searches(), serverCfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting HTTP server", "host", serverCfg.Host, "port", serverCfg.Port)
	return srv.Start(ctx)
}
