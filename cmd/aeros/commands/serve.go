package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aerostream/aeros/internal/logging"
	"github.com/aerostream/aeros/internal/server"
	"github.com/aerostream/aeros/internal/tracing"
)

// NewServeCmd constructs the `aeros serve` command, which starts the HTTP
// API server for programmatic access to the answer pipeline.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the aeros HTTP API server",
		Long: `Start the aeros HTTP server on localhost.

The server exposes POST /api/ask for question answering, health and readiness
probes, and Prometheus metrics. Set AEROS_API_KEY to require Bearer token
authentication on the ask endpoint.

Examples:
  aeros serve
  aeros serve --port 9090
  RETRIEVAL_STRATEGY=hybrid aeros serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer comps.Close()

			var pingers []server.Pinger
			pingers = append(pingers, server.NewOllamaPinger(getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")))
			if comps.qdrant != nil {
				pingers = append(pingers, server.NewQdrantPinger(comps.qdrant.Client()))
			}

			srv, err := server.New(comps.engine, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("AEROS_API_KEY"),
			}, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
