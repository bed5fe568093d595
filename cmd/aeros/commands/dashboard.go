package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aerostream/aeros/internal/dashboard"
	"github.com/aerostream/aeros/internal/logging"
)

// NewDashboardCmd constructs the `aeros dashboard` command, which serves the
// evaluation history web UI.
func NewDashboardCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the evaluation history web dashboard",
		Long: `Serve a web UI over the evaluation history database.

The dashboard shows accuracy and latency trends per run, links each run to the
ingestion configuration that produced its corpus, and lets a human reviewer
verify or overturn individual judge verdicts.

Examples:
  aeros dashboard
  aeros dashboard --port 8600
  AEROS_EVAL_DB=/srv/aeros/history.db aeros dashboard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			store, err := openEvalStore()
			if err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			defer store.Close()

			srv, err := dashboard.New(store, &dashboard.Config{Host: host, Port: port}, log)
			if err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8501, "TCP port to listen on")

	return cmd
}
