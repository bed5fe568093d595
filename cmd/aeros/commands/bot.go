package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/aerostream/aeros/internal/bot"
	"github.com/aerostream/aeros/internal/logging"
	"github.com/aerostream/aeros/internal/tracing"
)

// NewBotCmd constructs the `aeros bot` command, which connects to Slack over
// Socket Mode and answers @mentions in support channels.
func NewBotCmd() *cobra.Command {
	var interactionDir string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Slack support bot over Socket Mode",
		Long: `Connect to Slack via Socket Mode and answer @mentions.

Every mention is answered in-thread with a cited response from the knowledge
base. Each interaction is written to a JSON log file for later review.

Required environment variables:
  SLACK_BOT_TOKEN   xoxb- bot token with app_mentions:read and chat:write
  SLACK_APP_TOKEN   xapp- app-level token with connections:write

Examples:
  aeros bot
  aeros bot --interaction-dir /var/log/aeros`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("bot: %w", err)
			}
			defer comps.Close()

			interactions, err := bot.NewInteractionLogger(interactionDir, log)
			if err != nil {
				return fmt.Errorf("bot: %w", err)
			}

			b, err := bot.New(
				os.Getenv("SLACK_BOT_TOKEN"),
				os.Getenv("SLACK_APP_TOKEN"),
				comps.engine,
				interactions,
				log,
			)
			if err != nil {
				return fmt.Errorf("bot: %w", err)
			}

			log.Info("bot starting",
				slog.String("model", comps.modelName),
				slog.String("retrieval", comps.strategy),
			)
			return b.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&interactionDir, "interaction-dir", "", "Directory for per-interaction JSON logs (default: data/logs)")

	return cmd
}
