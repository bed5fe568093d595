package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aerostream/aeros/internal/logging"
)

// NewAskCmd constructs the `aeros ask` command, which answers a single
// question from the knowledge base and prints the cited answer to stdout.
func NewAskCmd() *cobra.Command {
	var showChunks bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the support bot a question from the command line",
		Long: `Ask a one-off question against the ingested SOP knowledge base.

The answer is generated from retrieved document chunks only and ends with a
references block citing the source manuals and pages.

Examples:
  aeros ask "What torque spec applies to the arm mount bolts?"
  aeros ask --show-chunks "How do I calibrate the compass after a motor swap?"
  RETRIEVAL_STRATEGY=hybrid aeros ask "What is the ESC firmware flash procedure?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer comps.Close()

			res, err := comps.engine.Answer(ctx, args[0])
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(res.Answer)

			if showChunks {
				fmt.Printf("\n--- retrieved %d chunks (%s, %.2fs) ---\n",
					len(res.RetrievedChunks), res.RetrievalType, res.Latency.Seconds())
				for i, chunk := range res.RetrievedChunks {
					fmt.Printf("\n[%d] %s\n", i+1, chunk)
				}
			}

			log.Debug("ask complete",
				slog.Int("chunks", len(res.RetrievedChunks)),
				slog.Duration("latency", res.Latency),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showChunks, "show-chunks", false, "Print the retrieved context chunks after the answer")

	return cmd
}
