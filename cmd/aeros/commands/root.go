// Package commands defines all Cobra CLI commands for the aeros binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/aerostream/aeros/internal/audit"
	"github.com/aerostream/aeros/internal/config"
	"github.com/aerostream/aeros/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aeros",
		Short: "AeroStream SOP support bot — RAG over drone assembly procedures",
		Long: `Aeros is a retrieval-augmented support bot for AeroStream's drone
assembly line. It indexes SOP manuals (PDF) and Slack support history into a
hybrid semantic + BM25 knowledge base, and answers technician questions with
cited sources via Slack, an HTTP API, or the command line.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.aeros/config.yaml).
See 'aeros --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.aeros/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewBotCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewEvaluateCmd(),
		NewDashboardCmd(),
		NewVersionCmd(),
	)

	return root
}
