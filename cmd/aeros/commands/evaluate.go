package commands

import (
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/cobra"

	"github.com/aerostream/aeros/internal/eval"
	"github.com/aerostream/aeros/internal/logging"
	"github.com/aerostream/aeros/internal/provider"
)

// NewEvaluateCmd constructs the `aeros evaluate` command, which runs the
// answer pipeline over a QA test set and scores it with an LLM judge.
func NewEvaluateCmd() *cobra.Command {
	var testSet string
	var resultsDir string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate answer accuracy against a QA test set",
		Long: `Run every question in the test set through the full answer pipeline and
judge each response against the gold answer with an LLM judge.

Results are written to a timestamped JSON file and persisted to the evaluation
history database, linked to the most recent ingestion configuration. Use
'aeros dashboard' to browse and hand-verify past runs.

The judge model defaults to llama3.1:8b; override with JUDGE_MODEL.

Examples:
  aeros evaluate --test-set tests/test_set.json
  RETRIEVAL_STRATEGY=rerank aeros evaluate --test-set tests/test_set.json
  JUDGE_MODEL=llama3.1:70b aeros evaluate --test-set tests/test_set.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if testSet == "" {
				testSet = getEnvOrDefault("AEROS_TEST_SET", "tests/test_set.json")
			}

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}
			defer comps.Close()

			judgeModel, err := buildJudgeModel(cmd, log)
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}

			store, err := openEvalStore()
			if err != nil {
				log.Warn("evaluate: could not open history DB, results will not be persisted", slog.Any("error", err))
				store = nil
			} else {
				defer store.Close()
			}

			harness, err := eval.NewHarness(comps.engine, eval.NewJudge(judgeModel), store, comps.modelName, resultsDir, log)
			if err != nil {
				return err
			}

			summary, err := harness.Run(ctx, testSet)
			if err != nil {
				return err
			}

			fmt.Printf("Accuracy: %.2f%% (%d/%d correct)\n",
				summary.Accuracy, summary.CorrectAnswers, summary.TotalQuestions)
			fmt.Printf("Average latency: %.2fs\n", summary.AvgLatency)
			fmt.Printf("Results written to %s\n", summary.ResultsPath)
			if summary.RunID > 0 {
				fmt.Printf("Run #%d saved to evaluation history\n", summary.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&testSet, "test-set", "t", "", "Path to the QA test set JSON file (default: $AEROS_TEST_SET or tests/test_set.json)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "Directory for timestamped results files (default: evaluation_results)")

	return cmd
}

// buildJudgeModel constructs the judge's chat model on the same backend as
// the answer model, with JUDGE_MODEL overriding the model name.
func buildJudgeModel(cmd *cobra.Command, log *slog.Logger) (model.ToolCallingChatModel, error) {
	cfg := provider.ConfigFromEnv()
	judgeName := getEnvOrDefault("JUDGE_MODEL", eval.DefaultJudgeModel)

	switch cfg.Backend {
	case provider.BackendOllama:
		cfg.Ollama.Model = judgeName
	case provider.BackendOpenAI:
		cfg.OpenAI.Model = judgeName
	case provider.BackendGemini:
		cfg.Gemini.Model = judgeName
	case provider.BackendAzure:
		// Azure deployments are fixed per resource; the answer deployment
		// doubles as the judge.
	}

	log.Info("judge model", slog.String("model", cfg.ModelName()))
	return provider.New(cmd.Context(), cfg)
}
