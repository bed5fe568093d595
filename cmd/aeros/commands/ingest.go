package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/aerostream/aeros/internal/evalstore"
	"github.com/aerostream/aeros/internal/ingest"
	"github.com/aerostream/aeros/internal/logging"
)

// NewIngestCmd constructs the `aeros ingest` command, which loads SOP manuals
// and Slack history into the vector store and the BM25 index.
func NewIngestCmd() *cobra.Command {
	var strategy string
	var chunkSize int
	var overlap int
	var similarityThreshold float64
	var pdfDir string
	var exportDir string
	var slackChannel string
	var reset bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest SOP manuals and Slack history into the knowledge base",
		Long: `Load knowledge sources into both retrieval stores: PDFs are split into
chunks with the selected strategy, Slack threads are kept whole as Q&A pairs,
and every chunk is embedded and written to Qdrant and the Bleve BM25 index.

Each run records its chunking configuration in the evaluation history database
so accuracy numbers can be traced back to the ingestion settings that produced
them.

Examples:
  aeros ingest --pdf-dir data
  aeros ingest --strategy structure --pdf-dir data --export-dir data/slack_exports
  aeros ingest --slack-channel '#assembly-support'
  aeros ingest --reset --pdf-dir data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if pdfDir == "" && exportDir == "" && slackChannel == "" && !reset {
				return fmt.Errorf("ingest: nothing to do — set --pdf-dir, --export-dir, or --slack-channel")
			}

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			vector, err := buildQdrant(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer vector.Close()

			lexical, err := buildLexical()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer lexical.Close()

			chunker, err := ingest.NewChunker(ingest.ChunkerConfig{
				Strategy:            strategy,
				ChunkSize:           chunkSize,
				Overlap:             overlap,
				SimilarityThreshold: similarityThreshold,
				Embedder:            emb,
			})
			if err != nil {
				return err
			}

			pipeline, err := ingest.NewPipeline(chunker, emb, vector, lexical, ingest.Config{}, log)
			if err != nil {
				return err
			}

			if reset {
				if err := pipeline.Reset(ctx); err != nil {
					return err
				}
			}

			var units []ingest.Unit
			if pdfDir != "" {
				pdfUnits, err := ingest.LoadPDFDir(pdfDir, log)
				if err != nil {
					return err
				}
				units = append(units, pdfUnits...)
			}
			if exportDir != "" {
				exportUnits, err := ingest.LoadSlackExports(exportDir, log)
				if err != nil {
					return err
				}
				units = append(units, exportUnits...)
			}
			if slackChannel != "" {
				botToken := os.Getenv("SLACK_BOT_TOKEN")
				if botToken == "" {
					return fmt.Errorf("ingest: --slack-channel requires SLACK_BOT_TOKEN")
				}
				loader := ingest.NewSlackLoader(slack.New(botToken), log)
				channelUnits, err := loader.LoadChannel(ctx, slackChannel)
				if err != nil {
					return err
				}
				units = append(units, channelUnits...)
			}

			if len(units) == 0 {
				log.Warn("ingest: no document units loaded")
				return nil
			}

			stats, err := pipeline.Run(ctx, units)
			if err != nil {
				return err
			}
			log.Info("ingest: complete",
				slog.Int("units", stats.Units),
				slog.Int("chunks", stats.Chunks),
				slog.String("strategy", chunker.Name()),
			)

			recordIngestionConfig(cmd, chunker.Name(), chunkSize, overlap, similarityThreshold, stats, log)
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", ingest.StrategyStandard, "Chunking strategy (standard, semantic, structure)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", ingest.DefaultChunkSize, "Chunk window size in characters (standard strategy)")
	cmd.Flags().IntVar(&overlap, "overlap", ingest.DefaultOverlap, "Chunk window overlap in characters (standard strategy)")
	cmd.Flags().Float64Var(&similarityThreshold, "similarity-threshold", ingest.DefaultSimilarityThreshold, "Minimum cosine similarity to the running chunk centroid (semantic strategy)")
	cmd.Flags().StringVar(&pdfDir, "pdf-dir", "", "Directory of SOP manual PDFs to ingest")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "Directory of Slack conversation export JSON files")
	cmd.Flags().StringVar(&slackChannel, "slack-channel", "", "Slack channel (name or ID) to ingest live history from")
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop and recreate both stores before ingesting")

	return cmd
}

// recordIngestionConfig logs the run's chunking settings to the evaluation
// history database so later eval runs can be linked back to them. Failure to
// record is non-fatal: the ingested data is already committed.
func recordIngestionConfig(cmd *cobra.Command, strategy string, chunkSize, overlap int, similarityThreshold float64, stats *ingest.Stats, log *slog.Logger) {
	store, err := openEvalStore()
	if err != nil {
		log.Warn("ingest: could not open evaluation DB, skipping config record", slog.Any("error", err))
		return
	}
	defer store.Close()

	cfg := evalstore.IngestionConfig{
		ChunkSize:      chunkSize,
		Overlap:        overlap,
		EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "nomic-embed-text"),
		IngestionType:  strategy,
		Configuration: map[string]any{
			"strategy":             strategy,
			"chunk_size":           chunkSize,
			"overlap":              overlap,
			"similarity_threshold": similarityThreshold,
			"units":                stats.Units,
			"chunks":               stats.Chunks,
		},
	}
	if _, err := store.LogIngestionConfig(cmd.Context(), cfg); err != nil {
		log.Warn("ingest: failed to record ingestion config", slog.Any("error", err))
		return
	}
	log.Info("ingest: recorded ingestion config", slog.String("strategy", strategy))
}
