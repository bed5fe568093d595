package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/aerostream/aeros/internal/rag"
)

// Pipeline defaults.
const (
	// defaultBatchSize is the number of chunks embedded and upserted per batch.
	defaultBatchSize = 32
	// defaultConcurrency bounds the number of in-flight embedding batches.
	defaultConcurrency = 4
)

// Config holds the knobs for the ingestion pipeline.
type Config struct {
	// BatchSize is the number of chunks per embed/upsert batch (default 32).
	BatchSize int
	// Concurrency bounds the number of concurrent embedding batches (default 4).
	Concurrency int
}

// Stats summarises an ingestion run.
type Stats struct {
	// Units is the number of document units processed.
	Units int
	// Chunks is the number of chunks written to the stores.
	Chunks int
}

// Pipeline orchestrates the load → chunk → embed → upsert flow. Chunks land
// in both the vector store (for semantic search) and the lexical index (for
// BM25), so every retrieval strategy sees the same corpus.
type Pipeline struct {
	chunker  Chunker
	embedder rag.Embedder
	vector   rag.VectorStore
	lexical  rag.LexicalIndex
	cfg      Config
	log      *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(chunker Chunker, embedder rag.Embedder, vector rag.VectorStore, lexical rag.LexicalIndex, cfg Config, log *slog.Logger) (*Pipeline, error) {
	if chunker == nil {
		return nil, fmt.Errorf("ingest: chunker must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if vector == nil {
		return nil, fmt.Errorf("ingest: vector store must not be nil")
	}
	if lexical == nil {
		return nil, fmt.Errorf("ingest: lexical index must not be nil")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		vector:   vector,
		lexical:  lexical,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Run chunks all units and writes them to both stores. Atomic units (Slack
// threads) bypass the chunker. Returns stats for the completed run; the
// first error aborts the run.
func (p *Pipeline) Run(ctx context.Context, units []Unit) (*Stats, error) {
	docs := make([]rag.Document, 0, len(units))

	// Chunk ordinals run per (source, page) across the whole unit list, not
	// per unit. Atomic units share a source (export filename or channel name)
	// with page 0, so a per-unit index would collide every thread onto one ID
	// and the upserts would overwrite each other.
	ordinals := make(map[string]int)

	for _, unit := range units {
		chunks, err := p.chunkUnit(ctx, unit)
		if err != nil {
			return nil, err
		}
		key := unit.Source + "#" + strconv.Itoa(unit.Page)
		for i, chunk := range chunks {
			meta := map[string]string{"chunk_index": strconv.Itoa(i)}
			for k, v := range unit.Metadata {
				meta[k] = v
			}
			docs = append(docs, rag.Document{
				ID:       chunkID(unit.Source, unit.Page, ordinals[key]),
				Content:  chunk,
				Source:   unit.Source,
				Page:     unit.Page,
				Metadata: meta,
			})
			ordinals[key]++
		}
	}

	p.log.Info("ingest: chunking complete",
		slog.Int("units", len(units)),
		slog.Int("chunks", len(docs)),
		slog.String("strategy", p.chunker.Name()),
	)

	if err := p.store(ctx, docs); err != nil {
		return nil, err
	}

	return &Stats{Units: len(units), Chunks: len(docs)}, nil
}

// chunkUnit applies the configured chunker, passing atomic units through
// untouched.
func (p *Pipeline) chunkUnit(ctx context.Context, unit Unit) ([]string, error) {
	if unit.Atomic {
		return []string{unit.Text}, nil
	}
	chunks, err := p.chunker.Chunk(ctx, unit.Text)
	if err != nil {
		return nil, fmt.Errorf("ingest: chunking %s page %d failed: %w", unit.Source, unit.Page, err)
	}
	return chunks, nil
}

// store embeds documents in bounded-concurrency batches and upserts each
// batch into the vector store and the lexical index.
func (p *Pipeline) store(ctx context.Context, docs []rag.Document) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for start := 0; start < len(docs); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, d := range batch {
				texts[i] = d.Content
			}

			embeddings, err := p.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("ingest: embedding batch failed: %w", err)
			}

			if err := p.vector.Upsert(gctx, batch, embeddings); err != nil {
				return fmt.Errorf("ingest: vector upsert failed: %w", err)
			}
			if err := p.lexical.Index(gctx, batch); err != nil {
				return fmt.Errorf("ingest: lexical index failed: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	p.log.Info("ingest: stored chunks", slog.Int("chunks", len(docs)))
	return nil
}

// Reset drops and recreates both stores. Used by `aeros ingest --reset`.
func (p *Pipeline) Reset(ctx context.Context) error {
	if err := p.vector.Reset(ctx); err != nil {
		return fmt.Errorf("ingest: vector reset failed: %w", err)
	}
	if err := p.lexical.Reset(ctx); err != nil {
		return fmt.Errorf("ingest: lexical reset failed: %w", err)
	}
	p.log.Info("ingest: stores reset")
	return nil
}
