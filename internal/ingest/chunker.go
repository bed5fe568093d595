// Package ingest loads knowledge sources (PDF manuals, Slack conversation
// history) into the retrieval stores: documents are split into chunks,
// embedded in parallel batches, and upserted into both the vector store and
// the lexical index.
package ingest

import (
	"context"
	"fmt"

	"github.com/aerostream/aeros/internal/rag"
)

// Chunking strategy names accepted by NewChunker.
const (
	StrategyStandard  = "standard"
	StrategySemantic  = "semantic"
	StrategyStructure = "structure"
)

// Chunking defaults shared by the CLI flags and the chunker constructors.
const (
	// DefaultChunkSize is the standard chunker's window in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is the standard chunker's window overlap in characters.
	DefaultOverlap = 200
	// DefaultSimilarityThreshold is the semantic chunker's cosine threshold.
	DefaultSimilarityThreshold = 0.4
	// DefaultMinChunkSize is the semantic chunker's minimum chunk length.
	DefaultMinChunkSize = 100
	// DefaultMaxStructureChunk is the structure chunker's maximum chunk length.
	DefaultMaxStructureChunk = 1500
	// DefaultMinStructureChunk is the structure chunker's merge threshold.
	DefaultMinStructureChunk = 200
)

// Chunker splits a document's text into retrieval-sized chunks.
// Implementations must be safe to call from multiple goroutines.
type Chunker interface {
	// Name returns the strategy name for logging and config records.
	Name() string

	// Chunk splits text into chunks. The context is used by strategies that
	// call external services (the semantic chunker embeds sentences).
	Chunk(ctx context.Context, text string) ([]string, error)
}

// ChunkerConfig holds the knobs for constructing a chunker.
// Zero values select the documented defaults.
type ChunkerConfig struct {
	// Strategy selects the chunker: standard, semantic, structure.
	Strategy string
	// ChunkSize is the standard chunker's window size in characters.
	ChunkSize int
	// Overlap is the standard chunker's overlap in characters.
	Overlap int
	// SimilarityThreshold is the semantic chunker's cosine threshold.
	SimilarityThreshold float64
	// MinChunkSize is the semantic chunker's minimum chunk length.
	MinChunkSize int
	// Embedder is required by the semantic strategy.
	Embedder rag.Embedder
}

// NewChunker constructs the chunker for the named strategy.
// An empty strategy defaults to standard.
func NewChunker(cfg ChunkerConfig) (Chunker, error) {
	switch cfg.Strategy {
	case StrategyStandard, "":
		return NewStandardChunker(cfg.ChunkSize, cfg.Overlap), nil

	case StrategySemantic:
		if cfg.Embedder == nil {
			return nil, fmt.Errorf("ingest: semantic chunking requires an embedder")
		}
		return NewSemanticChunker(cfg.Embedder, cfg.SimilarityThreshold, cfg.MinChunkSize), nil

	case StrategyStructure:
		return NewStructureChunker(DefaultMaxStructureChunk, DefaultMinStructureChunk), nil

	default:
		return nil, fmt.Errorf("ingest: unknown chunking strategy %q (want standard, semantic, or structure)", cfg.Strategy)
	}
}
