package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/aerostream/aeros/internal/answer"
	"github.com/aerostream/aeros/internal/embedder"
	"github.com/aerostream/aeros/internal/evalstore"
	"github.com/aerostream/aeros/internal/provider"
	"github.com/aerostream/aeros/internal/rag"
	"github.com/aerostream/aeros/internal/rerank"
)

// components bundles the fully wired answer pipeline plus the backing stores
// that need closing when the command exits.
type components struct {
	engine    *answer.Engine
	modelName string
	strategy  string

	// qdrant is nil for the lexical-only strategy.
	qdrant *rag.QdrantStore
	// lexical is nil unless the strategy uses BM25.
	lexical *rag.BleveIndex
}

// Close releases the store connections. Safe to call on a partially
// constructed bundle.
func (c *components) Close() {
	if c.qdrant != nil {
		_ = c.qdrant.Close()
	}
	if c.lexical != nil {
		_ = c.lexical.Close()
	}
}

// buildComponents assembles the full query pipeline from the environment:
// embedder, stores, retriever, guard, chat model, and answer engine.
func buildComponents(ctx context.Context, log *slog.Logger) (*components, error) {
	strategy := getEnvOrDefault("RETRIEVAL_STRATEGY", rag.StrategySemantic)

	c := &components{strategy: strategy}

	var parts rag.Components
	var err error

	if strategy != rag.StrategyLexical {
		parts.Embedder, err = buildEmbedder(log)
		if err != nil {
			return nil, err
		}
		c.qdrant, err = buildQdrant(ctx)
		if err != nil {
			return nil, err
		}
		parts.Vector = c.qdrant
	}

	if strategy == rag.StrategyLexical || strategy == rag.StrategyHybrid {
		c.lexical, err = buildLexical()
		if err != nil {
			c.Close()
			return nil, err
		}
		parts.Lexical = c.lexical
	}

	if strategy == rag.StrategyRerank {
		endpoint := os.Getenv("RERANK_ENDPOINT")
		if endpoint == "" {
			c.Close()
			return nil, fmt.Errorf("rerank strategy requires RERANK_ENDPOINT")
		}
		parts.Reranker = rerank.NewClient(&rerank.Config{
			Endpoint: endpoint,
			Model:    os.Getenv("RERANK_MODEL"),
		})
	}

	retriever, err := rag.NewRetriever(strategy, parts)
	if err != nil {
		c.Close()
		return nil, err
	}

	providerCfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	c.modelName = providerCfg.ModelName()
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", c.modelName),
	)

	engine, err := answer.NewEngine(answer.EngineConfig{
		Model:         chatModel,
		ModelName:     c.modelName,
		Retriever:     retriever,
		RetrievalType: strategy,
		Guard:         buildGuard(log),
		TopK:          getEnvInt("RETRIEVAL_TOP_K", 0),
	}, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.engine = engine

	return c, nil
}

// buildEmbedder validates the embedding configuration and wraps the resolved
// embedder in an LRU cache so repeated queries skip the embedding round-trip.
func buildEmbedder(log *slog.Logger) (rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	return embedder.NewCachedEmbedder(emb, 0)
}

// buildQdrant connects to Qdrant using the environment configuration,
// creating the collection if it does not exist.
func buildQdrant(ctx context.Context) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	backend := embedder.ResolveBackend()

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "aeros-sops"),
		VectorSize: uint64(embedder.DefaultDimensions(backend)), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return store, nil
}

// buildLexical opens the on-disk Bleve BM25 index.
func buildLexical() (*rag.BleveIndex, error) {
	return rag.NewBleveIndex(getEnvOrDefault("BM25_INDEX_PATH", "data/bm25.bleve"))
}

// buildGuard constructs the Llama Guard safety checker. GUARD_MODEL=disabled
// turns the pre-check off entirely.
func buildGuard(log *slog.Logger) answer.Guard {
	model := getEnvOrDefault("GUARD_MODEL", answer.DefaultGuardModel)
	if model == "disabled" || model == "off" {
		log.Warn("safety guard disabled via GUARD_MODEL")
		return nil
	}
	host := getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
	return answer.NewOllamaGuard(host, model)
}

// openEvalStore opens the evaluation history database. AEROS_EVAL_DB
// overrides the default path (~/.aeros/evaluation_history.db).
func openEvalStore() (*evalstore.Store, error) {
	path := os.Getenv("AEROS_EVAL_DB")
	if path == "" {
		var err error
		path, err = evalstore.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve evaluation DB path: %w", err)
		}
	}
	return evalstore.Open(path)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
