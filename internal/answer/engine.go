// Package answer implements the question answering pipeline: safety
// pre-check, retrieval, context assembly within a token budget, generation
// through an eino chat model, and citation formatting.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/aerostream/aeros/internal/budget"
	"github.com/aerostream/aeros/internal/rag"
)

// systemPrompt instructs the model to answer strictly from retrieved context.
const systemPrompt = "You are a helpful manufacturing support assistant. " +
	"Answer the question using ONLY the following context. " +
	"If you don't know, say you don't know."

// chunkSeparator joins retrieved chunks inside the system prompt.
const chunkSeparator = "\n\n---\n\n"

// NoDocumentsMessage is returned when retrieval finds nothing; the model is
// not called in that case.
const NoDocumentsMessage = "I couldn't find any relevant documents in the knowledge base."

// RetrievalTypeBlocked marks results short-circuited by the safety guard.
const RetrievalTypeBlocked = "blocked"

// Result is the pipeline output. Every path through the engine (blocked,
// empty retrieval, generated) produces the same shape.
type Result struct {
	// Answer is the final user-facing text, citations included.
	Answer string

	// Citations lists the deduplicated source references.
	Citations []string

	// RetrievedChunks holds the content of the chunks handed to the model.
	RetrievedChunks []string

	// Model is the model that produced the answer (the guard model for
	// blocked queries).
	Model string

	// RetrievalType names the retrieval strategy, or "blocked".
	RetrievalType string

	// Latency is the end-to-end pipeline duration.
	Latency time.Duration
}

// EngineConfig wires the engine's dependencies.
type EngineConfig struct {
	// Model generates answers. Required.
	Model model.BaseChatModel

	// ModelName identifies Model in results and eval records.
	ModelName string

	// Retriever supplies context chunks. Required.
	Retriever rag.Retriever

	// RetrievalType names the retriever's strategy for reporting.
	RetrievalType string

	// Guard screens queries before retrieval. Nil disables the check.
	Guard Guard

	// TopK is the number of chunks to retrieve (default rag.DefaultTopK).
	TopK int

	// MaxContextTokens bounds the retrieved context handed to the model
	// (default budget.DefaultMaxContextTokens).
	MaxContextTokens int
}

// Engine runs the guard → retrieve → trim → generate → cite pipeline.
type Engine struct {
	cfg EngineConfig
	log *slog.Logger
}

// NewEngine validates cfg and constructs an Engine.
func NewEngine(cfg EngineConfig, log *slog.Logger) (*Engine, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("answer: model must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("answer: retriever must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = rag.DefaultTopK
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Answer runs the full pipeline for one query.
func (e *Engine) Answer(ctx context.Context, query string) (*Result, error) {
	start := time.Now()

	if e.cfg.Guard != nil {
		safe, err := e.cfg.Guard.Check(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("answer: safety check failed: %w", err)
		}
		if !safe {
			e.log.Warn("answer: query blocked by safety guard")
			return &Result{
				Answer:        RefusalMessage,
				Model:         e.cfg.Guard.ModelName(),
				RetrievalType: RetrievalTypeBlocked,
				Latency:       time.Since(start),
			}, nil
		}
	}

	docs, err := e.cfg.Retriever.Retrieve(ctx, query, e.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("answer: retrieval failed: %w", err)
	}
	if len(docs) == 0 {
		return &Result{
			Answer:        NoDocumentsMessage,
			Model:         e.cfg.ModelName,
			RetrievalType: e.cfg.RetrievalType,
			Latency:       time.Since(start),
		}, nil
	}

	reserved := budget.Estimate(systemPrompt) + budget.Estimate(query)
	trimmed := budget.TrimDocuments(docs, reserved, e.cfg.MaxContextTokens)
	if len(trimmed) < len(docs) {
		e.log.Debug("answer: trimmed context to budget",
			slog.Int("retrieved", len(docs)),
			slog.Int("kept", len(trimmed)),
		)
	}

	msgs := buildMessages(query, trimmed)
	resp, err := e.cfg.Model.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("answer: generation failed: %w", err)
	}

	citations := Citations(trimmed)
	chunks := make([]string, len(trimmed))
	for i, d := range trimmed {
		chunks[i] = d.Content
	}

	result := &Result{
		Answer:          appendReferences(strings.TrimSpace(resp.Content), citations),
		Citations:       citations,
		RetrievedChunks: chunks,
		Model:           e.cfg.ModelName,
		RetrievalType:   e.cfg.RetrievalType,
		Latency:         time.Since(start),
	}

	e.log.Info("answer: generated",
		slog.Int("chunks", len(chunks)),
		slog.String("model", e.cfg.ModelName),
		slog.Duration("latency", result.Latency),
	)
	return result, nil
}

// buildMessages assembles the system prompt with the retrieved context and
// the user question.
func buildMessages(query string, docs []rag.Document) []*schema.Message {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	for i, d := range docs {
		if i > 0 {
			b.WriteString(chunkSeparator)
		}
		b.WriteString(d.Content)
	}

	return []*schema.Message{
		schema.SystemMessage(b.String()),
		schema.UserMessage(query),
	}
}
