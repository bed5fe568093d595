// Package rag defines the interfaces for retrieval-augmented generation
// components: vector storage, lexical indexing, document retrieval, embedding,
// and reranking. Concrete implementations (Qdrant, Bleve, etc.) satisfy these
// interfaces so the answer layer never depends on a specific backend.
package rag

import (
	"context"
)

// Document represents a unit of retrieved or stored knowledge.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin of the document (PDF filename or Slack channel).
	Source string

	// Page is the 1-based page number within the source document.
	// Zero for sources without pagination (Slack threads).
	Page int

	// Metadata holds arbitrary key-value pairs (doc type, thread ts, etc.).
	Metadata map[string]string

	// Score is the relevance score assigned during retrieval.
	// Zero value means the score was not computed.
	Score float32
}

// VectorStore is the interface for persisting and searching document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings. embeddings must be parallel to docs — embeddings[i] is the
	// vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search performs a semantic similarity search and returns the top-k
	// most relevant documents for the given query embedding.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Reset drops and recreates the underlying collection.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// LexicalIndex is the interface for keyword (BM25) search over document text.
// Implementations must be safe to call from multiple goroutines.
type LexicalIndex interface {
	// Index adds or updates a batch of documents in the keyword index.
	Index(ctx context.Context, docs []Document) error

	// Search returns the top-k BM25 matches for the given query string.
	// An empty or whitespace-only query returns no results, not an error.
	Search(ctx context.Context, query string, topK int) ([]Document, error)

	// Reset drops and recreates the index.
	Reset(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the answer layer to fetch
// relevant context for a given query.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the given query,
	// ordered by descending score.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}

// Reranker re-scores a candidate document list against a query using a
// cross-encoder model and returns the candidates ordered by the new score.
type Reranker interface {
	// Rerank scores each (query, doc) pair and returns the documents sorted
	// by descending cross-encoder score, truncated to topK.
	Rerank(ctx context.Context, query string, docs []Document, topK int) ([]Document, error)
}
