package rag

import (
	"context"
	"fmt"
)

// DefaultTopK is the number of documents returned when the caller does not
// specify a k.
const DefaultTopK = 7

// SemanticRetriever implements Retriever by embedding the query and running
// a cosine similarity search against the vector store.
type SemanticRetriever struct {
	embedder Embedder
	store    VectorStore
}

// NewSemanticRetriever constructs a SemanticRetriever.
func NewSemanticRetriever(embedder Embedder, store VectorStore) *SemanticRetriever {
	return &SemanticRetriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the top-k nearest documents.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: failed to embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("rag: expected 1 query embedding, got %d", len(embeddings))
	}

	docs, err := r.store.Search(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	return docs, nil
}

// LexicalRetriever implements Retriever by BM25 keyword search over the
// lexical index.
type LexicalRetriever struct {
	index LexicalIndex
}

// NewLexicalRetriever constructs a LexicalRetriever.
func NewLexicalRetriever(index LexicalIndex) *LexicalRetriever {
	return &LexicalRetriever{index: index}
}

// Retrieve returns the top-k BM25 matches for the query.
func (r *LexicalRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return r.index.Search(ctx, query, topK)
}
