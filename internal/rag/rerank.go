package rag

import (
	"context"
	"fmt"
)

// candidateMultiplier is how many candidates the first semantic stage fetches
// per requested result. A wider candidate pool gives the cross-encoder room
// to promote documents the bi-encoder under-ranked.
const candidateMultiplier = 4

// RerankRetriever implements two-stage retrieval: a fast semantic search
// over-fetches candidates, then a cross-encoder reranker re-scores each
// (query, document) pair and keeps the top k.
type RerankRetriever struct {
	first    Retriever
	reranker Reranker
}

// NewRerankRetriever constructs a RerankRetriever over a first-stage
// retriever and a cross-encoder reranker.
func NewRerankRetriever(first Retriever, reranker Reranker) *RerankRetriever {
	return &RerankRetriever{first: first, reranker: reranker}
}

// Retrieve fetches 4×k candidates from the first stage and reranks them.
func (r *RerankRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	candidates, err := r.first.Retrieve(ctx, query, topK*candidateMultiplier)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	reranked, err := r.reranker.Rerank(ctx, query, candidates, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: rerank failed: %w", err)
	}
	return reranked, nil
}
