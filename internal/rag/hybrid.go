package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// HybridRetriever runs lexical and semantic retrieval in parallel and fuses
// the two ranked lists with Reciprocal Rank Fusion.
type HybridRetriever struct {
	lexical  Retriever
	semantic Retriever
	fusion   *RRFFusion
	weights  FusionWeights
}

// NewHybridRetriever constructs a HybridRetriever with default RRF settings.
func NewHybridRetriever(lexical, semantic Retriever) *HybridRetriever {
	return &HybridRetriever{
		lexical:  lexical,
		semantic: semantic,
		fusion:   NewRRFFusion(),
		weights:  DefaultFusionWeights,
	}
}

// Retrieve runs both sources concurrently, fuses the results, and returns
// the top-k fused documents.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var lexDocs, vecDocs []Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := r.lexical.Retrieve(gctx, query, topK)
		if err != nil {
			return fmt.Errorf("rag: lexical retrieval failed: %w", err)
		}
		lexDocs = docs
		return nil
	})
	g.Go(func() error {
		docs, err := r.semantic.Retrieve(gctx, query, topK)
		if err != nil {
			return fmt.Errorf("rag: semantic retrieval failed: %w", err)
		}
		vecDocs = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := r.fusion.Fuse(lexDocs, vecDocs, r.weights)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}
