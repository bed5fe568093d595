package rag

import (
	"fmt"
)

// Retrieval strategy names accepted by NewRetriever.
const (
	StrategySemantic = "semantic"
	StrategyLexical  = "lexical"
	StrategyHybrid   = "hybrid"
	StrategyRerank   = "rerank"
)

// Components bundles the backends a retriever may be built from.
// Strategies only require the components they use: semantic needs the
// embedder and vector store, lexical needs the index, hybrid needs all
// three, rerank additionally needs the reranker.
type Components struct {
	Embedder Embedder
	Vector   VectorStore
	Lexical  LexicalIndex
	Reranker Reranker
}

// NewRetriever constructs the retriever for the named strategy.
// An empty strategy defaults to semantic.
func NewRetriever(strategy string, c Components) (Retriever, error) {
	switch strategy {
	case StrategySemantic, "":
		if c.Embedder == nil || c.Vector == nil {
			return nil, fmt.Errorf("rag: semantic strategy requires an embedder and vector store")
		}
		return NewSemanticRetriever(c.Embedder, c.Vector), nil

	case StrategyLexical:
		if c.Lexical == nil {
			return nil, fmt.Errorf("rag: lexical strategy requires a lexical index")
		}
		return NewLexicalRetriever(c.Lexical), nil

	case StrategyHybrid:
		if c.Embedder == nil || c.Vector == nil || c.Lexical == nil {
			return nil, fmt.Errorf("rag: hybrid strategy requires an embedder, vector store, and lexical index")
		}
		return NewHybridRetriever(
			NewLexicalRetriever(c.Lexical),
			NewSemanticRetriever(c.Embedder, c.Vector),
		), nil

	case StrategyRerank:
		if c.Embedder == nil || c.Vector == nil {
			return nil, fmt.Errorf("rag: rerank strategy requires an embedder and vector store")
		}
		if c.Reranker == nil {
			return nil, fmt.Errorf("rag: rerank strategy requires a reranker (set RERANK_ENDPOINT)")
		}
		return NewRerankRetriever(NewSemanticRetriever(c.Embedder, c.Vector), c.Reranker), nil

	default:
		return nil, fmt.Errorf("rag: unknown retrieval strategy %q (want semantic, lexical, hybrid, or rerank)", strategy)
	}
}
