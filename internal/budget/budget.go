// Package budget provides token budget estimation and context trimming for
// the answer pipeline. Because aeros supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/aerostream/aeros/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B)
	// while leaving room for the question and the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateDocuments returns the estimated total token count for a slice of
// retrieved documents, including a small per-document separator overhead.
func EstimateDocuments(docs []rag.Document) int {
	total := 0
	for _, d := range docs {
		// Each chunk is joined with a "\n\n---\n\n" separator in the prompt.
		total += 2
		total += Estimate(d.Content)
	}
	return total
}

// TrimDocuments drops the lowest-ranked documents from the end of docs until
// the estimated token count of the documents plus reserved fits within
// maxTokens. reserved covers the system prompt and the user question.
// docs must already be ordered by descending retrieval score.
//
// Returns the trimmed slice. At least one document is always kept if docs is
// non-empty, so a single oversized chunk is passed through rather than
// silently producing an empty context.
func TrimDocuments(docs []rag.Document, reserved, maxTokens int) []rag.Document {
	if len(docs) == 0 {
		return docs
	}

	for len(docs) > 1 {
		if reserved+EstimateDocuments(docs) <= maxTokens {
			break
		}
		// Drop the lowest-ranked document.
		docs = docs[:len(docs)-1]
	}
	return docs
}
