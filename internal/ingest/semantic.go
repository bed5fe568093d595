package ingest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/aerostream/aeros/internal/rag"
)

// SemanticChunker splits text into sentences and groups consecutive
// sentences into chunks while they stay cosine-similar to the running chunk
// centroid. Numbered list items ("3."), decimals ("2.5"), and part numbers
// ("#RA-400.") never trigger a sentence break.
type SemanticChunker struct {
	embedder  rag.Embedder
	threshold float64
	minSize   int
}

// NewSemanticChunker constructs a SemanticChunker. Non-positive threshold or
// minSize select the defaults (0.4 / 100 characters).
func NewSemanticChunker(embedder rag.Embedder, threshold float64, minSize int) *SemanticChunker {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if minSize <= 0 {
		minSize = DefaultMinChunkSize
	}
	return &SemanticChunker{embedder: embedder, threshold: threshold, minSize: minSize}
}

// Name returns "semantic".
func (c *SemanticChunker) Name() string { return StrategySemantic }

// Chunk splits text into sentences, embeds them in one batch, and walks the
// sentence list grouping while cosine similarity to the current chunk's
// centroid stays at or above the threshold. Undersized trailing chunks are
// merged into their predecessor.
func (c *SemanticChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) == 1 {
		return sentences, nil
	}

	embeddings, err := c.embedder.Embed(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to embed sentences: %w", err)
	}
	if len(embeddings) != len(sentences) {
		return nil, fmt.Errorf("ingest: expected %d sentence embeddings, got %d", len(sentences), len(embeddings))
	}

	var chunks []string
	group := []string{sentences[0]}
	centroid := append([]float32(nil), embeddings[0]...)

	for i := 1; i < len(sentences); i++ {
		if cosineSimilarity(centroid, embeddings[i]) >= c.threshold {
			group = append(group, sentences[i])
			updateCentroid(centroid, embeddings[i], len(group))
			continue
		}
		chunks = append(chunks, strings.Join(group, " "))
		group = []string{sentences[i]}
		centroid = append(centroid[:0], embeddings[i]...)
	}
	chunks = append(chunks, strings.Join(group, " "))

	return c.mergeSmall(chunks), nil
}

// mergeSmall folds chunks shorter than minSize into their predecessor so no
// fragment too small to retrieve usefully survives on its own.
func (c *SemanticChunker) mergeSmall(chunks []string) []string {
	merged := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) < c.minSize && len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + chunk
			continue
		}
		merged = append(merged, chunk)
	}
	return merged
}

// splitSentences breaks text into sentences at whitespace following '.',
// '?', or '!'. A period immediately preceded by a digit is not a boundary,
// which keeps numbered steps ("3. Attach the arm"), decimals, and
// digit-terminated part numbers intact.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '.' && ch != '?' && ch != '!' {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if ch == '.' && i > 0 && unicode.IsDigit(runes[i-1]) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// updateCentroid folds vec into the running mean centroid of a group that
// now contains n members (vec included).
func updateCentroid(centroid, vec []float32, n int) {
	if len(centroid) != len(vec) || n <= 0 {
		return
	}
	w := float32(n)
	for i := range centroid {
		centroid[i] = (centroid[i]*(w-1) + vec[i]) / w
	}
}
