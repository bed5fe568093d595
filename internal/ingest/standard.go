package ingest

import (
	"context"
	"strings"
)

// StandardChunker splits text into fixed-size character windows with overlap.
// It is the cheapest strategy and needs no model calls.
type StandardChunker struct {
	size    int
	overlap int
}

// NewStandardChunker constructs a StandardChunker. Non-positive size or
// overlap select the defaults (1000/200). An overlap >= size is clamped to
// size-1 so the window always advances.
func NewStandardChunker(size, overlap int) *StandardChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &StandardChunker{size: size, overlap: overlap}
}

// Name returns "standard".
func (c *StandardChunker) Name() string { return StrategyStandard }

// Chunk splits text into windows of size characters, each window starting
// size-overlap characters after the previous one. Windows are trimmed and
// empty windows are dropped.
func (c *StandardChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
