package ingest

import (
	"context"
	"strings"
	"unicode"
)

// StructureChunker splits text along document structure: headers start new
// chunks, numbered steps and bullets stay attached to their section, and
// table rows are never cut mid-row (a chunk holding a table row may overflow
// to 1.5× the maximum size). A final merge pass folds undersized chunks into
// a neighbour.
type StructureChunker struct {
	maxSize int
	minSize int
}

// NewStructureChunker constructs a StructureChunker. Non-positive sizes
// select the defaults (1500/200).
func NewStructureChunker(maxSize, minSize int) *StructureChunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxStructureChunk
	}
	if minSize <= 0 {
		minSize = DefaultMinStructureChunk
	}
	return &StructureChunker{maxSize: maxSize, minSize: minSize}
}

// Name returns "structure".
func (c *StructureChunker) Name() string { return StrategyStructure }

// Chunk walks the text line by line, starting a new chunk at every header
// and whenever the current chunk would exceed the size limit.
func (c *StructureChunker) Chunk(ctx context.Context, text string) ([]string, error) {
	lines := strings.Split(text, "\n")

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			continue
		}

		// Headers open a fresh chunk so each section stays self-contained.
		if isHeader(trimmed) && current.Len() > 0 {
			flush()
		}

		// Table rows may stretch the chunk to 1.5× max rather than be split.
		limit := c.maxSize
		if isTableRow(trimmed) {
			limit = c.maxSize + c.maxSize/2
		}
		if current.Len() > 0 && current.Len()+len(trimmed)+1 > limit {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(trimmed)
	}
	flush()

	return c.mergeSmall(chunks), nil
}

// mergeSmall folds chunks below minSize into the previous chunk when the
// combination stays within the limit, otherwise into the next one.
func (c *StructureChunker) mergeSmall(chunks []string) []string {
	if len(chunks) < 2 {
		return chunks
	}

	merged := make([]string, 0, len(chunks))
	for i := 0; i < len(chunks); i++ {
		chunk := chunks[i]
		if len(chunk) >= c.minSize {
			merged = append(merged, chunk)
			continue
		}

		switch {
		case len(merged) > 0 && len(merged[len(merged)-1])+len(chunk)+1 <= c.maxSize:
			merged[len(merged)-1] = merged[len(merged)-1] + "\n" + chunk
		case i+1 < len(chunks):
			chunks[i+1] = chunk + "\n" + chunks[i+1]
		default:
			merged = append(merged, chunk)
		}
	}
	return merged
}

// isHeader reports whether the line looks like a section heading: markdown
// hashes, a numbered section ("3.2 Motor installation"), a short ALL-CAPS
// line, or a short line ending with a colon.
func isHeader(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	if isNumberedSection(line) {
		return true
	}
	if len(line) <= 60 {
		if strings.HasSuffix(line, ":") {
			return true
		}
		if isAllCaps(line) {
			return true
		}
	}
	return false
}

// isNumberedSection matches "1 Title", "2.3 Title", "4.1.2 Title" headings:
// a dotted number followed by a space and a capitalised word. Numbered steps
// like "1. Attach the arm" end their number with a period and are NOT
// headings.
func isNumberedSection(line string) bool {
	i := 0
	sawDigit := false
	for i < len(line) {
		ch := line[i]
		if ch >= '0' && ch <= '9' {
			sawDigit = true
			i++
			continue
		}
		if ch == '.' && sawDigit {
			i++
			continue
		}
		break
	}
	if !sawDigit || i >= len(line) || line[i] != ' ' {
		return false
	}
	if line[i-1] == '.' {
		return false
	}
	rest := strings.TrimSpace(line[i:])
	if rest == "" {
		return false
	}
	first := []rune(rest)[0]
	return unicode.IsUpper(first) && len(line) <= 80
}

// isAllCaps reports whether every letter in the line is uppercase and the
// line contains at least one letter.
func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// isTableRow reports whether the line looks like a table row: at least two
// pipe separators or two tab-separated columns.
func isTableRow(line string) bool {
	if strings.Count(line, "|") >= 2 {
		return true
	}
	return strings.Count(line, "\t") >= 2
}
