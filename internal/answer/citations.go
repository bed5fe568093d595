package answer

import (
	"fmt"
	"strings"

	"github.com/aerostream/aeros/internal/rag"
)

// Citations collects deduplicated source references from retrieved documents,
// in retrieval order. Paginated sources render as "source (Page N)", others
// as the bare source name.
func Citations(docs []rag.Document) []string {
	var citations []string
	seen := make(map[string]struct{}, len(docs))

	for _, d := range docs {
		key := fmt.Sprintf("%s:%d", d.Source, d.Page)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if d.Page > 0 {
			citations = append(citations, fmt.Sprintf("%s (Page %d)", d.Source, d.Page))
		} else {
			citations = append(citations, d.Source)
		}
	}
	return citations
}

// appendReferences attaches the citation block to a generated answer.
func appendReferences(answer string, citations []string) string {
	if len(citations) == 0 {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n*References:*\n")
	for i, c := range citations {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("• ")
		b.WriteString(c)
	}
	return b.String()
}
