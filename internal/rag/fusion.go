package rag

import (
	"sort"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.).
const DefaultRRFConstant = 60

// FusionWeights controls the relative contribution of each search source.
type FusionWeights struct {
	Lexical  float64
	Semantic float64
}

// DefaultFusionWeights weights both sources equally.
var DefaultFusionWeights = FusionWeights{Lexical: 1.0, Semantic: 1.0}

// fusedResult accumulates per-document fusion state.
type fusedResult struct {
	doc         Document
	rrfScore    float64
	lexScore    float64
	lexRank     int // 1-indexed, 0 if absent
	vecRank     int // 1-indexed, 0 if absent
	inBothLists bool
}

// RRFFusion combines lexical and semantic search results using the
// Reciprocal Rank Fusion algorithm.
//
// Algorithm: RRF_score(d) = Σ weight_i / (k + rank_i)
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = position in ranked list i (1-indexed)
//   - weight_i = weight for search source i
type RRFFusion struct {
	K int // RRF smoothing constant (default: 60)
}

// NewRRFFusion creates a new RRF fusion instance with default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a new RRF fusion with custom k value.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines lexical and semantic results into a single ranked list.
// The returned Documents carry the normalized RRF score in Score.
//
// Documents appearing in only one list use
// missing_rank = max(len(lexical), len(semantic)) + 1 for the missing
// source's contribution.
//
// Results are sorted by: RRF score (desc) → in-both-lists (true first) →
// lexical score (desc) → ID (asc). The ordering is fully deterministic
// for identical inputs.
func (f *RRFFusion) Fuse(lexical, semantic []Document, weights FusionWeights) []Document {
	if len(lexical) == 0 && len(semantic) == 0 {
		return []Document{}
	}

	scores := make(map[string]*fusedResult, len(lexical)+len(semantic))

	// Process lexical results (1-indexed ranks).
	for rank, d := range lexical {
		r := f.getOrCreate(scores, d)
		r.lexScore = float64(d.Score)
		r.lexRank = rank + 1
		r.rrfScore += weights.Lexical / float64(f.K+rank+1)
	}

	// Process semantic results (1-indexed ranks).
	for rank, d := range semantic {
		r := f.getOrCreate(scores, d)
		r.vecRank = rank + 1
		r.rrfScore += weights.Semantic / float64(f.K+rank+1)

		if r.lexRank > 0 {
			r.inBothLists = true
		}
	}

	// Documents in only one list get the missing source's contribution
	// at missing_rank.
	missingRank := f.calculateMissingRank(len(lexical), len(semantic))
	for _, r := range scores {
		if r.lexRank == 0 && r.vecRank > 0 {
			r.rrfScore += weights.Lexical / float64(f.K+missingRank)
		}
		if r.vecRank == 0 && r.lexRank > 0 {
			r.rrfScore += weights.Semantic / float64(f.K+missingRank)
		}
	}

	results := f.toSortedSlice(scores)
	f.normalize(results)

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		d := r.doc
		d.Score = float32(r.rrfScore)
		docs = append(docs, d)
	}
	return docs
}

// getOrCreate returns the existing result for d's ID or creates a new one.
// The first sighting of a document supplies its content and metadata.
func (f *RRFFusion) getOrCreate(m map[string]*fusedResult, d Document) *fusedResult {
	if r, ok := m[d.ID]; ok {
		if r.doc.Content == "" && d.Content != "" {
			r.doc.Content = d.Content
			r.doc.Source = d.Source
			r.doc.Page = d.Page
			r.doc.Metadata = d.Metadata
		}
		return r
	}
	r := &fusedResult{doc: d}
	m[d.ID] = r
	return r
}

// calculateMissingRank returns the rank assigned to documents not in a list.
// Uses max(len1, len2) + 1 to penalize missing documents appropriately.
func (f *RRFFusion) calculateMissingRank(lexLen, vecLen int) int {
	if lexLen > vecLen {
		return lexLen + 1
	}
	return vecLen + 1
}

// toSortedSlice converts the map to a slice sorted by RRF score with
// deterministic tie-breaking.
func (f *RRFFusion) toSortedSlice(m map[string]*fusedResult) []*fusedResult {
	results := make([]*fusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.compare(results[i], results[j])
	})

	return results
}

// compare implements deterministic comparison for sorting.
// Returns true if a should rank before b.
//
// Priority:
//  1. Higher RRF score
//  2. In both lists (true before false)
//  3. Higher lexical score (exact match indicator)
//  4. Lexicographically smaller ID (deterministic)
func (f *RRFFusion) compare(a, b *fusedResult) bool {
	if a.rrfScore != b.rrfScore {
		return a.rrfScore > b.rrfScore
	}
	if a.inBothLists != b.inBothLists {
		return a.inBothLists
	}
	if a.lexScore != b.lexScore {
		return a.lexScore > b.lexScore
	}
	return a.doc.ID < b.doc.ID
}

// normalize scales all RRF scores to 0-1 range.
// Uses the maximum score as the reference (becomes 1.0).
func (f *RRFFusion) normalize(results []*fusedResult) {
	if len(results) == 0 {
		return
	}

	maxScore := results[0].rrfScore
	if maxScore == 0 {
		return
	}

	for _, r := range results {
		r.rrfScore = r.rrfScore / maxScore
	}
}
