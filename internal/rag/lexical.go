package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BleveIndex implements LexicalIndex backed by a Bleve v2 index.
// Content, source, and page are stored so search hits can be rehydrated
// into full Documents without consulting the vector store.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// bleveDocument is the document shape indexed into Bleve.
type bleveDocument struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
}

// NewBleveIndex opens or creates a Bleve index at path.
// If path is empty an in-memory index is created (used by tests).
func NewBleveIndex(path string) (*BleveIndex, error) {
	idx, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{index: idx, path: path}, nil
}

func openOrCreate(path string) (bleve.Index, error) {
	indexMapping := buildIndexMapping()

	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			return nil, fmt.Errorf("bleve: failed to create in-memory index: %w", err)
		}
		return idx, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bleve: failed to create index directory: %w", err)
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("bleve: failed to open index at %s: %w", path, err)
	}
	return idx, nil
}

// buildIndexMapping defines the field mappings: content is analyzed with the
// English analyzer (stemming, stop words), source is a stored keyword, page
// is a stored numeric.
func buildIndexMapping() *mapping.IndexMappingImpl {
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = en.AnalyzerName
	contentField.Store = true

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Analyzer = keyword.Name
	sourceField.Store = true

	pageField := bleve.NewNumericFieldMapping()
	pageField.Store = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", contentField)
	docMapping.AddFieldMappingsAt("source", sourceField)
	docMapping.AddFieldMappingsAt("page", pageField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	return indexMapping
}

// Index adds documents to the keyword index in a single batch.
func (b *BleveIndex) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("bleve: index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		bd := bleveDocument{Content: doc.Content, Source: doc.Source, Page: doc.Page}
		if err := batch.Index(doc.ID, bd); err != nil {
			return fmt.Errorf("bleve: failed to index document %s: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve: batch index failed: %w", err)
	}

	return nil
}

// Search returns the top-k keyword matches for query, scored by Bleve.
// An empty or whitespace-only query returns no results.
func (b *BleveIndex) Search(ctx context.Context, query string, topK int) ([]Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("bleve: index is closed")
	}

	if strings.TrimSpace(query) == "" {
		return []Document{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK
	req.Fields = []string{"content", "source", "page"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve: search failed: %w", err)
	}

	docs := make([]Document, 0, len(result.Hits))
	for _, hit := range result.Hits {
		doc := Document{
			ID:       hit.ID,
			Score:    float32(hit.Score),
			Metadata: make(map[string]string),
		}
		if v, ok := hit.Fields["content"].(string); ok {
			doc.Content = v
		}
		if v, ok := hit.Fields["source"].(string); ok {
			doc.Source = v
		}
		if v, ok := hit.Fields["page"].(float64); ok {
			doc.Page = int(v)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Reset drops the index contents and recreates an empty index.
func (b *BleveIndex) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.index != nil && !b.closed {
		if err := b.index.Close(); err != nil {
			return fmt.Errorf("bleve: failed to close index for reset: %w", err)
		}
	}
	if b.path != "" {
		if err := os.RemoveAll(b.path); err != nil {
			return fmt.Errorf("bleve: failed to remove index at %s: %w", b.path, err)
		}
	}

	idx, err := openOrCreate(b.path)
	if err != nil {
		return err
	}
	b.index = idx
	b.closed = false
	return nil
}

// Close closes the underlying Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

var _ LexicalIndex = (*BleveIndex)(nil)
