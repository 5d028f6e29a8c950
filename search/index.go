// Package search is the in-memory full-text index behind the public site
// search box. It is rebuilt from the catalog whenever the catalog reloads.
package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Kinds of indexed documents.
const (
	KindService = "service"
	KindProduct = "product"
	KindPost    = "post"
	KindStory   = "story"
)

// Document is one searchable page.
type Document struct {
	Kind  string
	Slug  string
	Title string
	Body  string
}

func (d Document) id() string {
	return d.Kind + "/" + d.Slug
}

// Hit is one search result.
type Hit struct {
	Kind      string
	Slug      string
	Title     string
	Score     float64
	Fragments []string
}

// Index wraps a memory-only Bleve index that is replaced wholesale on Rebuild.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	count int
}

// New creates an empty index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	titleField := bleve.NewTextFieldMapping()
	titleField.IncludeTermVectors = true

	bodyField := bleve.NewTextFieldMapping()
	bodyField.IncludeTermVectors = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Kind", keywordField)
	docMapping.AddFieldMappingsAt("Slug", keywordField)
	docMapping.AddFieldMappingsAt("Title", titleField)
	docMapping.AddFieldMappingsAt("Body", bodyField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Rebuild replaces the indexed documents with docs.
func (i *Index) Rebuild(docs []Document) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	batch := fresh.NewBatch()
	for _, d := range docs {
		if d.Slug == "" {
			continue
		}
		if err := batch.Index(d.id(), d); err != nil {
			fresh.Close()
			return fmt.Errorf("batch index %s: %w", d.id(), err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("commit batch: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.count = batch.Size()
	i.mu.Unlock()
	return old.Close()
}

// Search returns up to limit hits for q. A blank query returns nothing.
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	title := bleve.NewMatchQuery(q)
	title.SetField("Title")
	title.SetBoost(3)
	body := bleve.NewMatchQuery(q)
	body.SetField("Body")
	prefix := bleve.NewPrefixQuery(strings.ToLower(q))
	prefix.SetField("Title")

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(title, body, prefix), limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Kind", "Slug", "Title"}

	i.mu.RLock()
	res, err := i.index.Search(req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		hit.Kind, _ = h.Fields["Kind"].(string)
		hit.Slug, _ = h.Fields["Slug"].(string)
		hit.Title, _ = h.Fields["Title"].(string)
		hit.Fragments = h.Fragments["Body"]
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of documents indexed by the last Rebuild.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.count
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
