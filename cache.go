package portal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/markdown"
	"github.com/rehabcenter/portal/search"
)

// Cached is an in-memory copy of one backend collection with a TTL.
type Cached[T any] struct {
	mu      sync.RWMutex
	items   []T
	fetched time.Time
	ttl     time.Duration
	load    func(ctx context.Context) ([]T, error)
	onLoad  func()
}

func newCached[T any](ttl time.Duration, load func(ctx context.Context) ([]T, error), onLoad func()) *Cached[T] {
	return &Cached[T]{ttl: ttl, load: load, onLoad: onLoad}
}

func (c *Cached[T]) valid() bool {
	return c.items != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *Cached[T]) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// List returns the cached collection, reloading it when stale.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *Cached[T]) List(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	if c.valid() {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.items, nil
	}
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.fetched = time.Now()
	if c.onLoad != nil {
		c.onLoad()
	}
	return items, nil
}

// Catalog caches the public collections, one Cached per kind. Admin
// mutations invalidate only the kind they touched.
type Catalog struct {
	Services   *Cached[api.Service]
	Products   *Cached[api.Product]
	Posts      *Cached[api.BlogPost]
	Categories *Cached[api.BlogCategory]
	Tags       *Cached[api.BlogTag]
	Partners   *Cached[api.Partner]
	Stories    *Cached[api.SuccessStory]
	Cases      *Cached[api.SponsorshipCase]

	version atomic.Uint64

	indexMu      sync.Mutex
	index        *search.Index
	indexVersion uint64
}

// NewCatalog binds a Catalog to b.
func NewCatalog(b *api.Backend, ttl time.Duration, index *search.Index) *Catalog {
	cat := &Catalog{index: index}
	bump := func() { cat.version.Add(1) }
	cat.Services = newCached(ttl, listAll(b.Services), bump)
	cat.Products = newCached(ttl, listAll(b.Products), bump)
	cat.Posts = newCached(ttl, listAll(b.Posts), bump)
	cat.Categories = newCached(ttl, listAll(b.Categories), nil)
	cat.Tags = newCached(ttl, listAll(b.Tags), nil)
	cat.Partners = newCached(ttl, listAll(b.Partners), nil)
	cat.Stories = newCached(ttl, listAll(b.Stories), bump)
	cat.Cases = newCached(ttl, listAll(b.SponsorshipCases), nil)
	return cat
}

func listAll[T any](r *api.Resource[T]) func(ctx context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		return r.List(ctx, nil)
	}
}

// Invalidate drops the cached collection of kind (an admin resource name).
func (cat *Catalog) Invalidate(kind string) {
	switch kind {
	case "services":
		cat.Services.Invalidate()
	case "products":
		cat.Products.Invalidate()
	case "posts":
		cat.Posts.Invalidate()
	case "categories":
		cat.Categories.Invalidate()
		cat.Posts.Invalidate()
	case "tags":
		cat.Tags.Invalidate()
		cat.Posts.Invalidate()
	case "partners":
		cat.Partners.Invalidate()
	case "stories":
		cat.Stories.Invalidate()
	case "sponsorship-cases":
		cat.Cases.Invalidate()
	}
}

// Search queries the site index, rebuilding it first when any indexed
// collection reloaded since the last build.
func (cat *Catalog) Search(ctx context.Context, q string, limit int) ([]search.Hit, error) {
	if err := cat.refreshIndex(ctx); err != nil {
		return nil, err
	}
	return cat.index.Search(q, limit)
}

func (cat *Catalog) refreshIndex(ctx context.Context) error {
	services, err := cat.Services.List(ctx)
	if err != nil {
		return err
	}
	products, err := cat.Products.List(ctx)
	if err != nil {
		return err
	}
	posts, err := cat.Posts.List(ctx)
	if err != nil {
		return err
	}
	stories, err := cat.Stories.List(ctx)
	if err != nil {
		return err
	}

	cat.indexMu.Lock()
	defer cat.indexMu.Unlock()
	v := cat.version.Load()
	if v == cat.indexVersion && cat.index.Count() > 0 {
		return nil
	}

	docs := make([]search.Document, 0, len(services)+len(products)+len(posts)+len(stories))
	for _, s := range activeServices(services) {
		docs = append(docs, search.Document{Kind: search.KindService, Slug: s.Slug, Title: s.Title,
			Body: s.Summary + " " + markdown.PlainText(s.Description, 0)})
	}
	for _, p := range activeProducts(products) {
		docs = append(docs, search.Document{Kind: search.KindProduct, Slug: p.Slug, Title: p.Name,
			Body: p.Category + " " + p.Summary + " " + markdown.PlainText(p.Description, 0)})
	}
	for _, p := range publishedPosts(posts) {
		docs = append(docs, search.Document{Kind: search.KindPost, Slug: p.Slug, Title: p.Title,
			Body: p.Excerpt + " " + markdown.PlainText(p.Content, 0)})
	}
	for _, s := range publishedStories(stories) {
		docs = append(docs, search.Document{Kind: search.KindStory, Slug: s.Slug, Title: s.Title,
			Body: s.PatientName + " " + markdown.PlainText(s.Story, 0)})
	}
	if err := cat.index.Rebuild(docs); err != nil {
		return err
	}
	cat.indexVersion = v
	return nil
}
