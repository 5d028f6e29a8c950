package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/lfm"
	"github.com/rehabcenter/portal/markdown"
	"github.com/rehabcenter/portal/search"
	"github.com/rehabcenter/portal/stats"
	"github.com/rehabcenter/portal/views"
)

const loadFailedKey = "load_failed"

// fetchList runs a catalog read through a Fetcher. A failed read toasts
// once per request and yields an empty list.
func fetchList[T any](a *App, c echo.Context, load func(ctx context.Context) ([]T, error)) []T {
	f := lfm.NewListFetcher(load, lfm.OnFailure(func(err error) {
		logger(c).WithError(err).Warn("catalog read failed")
		if c.Get(loadFailedKey) == nil {
			c.Set(loadFailedKey, true)
			a.toast(c, lfm.ToastError, "Toast.LoadFailed")
		}
	}))
	items, _ := f.Load(c.Request().Context())
	return items
}

// findBySlug loads a catalog collection and picks the visible record with
// slug. A failed read toasts and redirects to parent; a missing record is a 404.
func findBySlug[T any](a *App, c echo.Context, load func(ctx context.Context) ([]T, error), visible func([]T) []T, slugOf func(T) string, parent string) (T, bool, error) {
	var zero T
	var loadErr error
	f := lfm.NewListFetcher(load, lfm.OnFailure(func(err error) {
		loadErr = err
		logger(c).WithError(err).Warn("catalog read failed")
		a.toast(c, lfm.ToastError, "Toast.LoadFailed")
	}))
	items, _ := f.Load(c.Request().Context())
	if loadErr != nil {
		return zero, false, c.Redirect(http.StatusSeeOther, parent)
	}
	slug := c.Param("slug")
	for _, item := range visible(items) {
		if slugOf(item) == slug {
			return item, true, nil
		}
	}
	return zero, false, a.renderNotFound(c)
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func (a *App) siteStats(ctx context.Context, c echo.Context) stats.Stats {
	st, err := a.Stats.Get(ctx)
	if err != nil {
		logger(c).WithError(err).Warn("read site stats")
		return stats.Defaults
	}
	return st
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	products := activeProducts(fetchList(a, c, a.Catalog.Products.List))
	featured := lfm.Filter(products, func(p api.Product) bool { return p.IsFeatured })
	if len(featured) == 0 {
		featured = products
	}
	cases := lfm.Filter(fetchList(a, c, a.Catalog.Cases.List),
		lfm.StatusIs(func(s api.SponsorshipCase) api.Status { return s.Status }, string(api.StatusActive)))

	data := views.HomeView{
		Services: firstN(activeServices(fetchList(a, c, a.Catalog.Services.List)), 6),
		Products: firstN(featured, 6),
		Stories:  firstN(publishedStories(fetchList(a, c, a.Catalog.Stories.List)), 3),
		Partners: activePartners(fetchList(a, c, a.Catalog.Partners.List)),
		Posts:    firstN(publishedPosts(fetchList(a, c, a.Catalog.Posts.List)), 3),
		Cases:    firstN(urgentFirst(cases), 3),
		Stats:    a.siteStats(ctx, c),
	}
	return a.render(c, http.StatusOK, "home", views.PageMeta{
		Title:  a.Config.Name,
		OGType: "website",
		JSONLD: MedicalClinicJsonLD(a.Config),
	}, data)
}

func (a *App) handleAbout(c echo.Context) error {
	tr := a.tr(c)
	data := views.AboutView{
		Stats:    a.siteStats(c.Request().Context(), c),
		Partners: activePartners(fetchList(a, c, a.Catalog.Partners.List)),
		Services: activeServices(fetchList(a, c, a.Catalog.Services.List)),
	}
	return a.render(c, http.StatusOK, "about", views.PageMeta{Title: tr.T("About.Title")}, data)
}

func (a *App) handleServices(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	items := lfm.Filter(activeServices(fetchList(a, c, a.Catalog.Services.List)),
		lfm.Contains(q,
			func(s api.Service) string { return s.Title },
			func(s api.Service) string { return s.Summary },
		))
	return a.render(c, http.StatusOK, "services", views.PageMeta{Title: a.tr(c).T("Services.Title")},
		views.ServicesView{Items: items, Query: q})
}

func (a *App) handleService(c echo.Context) error {
	svc, ok, err := findBySlug(a, c, a.Catalog.Services.List, activeServices,
		func(s api.Service) string { return s.Slug }, "/services/")
	if !ok {
		return err
	}
	others := lfm.Filter(activeServices(fetchList(a, c, a.Catalog.Services.List)),
		func(s api.Service) bool { return s.ID != svc.ID })
	return a.render(c, http.StatusOK, "service", views.PageMeta{
		Title:       svc.Title,
		Description: svc.Summary,
		Image:       a.imageURL(svc.Image),
	}, views.ServiceView{
		Service: svc,
		Body:    a.markdown.HTML(svc.Description),
		Others:  firstN(others, 3),
	})
}

func productCategory(p api.Product) string { return p.Category }

func (a *App) handleProducts(c echo.Context) error {
	crit := lfm.ParseCriteria(c.QueryParams(), "category")
	all := activeProducts(fetchList(a, c, a.Catalog.Products.List))
	items := lfm.Filter(all,
		lfm.Equals(productCategory, crit.Extra["category"]),
		lfm.Contains(crit.Query,
			func(p api.Product) string { return p.Name },
			func(p api.Product) string { return p.Summary },
			productCategory,
		))
	return a.render(c, http.StatusOK, "products", views.PageMeta{Title: a.tr(c).T("Products.Title")},
		views.ProductsView{
			Items:      items,
			Categories: categoryOptions(all, crit.Extra["category"]),
			Category:   crit.Extra["category"],
			Query:      crit.Query,
		})
}

// categoryOptions lists the distinct product categories, sorted.
func categoryOptions(products []api.Product, selected string) []views.Option {
	var names []string
	for _, p := range products {
		if p.Category != "" && !slices.Contains(names, p.Category) {
			names = append(names, p.Category)
		}
	}
	slices.Sort(names)
	opts := make([]views.Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, views.Option{Value: n, Label: n, Selected: n == selected})
	}
	return opts
}

func (a *App) handleProduct(c echo.Context) error {
	prod, ok, err := findBySlug(a, c, a.Catalog.Products.List, activeProducts,
		func(p api.Product) string { return p.Slug }, "/products/")
	if !ok {
		return err
	}
	images, features := a.productExtras(c, prod)
	return a.render(c, http.StatusOK, "product", views.PageMeta{
		Title:       prod.Name,
		Description: prod.Summary,
		Image:       a.imageURL(prod.Image),
	}, views.ProductView{
		Product:  prod,
		Body:     a.markdown.HTML(prod.Description),
		Images:   images,
		Features: features,
	})
}

// productExtras returns the gallery and features of p, using the embedded
// collections when the listing carried them.
func (a *App) productExtras(c echo.Context, p api.Product) ([]views.ProductImageView, []api.ProductFeature) {
	ctx := c.Request().Context()
	images, features := p.Images, p.Features
	if images == nil {
		imgs, err := a.Backend.ProductImages(p.ID).List(ctx, nil)
		if err != nil {
			logger(c).WithError(err).WithField("product", p.ID).Warn("list product images")
		}
		images = imgs
	}
	if features == nil {
		feats, err := a.Backend.ProductFeatures(p.ID).List(ctx, nil)
		if err != nil {
			logger(c).WithError(err).WithField("product", p.ID).Warn("list product features")
		}
		features = feats
	}
	images = lfm.SortBy(images, func(i api.ProductImage) int { return i.OrderIndex })
	out := make([]views.ProductImageView, 0, len(images))
	for _, img := range images {
		alt := img.Alt
		if alt == "" {
			alt = p.Name
		}
		out = append(out, views.ProductImageView{ID: img.ID.String(), URL: a.imageURL(img.URL), Alt: alt})
	}
	return out, features
}

func (a *App) handleBlog(c echo.Context) error {
	crit := lfm.ParseCriteria(c.QueryParams(), "category", "tag")
	posts := publishedPosts(fetchList(a, c, a.Catalog.Posts.List))
	categories := fetchList(a, c, a.Catalog.Categories.List)
	tags := fetchList(a, c, a.Catalog.Tags.List)

	catSlug, tagSlug := crit.Extra["category"], crit.Extra["tag"]
	var catID, tagID api.ID
	for _, cat := range categories {
		if cat.Slug == catSlug {
			catID = cat.ID
		}
	}
	for _, t := range tags {
		if t.Slug == tagSlug {
			tagID = t.ID
		}
	}

	preds := []lfm.Predicate[api.BlogPost]{
		lfm.Contains(crit.Query,
			func(p api.BlogPost) string { return p.Title },
			func(p api.BlogPost) string { return p.Excerpt },
		),
	}
	if catSlug != "" {
		preds = append(preds, func(p api.BlogPost) bool { return postCategory(p) == catID && catID != "" })
	}
	if tagSlug != "" {
		preds = append(preds, func(p api.BlogPost) bool { return tagID != "" && postHasTag(p, tagID) })
	}

	tr := a.tr(c)
	catOpts := []views.FilterOption{{Label: tr.T("Filter.All"), Count: len(posts), Active: catSlug == "", URL: "/blog/"}}
	for _, cat := range categories {
		id := cat.ID
		catOpts = append(catOpts, views.FilterOption{
			Value:  cat.Slug,
			Label:  cat.Name,
			Count:  lfm.Count(posts, func(p api.BlogPost) bool { return postCategory(p) == id }),
			Active: cat.Slug == catSlug,
			URL:    "/blog/?category=" + views.PathEscape(cat.Slug),
		})
	}
	tagOpts := make([]views.FilterOption, 0, len(tags))
	for _, t := range tags {
		tagOpts = append(tagOpts, views.FilterOption{
			Value:  t.Slug,
			Label:  t.Name,
			Active: t.Slug == tagSlug,
			URL:    "/blog/?tag=" + views.PathEscape(t.Slug),
		})
	}

	return a.render(c, http.StatusOK, "blog", views.PageMeta{Title: tr.T("Blog.Title")}, views.BlogView{
		Posts:      lfm.Filter(posts, preds...),
		Categories: catOpts,
		Tags:       tagOpts,
		Category:   catSlug,
		Tag:        tagSlug,
		Query:      crit.Query,
	})
}

func postCategory(p api.BlogPost) api.ID {
	if p.CategoryID != "" {
		return p.CategoryID
	}
	if p.Category != nil {
		return p.Category.ID
	}
	return ""
}

func postHasTag(p api.BlogPost, id api.ID) bool {
	return sharesTag(p, map[api.ID]struct{}{id: {}})
}

func (a *App) handlePost(c echo.Context) error {
	all, ok, err := a.loadPublished(c)
	if !ok {
		return err
	}
	slug := c.Param("slug")
	idx := slices.IndexFunc(all, func(p api.BlogPost) bool { return p.Slug == slug })
	if idx < 0 {
		return a.renderNotFound(c)
	}
	post := all[idx]
	image := a.imageURL(post.CoverImage)
	return a.render(c, http.StatusOK, "post", views.PageMeta{
		Title:       post.Title,
		Description: post.Excerpt,
		OGType:      "article",
		Image:       image,
		JSONLD:      ArticleJsonLD(post, a.Config, image),
	}, views.PostView{
		Post:    post,
		Body:    a.markdown.HTML(post.Content),
		Related: RelatedPosts(post, all, 3),
	})
}

func (a *App) loadPublished(c echo.Context) ([]api.BlogPost, bool, error) {
	posts, err := a.Catalog.Posts.List(c.Request().Context())
	if err != nil {
		logger(c).WithError(err).Warn("catalog read failed")
		a.toast(c, lfm.ToastError, "Toast.LoadFailed")
		return nil, false, c.Redirect(http.StatusSeeOther, "/blog/")
	}
	return publishedPosts(posts), true, nil
}

func (a *App) handleStories(c echo.Context) error {
	return a.render(c, http.StatusOK, "stories", views.PageMeta{Title: a.tr(c).T("Stories.Title")},
		views.StoriesView{Items: publishedStories(fetchList(a, c, a.Catalog.Stories.List))})
}

func (a *App) handleStory(c echo.Context) error {
	story, ok, err := findBySlug(a, c, a.Catalog.Stories.List, publishedStories,
		func(s api.SuccessStory) string { return s.Slug }, "/stories/")
	if !ok {
		return err
	}
	return a.render(c, http.StatusOK, "story", views.PageMeta{
		Title:       story.Title,
		Description: markdown.PlainText(story.Story, 160),
		OGType:      "article",
		Image:       a.imageURL(story.Image),
	}, views.StoryView{Story: story, Body: a.markdown.HTML(story.Story)})
}

func caseStatus(s api.SponsorshipCase) api.Status { return s.Status }

// urgentFirst orders urgent cases before the rest, keeping relative order.
func urgentFirst(items []api.SponsorshipCase) []api.SponsorshipCase {
	return lfm.SortBy(items, func(s api.SponsorshipCase) int {
		if s.IsUrgent {
			return 0
		}
		return 1
	})
}

func (a *App) handleCases(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status == "" {
		status = string(api.StatusActive)
	}
	if status != lfm.All && !api.SponsorshipWorkflow.Valid(api.Status(status)) {
		status = string(api.StatusActive)
	}
	items := lfm.Filter(fetchList(a, c, a.Catalog.Cases.List), lfm.StatusIs(caseStatus, status))
	return a.render(c, http.StatusOK, "sponsorship", views.PageMeta{Title: a.tr(c).T("Sponsorship.Title")},
		views.CasesView{Items: urgentFirst(items), Status: status})
}

func (a *App) handleCase(c echo.Context) error {
	sc, ok, err := findBySlug(a, c, a.Catalog.Cases.List,
		func(items []api.SponsorshipCase) []api.SponsorshipCase { return items },
		func(s api.SponsorshipCase) string { return s.Slug }, "/sponsorship/")
	if !ok {
		return err
	}
	return a.render(c, http.StatusOK, "case", views.PageMeta{
		Title: sc.Title,
		Image: a.imageURL(sc.Image),
	}, views.CaseView{Case: sc, Body: a.markdown.HTML(sc.Description)})
}

func (a *App) handlePartners(c echo.Context) error {
	return a.render(c, http.StatusOK, "partners", views.PageMeta{Title: a.tr(c).T("Partners.Title")},
		views.PartnersView{Items: activePartners(fetchList(a, c, a.Catalog.Partners.List))})
}

func (a *App) handleSearch(c echo.Context) error {
	tr := a.tr(c)
	q := strings.TrimSpace(c.QueryParam("q"))
	data := views.SearchView{Query: q}
	if q != "" {
		hits, err := a.Catalog.Search(c.Request().Context(), q, 20)
		if err != nil {
			logger(c).WithError(err).Warn("search failed")
			a.toast(c, lfm.ToastError, "Toast.LoadFailed")
		}
		for _, h := range hits {
			data.Hits = append(data.Hits, views.SearchHit{
				Kind:    tr.T("Kind." + h.Kind),
				Title:   h.Title,
				URL:     hitURL(h),
				Snippet: strings.Join(h.Fragments, " … "),
			})
		}
	}
	return a.render(c, http.StatusOK, "search", views.PageMeta{Title: tr.T("Search.Title"), NoIndex: true}, data)
}

func hitURL(h search.Hit) string {
	switch h.Kind {
	case search.KindService:
		return "/services/" + views.PathEscape(h.Slug) + "/"
	case search.KindProduct:
		return "/products/" + views.PathEscape(h.Slug) + "/"
	case search.KindPost:
		return "/blog/" + views.PathEscape(h.Slug) + "/"
	case search.KindStory:
		return "/stories/" + views.PathEscape(h.Slug) + "/"
	}
	return "/"
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	services, err := a.Catalog.Services.List(ctx)
	collect(err)
	products, err := a.Catalog.Products.List(ctx)
	collect(err)
	posts, err := a.Catalog.Posts.List(ctx)
	collect(err)
	stories, err := a.Catalog.Stories.List(ctx)
	collect(err)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("sitemap: %w", err)
	}
	return a.renderSitemap(c, sitemapEntries{
		services: activeServices(services),
		products: activeProducts(products),
		posts:    publishedPosts(posts),
		stories:  publishedStories(stories),
	})
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Catalog.Posts.List(c.Request().Context())
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	return a.renderRSS(c, firstN(publishedPosts(posts), 20))
}

func (a *App) handleFavicon(c echo.Context) error {
	return echo.StaticFileHandler("favicon.svg", a.assets)(c)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /login/\n")
	b.WriteString("Disallow: /search/\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", strings.TrimRight(a.Config.URL, "/"))
	return c.String(http.StatusOK, b.String())
}
