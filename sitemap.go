package portal

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/api"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapEntries holds the publicly visible records listed in the sitemap.
type sitemapEntries struct {
	services []api.Service
	products []api.Product
	posts    []api.BlogPost
	stories  []api.SuccessStory
}

var sitemapPages = [][]string{
	{"about"},
	{"services"},
	{"products"},
	{"blog"},
	{"stories"},
	{"sponsorship"},
	{"partners"},
	{"contact"},
	{"jobs"},
	{"partnerships"},
	{"appointments"},
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func (a *App) renderSitemap(c echo.Context, e sitemapEntries) error {
	base := a.Config.URL
	urls := []sitemapURL{{Loc: BuildURL(base)}}
	for _, segs := range sitemapPages {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, segs...)})
	}
	for _, s := range e.services {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, "services", s.Slug), LastMod: lastMod(s.CreatedAt)})
	}
	for _, p := range e.products {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, "products", p.Slug), LastMod: lastMod(p.CreatedAt)})
	}
	for _, p := range e.posts {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, "blog", p.Slug), LastMod: lastMod(publishedAt(p))})
	}
	for _, s := range e.stories {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, "stories", s.Slug), LastMod: lastMod(s.CreatedAt)})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
