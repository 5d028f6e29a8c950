// Package views holds the page templates and the data types handlers pass
// to them. Pages are html/template files sharing one layout and are handed
// to the server as templ components.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/a-h/templ"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/markdown"
)

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS

// Config wires the helpers templates call.
type Config struct {
	Asset    func(name string) string
	ImageURL func(path string) string
	Markdown *markdown.Renderer
	Currency string
}

// Renderer owns one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page against the shared layout and partials.
func New(cfg Config) (*Renderer, error) {
	if cfg.Asset == nil {
		cfg.Asset = func(name string) string { return "/public/" + name }
	}
	if cfg.ImageURL == nil {
		cfg.ImageURL = func(p string) string { return p }
	}
	if cfg.Markdown == nil {
		cfg.Markdown = markdown.Default
	}

	funcs := template.FuncMap{
		"asset":      cfg.Asset,
		"img":        cfg.ImageURL,
		"markdown":   cfg.Markdown.HTML,
		"plain":      markdown.PlainText,
		"money":      func(v any) string { return Money(decimalOf(v), cfg.Currency) },
		"badge":      func(s any) string { return BadgeClass(fmt.Sprint(s)) },
		"pill":       TagClass,
		"truncate":   Truncate,
		"timeOf":     timeOf,
		"safeURL":    safeURL,
		"pathEscape": PathEscape,
		"jsonld":     func(s string) template.JS { return template.JS(s) },
		"dict":       dict,
		"str":        func(v any) string { return fmt.Sprint(v) },
		"hasPrefix":  strings.HasPrefix,
		"add":        func(a, b int) int { return a + b },
		"progress":   func(c api.SponsorshipCase) int { return c.Progress() },
		"deref":      func(b *bool) bool { return b != nil && *b },
	}

	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pageFiles, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "layout" {
			continue
		}
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Has reports whether a page template named name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Page returns the named page wrapped in the layout as a templ.Component.
func (r *Renderer) Page(name string, p *Page) templ.Component {
	t, ok := r.pages[name]
	if !ok {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			return fmt.Errorf("views: unknown page %q", name)
		})
	}
	return templ.FromGoHTML(t.Lookup("layout"), p)
}
