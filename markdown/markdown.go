// Package markdown renders blog and story bodies to HTML with goldmark.
// Raw HTML in the source is escaped; external links open in a new tab and
// relative image paths are resolved against the asset host.
package markdown

import (
	"bytes"
	"html"
	"html/template"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Renderer converts markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// Option configures a Renderer.
type Option func(*linkTransformer)

// WithImageResolver rewrites every image destination through fn.
func WithImageResolver(fn func(string) string) Option {
	return func(t *linkTransformer) {
		t.resolve = fn
	}
}

// New creates a Renderer with GitHub-flavoured tables, strikethrough and
// linkify enabled.
func New(opts ...Option) *Renderer {
	lt := &linkTransformer{}
	for _, opt := range opts {
		opt(lt)
	}
	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(lt, 100)),
		),
		goldmark.WithRendererOptions(
			goldmarkHTML.WithHardWraps(),
		),
	)}
}

// Default renders without image rewriting.
var Default = New()

// Render writes the HTML representation of src to w.
func (r *Renderer) Render(w io.Writer, src string) error {
	return r.md.Convert([]byte(src), w)
}

// HTML returns src rendered for use in html/template.
func (r *Renderer) HTML(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.Render(&buf, src); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// PlainText returns the text content of src with markup removed, cut to at
// most max runes (0 means no limit) on a word boundary.
func PlainText(src string, max int) string {
	source := []byte(src)
	doc := goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && b.Len() > 0 {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	out := strings.Join(strings.Fields(b.String()), " ")
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	runes := []rune(out)[:max]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

type linkTransformer struct {
	resolve func(string) string
}

func (t *linkTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			if isExternal(string(v.Destination)) {
				v.SetAttributeString("target", []byte("_blank"))
				v.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		case *ast.Image:
			if t.resolve != nil {
				v.Destination = []byte(t.resolve(string(v.Destination)))
			}
			v.SetAttributeString("loading", []byte("lazy"))
		}
		return ast.WalkContinue, nil
	})
}

func isExternal(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	return u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
