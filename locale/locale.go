// Package locale loads the Arabic and English message catalogs and hands
// out per-request translators.
package locale

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var files embed.FS

// Default is the site language.
var Default = language.Arabic

// Supported lists the languages with a catalog, default first.
var Supported = []language.Tag{language.Arabic, language.English}

// LoadBundle parses every embedded catalog.
func LoadBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(Default)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	entries, err := fs.ReadDir(files, "locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := path.Join("locales", e.Name())
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return bundle, nil
}

// Match picks the supported language for a request: an explicit choice
// (the lang cookie) wins, then Accept-Language, then def.
func Match(choice, acceptLanguage string, def language.Tag) language.Tag {
	candidates := []language.Tag{}
	if choice != "" {
		if tag, err := language.Parse(choice); err == nil {
			candidates = append(candidates, tag)
		}
	}
	if len(candidates) == 0 && acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil {
			candidates = tags
		}
	}
	if len(candidates) == 0 {
		return def
	}
	matcher := language.NewMatcher(Supported)
	_, idx, conf := matcher.Match(candidates...)
	if conf == language.No {
		return def
	}
	return Supported[idx]
}

// Translator renders messages, numbers and dates for one language.
type Translator struct {
	Tag       language.Tag
	localizer *i18n.Localizer
	printer   *message.Printer
}

// New creates a Translator for tag.
func New(bundle *i18n.Bundle, tag language.Tag) *Translator {
	return &Translator{
		Tag:       tag,
		localizer: i18n.NewLocalizer(bundle, tag.String()),
		printer:   message.NewPrinter(tag),
	}
}

// T localizes id. args are alternating key/value template data. A missing
// message renders as its id.
func (t *Translator) T(id string, args ...any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(args) > 1 {
		data := make(map[string]any, len(args)/2)
		for i := 0; i+1 < len(args); i += 2 {
			key, _ := args[i].(string)
			data[key] = args[i+1]
		}
		cfg.TemplateData = data
	}
	out, err := t.localizer.Localize(cfg)
	if err != nil || out == "" {
		return id
	}
	return out
}

// Code returns the base language code, e.g. "ar".
func (t *Translator) Code() string {
	base, _ := t.Tag.Base()
	return base.String()
}

// Dir returns the text direction for the language.
func (t *Translator) Dir() string {
	if t.Code() == "ar" {
		return "rtl"
	}
	return "ltr"
}

// Number formats n with the language's digit grouping.
func (t *Translator) Number(n int) string {
	return t.printer.Sprintf("%d", n)
}

var arabicMonths = [...]string{
	"كانون الثاني", "شباط", "آذار", "نيسان", "أيار", "حزيران",
	"تموز", "آب", "أيلول", "تشرين الأول", "تشرين الثاني", "كانون الأول",
}

// Date formats d as a long date. The zero time renders empty.
func (t *Translator) Date(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	if t.Code() == "ar" {
		return fmt.Sprintf("%d %s %d", d.Day(), arabicMonths[d.Month()-1], d.Year())
	}
	return d.Format("2 January 2006")
}

type ctxKey struct{}

// WithTranslator stores t in ctx.
func WithTranslator(ctx context.Context, t *Translator) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the translator stored in ctx, or nil.
func FromContext(ctx context.Context) *Translator {
	t, _ := ctx.Value(ctxKey{}).(*Translator)
	return t
}

// IsSupported reports whether code names a catalog language.
func IsSupported(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, tag := range Supported {
		if base, _ := tag.Base(); base.String() == code {
			return true
		}
	}
	return false
}
