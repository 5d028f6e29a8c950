package views

import (
	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/lfm"
	"github.com/rehabcenter/portal/locale"
	"github.com/rehabcenter/portal/stats"
)

// SiteConfig holds the site-wide settings every page needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Phone       string
	Email       string
	Address     string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	JSONLD      string
	NoIndex     bool
}

// Page is the data passed to every template.
type Page struct {
	Site   SiteConfig
	Meta   PageMeta
	Tr     *locale.Translator
	CSRF   string
	Toasts []lfm.Toast
	User   *api.User
	Path   string
	Admin  bool
	Data   any
}

// T localizes id for the page language.
func (p *Page) T(id string, args ...any) string {
	if p.Tr == nil {
		return id
	}
	return p.Tr.T(id, args...)
}

// Lang returns the page language code.
func (p *Page) Lang() string {
	if p.Tr == nil {
		return "ar"
	}
	return p.Tr.Code()
}

// Dir returns the page text direction.
func (p *Page) Dir() string {
	if p.Tr == nil {
		return "rtl"
	}
	return p.Tr.Dir()
}

// Option is a select option.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// FilterOption is one entry of a filter bar, with its counter badge.
type FilterOption struct {
	Value  string
	Label  string
	Count  int
	Active bool
	URL    string
}

// Cell is one table cell of an admin listing.
type Cell struct {
	Text   string
	Status string
	Image  string
	Flag   *bool
	Link   string
}

// Action is a link or button offered on a row.
type Action struct {
	Label string
	URL   string
}

// Row is one record of an admin listing.
type Row struct {
	ID      string
	Cells   []Cell
	EditURL string
	Actions []Action
}

// ListView is the admin listing of one resource.
type ListView struct {
	Resource   string
	Title      string
	Base       string
	Columns    []string
	Rows       []Row
	Statuses   []FilterOption
	Flags      []FilterOption
	Extras     []ExtraFilter
	Query      string
	Total      int
	Creatable  bool
	ExportURL  string
	Loading    bool
	EmptyLabel string
}

// ExtraFilter is an additional select filter, e.g. product category.
type ExtraFilter struct {
	Name    string
	Label   string
	Options []Option
}

// Field is one admin or public form input.
type Field struct {
	Name     string
	Label    string
	Kind     string // text, textarea, markdown, number, checkbox, select, multiselect, date, email, url, tel, file, slug, static
	Value    string
	Values   []string
	Options  []Option
	Required bool
	Error    string
	Help     string
	Source   string // for slug fields: the input the slug derives from
	Accept   string
}

// Checked reports whether a checkbox field is on.
func (f Field) Checked() bool {
	return f.Value == "true" || f.Value == "on" || f.Value == "1"
}

// Has reports whether a multiselect field contains v.
func (f Field) Has(v string) bool {
	for _, x := range f.Values {
		if x == v {
			return true
		}
	}
	return false
}

// FormView is an admin create or edit form.
type FormView struct {
	Resource  string
	Title     string
	Base      string
	Action    string
	Editing   bool
	ID        string
	Fields    []Field
	Multipart bool
	DeleteURL string
	Product   *ProductExtras
}

// ProductExtras lists the owned images and features on the product edit page.
type ProductExtras struct {
	Images   []ProductImageView
	Features []api.ProductFeature
	Base     string
}

// ProductImageView is a product image with its resolved URL.
type ProductImageView struct {
	ID  string
	URL string
	Alt string
}

// ConfirmView asks the user to confirm a destructive or state-changing action.
type ConfirmView struct {
	Title   string
	Message string
	Action  string
	Back    string
	Hidden  map[string]string
	Danger  bool
}

// DashboardCard summarizes one resource on the dashboard.
type DashboardCard struct {
	Title    string
	URL      string
	Total    int
	Statuses []FilterOption
	Err      bool
}

// StatsView is the admin editor of the local homepage counters.
type StatsView struct {
	Stats  stats.Stats
	Fields []Field
}

// PublicForm is a public submission form.
type PublicForm struct {
	Title     string
	Intro     string
	Action    string
	Fields    []Field
	Multipart bool
	Submit    string
}

// SearchView is the public search page.
type SearchView struct {
	Query string
	Hits  []SearchHit
}

// SearchHit is one result linking to a public page.
type SearchHit struct {
	Kind    string
	Title   string
	URL     string
	Snippet string
}
