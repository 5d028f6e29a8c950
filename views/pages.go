package views

import (
	"html/template"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/stats"
)

// HomeView is the landing page.
type HomeView struct {
	Services []api.Service
	Products []api.Product
	Stories  []api.SuccessStory
	Partners []api.Partner
	Posts    []api.BlogPost
	Cases    []api.SponsorshipCase
	Stats    stats.Stats
}

// AboutView is the about page.
type AboutView struct {
	Stats    stats.Stats
	Partners []api.Partner
	Services []api.Service
}

// ServicesView lists active services.
type ServicesView struct {
	Items []api.Service
	Query string
}

// ServiceView is one service.
type ServiceView struct {
	Service api.Service
	Body    template.HTML
	Others  []api.Service
}

// ProductsView lists active products.
type ProductsView struct {
	Items      []api.Product
	Categories []Option
	Category   string
	Query      string
}

// ProductView is one product with its gallery.
type ProductView struct {
	Product  api.Product
	Body     template.HTML
	Images   []ProductImageView
	Features []api.ProductFeature
}

// BlogView lists published posts.
type BlogView struct {
	Posts      []api.BlogPost
	Categories []FilterOption
	Tags       []FilterOption
	Category   string
	Tag        string
	Query      string
}

// PostView is one blog post.
type PostView struct {
	Post    api.BlogPost
	Body    template.HTML
	Related []api.BlogPost
}

// StoriesView lists published success stories.
type StoriesView struct {
	Items []api.SuccessStory
}

// StoryView is one success story.
type StoryView struct {
	Story api.SuccessStory
	Body  template.HTML
}

// CasesView lists sponsorship cases.
type CasesView struct {
	Items  []api.SponsorshipCase
	Status string
}

// CaseView is one sponsorship case.
type CaseView struct {
	Case api.SponsorshipCase
	Body template.HTML
}

// PartnersView lists active partners.
type PartnersView struct {
	Items []api.Partner
}

// ErrorView is shown for 404 and 5xx responses.
type ErrorView struct {
	Code    int
	Title   string
	Message string
}

// LoginView is the admin sign-in form.
type LoginView struct {
	Email string
	Error string
}
