package api

import (
	"context"
	"net/http"
	"strings"
)

// Backend groups every resource the portal talks to.
type Backend struct {
	Client *Client

	Services         *Resource[Service]
	Products         *Resource[Product]
	Posts            *Resource[BlogPost]
	Categories       *Resource[BlogCategory]
	Tags             *Resource[BlogTag]
	Partners         *Resource[Partner]
	Stories          *Resource[SuccessStory]
	SponsorshipCases *Resource[SponsorshipCase]
	ContactMessages  *Resource[ContactMessage]
	JobApplications  *Resource[JobApplication]
	Partnerships     *Resource[Partnership]
	Appointments     *Resource[Appointment]
}

// NewBackend binds all resources to c.
func NewBackend(c *Client) *Backend {
	return &Backend{
		Client:           c,
		Services:         NewResource[Service](c, "/services"),
		Products:         NewResource[Product](c, "/products"),
		Posts:            NewResource[BlogPost](c, "/blog/posts"),
		Categories:       NewResource[BlogCategory](c, "/blog/categories"),
		Tags:             NewResource[BlogTag](c, "/blog/tags"),
		Partners:         NewResource[Partner](c, "/partners"),
		Stories:          NewResource[SuccessStory](c, "/success-stories"),
		SponsorshipCases: NewResource[SponsorshipCase](c, "/sponsorship-cases"),
		ContactMessages:  NewResource[ContactMessage](c, "/contact-messages"),
		JobApplications:  NewResource[JobApplication](c, "/job-applications"),
		Partnerships:     NewResource[Partnership](c, "/partnerships"),
		Appointments:     NewResource[Appointment](c, "/appointments"),
	}
}

// ProductImages returns the image collection owned by product id.
func (b *Backend) ProductImages(id ID) *Resource[ProductImage] {
	return Child[ProductImage](b.Products, id, "images")
}

// ProductFeatures returns the feature collection owned by product id.
func (b *Backend) ProductFeatures(id ID) *Resource[ProductFeature] {
	return Child[ProductFeature](b.Products, id, "features")
}

// LoginResult is the body returned by POST /auth/login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges credentials for a session token.
func (b *Backend) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := b.Client.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

// Profile returns the user owning the token carried by ctx.
func (b *Backend) Profile(ctx context.Context) (User, error) {
	var out User
	err := b.Client.doJSON(ctx, http.MethodGet, "/auth/profile", nil, &out)
	return out, err
}

// ResolveImageURL turns a backend-relative path into an absolute URL by
// prefixing base. Absolute, protocol-relative and data URLs pass through.
func ResolveImageURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(path, "//") || strings.HasPrefix(lower, "data:") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
