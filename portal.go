// Package portal is the web front of a prosthetics and rehabilitation
// center: the bilingual public site and the staff dashboard, both rendered
// on the server over the center's REST backend.
//
// The backend owns every record. The portal fetches per request, filters
// and renders, sends mutations back, and keeps only a short-lived public
// catalog cache plus the homepage counters in a local SQLite file.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/hashfs"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/locale"
	"github.com/rehabcenter/portal/markdown"
	"github.com/rehabcenter/portal/notify"
	"github.com/rehabcenter/portal/search"
	"github.com/rehabcenter/portal/stats"
	"github.com/rehabcenter/portal/views"
)

// App wires together the backend client, caches, handlers, middleware and views.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Backend  *api.Backend
	Stats    *stats.Store
	Catalog  *Catalog
	Gate     *Gate
	Log      *logrus.Logger
	Registry *prometheus.Registry

	views        *views.Renderer
	markdown     *markdown.Renderer
	bundle       *i18n.Bundle
	defaultLang  language.Tag
	assets       *hashfs.FS
	index        *search.Index
	sender       notify.Sender
	binder       *binder
	loginLimiter *LoginLimiter
	formLimiter  *FormLimiter
	resources    []adminResource
	customRoutes []func(*App)

	background sync.WaitGroup
	ready      bool
	ownsStats  bool
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Setup builds every dependency and registers middleware and routes.
// Start calls it; tests call it directly and drive a.Echo.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("portal: SessionSecret is required")
	}
	if a.Log == nil {
		a.Log = NewLogger(a.Config)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if a.Backend == nil {
		client := api.NewClient(a.Config.APIBaseURL, a.Config.APITimeout, api.WithMetrics(api.NewMetrics(a.Registry)))
		a.Backend = api.NewBackend(client)
	}

	if a.Stats == nil {
		st, err := stats.NewStore(a.Config.StatsDatabasePath)
		if err != nil {
			return fmt.Errorf("portal: init stats store: %w", err)
		}
		a.Stats = st
		a.ownsStats = true
	}

	bundle, err := locale.LoadBundle()
	if err != nil {
		return fmt.Errorf("portal: load locales: %w", err)
	}
	a.bundle = bundle
	a.defaultLang = locale.Match(a.Config.DefaultLang, "", locale.Default)

	index, err := search.New()
	if err != nil {
		return fmt.Errorf("portal: init search index: %w", err)
	}
	a.index = index
	a.Catalog = NewCatalog(a.Backend, a.Config.CatalogCacheTTL, index)

	a.assets = newAssetFS()
	a.markdown = markdown.New(markdown.WithImageResolver(a.imageURL))
	renderer, err := views.New(views.Config{
		Asset:    func(name string) string { return "/public/" + a.assets.HashName(name) },
		ImageURL: a.imageURL,
		Markdown: a.markdown,
		Currency: a.Config.Currency,
	})
	if err != nil {
		return fmt.Errorf("portal: parse templates: %w", err)
	}
	a.views = renderer

	if a.sender == nil {
		if a.Config.ResendAPIKey != "" && len(a.Config.NotifyEmail) > 0 {
			a.sender = notify.NewResendSender(a.Config.ResendAPIKey, a.Config.NotifyFrom, a.Config.NotifyEmail, a.Log)
		} else {
			a.sender = notify.NewNoopSender(a.Log)
		}
	}

	formLimiter, err := NewFormLimiter(a.Config.FormRateLimit)
	if err != nil {
		return fmt.Errorf("portal: %w", err)
	}
	a.formLimiter = formLimiter
	a.loginLimiter = NewLoginLimiter(a.Config.LoginMaxAttempts, a.Config.LoginWindow)
	a.binder = newBinder()
	a.Gate = NewGate(a.Backend, a.Config.CookieSecure)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets the App up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Log.WithField("addr", a.Config.Addr).Info("portal listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/public/*", echo.WrapHandler(http.StripPrefix("/public/", hashfs.FileServer(a.assets))))
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/lang/:code/", a.handleLanguage)
	if a.Config.MetricsEnabled {
		e.GET(a.Config.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	}

	// Public site
	e.GET("/", a.handleHome)
	e.GET("/about/", a.handleAbout)
	e.GET("/services/", a.handleServices)
	e.GET("/services/:slug/", a.handleService)
	e.GET("/products/", a.handleProducts)
	e.GET("/products/:slug/", a.handleProduct)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/stories/", a.handleStories)
	e.GET("/stories/:slug/", a.handleStory)
	e.GET("/sponsorship/", a.handleCases)
	e.GET("/sponsorship/:slug/", a.handleCase)
	e.GET("/partners/", a.handlePartners)
	e.GET("/search/", a.handleSearch)
	a.registerPublicForms(e)

	// Sign-in
	e.GET("/login/", a.handleLoginForm)
	e.POST("/login/", a.handleLogin)
	e.POST("/logout/", a.handleLogout)

	// Dashboard
	admin := e.Group("/admin", a.Gate.Require)
	admin.GET("/", a.handleDashboard)
	admin.GET("/stats/", a.handleStatsForm)
	admin.POST("/stats/", a.handleStatsSave)
	a.registerResources(admin)
	a.registerProductExtras(admin)
}

// Close waits for background notifications and releases resources.
func (a *App) Close() error {
	done := make(chan struct{})
	go func() {
		a.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		if a.Log != nil {
			a.Log.Warn("gave up waiting for background notifications")
		}
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.index != nil {
		a.index.Close()
	}
	if a.Stats != nil && a.ownsStats {
		a.Stats.Close()
	}
	return nil
}

// imageURL resolves a backend image path against the assets base URL.
func (a *App) imageURL(path string) string {
	return api.ResolveImageURL(a.Config.AssetsBaseURL, path)
}

// goBackground runs fn detached from the request, tracked by Close.
func (a *App) goBackground(fn func(ctx context.Context)) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fn(ctx)
	}()
}
