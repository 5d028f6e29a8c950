package portal

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/notify"
	"github.com/rehabcenter/portal/stats"
)

// Production is the GO_APP_ENV value that switches on JSON logs and secure cookies.
const Production = "production"

// SiteConfig holds all configuration for the portal.
type SiteConfig struct {
	Name        string `env:"SITE_NAME"`        // Site name (default "مركز الأطراف الصناعية")
	URL         string `env:"SITE_URL"`         // Canonical URL (default "http://localhost:3000")
	Description string `env:"SITE_DESCRIPTION"` // Meta description and RSS channel text
	Phone       string `env:"SITE_PHONE"`
	Email       string `env:"SITE_EMAIL"`
	Address     string `env:"SITE_ADDRESS"`

	Addr          string        `env:"ADDR"`            // Listen address (default ":3000")
	APIBaseURL    string        `env:"API_BASE_URL"`    // REST backend (default "http://localhost:5000/api")
	AssetsBaseURL string        `env:"ASSETS_BASE_URL"` // Prefix for relative image paths (default: API_BASE_URL host)
	APITimeout    time.Duration `env:"API_TIMEOUT"`     // Per-call backend timeout (default 15s)

	StatsDatabasePath string `env:"STATS_DATABASE_PATH"` // SQLite path (default "data/stats.db")

	SessionSecret string `env:"SESSION_SECRET"` // Required: cookie store secret
	CookieSecure  bool   `env:"COOKIE_SECURE"`  // Set true for HTTPS

	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL"` // Public catalog TTL (default 5min)

	LogLevel    string `env:"LOG_LEVEL"`    // silent, error, warn, info, debug (default "info")
	Environment string `env:"GO_APP_ENV"`   // "production" or anything else
	DefaultLang string `env:"DEFAULT_LANG"` // "ar" or "en" (default "ar")

	MetricsEnabled bool   `env:"METRICS_ENABLED"`
	MetricsPath    string `env:"METRICS_PATH"` // default "/metrics"

	FormRateLimit    string        `env:"FORM_RATE_LIMIT"`    // public submissions per IP (default "10-H")
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS"` // failed logins per IP per window (default 5)
	LoginWindow      time.Duration `env:"LOGIN_WINDOW"`       // default 1min

	ResendAPIKey string   `env:"RESEND_API_KEY"`
	NotifyEmail  []string `env:"NOTIFY_EMAIL" envSeparator:","`
	NotifyFrom   string   `env:"NOTIFY_FROM"`

	Currency string `env:"CURRENCY"` // ISO 4217 code for prices and donations (default "USD")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "مركز الأطراف الصناعية"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://localhost:5000/api"
	}
	if c.AssetsBaseURL == "" {
		c.AssetsBaseURL = c.APIBaseURL
	}
	if c.APITimeout == 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.StatsDatabasePath == "" {
		c.StatsDatabasePath = "data/stats.db"
	}
	if c.CatalogCacheTTL == 0 {
		c.CatalogCacheTTL = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DefaultLang == "" {
		c.DefaultLang = "ar"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.FormRateLimit == "" {
		c.FormRateLimit = "10-H"
	}
	if c.LoginMaxAttempts == 0 {
		c.LoginMaxAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.NotifyFrom == "" {
		c.NotifyFrom = "portal@localhost"
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
}

// Production reports whether the portal runs in production mode.
func (c SiteConfig) Production() bool {
	return c.Environment == Production
}

// LogrusLevel maps LOG_LEVEL to a logrus level.
func (c SiteConfig) LogrusLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// LoadConfig loads the env files that exist, parses the environment into a
// SiteConfig and fills defaults.
func LoadConfig(files ...string) (SiteConfig, error) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return SiteConfig{}, fmt.Errorf("load env files: %w", err)
		}
	}
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are in place.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithBackend replaces the REST backend the App talks to.
func WithBackend(b *api.Backend) Option {
	return func(a *App) {
		a.Backend = b
	}
}

// WithStatsStore replaces the local statistics store.
func WithStatsStore(s *stats.Store) Option {
	return func(a *App) {
		a.Stats = s
	}
}

// WithSender replaces the staff notification sender.
func WithSender(s notify.Sender) Option {
	return func(a *App) {
		a.sender = s
	}
}

// WithLogger replaces the root logger.
func WithLogger(l *logrus.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}
