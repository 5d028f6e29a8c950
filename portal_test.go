package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehabcenter/portal/notify"
)

const testCSRF = "test-csrf-token"

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

// fakeBackend answers REST calls from a route table. Unknown GETs return
// an empty list; anything else is a 404.
type fakeBackend struct {
	mu       sync.Mutex
	routes   map[string]func(r *http.Request, body []byte) (int, string)
	requests []recordedRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{routes: map[string]func(*http.Request, []byte) (int, string){}}
}

func (f *fakeBackend) handle(method, path string, fn func(r *http.Request, body []byte) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = fn
}

func (f *fakeBackend) reply(method, path string, status int, body string) {
	f.handle(method, path, func(*http.Request, []byte) (int, string) { return status, body })
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
	fn := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case fn != nil:
		status, out := fn(r, body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, out)
	case r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `[]`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}
}

// calls returns the recorded requests matching method and path.
func (f *fakeBackend) calls(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

type recordingSender struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (s *recordingSender) Send(_ context.Context, n notify.Notice) error {
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) sent() []notify.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notice(nil), s.notices...)
}

func newTestApp(t *testing.T, fb *fakeBackend) (*App, *recordingSender) {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	sender := &recordingSender{}
	app := New(SiteConfig{
		Name:              "Test Center",
		URL:               "http://example.com",
		APIBaseURL:        srv.URL,
		AssetsBaseURL:     "http://cdn.example.com",
		APITimeout:        2 * time.Second,
		SessionSecret:     "test-session-secret-0123456789",
		StatsDatabasePath: filepath.Join(t.TempDir(), "stats.db"),
		LogLevel:          "silent",
		CatalogCacheTTL:   time.Minute,
	}, WithSender(sender))
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })
	return app, sender
}

var englishCookie = &http.Cookie{Name: langCookie, Value: "en"}

func doGet(app *App, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func doPost(app *App, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	form.Set("_csrf", testCSRF)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: testCSRF})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return doc
}

func decodeJSON(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestSetupRequiresSessionSecret(t *testing.T) {
	app := New(SiteConfig{LogLevel: "silent"})
	err := app.Setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SessionSecret")
}

func TestHomeRendersCatalogAndStats(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(http.MethodGet, "/services", http.StatusOK,
		`[{"id":1,"title":"Lower limb prosthetics","slug":"lower-limb","isActive":true},
		  {"id":2,"title":"Hidden service","slug":"hidden","isActive":false}]`)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/", englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))

	body := rec.Body.String()
	assert.Contains(t, body, "Lower limb prosthetics")
	assert.NotContains(t, body, "Hidden service")
	assert.Contains(t, body, "Beneficiaries")
}

func TestArabicIsTheDefaultLanguage(t *testing.T) {
	app, _ := newTestApp(t, newFakeBackend())

	rec := doGet(app, "/about/")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)
	dir, _ := doc.Find("html").Attr("dir")
	assert.Equal(t, "rtl", dir)
	assert.Contains(t, doc.Find("h1").First().Text(), "من نحن")
}

func TestUnknownSlugRendersNotFound(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(http.MethodGet, "/services", http.StatusOK, `[{"id":1,"title":"Gait training","slug":"gait","isActive":true}]`)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/services/missing/", englishCookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, parseHTML(t, rec).Find("h1").Text(), "Page not found")

	rec = doGet(app, "/services/gait/", englishCookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gait training")
}

func TestLanguageSwitchSetsCookie(t *testing.T) {
	app, _ := newTestApp(t, newFakeBackend())

	rec := doGet(app, "/lang/en/?next=/services/")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/services/", rec.Header().Get("Location"))
	var lang *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == langCookie {
			lang = c
		}
	}
	require.NotNil(t, lang)
	assert.Equal(t, "en", lang.Value)

	rec = doGet(app, "/lang/en/?next=//evil.example/")
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = doGet(app, "/lang/fr/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSitemapListsVisibleRecords(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(http.MethodGet, "/services", http.StatusOK, `[{"id":1,"title":"Orthotics","slug":"orthotics","isActive":true,"createdAt":"2025-03-01T10:00:00Z"}]`)
	fb.reply(http.MethodGet, "/blog/posts", http.StatusOK,
		`[{"id":1,"title":"Walking again","slug":"walking-again","content":"x","status":"PUBLISHED","publishedAt":"2025-04-02T08:00:00Z"},
		  {"id":2,"title":"Draft","slug":"draft-post","content":"x","status":"DRAFT"}]`)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>http://example.com/services/orthotics/</loc>")
	assert.Contains(t, body, "<lastmod>2025-03-01</lastmod>")
	assert.Contains(t, body, "<loc>http://example.com/blog/walking-again/</loc>")
	assert.NotContains(t, body, "draft-post")

	rec = doGet(app, "/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Walking again</title>")
	assert.NotContains(t, rec.Body.String(), "Draft")
}

func TestRobotsDisallowsAdmin(t *testing.T) {
	app, _ := newTestApp(t, newFakeBackend())

	rec := doGet(app, "/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /admin/")
	assert.Contains(t, rec.Body.String(), "Sitemap: http://example.com/sitemap.xml")
}

func TestDetailFetchFailureRedirectsToListing(t *testing.T) {
	fb := newFakeBackend()
	var reads atomic.Int32
	fb.handle(http.MethodGet, "/services", func(*http.Request, []byte) (int, string) {
		if reads.Add(1) == 1 {
			return http.StatusInternalServerError, `{"message":"database offline"}`
		}
		return http.StatusOK, `[]`
	})
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/services/orthotics/", englishCookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/services/", rec.Header().Get("Location"))

	cookies := append(rec.Result().Cookies(), englishCookie)
	rec = doGet(app, "/services/", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, parseHTML(t, rec).Find(".toast-error").Text(), "Could not load")
}

func TestFaviconIsServed(t *testing.T) {
	app, _ := newTestApp(t, newFakeBackend())

	rec := doGet(app, "/favicon.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")
}
