package portal

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehabcenter/portal/stats"
)

const adminProfile = `{"id":7,"name":"Admin","email":"admin@example.org","role":"ADMIN"}`

var tokenCookieValue = &http.Cookie{Name: tokenCookie, Value: "valid-token"}

// signedIn registers a profile endpoint accepting only valid-token.
func signedIn(fb *fakeBackend) {
	fb.handle(http.MethodGet, "/auth/profile", func(r *http.Request, _ []byte) (int, string) {
		if r.Header.Get("Authorization") != "Bearer valid-token" {
			return http.StatusUnauthorized, `{"message":"Unauthorized"}`
		}
		return http.StatusOK, adminProfile
	})
}

func cookieNamed(rec interface{ Result() *http.Response }, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAdminWithoutTokenRedirectsToLogin(t *testing.T) {
	fb := newFakeBackend()
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/admin/contact-messages/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	assert.Empty(t, fb.calls(http.MethodGet, "/contact-messages"))
}

func TestGatePurgesCookiesWhenProfileFails(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/admin/", &http.Cookie{Name: tokenCookie, Value: "expired"}, &http.Cookie{Name: userCookie, Value: "stale"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))

	for _, name := range []string{tokenCookie, userCookie} {
		c := cookieNamed(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value, name)
		assert.Less(t, c.MaxAge, 0, name)
	}
	calls := fb.calls(http.MethodGet, "/auth/profile")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer expired", calls[0].Auth)
}

func TestLoginPageRedirectsWhenTokenPresent(t *testing.T) {
	app, _ := newTestApp(t, newFakeBackend())

	rec := doGet(app, "/login/", tokenCookieValue)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))

	rec = doGet(app, "/login/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginStoresTokenAndUser(t *testing.T) {
	fb := newFakeBackend()
	fb.handle(http.MethodPost, "/auth/login", func(_ *http.Request, body []byte) (int, string) {
		if !strings.Contains(string(body), `"password":"s3cret"`) {
			return http.StatusUnauthorized, `{"message":"Invalid credentials"}`
		}
		return http.StatusOK, `{"token":"valid-token","user":` + adminProfile + `}`
	})
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/login/", url.Values{"email": {" admin@example.org "}, "password": {"s3cret"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))

	token := cookieNamed(rec, tokenCookie)
	require.NotNil(t, token)
	assert.Equal(t, "valid-token", token.Value)
	assert.True(t, token.HttpOnly)

	user := cookieNamed(rec, userCookie)
	require.NotNil(t, user)
	decoded, ok := decodeUser(user.Value)
	require.True(t, ok)
	assert.Equal(t, "admin@example.org", decoded.Email)

	body := decodeJSON(t, fb.calls(http.MethodPost, "/auth/login")[0].Body)
	assert.Equal(t, "admin@example.org", body["email"])
}

func TestLoginFailureIsRateLimited(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(http.MethodPost, "/auth/login", http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	app, _ := newTestApp(t, fb)

	form := func() url.Values { return url.Values{"email": {"admin@example.org"}, "password": {"wrong"}} }
	for i := 0; i < app.Config.LoginMaxAttempts; i++ {
		rec := doPost(app, "/login/", form(), englishCookie)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Incorrect email or password")
		assert.Nil(t, cookieNamed(rec, tokenCookie))
	}

	rec := doPost(app, "/login/", form(), englishCookie)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, fb.calls(http.MethodPost, "/auth/login"), app.Config.LoginMaxAttempts)
}

func TestLogoutClearsCookies(t *testing.T) {
	app, _ := newTestApp(t, newFakeBackend())

	rec := doPost(app, "/logout/", url.Values{}, tokenCookieValue)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	c := cookieNamed(rec, tokenCookie)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}

const jobApplications = `[
  {"id":1,"fullName":"Omar","email":"o@example.com","phone":"1","position":"Prosthetist","status":"PENDING","createdAt":"2025-05-01T09:00:00Z"},
  {"id":2,"fullName":"Lina","email":"l@example.com","phone":"2","position":"Physiotherapist","status":"REJECTED","createdAt":"2025-05-02T09:00:00Z"},
  {"id":3,"fullName":"Hadi","email":"h@example.com","phone":"3","position":"Orthotist","status":"REVIEWED","createdAt":"2025-05-03T09:00:00Z"},
  {"id":4,"fullName":"Rana","email":"r@example.com","phone":"4","position":"Nurse","status":"REJECTED","createdAt":"2025-05-04T09:00:00Z"},
  {"id":5,"fullName":"Sami","email":"s@example.com","phone":"5","position":"Technician","status":"ACCEPTED","createdAt":"2025-05-05T09:00:00Z"}
]`

func statusPill(doc *goquery.Document, status string) *goquery.Selection {
	return doc.Find(`nav.pills a[href*="status=` + status + `"]`)
}

func TestJobApplicationsFilterByStatus(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodGet, "/job-applications", http.StatusOK, jobApplications)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/admin/job-applications/?status=REJECTED", tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)

	rows := doc.Find("table.table tbody tr")
	require.Equal(t, 2, rows.Length())
	assert.Contains(t, rows.Text(), "Lina")
	assert.Contains(t, rows.Text(), "Rana")
	assert.NotContains(t, rows.Text(), "Omar")

	rejected := statusPill(doc, "REJECTED")
	require.Equal(t, 1, rejected.Length())
	assert.Contains(t, rejected.Text(), "Rejected")
	assert.Equal(t, "2", rejected.Find(".count").Text())
	assert.Equal(t, "1", statusPill(doc, "PENDING").Find(".count").Text())

	calls := fb.calls(http.MethodGet, "/job-applications")
	require.NotEmpty(t, calls)
	assert.Equal(t, "Bearer valid-token", calls[0].Auth)
}

func TestJobApplicationsSearchNarrowsStatusCounts(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodGet, "/job-applications", http.StatusOK, jobApplications)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/admin/job-applications/?q=lina", tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)
	assert.Equal(t, 1, doc.Find("table.table tbody tr").Length())
	assert.Equal(t, "1", statusPill(doc, "REJECTED").Find(".count").Text())
	assert.Equal(t, "0", statusPill(doc, "PENDING").Find(".count").Text())
}

func TestStatusChangeSendsMergePatch(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodGet, "/job-applications/1", http.StatusOK,
		`{"id":1,"fullName":"Omar","email":"o@example.com","phone":"1","position":"Prosthetist","status":"PENDING"}`)
	fb.reply(http.MethodPatch, "/job-applications/1", http.StatusOK, `{"id":1,"status":"REVIEWED"}`)
	fb.reply(http.MethodGet, "/job-applications", http.StatusOK, jobApplications)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/job-applications/1/status/", url.Values{"to": {"REVIEWED"}, "confirm": {"yes"}}, tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	patches := fb.calls(http.MethodPatch, "/job-applications/1")
	require.Len(t, patches, 1)
	assert.JSONEq(t, `{"status":"REVIEWED"}`, string(patches[0].Body))

	doc := parseHTML(t, rec)
	assert.Contains(t, doc.Find(".toast-success").Text(), "Status changed to Reviewed")
	assert.Equal(t, 5, doc.Find("table.table tbody tr").Length())
}

func TestStatusChangeRejectsInvalidTransition(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodGet, "/job-applications/5", http.StatusOK,
		`{"id":5,"fullName":"Sami","email":"s@example.com","phone":"5","position":"Technician","status":"ACCEPTED"}`)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/job-applications/5/status/", url.Values{"to": {"PENDING"}, "confirm": {"yes"}}, tokenCookieValue)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, fb.calls(http.MethodPatch, "/job-applications/5"))
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodDelete, "/services/9", http.StatusNoContent, ``)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/services/9/delete/", url.Values{}, tokenCookieValue)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/services/9/delete/", rec.Header().Get("Location"))
	assert.Empty(t, fb.calls(http.MethodDelete, "/services/9"))

	rec = doPost(app, "/admin/services/9/delete/", url.Values{"confirm": {"yes"}}, tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fb.calls(http.MethodDelete, "/services/9"), 1)
	assert.Contains(t, parseHTML(t, rec).Find(".toast-success").Text(), "Deleted successfully")
}

func TestCreateServiceDerivesSlug(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodPost, "/services", http.StatusCreated, `{"id":12}`)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/services/", url.Values{
		"title":       {"العلاج الطبيعي للأطفال"},
		"description": {"جلسات علاج طبيعي"},
		"isActive":    {"true"},
		"orderIndex":  {"2"},
	}, tokenCookieValue)
	require.Equal(t, http.StatusOK, rec.Code)

	posts := fb.calls(http.MethodPost, "/services")
	require.Len(t, posts, 1)
	body := decodeJSON(t, posts[0].Body)
	assert.Equal(t, "العلاج-الطبيعي-للأطفال", body["slug"])
	assert.Equal(t, true, body["isActive"])
}

func TestUnauthorizedMutationSignsOut(t *testing.T) {
	fb := newFakeBackend()
	var revoked atomic.Bool
	fb.handle(http.MethodGet, "/auth/profile", func(*http.Request, []byte) (int, string) {
		if revoked.Load() {
			return http.StatusUnauthorized, `{"message":"token revoked"}`
		}
		return http.StatusOK, adminProfile
	})
	fb.handle(http.MethodDelete, "/blog/tags/3", func(*http.Request, []byte) (int, string) {
		revoked.Store(true)
		return http.StatusUnauthorized, `{"message":"token revoked"}`
	})
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/tags/3/delete/", url.Values{"confirm": {"yes"}}, tokenCookieValue)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	assert.Len(t, fb.calls(http.MethodGet, "/auth/profile"), 2)
	for _, name := range []string{tokenCookie, userCookie} {
		c := cookieNamed(rec, name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0, name)
	}
}

func TestRefusedMutationKeepsValidSession(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodDelete, "/blog/tags/3", http.StatusUnauthorized, `{"message":"not allowed"}`)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/tags/3/delete/", url.Values{"confirm": {"yes"}}, tokenCookieValue)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))
	assert.Len(t, fb.calls(http.MethodGet, "/auth/profile"), 2)
	if c := cookieNamed(rec, tokenCookie); c != nil {
		assert.GreaterOrEqual(t, c.MaxAge, 0)
	}
}

func TestDashboardShowsResourceCounts(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodGet, "/job-applications", http.StatusOK, jobApplications)
	fb.reply(http.MethodGet, "/contact-messages", http.StatusInternalServerError, `{"message":"down"}`)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/admin/", tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)

	jobs := doc.Find(`a.dash-card[href="/admin/job-applications/"]`)
	require.Equal(t, 1, jobs.Length())
	assert.Equal(t, "5", strings.TrimSpace(jobs.Find(".total").Text()))

	contacts := doc.Find(`a.dash-card[href="/admin/contact-messages/"]`)
	assert.Contains(t, contacts.Find(".error").Text(), "Could not load")
}

func TestStatsEditorSavesCounters(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/stats/", url.Values{
		stats.Beneficiaries:    {"7200"},
		stats.ProsthesesFitted: {"4100"},
		stats.YearsExperience:  {"18"},
		stats.Specialists:      {"31"},
	}, tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, parseHTML(t, rec).Find(".toast-success").Text(), "Statistics saved")

	st, err := app.Stats.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7200, st.Beneficiaries)
	assert.Equal(t, 31, st.Specialists)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestStatsEditorRejectsNegative(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/stats/", url.Values{
		stats.Beneficiaries:    {"-1"},
		stats.ProsthesesFitted: {"4100"},
		stats.YearsExperience:  {"18"},
		stats.Specialists:      {"31"},
	}, tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	st, err := app.Stats.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.Defaults.Beneficiaries, st.Beneficiaries)
}

func TestCreateWithUntickedBoxSendsInactive(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	fb.reply(http.MethodPost, "/services", http.StatusCreated, `{"id":13}`)
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/services/", url.Values{
		"title":       {"Hidden draft service"},
		"description": {"not ready"},
		"orderIndex":  {"4"},
	}, tokenCookieValue)
	require.Equal(t, http.StatusOK, rec.Code)

	posts := fb.calls(http.MethodPost, "/services")
	require.Len(t, posts, 1)
	assert.Equal(t, false, decodeJSON(t, posts[0].Body)["isActive"])
}

func TestUpdateSendsChangedFieldsAndShowsReload(t *testing.T) {
	fb := newFakeBackend()
	signedIn(fb)
	var saved atomic.Bool
	fb.handle(http.MethodGet, "/services/5", func(*http.Request, []byte) (int, string) {
		if saved.Load() {
			return http.StatusOK, `{"id":5,"title":"Gait Lab","slug":"old-slug","description":"d","orderIndex":1,"isActive":false}`
		}
		return http.StatusOK, `{"id":5,"title":"Old","slug":"old-slug","description":"d","orderIndex":1,"isActive":true}`
	})
	fb.handle(http.MethodPatch, "/services/5", func(*http.Request, []byte) (int, string) {
		saved.Store(true)
		return http.StatusOK, `{"id":5}`
	})
	app, _ := newTestApp(t, fb)

	rec := doPost(app, "/admin/services/5/", url.Values{
		"title":       {"Gait lab"},
		"slug":        {"old-slug"},
		"summary":     {""},
		"description": {"d"},
		"icon":        {""},
		"image":       {""},
		"orderIndex":  {"1"},
	}, tokenCookieValue, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	patches := fb.calls(http.MethodPatch, "/services/5")
	require.Len(t, patches, 1)
	assert.Equal(t, map[string]any{"title": "Gait lab", "isActive": false}, decodeJSON(t, patches[0].Body))

	doc := parseHTML(t, rec)
	title, _ := doc.Find(`input[name="title"]`).Attr("value")
	assert.Equal(t, "Gait Lab", title)
	slug, _ := doc.Find(`input[name="slug"]`).Attr("value")
	assert.Equal(t, "old-slug", slug)
	_, checked := doc.Find(`input[name="isActive"]`).Attr("checked")
	assert.False(t, checked)
	assert.Len(t, fb.calls(http.MethodGet, "/services/5"), 2)
}
