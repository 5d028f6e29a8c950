package portal

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactSubmission() url.Values {
	return url.Values{
		"fullName": {"سارة أحمد"},
		"email":    {"sara@example.com"},
		"phone":    {"+962700000000"},
		"subject":  {""},
		"message":  {"أرغب في الاستفسار عن الأطراف السفلية"},
	}
}

func TestContactSubmissionResetsForm(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(http.MethodPost, "/contact-messages", http.StatusCreated, `{"id":41,"status":"NEW"}`)
	app, sender := newTestApp(t, fb)

	rec := doPost(app, "/contact/", contactSubmission(), englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	posts := fb.calls(http.MethodPost, "/contact-messages")
	require.Len(t, posts, 1)
	sent := decodeJSON(t, posts[0].Body)
	assert.Equal(t, "NEW", sent["status"])
	assert.Equal(t, "", sent["subject"])
	assert.Equal(t, "سارة أحمد", sent["fullName"])

	doc := parseHTML(t, rec)
	for _, name := range []string{"fullName", "email", "phone", "subject"} {
		v, _ := doc.Find(`input[name="` + name + `"]`).Attr("value")
		assert.Empty(t, v, name)
	}
	assert.Empty(t, strings.TrimSpace(doc.Find(`textarea[name="message"]`).Text()))
	assert.Contains(t, doc.Find(".toast-success").Text(), "Your request was sent")

	require.Eventually(t, func() bool { return len(sender.sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	n := sender.sent()[0]
	assert.Contains(t, n.Subject, "سارة أحمد")
	assert.Equal(t, "sara@example.com", n.ReplyTo)
	assert.Equal(t, "http://example.com/admin/contact-messages/", n.Link)
}

func TestContactValidationKeepsInput(t *testing.T) {
	fb := newFakeBackend()
	app, sender := newTestApp(t, fb)

	form := contactSubmission()
	form.Set("email", "")
	rec := doPost(app, "/contact/", form, englishCookie)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, fb.calls(http.MethodPost, "/contact-messages"))

	doc := parseHTML(t, rec)
	name, _ := doc.Find(`input[name="fullName"]`).Attr("value")
	assert.Equal(t, "سارة أحمد", name)
	assert.Contains(t, doc.Find(".field-email .error").Text(), "This field is required")
	assert.Contains(t, doc.Find(".toast-error").Text(), "Please correct the errors")
	assert.Empty(t, sender.sent())
}

func TestContactBackendErrorShowsServerMessage(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
		want   string
		code   int
	}{
		"error field":   {http.StatusBadRequest, `{"error":"Duplicate message","message":"ignored"}`, "Duplicate message", http.StatusUnprocessableEntity},
		"message field": {http.StatusBadRequest, `{"message":"Phone number rejected"}`, "Phone number rejected", http.StatusUnprocessableEntity},
		"generic":       {http.StatusInternalServerError, `oops`, "Something went wrong", http.StatusBadGateway},
	} {
		t.Run(name, func(t *testing.T) {
			fb := newFakeBackend()
			fb.reply(http.MethodPost, "/contact-messages", tc.status, tc.body)
			app, sender := newTestApp(t, fb)

			rec := doPost(app, "/contact/", contactSubmission(), englishCookie)
			require.Equal(t, tc.code, rec.Code)
			doc := parseHTML(t, rec)
			assert.Contains(t, doc.Find(".toast-error").Text(), tc.want)
			v, _ := doc.Find(`input[name="email"]`).Attr("value")
			assert.Equal(t, "sara@example.com", v)
			assert.Empty(t, sender.sent())
		})
	}
}

func TestHoneypotDropsSubmission(t *testing.T) {
	fb := newFakeBackend()
	app, _ := newTestApp(t, fb)

	form := contactSubmission()
	form.Set(honeypotField, "http://spam.example")
	rec := doPost(app, "/contact/", form, englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fb.calls(http.MethodPost, "/contact-messages"))
}

func TestPostWithoutCSRFIsForbidden(t *testing.T) {
	fb := newFakeBackend()
	app, _ := newTestApp(t, fb)

	form := contactSubmission()
	form.Set("_csrf", "forged")
	req := httptest.NewRequest(http.MethodPost, "/contact/", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: testCSRF})
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, fb.calls(http.MethodPost, "/contact-messages"))
}

func TestAppointmentFormOffersActiveServices(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(http.MethodGet, "/services", http.StatusOK,
		`[{"id":1,"title":"Physiotherapy","slug":"physio","isActive":true},
		  {"id":2,"title":"Retired","slug":"retired","isActive":false}]`)
	app, _ := newTestApp(t, fb)

	rec := doGet(app, "/appointments/", englishCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)
	var opts []string
	doc.Find(`select[name="service"] option`).Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("value"); v != "" {
			opts = append(opts, v)
		}
	})
	assert.Equal(t, []string{"Physiotherapy"}, opts)
}
