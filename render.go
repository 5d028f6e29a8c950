package portal

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/locale"
	"github.com/rehabcenter/portal/views"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

func (a *App) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Phone:       a.Config.Phone,
		Email:       a.Config.Email,
		Address:     a.Config.Address,
	}
}

// newPage assembles the data every template receives. Pending toasts are
// consumed here so they show exactly once.
func (a *App) newPage(c echo.Context, meta views.PageMeta, data any) *views.Page {
	path := c.Request().URL.Path
	if meta.URL == "" {
		meta.URL = BuildURL(a.Config.URL, path)
	}
	if meta.Description == "" {
		meta.Description = a.Config.Description
	}
	p := &views.Page{
		Site:   a.site(),
		Meta:   meta,
		Tr:     a.tr(c),
		CSRF:   CsrfToken(c),
		Path:   path,
		Admin:  strings.HasPrefix(path, "/admin") || strings.HasPrefix(path, "/login"),
		Data:   data,
		Toasts: popToasts(c),
	}
	if s, ok := c.Get(gateKey).(Session); ok && s.User != nil {
		p.User = s.User
	}
	if p.Admin {
		p.Meta.NoIndex = true
	}
	return p
}

// render writes the named page inside the shared layout.
func (a *App) render(c echo.Context, code int, name string, meta views.PageMeta, data any) error {
	return RenderStatus(c, code, a.views.Page(name, a.newPage(c, meta, data)))
}

// tr returns the request translator, falling back to the default language.
func (a *App) tr(c echo.Context) *locale.Translator {
	if t := locale.FromContext(c.Request().Context()); t != nil {
		return t
	}
	return locale.New(a.bundle, a.defaultLang)
}

func (a *App) renderNotFound(c echo.Context) error {
	tr := a.tr(c)
	return a.render(c, http.StatusNotFound, "error", views.PageMeta{Title: tr.T("Error.NotFoundTitle"), NoIndex: true}, views.ErrorView{
		Code:    http.StatusNotFound,
		Title:   tr.T("Error.NotFoundTitle"),
		Message: tr.T("Error.NotFoundMessage"),
	})
}

func (a *App) renderServerError(c echo.Context, code int) error {
	tr := a.tr(c)
	return a.render(c, code, "error", views.PageMeta{Title: tr.T("Error.ServerTitle"), NoIndex: true}, views.ErrorView{
		Code:    code,
		Title:   tr.T("Error.ServerTitle"),
		Message: tr.T("Error.ServerMessage"),
	})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = a.renderNotFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		logger(c).WithError(err).Error("server error")
		_ = a.renderServerError(c, code)
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
