package portal

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/lfm"
	"github.com/rehabcenter/portal/stats"
	"github.com/rehabcenter/portal/views"
)

func (a *App) handleLoginForm(c echo.Context) error {
	return a.renderLogin(c, http.StatusOK, views.LoginView{})
}

func (a *App) renderLogin(c echo.Context, code int, v views.LoginView) error {
	tr := a.tr(c)
	return a.render(c, code, "login", views.PageMeta{Title: tr.T("Login.Title"), NoIndex: true}, v)
}

func (a *App) handleLogin(c echo.Context) error {
	tr := a.tr(c)
	ip := c.RealIP()
	email := strings.TrimSpace(c.FormValue("email"))
	if !a.loginLimiter.Check(ip) {
		return a.renderLogin(c, http.StatusTooManyRequests, views.LoginView{Email: email, Error: tr.T("Login.TooMany")})
	}
	user, err := a.Gate.Login(c, email, c.FormValue("password"))
	if err != nil {
		a.loginLimiter.Record(ip)
		logger(c).WithError(err).Info("sign-in rejected")
		return a.renderLogin(c, http.StatusUnauthorized, views.LoginView{Email: email, Error: tr.T("Login.Invalid")})
	}
	a.loginLimiter.Reset(ip)
	logger(c).WithField("user", user.Email).Info("signed in")
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleLogout(c echo.Context) error {
	a.Gate.Teardown(c)
	return c.Redirect(http.StatusSeeOther, "/login/")
}

// handleDashboard loads every resource card concurrently.
func (a *App) handleDashboard(c echo.Context) error {
	tr := a.tr(c)
	ctx := c.Request().Context()
	cards := make([]views.DashboardCard, len(a.resources))
	var wg sync.WaitGroup
	for i, r := range a.resources {
		wg.Add(1)
		go func(i int, r adminResource) {
			defer wg.Done()
			cards[i] = r.card(ctx, tr)
		}(i, r)
	}
	wg.Wait()
	return a.render(c, http.StatusOK, "dashboard", views.PageMeta{Title: tr.T("Admin.Dashboard"), NoIndex: true}, cards)
}

var statsFields = func() []fieldSpec {
	specs := make([]fieldSpec, 0, len(stats.Keys))
	for _, k := range stats.Keys {
		specs = append(specs, fieldSpec{Name: k, Kind: "number", Required: true})
	}
	return specs
}()

func (a *App) renderStats(c echo.Context, code int, st stats.Stats, vals url.Values, errs map[string]string) error {
	tr := a.tr(c)
	return a.render(c, code, "admin_stats", views.PageMeta{Title: tr.T("Resource.stats"), NoIndex: true}, views.StatsView{
		Stats:  st,
		Fields: buildFields(c.Request().Context(), tr, statsFields, vals, errs),
	})
}

func (a *App) handleStatsForm(c echo.Context) error {
	st, err := a.Stats.Get(c.Request().Context())
	if err != nil {
		logger(c).WithError(err).Warn("stats unavailable, showing defaults")
		a.toast(c, lfm.ToastError, "Toast.LoadFailed")
		st = stats.Defaults
	}
	return a.renderStats(c, http.StatusOK, st, a.binder.encode(st), nil)
}

func (a *App) handleStatsSave(c echo.Context) error {
	tr := a.tr(c)
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	vals := formValues(params, statsFields)
	var st stats.Stats
	if errs := a.binder.bind(&st, vals, tr, stats.Keys...); len(errs) > 0 {
		a.toast(c, lfm.ToastError, "Toast.FixErrors")
		return a.renderStats(c, http.StatusUnprocessableEntity, st, vals, errs)
	}
	if err := a.Stats.Save(c.Request().Context(), st); err != nil {
		logger(c).WithError(err).Error("save stats")
		a.toast(c, lfm.ToastError, "Toast.Failed")
		return a.renderStats(c, http.StatusInternalServerError, st, vals, nil)
	}
	saved, err := a.Stats.Get(c.Request().Context())
	if err != nil {
		saved = st
	}
	a.toast(c, lfm.ToastSuccess, "Toast.StatsSaved")
	return a.renderStats(c, http.StatusOK, saved, a.binder.encode(saved), nil)
}
