package portal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/lfm"
)

const (
	tokenCookie   = "token"
	userCookie    = "user"
	tokenLifetime = 24 * time.Hour
	gateKey       = "gate_session"
)

// AuthState is the state of the authentication gate for one request.
type AuthState int

const (
	StateUnknown AuthState = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Session is the gate's verdict for one request.
type Session struct {
	State AuthState
	Token string
	User  *api.User
}

// Authenticated reports whether the request carries a validated token.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Gate owns the token and user cookies. Validation happens at most once
// per request; the verdict is cached on the echo context.
type Gate struct {
	backend *api.Backend
	secure  bool
	now     func() time.Time
}

// NewGate creates a Gate validating tokens against b.
func NewGate(b *api.Backend, secureCookies bool) *Gate {
	return &Gate{backend: b, secure: secureCookies, now: time.Now}
}

// Init resolves the request's state. Without a token the request is
// unauthenticated. With one, the profile endpoint decides; any failure
// purges both cookies.
func (g *Gate) Init(c echo.Context) Session {
	if s, ok := c.Get(gateKey).(Session); ok && s.State != StateUnknown {
		return s
	}
	token := cookieValue(c, tokenCookie)
	if token == "" {
		s := Session{State: StateUnauthenticated}
		c.Set(gateKey, s)
		return s
	}

	ctx := api.WithToken(c.Request().Context(), token)
	user, err := g.backend.Profile(ctx)
	if err != nil {
		logger(c).WithError(err).Info("profile check failed, purging session cookies")
		g.purge(c)
		s := Session{State: StateUnauthenticated}
		c.Set(gateKey, s)
		return s
	}

	if cached, ok := decodeUser(cookieValue(c, userCookie)); !ok || cached != user {
		g.setUserCookie(c, user, g.now().Add(tokenLifetime))
	}
	s := Session{State: StateAuthenticated, Token: token, User: &user}
	c.Set(gateKey, s)
	return s
}

// Login exchanges credentials for a token and stores both cookies.
func (g *Gate) Login(c echo.Context, email, password string) (api.User, error) {
	res, err := g.backend.Login(c.Request().Context(), strings.TrimSpace(email), password)
	if err != nil {
		return api.User{}, err
	}
	if res.Token == "" {
		return api.User{}, errors.New("portal: login response carried no token")
	}
	expires := g.now().Add(tokenLifetime)
	http.SetCookie(c.Response(), &http.Cookie{
		Name:     tokenCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(tokenLifetime / time.Second),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
	g.setUserCookie(c, res.User, expires)
	user := res.User
	c.Set(gateKey, Session{State: StateAuthenticated, Token: res.Token, User: &user})
	return res.User, nil
}

// Teardown clears both cookies and marks the request unauthenticated.
func (g *Gate) Teardown(c echo.Context) {
	g.purge(c)
	c.Set(gateKey, Session{State: StateUnauthenticated})
}

// Invalidate forgets the cached verdict so the next Init validates again.
func (g *Gate) Invalidate(c echo.Context) {
	c.Set(gateKey, Session{State: StateUnknown})
}

func (g *Gate) purge(c echo.Context) {
	for _, name := range []string{tokenCookie, userCookie} {
		http.SetCookie(c.Response(), &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: name == tokenCookie,
			Secure:   g.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (g *Gate) setUserCookie(c echo.Context, u api.User, expires time.Time) {
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	http.SetCookie(c.Response(), &http.Cookie{
		Name:     userCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		Expires:  expires,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func decodeUser(raw string) (api.User, bool) {
	if raw == "" {
		return api.User{}, false
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return api.User{}, false
	}
	var u api.User
	if err := json.Unmarshal(b, &u); err != nil {
		return api.User{}, false
	}
	return u, true
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// RedirectMiddleware gates navigation on the token cookie's presence only:
// /admin/* without a token goes to /login/, /login/ with one goes to /admin/.
func (g *Gate) RedirectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		hasToken := cookieValue(c, tokenCookie) != ""
		switch {
		case strings.HasPrefix(path, "/admin") && !hasToken:
			return c.Redirect(http.StatusSeeOther, "/login/")
		case strings.HasPrefix(path, "/login") && hasToken && c.Request().Method == http.MethodGet:
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}

// Require validates the token for admin routes and hands it to backend
// calls through the request context.
func (g *Gate) Require(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := g.Init(c)
		if !s.Authenticated() {
			return c.Redirect(http.StatusSeeOther, "/login/")
		}
		req := c.Request()
		c.SetRequest(req.WithContext(api.WithToken(req.Context(), s.Token)))
		return next(c)
	}
}

// unauthorized handles a backend 401 on an admin call. The token is checked
// again: a rejected token is purged and the user sent to sign in, a valid
// one means the call itself was refused.
func (a *App) unauthorized(c echo.Context) error {
	a.Gate.Invalidate(c)
	if a.Gate.Init(c).Authenticated() {
		a.toast(c, lfm.ToastError, "Toast.Denied")
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.toast(c, lfm.ToastError, "Toast.SessionExpired")
	return c.Redirect(http.StatusSeeOther, "/login/")
}
