package portal

import (
	"encoding/gob"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/rehabcenter/portal/lfm"
)

const flashSession = "portal_flash"

func init() {
	gob.Register(lfm.Toast{})
}

// sessionNotifier queues toasts as session flashes. They are shown by the
// next rendered page, whether that is this response or the one after a redirect.
type sessionNotifier struct {
	c echo.Context
}

func (n sessionNotifier) Notify(t lfm.Toast) {
	sess, err := session.Get(flashSession, n.c)
	if err != nil {
		logger(n.c).WithError(err).Warn("toast dropped: session unavailable")
		return
	}
	sess.AddFlash(t)
	if err := sess.Save(n.c.Request(), n.c.Response()); err != nil {
		logger(n.c).WithError(err).Warn("toast dropped: session save failed")
	}
}

func (a *App) notifier(c echo.Context) lfm.Notifier {
	return sessionNotifier{c: c}
}

// toast is shorthand for a localized toast.
func (a *App) toast(c echo.Context, kind lfm.ToastKind, id string, args ...any) {
	a.notifier(c).Notify(lfm.Toast{Kind: kind, Message: a.tr(c).T(id, args...)})
}

// popToasts removes and returns the queued toasts.
func popToasts(c echo.Context) []lfm.Toast {
	sess, err := session.Get(flashSession, c)
	if err != nil {
		return nil
	}
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if !c.Response().Committed {
		_ = sess.Save(c.Request(), c.Response())
	}
	out := make([]lfm.Toast, 0, len(flashes))
	for _, f := range flashes {
		if t, ok := f.(lfm.Toast); ok {
			out = append(out, t)
		}
	}
	return out
}
