package portal

import (
	"os"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const loggerKey = "logger"

// NewLogger builds the root logger: JSON in production, text elsewhere.
func NewLogger(cfg SiteConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(cfg.LogrusLevel())
	if cfg.Production() {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// logger returns the request-scoped log entry.
func logger(c echo.Context) *logrus.Entry {
	if e, ok := c.Get(loggerKey).(*logrus.Entry); ok {
		return e
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
