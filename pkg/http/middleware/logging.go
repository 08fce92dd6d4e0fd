package middleware

import (
	"strconv"
	"time"

	applogger "KellyMux/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs HTTP requests with method, path, status and latency.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			l.Debug("http request",
				applogger.String("method", req.Method),
				applogger.String("path", req.RequestURI),
				applogger.String("status", strconv.Itoa(c.Response().Status)),
				applogger.Duration("latency_ms", time.Since(start)),
			)

			return err
		}
	}
}
