package logging

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

// EchoMiddleware attaches a request-scoped entry (with a correlation id)
// to the request context and logs one line per request.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			cid := req.Header.Get("Correlation-ID")
			if cid == "" {
				cid = shortuuid.New()
			}
			c.Response().Header().Set("Correlation-ID", cid)

			entry := logrus.WithFields(logrus.Fields{
				"correlation_id": cid,
				"method":         req.Method,
				"path":           c.Path(),
			})
			c.SetRequest(req.WithContext(ToContext(req.Context(), entry)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			entry.WithFields(logrus.Fields{
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
			}).Info("http request")
			return nil
		}
	}
}
