package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/authz"
	"github.com/iliyamo/playzone-reservation/internal/logging"
)

// RequirePermission rejects the request with 403 unless the role stored
// by JWTAuth is allowed to perform action on resource.
func RequirePermission(resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if !authz.Can(role, resource, action) {
				logging.FromContext(c.Request().Context()).WithFields(logrus.Fields{
					"role":     role,
					"resource": resource,
					"action":   action,
				}).Warn("permission denied")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
