package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/playzone-reservation/internal/authz"
	"github.com/iliyamo/playzone-reservation/internal/handler"
	"github.com/iliyamo/playzone-reservation/internal/middleware"
)

// Handlers bundles everything the API routes dispatch to.
type Handlers struct {
	Auth          *handler.AuthHandler
	Reservations  *handler.ReservationHandler
	Announcements *handler.AnnouncementHandler
	Playtime      *handler.PlaytimeHandler
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI mounts the staff API under /v1.  Login is public; every
// other route needs a valid access token and the permission named next to
// it.  limiter guards the synthesis endpoints and may be nil.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.POST("/v1/auth/login", h.Auth.Login)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.GET("/me", h.Auth.Me)

	perm := middleware.RequirePermission

	// ---- Reservations ----
	g.POST("/reservations", h.Reservations.Create, perm(authz.Reservations, authz.Create))
	g.GET("/reservations/active", h.Reservations.Active, perm(authz.Reservations, authz.Read))
	g.POST("/reservations/auto-start", h.Reservations.AutoStart, perm(authz.Reservations, authz.Update))
	g.POST("/reservations/:id/end", h.Reservations.End, perm(authz.Reservations, authz.Update))
	g.POST("/reservations/:id/cancel", h.Reservations.Cancel, perm(authz.Reservations, authz.Cancel))

	// ---- Catalog ----
	g.GET("/playtime-options", h.Playtime.List, perm(authz.Catalog, authz.Read))
	g.POST("/playtime-options", h.Playtime.Create, perm(authz.Catalog, authz.Create))

	// ---- Announcements ----
	play := []echo.MiddlewareFunc{perm(authz.Announcements, authz.Play)}
	if limiter != nil {
		play = append(play, limiter)
	}
	g.GET("/announcements/audio", h.Announcements.Audio, play...)
	g.POST("/announcements/callout", h.Announcements.Callout, play...)
	g.GET("/announcements/templates", h.Announcements.GetTemplates, perm(authz.Settings, authz.Read))
	g.PUT("/announcements/templates", h.Announcements.PutTemplates, perm(authz.Settings, authz.Update))
}
