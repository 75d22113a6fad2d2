package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/playzone-reservation/internal/handler"
	"github.com/iliyamo/playzone-reservation/internal/model"
	"github.com/iliyamo/playzone-reservation/internal/utils"
)

const secret = "router-test"

func newServer() *echo.Echo {
	e := echo.New()
	RegisterRoutes(e)
	RegisterAPI(e, Handlers{
		Auth:          &handler.AuthHandler{},
		Reservations:  &handler.ReservationHandler{},
		Announcements: &handler.AnnouncementHandler{},
		Playtime:      &handler.PlaytimeHandler{},
	}, secret, nil)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, role string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		tok, err := utils.NewAccessToken(secret, 7, role, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestPublicRoutes(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/metrics", ""))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newServer()
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/v1/me"},
		{http.MethodGet, "/v1/reservations/active"},
		{http.MethodPost, "/v1/reservations/1/end"},
		{http.MethodPut, "/v1/announcements/templates"},
	} {
		assert.Equal(t, http.StatusUnauthorized, do(t, e, r.method, r.path, ""), r.path)
	}
}

func TestStaffCannotChangeSettingsOrCatalog(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodPut, "/v1/announcements/templates", model.RoleStaff))
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodPost, "/v1/playtime-options", model.RoleStaff))
	assert.Equal(t, http.StatusForbidden, do(t, e, http.MethodPost, "/v1/reservations/1/end", "GUEST"))
}
