package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/playzone-reservation/internal/repository"
)

type PlaytimeHandler struct {
	Options *repository.PlaytimeRepo
}

func NewPlaytimeHandler(opts *repository.PlaytimeRepo) *PlaytimeHandler {
	return &PlaytimeHandler{Options: opts}
}

// List handles GET /v1/playtime-options.
func (h *PlaytimeHandler) List(c echo.Context) error {
	list, err := h.Options.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, list)
}

type createPlaytimeReq struct {
	Name            string `json:"name"`
	DurationMinutes uint32 `json:"duration_minutes"`
	PriceCents      uint32 `json:"price_cents"`
}

// Create handles POST /v1/playtime-options.
func (h *PlaytimeHandler) Create(c echo.Context) error {
	var req createPlaytimeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" || req.DurationMinutes == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and duration_minutes are required"})
	}
	opt, err := h.Options.Create(c.Request().Context(), req.Name, req.DurationMinutes, req.PriceCents)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create option"})
	}
	return c.JSON(http.StatusCreated, opt)
}
