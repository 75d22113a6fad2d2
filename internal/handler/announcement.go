package handler

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/playzone-reservation/internal/announce"
	"github.com/iliyamo/playzone-reservation/internal/tts"
)

// Announcer produces announcement audio and manages templates.
type Announcer interface {
	PickupAudio(ctx context.Context, name string) (announce.Pickup, error)
	Callout(ctx context.Context, locale, text string) (string, error)
	HasLocale(locale string) bool
	Templates(ctx context.Context) (announce.Templates, error)
	SaveTemplates(ctx context.Context, t announce.Templates) (announce.Templates, error)
}

type AnnouncementHandler struct {
	Announcer Announcer
}

func NewAnnouncementHandler(a Announcer) *AnnouncementHandler {
	return &AnnouncementHandler{Announcer: a}
}

// Audio handles GET /v1/announcements/audio?name=.
func (h *AnnouncementHandler) Audio(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	p, err := h.Announcer.PickupAudio(c.Request().Context(), name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type calloutReq struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// Callout handles POST /v1/announcements/callout.
func (h *AnnouncementHandler) Callout(c echo.Context) error {
	var req calloutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Locale == "" {
		req.Locale = "en"
	}
	if !h.Announcer.HasLocale(req.Locale) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported locale"})
	}
	if utf8.RuneCountInString(tts.NormalizeText(req.Text)) > tts.MaxTextRunes {
		return writeError(c, tts.ErrTextTooLong)
	}
	url, err := h.Announcer.Callout(c.Request().Context(), req.Locale, req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locale": req.Locale, "url": url})
}

// GetTemplates handles GET /v1/announcements/templates.
func (h *AnnouncementHandler) GetTemplates(c echo.Context) error {
	t, err := h.Announcer.Templates(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load templates failed"})
	}
	return c.JSON(http.StatusOK, t)
}

// PutTemplates handles PUT /v1/announcements/templates.
func (h *AnnouncementHandler) PutTemplates(c echo.Context) error {
	var req announce.Templates
	if err := c.Bind(&req); err != nil || len(req) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	t, err := h.Announcer.SaveTemplates(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
