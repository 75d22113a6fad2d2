package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/playzone-reservation/internal/announce"
	"github.com/iliyamo/playzone-reservation/internal/lifecycle"
	"github.com/iliyamo/playzone-reservation/internal/logging"
	"github.com/iliyamo/playzone-reservation/internal/tts"
)

// writeError maps domain errors onto HTTP statuses.  Unknown errors are
// logged and reported as 500 without detail.
func writeError(c echo.Context, err error) error {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		status, msg = http.StatusNotFound, "reservation not found"
	case errors.Is(err, lifecycle.ErrConflict):
		status, msg = http.StatusConflict, "reservation is already ended or cancelled"
	case errors.Is(err, lifecycle.ErrStoreUnavailable), errors.Is(err, tts.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "store unavailable"
	case errors.Is(err, tts.ErrSynthesisFailed):
		status, msg = http.StatusBadGateway, "speech synthesis failed"
	case errors.Is(err, tts.ErrEmptyText), errors.Is(err, tts.ErrTextTooLong), errors.Is(err, announce.ErrEmptyName):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, tts.ErrUnknownLocale), errors.Is(err, announce.ErrInvalidTemplate):
		status, msg = http.StatusBadRequest, err.Error()
	}
	if status >= 500 {
		logging.FromContext(c.Request().Context()).WithError(err).WithField("status", status).Error("request failed")
	}
	return c.JSON(status, echo.Map{"error": msg})
}
