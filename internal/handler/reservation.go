package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/playzone-reservation/internal/lifecycle"
	"github.com/iliyamo/playzone-reservation/internal/logging"
	"github.com/iliyamo/playzone-reservation/internal/middleware"
	"github.com/iliyamo/playzone-reservation/internal/model"
	"github.com/iliyamo/playzone-reservation/internal/repository"
)

// Lifecycle is the reservation state machine as the handlers see it.
type Lifecycle interface {
	BulkAdvanceDue(ctx context.Context, now time.Time) (int64, error)
	GuardedEnd(ctx context.Context, id uint64, now time.Time) (lifecycle.Outcome, error)
	Cancel(ctx context.Context, id, actorID uint64, now time.Time) error
}

// ReservationHandler serves check-in, the active list and the lifecycle
// transitions.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Customers    *repository.CustomerRepo
	Options      *repository.PlaytimeRepo
	Machine      Lifecycle
	Now          func() time.Time
}

func NewReservationHandler(res *repository.ReservationRepo, cust *repository.CustomerRepo, opts *repository.PlaytimeRepo, m Lifecycle) *ReservationHandler {
	return &ReservationHandler{Reservations: res, Customers: cust, Options: opts, Machine: m, Now: time.Now}
}

type createReservationReq struct {
	CustomerID       uint64     `json:"customer_id"`
	CustomerName     string     `json:"customer_name"`
	Phone            *string    `json:"phone"`
	PlaytimeOptionID uint64     `json:"playtime_option_id"`
	StartTime        *time.Time `json:"start_time"`
	TotalPaidCents   uint32     `json:"total_paid_cents"`
}

const codeAttempts = 3

// Create handles POST /v1/reservations.  The option's price and duration
// are read in the same transaction as the insert and copied into the
// reservation.
func (h *ReservationHandler) Create(c echo.Context) error {
	staffID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.PlaytimeOptionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "playtime_option_id is required"})
	}
	if req.CustomerID == 0 && req.CustomerName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_id or customer_name is required"})
	}

	now := h.Now().UTC()
	start := now
	if req.StartTime != nil {
		start = req.StartTime.UTC()
	}

	ctx := c.Request().Context()
	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	opt, err := h.Options.GetByIDTx(ctx, tx, req.PlaytimeOptionID)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown playtime option"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if req.TotalPaidCents > opt.PriceCents {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_paid_cents exceeds price"})
	}

	customerID := req.CustomerID
	if customerID != 0 {
		exists, err := h.Customers.ExistsTx(ctx, tx, customerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !exists {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown customer"})
		}
	} else {
		customerID, err = h.Customers.CreateTx(ctx, tx, req.CustomerName, req.Phone)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create customer"})
		}
	}

	status := model.StatusReserved
	if !start.After(now) {
		status = model.StatusStarted
	}
	res := &model.Reservation{
		CustomerID:       customerID,
		CustomerName:     req.CustomerName,
		PlaytimeOptionID: opt.ID,
		StartTime:        start,
		EndTime:          start.Add(opt.Duration()),
		Status:           status,
		TotalPriceCents:  opt.PriceCents,
		TotalPaidCents:   req.TotalPaidCents,
		CreatedBy:        staffID,
	}
	for attempt := 1; ; attempt++ {
		res.Code = newCode()
		err = h.Reservations.CreateTx(ctx, tx, res)
		if !errors.Is(err, repository.ErrConflict) || attempt == codeAttempts {
			break
		}
	}
	switch {
	case errors.Is(err, repository.ErrInvalidWindow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		logging.FromContext(ctx).WithError(err).Error("create reservation failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	logging.FromContext(ctx).WithField("reservation_id", res.ID).WithField("code", res.Code).Info("reservation created")
	return c.JSON(http.StatusCreated, res)
}

// newCode returns an 8-character upper-case code derived from a random
// UUID.
func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Active handles GET /v1/reservations/active.
func (h *ReservationHandler) Active(c echo.Context) error {
	list, err := h.Reservations.ListActive(c.Request().Context())
	if err != nil {
		return writeError(c, lifecycle.ErrStoreUnavailable)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservations": list,
		"server_time":  h.Now().UTC(),
	})
}

// AutoStart handles POST /v1/reservations/auto-start.
func (h *ReservationHandler) AutoStart(c echo.Context) error {
	n, err := h.Machine.BulkAdvanceDue(c.Request().Context(), h.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"started": n})
}

// End handles POST /v1/reservations/:id/end.  "not_timed_out" is a normal
// 200 answer, not an error.
func (h *ReservationHandler) End(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	outcome, err := h.Machine.GuardedEnd(c.Request().Context(), id, h.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	result := "ended"
	switch outcome {
	case lifecycle.OutcomeAlreadyTerminal:
		result = "already_ended"
	case lifecycle.OutcomeNotTimedOut:
		result = "not_timed_out"
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "result": result})
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	staffID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Machine.Cancel(c.Request().Context(), id, staffID, h.Now().UTC()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.StatusCancelled})
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
