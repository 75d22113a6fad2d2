package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/playzone-reservation/internal/announce"
	"github.com/iliyamo/playzone-reservation/internal/config"
	"github.com/iliyamo/playzone-reservation/internal/lifecycle"
	"github.com/iliyamo/playzone-reservation/internal/model"
	"github.com/iliyamo/playzone-reservation/internal/repository"
	"github.com/iliyamo/playzone-reservation/internal/tts"
	"github.com/iliyamo/playzone-reservation/internal/utils"
)

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func newCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))
	c.Set("role", model.RoleStaff)
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type fakeLifecycle struct {
	outcome  lifecycle.Outcome
	err      error
	advanced int64
	cancelBy uint64
}

func (f *fakeLifecycle) BulkAdvanceDue(context.Context, time.Time) (int64, error) {
	return f.advanced, f.err
}

func (f *fakeLifecycle) GuardedEnd(context.Context, uint64, time.Time) (lifecycle.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeLifecycle) Cancel(_ context.Context, _, actor uint64, _ time.Time) error {
	f.cancelBy = actor
	return f.err
}

func lifecycleHandler(m Lifecycle) *ReservationHandler {
	return &ReservationHandler{Machine: m, Now: func() time.Time { return now }}
}

func TestReservationHandler_End(t *testing.T) {
	cases := []struct {
		name   string
		m      *fakeLifecycle
		status int
		result string
	}{
		{"ended", &fakeLifecycle{outcome: lifecycle.OutcomeEnded}, http.StatusOK, "ended"},
		{"already", &fakeLifecycle{outcome: lifecycle.OutcomeAlreadyTerminal}, http.StatusOK, "already_ended"},
		{"not yet", &fakeLifecycle{outcome: lifecycle.OutcomeNotTimedOut}, http.StatusOK, "not_timed_out"},
		{"missing", &fakeLifecycle{err: lifecycle.ErrNotFound}, http.StatusNotFound, ""},
		{"store down", &fakeLifecycle{err: lifecycle.ErrStoreUnavailable}, http.StatusServiceUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newCtx(http.MethodPost, "/v1/reservations/1/end", "")
			c.SetParamNames("id")
			c.SetParamValues("1")

			require.NoError(t, lifecycleHandler(tc.m).End(c))
			assert.Equal(t, tc.status, rec.Code)
			if tc.result != "" {
				assert.Equal(t, tc.result, decode(t, rec)["result"])
			}
		})
	}
}

func TestReservationHandler_EndBadID(t *testing.T) {
	c, rec := newCtx(http.MethodPost, "/v1/reservations/x/end", "")
	c.SetParamNames("id")
	c.SetParamValues("x")
	require.NoError(t, lifecycleHandler(&fakeLifecycle{}).End(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReservationHandler_Cancel(t *testing.T) {
	m := &fakeLifecycle{}
	c, rec := newCtx(http.MethodPost, "/v1/reservations/3/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, lifecycleHandler(m).Cancel(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), m.cancelBy)

	c, rec = newCtx(http.MethodPost, "/v1/reservations/3/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, lifecycleHandler(&fakeLifecycle{err: lifecycle.ErrConflict}).Cancel(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReservationHandler_AutoStart(t *testing.T) {
	c, rec := newCtx(http.MethodPost, "/v1/reservations/auto-start", "")
	require.NoError(t, lifecycleHandler(&fakeLifecycle{advanced: 4}).AutoStart(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode(t, rec)["started"])
}

func sqlHandler(t *testing.T) (*ReservationHandler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	h := NewReservationHandler(
		repository.NewReservationRepo(db),
		repository.NewCustomerRepo(db),
		repository.NewPlaytimeRepo(db),
		&fakeLifecycle{},
	)
	h.Now = func() time.Time { return now }
	return h, mock
}

func TestReservationHandler_CreateSnapshotsOption(t *testing.T) {
	h, mock := sqlHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM playtime_options WHERE id = \?`).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duration_minutes", "price_cents", "created_at"}).
			AddRow(2, "One hour", 60, 4500, now))
	mock.ExpectExec(`INSERT INTO customers`).
		WithArgs("Ali", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(sqlmock.AnyArg(), uint64(5), uint64(2), now, now.Add(time.Hour), "started", uint32(4500), uint32(1000), uint64(7)).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	c, rec := newCtx(http.MethodPost, "/v1/reservations", `{"customer_name":" Ali ","playtime_option_id":2,"total_paid_cents":1000}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got model.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 11, got.ID)
	assert.Len(t, got.Code, 8)
	assert.Equal(t, strings.ToUpper(got.Code), got.Code)
	assert.Equal(t, uint32(4500), got.TotalPriceCents)
	assert.True(t, got.EndTime.Equal(now.Add(time.Hour)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationHandler_CreateFutureStartIsReserved(t *testing.T) {
	h, mock := sqlHandler(t)
	start := now.Add(30 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM playtime_options`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duration_minutes", "price_cents", "created_at"}).
			AddRow(2, "Half hour", 30, 2500, now))
	mock.ExpectQuery(`SELECT 1 FROM customers`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(sqlmock.AnyArg(), uint64(9), uint64(2), start, start.Add(30*time.Minute), "reserved", uint32(2500), uint32(0), uint64(7)).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	body := `{"customer_id":9,"playtime_option_id":2,"start_time":"` + start.Format(time.RFC3339) + `"}`
	c, rec := newCtx(http.MethodPost, "/v1/reservations", body)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationHandler_CreateRejectsOverpayment(t *testing.T) {
	h, mock := sqlHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM playtime_options`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duration_minutes", "price_cents", "created_at"}).
			AddRow(2, "One hour", 60, 4500, now))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/reservations", `{"customer_name":"Ali","playtime_option_id":2,"total_paid_cents":9000}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationHandler_CreateUnknownOption(t *testing.T) {
	h, mock := sqlHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM playtime_options`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/reservations", `{"customer_name":"Ali","playtime_option_id":99}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReservationHandler_Active(t *testing.T) {
	h, mock := sqlHandler(t)
	cols := []string{"id", "code", "customer_id", "display_name", "playtime_option_id", "start_time", "end_time",
		"status", "total_price_cents", "total_paid_cents", "created_by", "created_at", "updated_at"}
	mock.ExpectQuery(`WHERE r.deleted_at IS NULL AND r.status IN \('reserved', 'started'\)`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "AB12CD34", 5, "Ali", 2, now.Add(-time.Hour), now, "started", 4500, 4500, 7, now, now))

	c, rec := newCtx(http.MethodGet, "/v1/reservations/active", "")
	require.NoError(t, h.Active(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Reservations []model.Reservation `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Reservations, 1)
	assert.Equal(t, "Ali", out.Reservations[0].CustomerName)
	assert.Equal(t, model.StatusStarted, out.Reservations[0].Status)
}

type fakeAnnouncer struct {
	err       error
	templates announce.Templates
}

func (f *fakeAnnouncer) PickupAudio(_ context.Context, name string) (announce.Pickup, error) {
	if f.err != nil {
		return announce.Pickup{}, f.err
	}
	return announce.Pickup{Name: name, URLs: map[string]string{"en": "https://cdn.test/en.mp3", "ar": "https://cdn.test/ar.mp3"}}, nil
}

func (f *fakeAnnouncer) Callout(_ context.Context, locale, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.test/callout-" + locale + ".mp3", nil
}

func (f *fakeAnnouncer) HasLocale(locale string) bool { return locale == "en" || locale == "ar" }

func (f *fakeAnnouncer) Templates(context.Context) (announce.Templates, error) {
	return f.templates, nil
}

func (f *fakeAnnouncer) SaveTemplates(_ context.Context, t announce.Templates) (announce.Templates, error) {
	for loc, v := range t {
		if !strings.Contains(v, announce.Placeholder) {
			return nil, announce.ErrInvalidTemplate
		}
		f.templates[loc] = v
	}
	return f.templates, nil
}

func TestAnnouncementHandler_Audio(t *testing.T) {
	h := NewAnnouncementHandler(&fakeAnnouncer{})
	c, rec := newCtx(http.MethodGet, "/v1/announcements/audio?name=Ali", "")
	require.NoError(t, h.Audio(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://cdn.test/ar.mp3")

	c, rec = newCtx(http.MethodGet, "/v1/announcements/audio", "")
	require.NoError(t, h.Audio(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = NewAnnouncementHandler(&fakeAnnouncer{err: tts.ErrSynthesisFailed})
	c, rec = newCtx(http.MethodGet, "/v1/announcements/audio?name=Ali", "")
	require.NoError(t, h.Audio(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAnnouncementHandler_Callout(t *testing.T) {
	h := NewAnnouncementHandler(&fakeAnnouncer{})
	c, rec := newCtx(http.MethodPost, "/v1/announcements/callout", `{"locale":"ar","text":"Please come to the desk"}`)
	require.NoError(t, h.Callout(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn.test/callout-ar.mp3", decode(t, rec)["url"])

	c, rec = newCtx(http.MethodPost, "/v1/announcements/callout", `{"locale":"fr","text":"Bonjour"}`)
	require.NoError(t, h.Callout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnnouncementHandler_CalloutTooLong(t *testing.T) {
	f := &fakeAnnouncer{}
	h := NewAnnouncementHandler(f)
	body, err := json.Marshal(calloutReq{Locale: "en", Text: strings.Repeat("x", tts.MaxTextRunes+1)})
	require.NoError(t, err)

	c, rec := newCtx(http.MethodPost, "/v1/announcements/callout", string(body))
	require.NoError(t, h.Callout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")

	h = NewAnnouncementHandler(&fakeAnnouncer{err: tts.ErrTextTooLong})
	c, rec = newCtx(http.MethodGet, "/v1/announcements/audio?name=Ali", "")
	require.NoError(t, h.Audio(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnnouncementHandler_Templates(t *testing.T) {
	f := &fakeAnnouncer{templates: announce.Templates{"en": announce.DefaultTemplateEN, "ar": announce.DefaultTemplateAR}}
	h := NewAnnouncementHandler(f)

	c, rec := newCtx(http.MethodPut, "/v1/announcements/templates", `{"en":"Pickup: {name}"}`)
	require.NoError(t, h.PutTemplates(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pickup: {name}", f.templates["en"])

	c, rec = newCtx(http.MethodPut, "/v1/announcements/templates", `{"en":"no placeholder"}`)
	require.NoError(t, h.PutTemplates(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodGet, "/v1/announcements/templates", "")
	require.NoError(t, h.GetTemplates(c))
	assert.Equal(t, "Pickup: {name}", decode(t, rec)["en"])
}

type fakeUsers struct {
	user model.User
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	if email != f.user.Email {
		return model.User{}, sql.ErrNoRows
	}
	return f.user, nil
}

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if id != f.user.ID {
		return model.User{}, sql.ErrNoRows
	}
	return f.user, nil
}

func TestAuthHandler_Login(t *testing.T) {
	hash, err := utils.HashPassword("front-desk-1", bcrypt.MinCost)
	require.NoError(t, err)
	users := fakeUsers{user: model.User{ID: 7, Email: "desk@playzone.test", PasswordHash: hash, Role: model.RoleStaff, IsActive: true}}
	h := NewAuthHandler(config.Config{JWTSecret: "k", AccessTTLMin: 5}, users)

	c, rec := newCtx(http.MethodPost, "/v1/auth/login", `{"email":"Desk@PlayZone.test","password":"front-desk-1"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Access.Token)
	assert.Equal(t, model.RoleStaff, out.User.Role)

	c, rec = newCtx(http.MethodPost, "/v1/auth/login", `{"email":"desk@playzone.test","password":"bad"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newCtx(http.MethodGet, "/v1/me", "")
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "desk@playzone.test", decode(t, rec)["email"])
}
