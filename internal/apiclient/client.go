// Package apiclient is the announcer's view of the HTTP API.  The
// announcer never touches the database; reservations arrive as plain
// JSON.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/playzone-reservation/internal/announce"
	"github.com/iliyamo/playzone-reservation/internal/lifecycle"
	"github.com/iliyamo/playzone-reservation/internal/model"
	"github.com/iliyamo/playzone-reservation/internal/tts"
)

var ErrUnauthorized = errors.New("api: unauthorized")

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Body)
}

// Client calls the reservation API as a staff user.  A 401 triggers one
// fresh login and a retry.
type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client

	mu    sync.Mutex
	token string
}

func New(baseURL, email, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		password: password,
		http:     &http.Client{Timeout: timeout},
	}
}

type loginResponse struct {
	Access struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"access"`
}

// Login exchanges the configured credentials for an access token.
func (c *Client) Login(ctx context.Context) error {
	var out loginResponse
	err := c.send(ctx, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    c.email,
		"password": c.password,
	}, &out)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return err
	}
	if out.Access.Token == "" {
		return errors.New("api: login returned no token")
	}
	c.mu.Lock()
	c.token = out.Access.Token
	c.mu.Unlock()
	return nil
}

// Active returns the live, non-terminal reservations.
func (c *Client) Active(ctx context.Context) ([]model.Reservation, error) {
	var out struct {
		Reservations []model.Reservation `json:"reservations"`
	}
	if err := c.authed(ctx, http.MethodGet, "/v1/reservations/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Reservations, nil
}

// AutoStart triggers the reserved→started sweep and returns how many
// reservations it started.
func (c *Client) AutoStart(ctx context.Context) (int64, error) {
	var out struct {
		Started int64 `json:"started"`
	}
	if err := c.authed(ctx, http.MethodPost, "/v1/reservations/auto-start", nil, &out); err != nil {
		return 0, err
	}
	return out.Started, nil
}

// EndIfTimedOut asks the server to end reservation id.
func (c *Client) EndIfTimedOut(ctx context.Context, id uint64) (lifecycle.Outcome, error) {
	var out struct {
		Result string `json:"result"`
	}
	path := "/v1/reservations/" + strconv.FormatUint(id, 10) + "/end"
	if err := c.authed(ctx, http.MethodPost, path, nil, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			switch {
			case se.Status == http.StatusNotFound:
				return 0, lifecycle.ErrNotFound
			case se.Status >= 500:
				return 0, fmt.Errorf("%w: %v", lifecycle.ErrStoreUnavailable, err)
			}
		}
		return 0, err
	}
	switch out.Result {
	case "ended":
		return lifecycle.OutcomeEnded, nil
	case "already_ended":
		return lifecycle.OutcomeAlreadyTerminal, nil
	case "not_timed_out":
		return lifecycle.OutcomeNotTimedOut, nil
	}
	return 0, fmt.Errorf("api: unexpected end result %q", out.Result)
}

// PickupAudio fetches the bilingual announcement for name.
func (c *Client) PickupAudio(ctx context.Context, name string) (announce.Pickup, error) {
	var out announce.Pickup
	path := "/v1/announcements/audio?" + url.Values{"name": {name}}.Encode()
	if err := c.authed(ctx, http.MethodGet, path, nil, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusBadGateway {
			return announce.Pickup{}, fmt.Errorf("%w: %v", tts.ErrSynthesisFailed, err)
		}
		return announce.Pickup{}, err
	}
	return out, nil
}

func (c *Client) authed(ctx context.Context, method, path string, body, out any) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		if err := c.Login(ctx); err != nil {
			return err
		}
		return c.send(ctx, method, path, c.currentToken(), body, out)
	}

	err := c.send(ctx, method, path, token, body, out)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
		if err := c.Login(ctx); err != nil {
			return err
		}
		return c.send(ctx, method, path, c.currentToken(), body, out)
	}
	return err
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}
