package middleware

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// subjectID reads the numeric staff id from the sub claim.  Tokens are
// issued with a numeric sub, which JSON decoding yields as float64; a
// string form is accepted as well.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
	switch v := claims["sub"].(type) {
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

// UserID returns the authenticated staff id stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok && id > 0
}

// Role returns the authenticated staff role stored by JWTAuth.
func Role(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// rateSubject keys rate-limit buckets by staff id, or "anon".
func rateSubject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
