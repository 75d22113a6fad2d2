package utils

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-desk", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret-desk"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestHashPasswordLength(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = HashPassword(strings.Repeat("p", MaxPasswordLen+1), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = HashPassword(strings.Repeat("p", MaxPasswordLen), bcrypt.MinCost)
	assert.NoError(t, err)
}

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("k", 9, "STAFF", 15)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("k"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(9), claims["sub"])
	assert.Equal(t, "STAFF", claims["role"])
	assert.Equal(t, tok.Exp.Unix(), int64(claims["exp"].(float64)))
}
