package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Staff passwords must be 8 to 72 bytes; bcrypt ignores anything longer.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

var ErrInvalidPassword = errors.New("password must be between 8 and 72 bytes")

// HashPassword hashes a staff account password with bcrypt at cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) < MinPasswordLen || len(plain) > MaxPasswordLen {
		return "", ErrInvalidPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored staff hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
