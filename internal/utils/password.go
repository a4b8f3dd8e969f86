package utils

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

var (
	ErrBcryptCost       = errors.New("bcrypt cost out of range")
	ErrPasswordTooLong  = fmt.Errorf("password longer than %d bytes", MaxPasswordBytes)
	errEmptyPassword = errors.New("empty password")
)

// CheckBcryptCost rejects costs bcrypt would silently replace or refuse.
func CheckBcryptCost(cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrBcryptCost, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// HashPassword hashes plain with the configured cost.
func HashPassword(plain string, cost int) (string, error) {
	if err := CheckBcryptCost(cost); err != nil {
		return "", err
	}
	switch {
	case plain == "":
		return "", errEmptyPassword
	case len(plain) > MaxPasswordBytes:
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash. An empty hash or
// password never matches.
func VerifyPassword(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
