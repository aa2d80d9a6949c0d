package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errNoExpiry = errors.New("token carries no exp claim")

// RemainingValidity reads the exp claim of a JWT without verifying its
// signature and returns how long the token is still valid (negative when
// already expired). The value is informational only: the client logs it
// but leaves enforcement to the server.
func RemainingValidity(token string) (time.Duration, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return 0, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return 0, errNoExpiry
	}
	return time.Until(exp.Time), nil
}
