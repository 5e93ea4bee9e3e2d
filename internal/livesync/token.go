package livesync

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Eligible reports why p cannot hold a live channel, or nil. Tokens that are
// JWTs are checked for expiry without verifying their signature; opaque
// tokens are accepted as is.
func (p Params) Eligible(now time.Time) error {
	if !p.Role.CanEdit() {
		return ErrNotEditor
	}
	if p.Token == "" {
		return ErrNoToken
	}
	if tokenExpired(p.Token, now) {
		return ErrTokenExpired
	}
	return nil
}

func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
