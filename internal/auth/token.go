package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionClaims is the payload of a session token. Validity is decided by
// comparing the whole token string against the stored one, so the claims
// carry identity for diagnostics rather than authorization.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// generateSessionToken mints a fresh signed token for the user. Each call
// produces a distinct token (random jti), so a new login always invalidates
// the previous session's token even within the same second.
func generateSessionToken(secret []byte, username string, now time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}
