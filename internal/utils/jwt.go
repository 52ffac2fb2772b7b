package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is a signed HS256 JWT plus its expiry.  Sessions are
// long-lived (days, not minutes) because the token doubles as the
// browser cookie; there is no separate refresh flow.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// NewSessionToken builds and signs a session JWT for a user.  Claims are
// subject (sub), role, expiration (exp) and issued at (iat).
func NewSessionToken(secret string, userID uint64, role string, ttlDays int) (SessionToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
