// Package token issues and verifies the signed session tokens carried
// by the session cookie.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token lifetime used when none is configured. It
// matches the session cookie lifetime.
const DefaultTTL = 30 * 24 * time.Hour

var (
	// ErrMissingSecret reports that no signing secret is configured.
	ErrMissingSecret = errors.New("token: signing secret is not configured")

	// ErrInvalidToken reports a token whose signature, form, or claims
	// are not valid.
	ErrInvalidToken = errors.New("token: invalid token")

	// ErrExpiredToken reports a well-formed token past its expiry.
	ErrExpiredToken = errors.New("token: token expired")
)

// Claims is the payload carried by a session token. The account id
// travels in the "id" claim.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Issuer signs and verifies session tokens with a server-held secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// New returns an Issuer signing with secret and expiring tokens after
// ttl. An empty secret yields ErrMissingSecret so callers refuse to
// start instead of signing sessions with an empty key.
func New(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs an HS256 token identifying userID, expiring after the
// configured TTL.
func (i *Issuer) Issue(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID: userID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates raw, returning the account id it encodes.
// Expired tokens yield ErrExpiredToken; every other failure, including
// a bad signature, a foreign signing method, or a missing id claim,
// yields ErrInvalidToken.
func (i *Issuer) Verify(raw string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
