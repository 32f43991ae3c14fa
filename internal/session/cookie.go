// Package session binds session tokens to HTTP responses through a
// browser cookie. It carries tokens only; validation lives elsewhere.
package session

import (
	"net/http"
	"time"
)

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "jwt"

// CookieManager attaches and clears the session cookie on responses.
type CookieManager struct {
	name   string
	ttl    time.Duration
	secure bool
}

// NewCookieManager returns a manager for a cookie with the given name,
// lifetime, and Secure flag. An empty name falls back to
// DefaultCookieName.
func NewCookieManager(name string, ttl time.Duration, secure bool) CookieManager {
	if name == "" {
		name = DefaultCookieName
	}
	return CookieManager{name: name, ttl: ttl, secure: secure}
}

// Name returns the cookie name the manager reads and writes.
func (m CookieManager) Name() string {
	return m.name
}

// Attach sets the session cookie carrying token on w. The cookie is
// HttpOnly and SameSite=Strict, and expires together with the token.
func (m CookieManager) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(m.ttl),
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear overwrites the session cookie with an empty value that expired
// in the past, so the browser discards it immediately.
func (m CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Read returns the raw session token carried by r, or http.ErrNoCookie
// when the request has no session cookie.
func (m CookieManager) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
