package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/shoplite/apiserver/internal/services"
	"github.com/shoplite/apiserver/internal/session"
	"github.com/shoplite/apiserver/internal/store"
	"github.com/shoplite/apiserver/internal/token"
)

// SessionAuthenticator guards routes behind the session cookie. The
// caller is re-derived from the cookie on every request: cookie read,
// token verified, account loaded.
type SessionAuthenticator struct {
	cookies  session.CookieManager
	issuer   *token.Issuer
	accounts *services.AccountService
}

func NewSessionAuthenticator(cookies session.CookieManager, issuer *token.Issuer, accounts *services.AccountService) *SessionAuthenticator {
	return &SessionAuthenticator{
		cookies:  cookies,
		issuer:   issuer,
		accounts: accounts,
	}
}

// RequireSession rejects requests without a valid session cookie and
// injects the authenticated user into the request context.
func (a *SessionAuthenticator) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := a.cookies.Read(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authorized, no session token")
			return
		}

		userID, err := a.issuer.Verify(raw)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		user, err := a.accounts.UserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "not authorized")
				return
			}
			writeServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates a route to admin accounts. Must run after
// RequireSession so the user is already in context.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := userFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
