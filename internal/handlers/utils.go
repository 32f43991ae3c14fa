package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shoplite/apiserver/internal/services"
	"github.com/shoplite/apiserver/internal/store"
	"github.com/shoplite/apiserver/internal/token"
	"github.com/shoplite/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// MessageResponse is the envelope for errors and plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// Healthz reports service liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID == "" {
		return types.User{}, errors.New("no authenticated user in context")
	}
	return user, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeServiceError maps errors escaping the service layer onto the
// API's response contract. Anything unrecognized becomes the generic
// 500 so internals never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	var verrs store.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, verrs.Error())
		return
	}

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		writeError(w, svcErr.Status, svcErr.Message)
		return
	}

	switch {
	case errors.Is(err, token.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "Token has been expired!")
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "Invalid token!")
	case errors.Is(err, token.ErrMissingSecret):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	default:
		writeError(w, http.StatusInternalServerError, "Something went wrong!")
	}
}
