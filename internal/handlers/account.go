package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shoplite/apiserver/internal/services"
	"github.com/shoplite/apiserver/internal/session"
	"github.com/shoplite/apiserver/internal/store"
	"github.com/shoplite/apiserver/types"
)

const (
	maxAvatarMemory = 8 << 20
	maxAvatarBytes  = 5 << 20
	formFieldAvatar = "avatar"
)

// AccountHandler provides the account endpoints: registration,
// sign-in, sign-out, and profile maintenance.
type AccountHandler struct {
	accounts *services.AccountService
	cookies  session.CookieManager
}

func NewAccountHandler(accounts *services.AccountService, cookies session.CookieManager) *AccountHandler {
	return &AccountHandler{accounts: accounts, cookies: cookies}
}

// AccountRouter registers account routes on the given router.
func AccountRouter(
	r chi.Router,
	accounts *services.AccountService,
	auth *SessionAuthenticator,
	cookies session.CookieManager,
	limiter *IPRateLimiter,
) {
	handler := NewAccountHandler(accounts, cookies)

	r.With(limiter.Middleware).Post("/", handler.Register)
	r.With(limiter.Middleware).Post("/login", handler.SignIn)
	r.With(auth.RequireSession).Post("/logout", handler.SignOut)

	r.Route("/profile", func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Get("/", handler.Profile)
		r.Put("/", handler.UpdateProfile)
		r.Get("/avatar", handler.Avatar)
		r.Put("/avatar", handler.UpdateAvatar)
	})
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// ProfileResponse is the profile payload, optionally enriched with the
// account's purchase history.
type ProfileResponse struct {
	User   types.User  `json:"user"`
	Orders []OrderView `json:"orders,omitempty"`
}

// Register creates an account and signs it in. The role is always
// "user"; promotion happens out of band.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, sessionToken, err := h.accounts.Register(r.Context(), store.CreateUserParams{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.cookies.Attach(w, sessionToken)
	writeJSON(w, http.StatusCreated, user)
}

// SignIn verifies credentials and attaches a fresh session cookie.
// Replies 201 like registration does; clients treat the two uniformly
// as "session created".
func (h *AccountHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, sessionToken, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.cookies.Attach(w, sessionToken)
	writeJSON(w, http.StatusCreated, user)
}

// SignOut clears the session cookie. The token itself stays valid
// until expiry; sign-out is a client-side discard.
func (h *AccountHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// Profile returns the caller's account. With ?includeOrders=true the
// response also carries the account's orders, display-formatted.
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	includeOrders := parseBoolQuery(r, "includeOrders")
	profile, orders, err := h.accounts.Profile(r.Context(), user.ID, includeOrders)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := ProfileResponse{User: profile}
	if includeOrders {
		resp.Orders = toOrderViews(orders)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfile applies a partial update to the caller's account.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params := services.UpdateProfileParams{
		Password:    req.Password,
		NewPassword: req.NewPassword,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		params.Name = &name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.Email = &email
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), user.ID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// UpdateAvatar accepts a multipart image upload and stores it as the
// caller's avatar.
func (h *AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	contentType, data, err := parseAvatarFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.accounts.UpdateAvatar(r.Context(), user.ID, contentType, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Avatar streams the caller's stored avatar image.
func (h *AccountHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	rc, err := h.accounts.Avatar(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func parseAvatarFile(form *multipart.Form) (string, []byte, error) {
	if form == nil {
		return "", nil, errors.New("missing form data")
	}

	files := form.File[formFieldAvatar]
	if len(files) == 0 {
		return "", nil, errors.New("avatar file is required")
	}
	if len(files) > 1 {
		return "", nil, errors.New("only one avatar file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to read avatar file: %w", err)
	}

	data, err := readFileLimited(file, maxAvatarBytes)
	_ = file.Close()
	if err != nil {
		return "", nil, err
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType, data, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

func parseBoolQuery(r *http.Request, key string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return err == nil && value
}
