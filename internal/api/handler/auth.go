package handler

import (
	"encoding/json"
	"net/http"

	"github.com/arenalab/arena-server/internal/api/middleware"
	"github.com/arenalab/arena-server/internal/api/request"
	"github.com/arenalab/arena-server/internal/api/response"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/account"
	"github.com/arenalab/arena-server/internal/services/auth"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService    *auth.Service
	accountService *account.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, accountService *account.Service) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Identity == "" {
		WriteError(w, NewInvalidRequestError("identity is required"))
		return
	}
	if req.Secret == "" {
		WriteError(w, NewInvalidRequestError("secret is required"))
		return
	}

	session, err := h.authService.Authenticate(r.Context(), account.ProviderEmail, model.Identity(req.Identity), req.Secret)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// Guest handles POST /api/v1/auth/guest
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	session, err := h.authService.Guest(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session != nil {
		h.authService.InvalidateSession(session.Token)
	}
	response.NoContent(w)
}

// GetMe handles GET /api/v1/accounts/me
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	acct, err := h.accountService.Get(r.Context(), identity)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromModel(acct))
}
