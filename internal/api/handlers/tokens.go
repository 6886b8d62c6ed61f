package handlers

import (
	"errors"
	"net/http"

	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/domain/users"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/bomanihosts/backend/internal/validation"
)

const invalidCredentialsDetail = "No active account found with the given credentials"

type TokensHandler struct {
	accounts AccountService
	tokens   *auth.JWTManager
	env      string
}

func NewTokensHandler(accounts AccountService, tokens *auth.JWTManager, env string) *TokensHandler {
	return &TokensHandler{accounts: accounts, tokens: tokens, env: env}
}

// LoginRequest accepts a username or an email address in Username.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type AccessResponse struct {
	Access string `json:"access"`
}

// Login handles POST /api/auth/login/.
func (h *TokensHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, h.env, &req) {
		return
	}

	errs := validation.Errors{}
	if req.Username == "" {
		errs.Add("username", "This field is required.")
	}
	if req.Password == "" {
		errs.Add("password", "This field is required.")
	}
	if len(errs) > 0 {
		writeValidation(w, r, h.env, errs)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			metrics.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
			writeUnauthorized(w, r, h.env, err, invalidCredentialsDetail)
			return
		}
		metrics.AuthEventsTotal.WithLabelValues("login", "error").Inc()
		writeServerError(w, r, h.env, err)
		return
	}

	pair, err := h.tokens.GeneratePair(user.ID, user.Username)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("login", "error").Inc()
		writeServerError(w, r, h.env, err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("login", "success").Inc()
	writeJSON(w, http.StatusOK, pair)
}

// Refresh handles POST /api/auth/token/refresh/. The account must still be
// active for a new access token to be issued.
func (h *TokensHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, h.env, &req) {
		return
	}
	if req.Refresh == "" {
		writeValidation(w, r, h.env, validation.Errors{"refresh": {"This field is required."}})
		return
	}

	claims, err := h.tokens.Validate(req.Refresh, auth.TokenRefresh)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("refresh", "failure").Inc()
		writeUnauthorized(w, r, h.env, err, "Token is invalid or expired")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("refresh", "failure").Inc()
		writeUnauthorized(w, r, h.env, err, "Token is invalid or expired")
		return
	}

	user, err := h.accounts.GetActive(r.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			metrics.AuthEventsTotal.WithLabelValues("refresh", "failure").Inc()
			writeUnauthorized(w, r, h.env, err, invalidCredentialsDetail)
			return
		}
		metrics.AuthEventsTotal.WithLabelValues("refresh", "error").Inc()
		writeServerError(w, r, h.env, err)
		return
	}

	access, err := h.tokens.Generate(user.ID, user.Username, auth.TokenAccess)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("refresh", "error").Inc()
		writeServerError(w, r, h.env, err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("refresh", "success").Inc()
	writeJSON(w, http.StatusOK, AccessResponse{Access: access})
}
