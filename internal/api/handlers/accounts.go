package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bomanihosts/backend/internal/api/problem"
	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/domain/users"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/bomanihosts/backend/internal/validation"
)

// AccountService is the part of users.Service the HTTP layer needs.
type AccountService interface {
	Register(ctx context.Context, reg users.Registration) (*users.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*users.User, error)
	GetActive(ctx context.Context, id int64) (*users.User, error)
}

type AccountsHandler struct {
	service AccountService
	env     string
}

func NewAccountsHandler(service AccountService, env string) *AccountsHandler {
	return &AccountsHandler{service: service, env: env}
}

type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsHost    bool      `json:"is_host"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Register handles POST /api/auth/register/.
func (h *AccountsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg users.Registration
	if !decodeJSON(w, r, h.env, &reg) {
		return
	}

	user, err := h.service.Register(r.Context(), reg)
	if err != nil {
		if errs, ok := validation.AsErrors(err); ok {
			metrics.AuthEventsTotal.WithLabelValues("register", "invalid").Inc()
			writeValidation(w, r, h.env, errs)
			return
		}
		if conflicts := registrationConflicts(err); len(conflicts) > 0 {
			metrics.AuthEventsTotal.WithLabelValues("register", "conflict").Inc()
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Account already exists", err, h.env,
				problem.WithDetail("An account with these details already exists."),
				problem.WithErrors(conflicts))
			return
		}
		metrics.AuthEventsTotal.WithLabelValues("register", "error").Inc()
		writeServerError(w, r, h.env, err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("register", "success").Inc()
	writeJSON(w, http.StatusCreated, RegisterResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Message:  "User registered successfully",
	})
}

// Me handles GET /api/auth/me/. RequireAuth must run first.
func (h *AccountsHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r, h.env, auth.ErrMissingToken, "Authentication credentials were not provided.")
		return
	}

	user, err := h.service.GetActive(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			writeUnauthorized(w, r, h.env, err, "User not found")
			return
		}
		writeServerError(w, r, h.env, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		IsHost:    user.IsHost,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

func registrationConflicts(err error) validation.Errors {
	errs := validation.Errors{}
	if errors.Is(err, users.ErrUsernameTaken) {
		errs.Add("username", "A user with that username already exists.")
	}
	if errors.Is(err, users.ErrEmailTaken) {
		errs.Add("email", "A user with that email already exists.")
	}
	return errs
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, env string, err error, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env,
		problem.WithDetail(detail))
}
