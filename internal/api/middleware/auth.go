package middleware

import (
	"errors"
	"net/http"

	"github.com/bomanihosts/backend/internal/api/problem"
	"github.com/bomanihosts/backend/internal/auth"
)

// RequireAuth admits only requests bearing a valid access token and attaches
// the caller's Principal to the context.
func RequireAuth(tokens *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(tokens, r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				detail := "Given token not valid for any token type"
				if errors.Is(err, auth.ErrMissingToken) {
					detail = "Authentication credentials were not provided."
				}
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env,
					problem.WithDetail(detail))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalAuth attaches a Principal when a valid access token is present and
// passes every request through.
func OptionalAuth(tokens *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, err := authenticate(tokens, r); err == nil {
				r = r.WithContext(auth.WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(tokens *auth.JWTManager, r *http.Request) (auth.Principal, error) {
	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return auth.Principal{}, err
	}
	claims, err := tokens.Validate(token, auth.TokenAccess)
	if err != nil {
		return auth.Principal{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{UserID: id, Username: claims.Username}, nil
}
